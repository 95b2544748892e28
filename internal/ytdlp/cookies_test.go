// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCookieFile(t *testing.T) {
	dir := t.TempDir()
	path, cleanup, err := WriteCookieFile(dir, "cookies_job-1.txt", "LOGIN_INFO\tabc\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cookies_job-1.txt"), path)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LOGIN_INFO\tabc\n", string(data))

	cleanup()
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteCookieFile_RejectsPathNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"", "../x.txt", "a/b.txt"} {
		_, _, err := WriteCookieFile(dir, name, "x")
		assert.Error(t, err, name)
	}
}
