// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfineRelPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.mp4"), []byte("x"), 0o600))
	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	got, err := ConfineRelPath(root, "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realRoot, "a.mp4"), got)

	for _, rel := range []string{"../x", "..", `a\..\b`, "/etc/passwd"} {
		_, err := ConfineRelPath(root, rel)
		assert.ErrorIs(t, err, ErrEscape, rel)
	}

	_, err = ConfineRelPath(root, "missing.mp4")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestConfineRelPath_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(outside, []byte("s"), 0o600))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := ConfineRelPath(root, "link")
	assert.ErrorIs(t, err, ErrEscape)
}

func TestOpenRegular(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	f, info, err := OpenRegular(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, int64(3), info.Size())

	_, _, err = OpenRegular(dir)
	assert.Error(t, err)
}
