// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/ytrelay/internal/fsutil"
	"github.com/ManuGH/ytrelay/internal/log"
)

// secureFileServer serves finished artifacts from the downloads directory.
// Directory listings, traversal sequences and symlinks leaving the
// directory are refused.
func (s *Server) secureFileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")
		deny := func(code int, reason string) {
			logger.Warn().
				Str(log.FieldEvent, "file_req.denied").
				Str(log.FieldPath, r.URL.Path).
				Str("reason", reason).
				Msg("file request denied")
			http.Error(w, http.StatusText(code), code)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			deny(http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.HasSuffix(name, "/") {
			deny(http.StatusForbidden, "directory_listing")
			return
		}
		if isPathTraversal(name) || !safeBaseName(name) {
			deny(http.StatusForbidden, "path_escape")
			return
		}

		real, err := fsutil.ConfineRelPath(s.cfg.Downloads.Dir, name)
		switch {
		case errors.Is(err, fsutil.ErrEscape):
			deny(http.StatusForbidden, "path_escape")
			return
		case errors.Is(err, fs.ErrNotExist):
			deny(http.StatusNotFound, "not_found")
			return
		case err != nil:
			deny(http.StatusInternalServerError, "internal_error")
			return
		}

		f, info, err := fsutil.OpenRegular(real)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				deny(http.StatusNotFound, "not_found")
				return
			}
			deny(http.StatusForbidden, "directory_listing")
			return
		}
		defer func() { _ = f.Close() }()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// safeBaseName accepts a single path element.
func safeBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.IndexByte(name, 0) >= 0 {
		return false
	}
	return filepath.Base(name) == name
}

// isPathTraversal decodes p a few times, normalises it and looks for
// parent references or NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		d, err := url.PathUnescape(decoded)
		if err != nil || d == decoded {
			break
		}
		decoded = d
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return true
	}
	lower := strings.ToLower(norm.NFC.String(decoded))
	for _, pat := range []string{"..", "%00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// contentDisposition builds an attachment header with an ASCII fallback
// and an RFC 5987 UTF-8 name.
func contentDisposition(name string) string {
	name = norm.NFC.String(name)
	fallback := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			r = '_'
		}
		fallback = append(fallback, r)
	}
	v := mime.FormatMediaType("attachment", map[string]string{"filename": string(fallback)})
	if v == "" {
		v = `attachment; filename="download"`
	}
	if string(fallback) != name {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}
