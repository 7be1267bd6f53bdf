// Package pathutil converts between file:// uris, absolute paths and
// workspace-relative paths.
//
// The server uses uris internally for consistency with the protocol; user
// facing output and on-disk bookkeeping prefer relative paths for
// readability and portability. This package is the conversion layer.
package pathutil

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// URIToPath converts a file:// uri to a filesystem path. Non-file uris and
// plain paths are returned unchanged.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	trimmed := strings.TrimPrefix(uri, "file://")
	if unescaped, err := url.PathUnescape(trimmed); err == nil {
		trimmed = unescaped
	}
	if runtime.GOOS == "windows" {
		trimmed = strings.TrimPrefix(trimmed, "/")
		trimmed = filepath.FromSlash(trimmed)
	}
	return trimmed
}

// PathToURI converts a filesystem path to a file:// uri. Relative paths are
// made absolute first so the uri is stable regardless of working directory.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + abs
}

// ToRelative converts an absolute path to relative based on a root
// directory. Falls back to the original path if conversion fails or the
// path is outside the root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}
