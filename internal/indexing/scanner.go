package indexing

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
)

// DefaultInclude covers the two supported languages.
var DefaultInclude = []string{"**/*.rho", "**/*.metta", "**/*.metta2"}

// DefaultExclude skips the usual noise directories.
var DefaultExclude = []string{"**/.git/**", "**/node_modules/**", "**/target/**", "**/.rholang-ls/**"}

// DefaultMaxFileSize skips generated blobs; real source files never get
// near it.
const DefaultMaxFileSize = 4 * 1024 * 1024

// Scanner walks the workspace discovering indexable files.
type Scanner struct {
	Root        string
	Include     []string
	Exclude     []string
	MaxFileSize int64
}

// NewScanner creates a scanner with defaults for unset fields.
func NewScanner(root string, include, exclude []string, maxFileSize int64) *Scanner {
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude = append(append([]string(nil), DefaultExclude...), exclude...)
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Scanner{Root: root, Include: include, Exclude: exclude, MaxFileSize: maxFileSize}
}

// Scan returns the relative paths of every matching file under the root.
// Walk errors on subtrees are skipped, not fatal; symlink cycles are broken
// by tracking resolved directories.
func (s *Scanner) Scan() ([]string, error) {
	var out []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(s.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return filepath.SkipDir
			}
			if visited[real] {
				return filepath.SkipDir
			}
			visited[real] = true
			// A directory is prunable when any child of it would be
			// excluded by a directory pattern.
			if rel != "." && s.excluded(rel+"/x") {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.Matches(rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > s.MaxFileSize {
			if err == nil {
				debug.LogIndexing("skipping oversized file %s (%d bytes)\n", rel, info.Size())
			}
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out, err
}

// Matches reports whether a workspace-relative path is indexable.
func (s *Scanner) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if s.excluded(rel) {
		return false
	}
	for _, pattern := range s.Include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// MatchesAbs reports whether an absolute path inside the root is indexable.
func (s *Scanner) MatchesAbs(abs string) bool {
	rel, err := filepath.Rel(s.Root, abs)
	if err != nil {
		return false
	}
	if rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(os.PathSeparator) {
		return false
	}
	return s.Matches(rel)
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
