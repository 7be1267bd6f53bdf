package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIToPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path expectations")
	}
	assert.Equal(t, "/ws/main.rho", URIToPath("file:///ws/main.rho"))
	assert.Equal(t, "/ws/with space.rho", URIToPath("file:///ws/with%20space.rho"))
	assert.Equal(t, "/already/a/path.rho", URIToPath("/already/a/path.rho"))
}

func TestPathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path expectations")
	}
	assert.Equal(t, "file:///ws/main.rho", PathToURI("/ws/main.rho"))
	assert.Equal(t, "file:///ws/main.rho", PathToURI("file:///ws/main.rho"), "idempotent")
}

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path expectations")
	}
	paths := []string{"/ws/a.rho", "/deep/nested/dir/b.metta"}
	for _, p := range paths {
		assert.Equal(t, p, URIToPath(PathToURI(p)))
	}
}

func TestToRelative(t *testing.T) {
	sep := string(filepath.Separator)
	root := filepath.Join(sep, "home", "user", "project")

	inside := filepath.Join(root, "src", "main.rho")
	assert.Equal(t, filepath.Join("src", "main.rho"), ToRelative(inside, root))

	outside := filepath.Join(sep, "other", "file.rho")
	assert.Equal(t, outside, ToRelative(outside, root), "paths outside the root stay absolute")

	assert.Equal(t, "src/main.rho", ToRelative("src/main.rho", root), "relative input passes through")
	assert.Equal(t, "", ToRelative("", root))
}
