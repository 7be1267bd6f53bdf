package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/f1r3fly-io/rholang-language-server/internal/config"
	"github.com/f1r3fly-io/rholang-language-server/internal/indexing"
	"github.com/f1r3fly-io/rholang-language-server/internal/position"
	"github.com/f1r3fly-io/rholang-language-server/pkg/pathutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testWorkspace creates a workspace directory with the given files and an
// engine over it. The watcher is disabled for determinism; the debounce
// window is short so flush-driven tests stay fast.
func testWorkspace(t *testing.T, files map[string]string) (*Engine, string, *diagSink) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Index.WatchMode = false
	cfg.Index.WatchDebounceMs = 30
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")

	sink := &diagSink{}
	e := NewEngine(cfg, sink.publish)
	require.NoError(t, e.Initialize(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, e.Shutdown(context.Background()))
	})
	return e, root, sink
}

type diagSink struct {
	mu    sync.Mutex
	byURI map[string][]Diagnostic
}

func (s *diagSink) publish(uri string, version int32, diags []Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byURI == nil {
		s.byURI = make(map[string][]Diagnostic)
	}
	s.byURI[uri] = diags
}

func (s *diagSink) get(uri string) []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byURI[uri]
}

func uriFor(root, rel string) string {
	return pathutil.PathToURI(filepath.Join(root, rel))
}

func TestCacheHitOnReopen(t *testing.T) {
	text := `contract myC(@x) = { Nil }`
	e, root, _ := testWorkspace(t, map[string]string{"foo.rho": text})
	uri := uriFor(root, "foo.rho")

	before, ok := e.documentByURI(uri)
	require.True(t, ok)
	hitsBefore := e.Stats().Hits

	e.Open(uri, text, 1)
	e.Close(uri)
	e.Open(uri, text, 2)

	after, ok := e.documentByURI(uri)
	require.True(t, ok)
	assert.Same(t, before, after, "identical content must reuse the cached document")
	assert.GreaterOrEqual(t, e.Stats().Hits, hitsBefore+2)
}

func TestOpenPublishesParseDiagnostics(t *testing.T) {
	e, root, sink := testWorkspace(t, nil)
	uri := uriFor(root, "bad.rho")

	diags := e.Open(uri, "new x in {", 1)
	require.NotEmpty(t, diags)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, diags, sink.get(uri))
}

func TestDebouncedEditsReindexOnce(t *testing.T) {
	text := `contract c(@x) = { Nil }`
	e, root, _ := testWorkspace(t, map[string]string{"bar.rho": text})
	uri := uriFor(root, "bar.rho")
	e.Open(uri, text, 1)

	// Four rapid full-text edits coalesce into one dirty entry.
	for i := 0; i < 4; i++ {
		require.NoError(t, e.Change(uri, []TextChange{{NewText: text + "\n"}}, int32(i+2)))
	}
	assert.Equal(t, 1, e.dirty.Pending())

	e.Flush()
	assert.Zero(t, e.dirty.Pending())

	doc, ok := e.documentByURI(uri)
	require.True(t, ok)
	assert.Equal(t, text+"\n", doc.Text)
}

func TestIncrementalChangeAppliesRangeEdit(t *testing.T) {
	text := "new x in {\n  x!(1)\n}\n"
	e, root, _ := testWorkspace(t, nil)
	uri := uriFor(root, "edit.rho")
	e.Open(uri, text, 1)

	// Replace the literal 1 with 42.
	require.NoError(t, e.Change(uri, []TextChange{{
		HasRange: true,
		Range: position.Range{
			Start: position.Position{Line: 1, Column: 5},
			End:   position.Position{Line: 1, Column: 6},
		},
		NewText: "42",
	}}, 2))
	e.Flush()

	doc, ok := e.documentByURI(uri)
	require.True(t, ok)
	assert.Contains(t, doc.Text, "x!(42)")
}

func TestTransitiveReindex(t *testing.T) {
	files := map[string]string{
		"utils.rho":    `contract util(@x) = { Nil }`,
		"contract.rho": `util!(1) | contract middle(@y) = { Nil }`,
		"main.rho":     `middle!(2)`,
	}
	e, root, _ := testWorkspace(t, files)

	utils := uriFor(root, "utils.rho")
	contract := uriFor(root, "contract.rho")
	main := uriFor(root, "main.rho")

	deps := e.Dependents(utils)
	assert.ElementsMatch(t, []string{contract, main}, deps)

	// Touch utils and flush: all three mtimes refresh.
	beforeMain, _ := e.mod.Stored(main)
	time.Sleep(1100 * time.Millisecond) // ensure a distinct fs mtime second
	require.NoError(t, os.WriteFile(filepath.Join(root, "utils.rho"),
		[]byte(`contract util(@x, @y) = { Nil }`), 0o644))

	e.MarkDirty(utils, indexing.PriorityBackground, indexing.ReasonFileWatcher)
	e.Flush()

	doc, ok := e.documentByURI(utils)
	require.True(t, ok)
	assert.Contains(t, doc.Text, "@y")

	afterMain, ok := e.mod.Stored(main)
	require.True(t, ok)
	assert.False(t, afterMain.Before(beforeMain), "dependents are re-marked as indexed")
}

func TestGotoDefinitionAcrossFiles(t *testing.T) {
	files := map[string]string{
		"contract.rho": `contract myC(@x, @y) = { Nil }`,
		"call.rho":     `myC!(42, 100)`,
	}
	e, root, _ := testWorkspace(t, files)

	locs := e.GotoDefinition(uriFor(root, "call.rho"), 0, 0)
	require.Len(t, locs, 1)
	assert.Equal(t, uriFor(root, "contract.rho"), locs[0].URI)
	assert.Equal(t, 9, locs[0].Range.Start.Byte)
}

func TestEncodingFailureFallsBackSilently(t *testing.T) {
	files := map[string]string{
		"contract.rho": `contract myC(@x) = { Nil }`,
		"call.rho":     `new v in { myC!(v) }`,
	}
	e, root, sink := testWorkspace(t, files)

	src := files["call.rho"]
	col := strings.Index(src, "myC")
	locs := e.GotoDefinition(uriFor(root, "call.rho"), 0, col)
	require.Len(t, locs, 1)
	assert.Equal(t, uriFor(root, "contract.rho"), locs[0].URI)
	assert.Empty(t, sink.get(uriFor(root, "call.rho")), "no error surfaces to the user")
}

func TestReferencesAndRename(t *testing.T) {
	files := map[string]string{
		"def.rho": `contract shared(@x) = { Nil }`,
		"use.rho": `shared!(7)`,
	}
	e, root, _ := testWorkspace(t, files)

	refs := e.References(uriFor(root, "def.rho"), 0, 9, true)
	uris := map[string]bool{}
	for _, r := range refs {
		uris[r.URI] = true
	}
	assert.True(t, uris[uriFor(root, "def.rho")])
	assert.True(t, uris[uriFor(root, "use.rho")])

	edit := e.Rename(uriFor(root, "def.rho"), 0, 9, "renamed")
	assert.Len(t, edit.Changes, 2)
	for _, edits := range edit.Changes {
		for _, te := range edits {
			assert.Equal(t, "renamed", te.NewText)
		}
	}
}

func TestHoverContractSignature(t *testing.T) {
	files := map[string]string{"c.rho": `contract myC(@x, @y) = { Nil }`}
	e, root, _ := testWorkspace(t, files)

	markdown, _, ok := e.Hover(uriFor(root, "c.rho"), 0, 9)
	require.True(t, ok)
	assert.Contains(t, markdown, "contract myC(@x, @y)")
}

func TestCompletionMixesKeywordsAndSymbols(t *testing.T) {
	files := map[string]string{"lib.rho": `contract newChannel(@x) = { Nil }`}
	e, root, _ := testWorkspace(t, files)

	uri := uriFor(root, "open.rho")
	e.Open(uri, "ne", 1)

	items := e.Completion(uri, 0, 2)
	names := map[string]bool{}
	for _, item := range items {
		names[item.Label] = true
	}
	assert.True(t, names["new"], "keyword")
	assert.True(t, names["newChannel"], "workspace symbol")
}

func TestDocumentSymbolsTree(t *testing.T) {
	files := map[string]string{"t.rho": `contract outer(@param) = { Nil }`}
	e, root, _ := testWorkspace(t, files)

	tree := e.DocumentSymbols(uriFor(root, "t.rho"))
	require.Len(t, tree, 1)
	assert.Equal(t, "outer", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "param", tree[0].Children[0].Name)
}

func TestWorkspaceSymbolsFuzzy(t *testing.T) {
	files := map[string]string{
		"bank.rho": `contract transferTokens(@from, @to) = { Nil }`,
	}
	e, root, _ := testWorkspace(t, files)

	results := e.WorkspaceSymbols("transfer")
	require.NotEmpty(t, results)
	assert.Equal(t, "transferTokens", results[0].Name)
	assert.Equal(t, uriFor(root, "bank.rho"), results[0].Location.URI)
}

func TestFileWatcherDeleteRemovesDocument(t *testing.T) {
	files := map[string]string{"gone.rho": `contract g(@x) = { Nil }`}
	e, root, _ := testWorkspace(t, files)
	uri := uriFor(root, "gone.rho")

	e.FileWatcherEvent(uri, indexing.FileDeleted)

	_, ok := e.documentByURI(uri)
	assert.False(t, ok)
	assert.Empty(t, e.GotoDefinition(uri, 0, 0))
	assert.Empty(t, e.WorkspaceSymbols("g"))
}

func TestPersistentWarmStart(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	text := `contract warm(@x) = { Nil }`
	require.NoError(t, os.WriteFile(filepath.Join(root, "warm.rho"), []byte(text), 0o644))

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Index.WatchMode = false
	cfg.Cache.Dir = cacheDir

	first := NewEngine(cfg, nil)
	require.NoError(t, first.Initialize(context.Background()))
	require.NoError(t, first.Shutdown(context.Background()))

	// The cache directory has a manifest and one entry.
	_, err := os.Stat(filepath.Join(cacheDir, "metadata.json"))
	require.NoError(t, err)

	cfg2 := config.Default()
	cfg2.Project.Root = root
	cfg2.Index.WatchMode = false
	cfg2.Cache.Dir = cacheDir

	second := NewEngine(cfg2, nil)
	require.NoError(t, second.Initialize(context.Background()))
	defer func() { require.NoError(t, second.Shutdown(context.Background())) }()

	// The document table is populated from the cold cache and queries work
	// without re-parsing.
	uri := uriFor(root, "warm.rho")
	doc, ok := second.documentByURI(uri)
	require.True(t, ok)
	assert.Empty(t, doc.Text, "warm-loaded documents carry no rope until lazily needed")

	locs := second.GotoDefinition(uriFor(root, "warm.rho"), 0, 9)
	require.Len(t, locs, 1)
	assert.Equal(t, uri, locs[0].URI)
}

func TestWarmStartDiscardsChangedFile(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	path := filepath.Join(root, "changing.rho")
	require.NoError(t, os.WriteFile(path, []byte(`contract v1(@x) = { Nil }`), 0o644))

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Index.WatchMode = false
	cfg.Cache.Dir = cacheDir

	first := NewEngine(cfg, nil)
	require.NoError(t, first.Initialize(context.Background()))
	require.NoError(t, first.Shutdown(context.Background()))

	// Modify the file behind the server's back with a newer mtime.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte(`contract v2(@x) = { Nil }`), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	second := NewEngine(cfg, nil)
	require.NoError(t, second.Initialize(context.Background()))
	defer func() { require.NoError(t, second.Shutdown(context.Background())) }()

	results := second.WorkspaceSymbols("v2")
	require.NotEmpty(t, results, "the stale cache entry must be discarded and the file re-indexed")
	assert.Empty(t, second.WorkspaceSymbols("v1"))
}
