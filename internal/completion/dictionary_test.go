package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1r3fly-io/rholang-language-server/internal/ir"
	"github.com/f1r3fly-io/rholang-language-server/internal/symbols"
)

func contractSym(name string) symbols.SymbolInfo {
	return symbols.SymbolInfo{Name: name, Kind: symbols.KindContractBind, Language: ir.LangRholang}
}

func labels(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.Label)
	}
	return out
}

func TestStaticKeywordCompletion(t *testing.T) {
	d := NewDictionary()

	items := d.Query("con", 0)
	assert.Contains(t, labels(items), "contract")

	items = d.Query("ne", 0)
	assert.Contains(t, labels(items), "new")
}

func TestDynamicSymbolCompletion(t *testing.T) {
	d := NewDictionary()
	d.AddSymbols("file:///ws/bank.rho", []symbols.SymbolInfo{
		contractSym("transfer"),
		contractSym("transferAll"),
		contractSym("balance"),
	})

	items := d.Query("trans", 0)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"transfer", "transferAll"}, labels(items))
	assert.Equal(t, "file:///ws/bank.rho", items[0].URI)
	assert.Equal(t, ItemContract, items[0].Kind)
}

func TestQueryMergesStaticAndDynamic(t *testing.T) {
	d := NewDictionary()
	d.AddSymbols("file:///ws/m.rho", []symbols.SymbolInfo{contractSym("newChannel")})

	items := d.Query("new", 0)
	got := labels(items)
	assert.Contains(t, got, "new", "static keyword")
	assert.Contains(t, got, "newChannel", "dynamic symbol")
}

func TestEmptyPrefixEnumeratesEverything(t *testing.T) {
	d := NewDictionary()
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{contractSym("alpha")})

	items := d.Query("", 0)
	assert.Greater(t, len(items), len(rholangKeywords))
}

func TestQueryLimit(t *testing.T) {
	d := NewDictionary()
	items := d.Query("", 3)
	assert.Len(t, items, 3)
}

func TestRemoveDocumentSymbols(t *testing.T) {
	d := NewDictionary()
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{contractSym("fromA")})
	d.AddSymbols("file:///ws/b.rho", []symbols.SymbolInfo{contractSym("fromB")})

	d.RemoveDocumentSymbols("file:///ws/a.rho")

	assert.Empty(t, d.Query("fromA", 0))
	assert.NotEmpty(t, d.Query("fromB", 0))
}

func TestReindexSwapIsExact(t *testing.T) {
	// The re-indexer always removes then re-adds a document's symbols; the
	// result must equal indexing the new set from scratch.
	d := NewDictionary()
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{contractSym("old1"), contractSym("old2")})

	d.RemoveDocumentSymbols("file:///ws/a.rho")
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{contractSym("new1")})

	assert.Empty(t, d.Query("old", 0))
	assert.Len(t, d.Query("new1", 0), 1)
	assert.Equal(t, 1, d.Len())
}

func TestCaseInsensitivePrefix(t *testing.T) {
	d := NewDictionary()
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{contractSym("TransferTokens")})

	items := d.Query("transfer", 0)
	require.Len(t, items, 1)
	assert.Equal(t, "TransferTokens", items[0].Label, "labels keep original casing")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	d := NewDictionary()
	d.AddSymbols("file:///ws/a.rho", []symbols.SymbolInfo{
		contractSym("persistMe"),
		{Name: "helper", Kind: symbols.KindFunctionDef, Language: ir.LangMeTTa},
	})
	require.NoError(t, d.SaveToFile(dir))

	fresh := NewDictionary()
	require.NoError(t, fresh.LoadFromFile(dir))

	items := fresh.Query("persist", 0)
	require.Len(t, items, 1)
	assert.Equal(t, "persistMe", items[0].Label)
	assert.Equal(t, ItemContract, items[0].Kind)

	// Ownership survives: removing the document clears restored entries.
	fresh.RemoveDocumentSymbols("file:///ws/a.rho")
	assert.Empty(t, fresh.Query("persist", 0))
}

func TestLoadMissingFileIsColdStart(t *testing.T) {
	d := NewDictionary()
	assert.NoError(t, d.LoadFromFile(t.TempDir()))
	assert.Zero(t, d.Len())
}
