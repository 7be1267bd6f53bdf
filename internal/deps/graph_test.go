package deps

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestForwardReverseMirror(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a.rho", "b.rho")
	g.AddDependency("a.rho", "c.rho")
	g.AddDependency("b.rho", "c.rho")

	assert.True(t, g.HasEdge("a.rho", "b.rho"))
	assert.Equal(t, []string{"a.rho"}, sorted(g.DirectDependents("b.rho")))
	assert.Equal(t, []string{"a.rho", "b.rho"}, sorted(g.DirectDependents("c.rho")))
	assert.True(t, g.CheckConsistent())
}

func TestSelfEdgeIgnored(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a.rho", "a.rho")
	assert.Zero(t, g.EdgeCount())
}

func TestTransitiveDependents(t *testing.T) {
	// main -> contract -> utils: modifying utils affects both dependents.
	g := NewGraph()
	g.AddDependency("contract.rho", "utils.rho")
	g.AddDependency("main.rho", "contract.rho")

	deps := sorted(g.Dependents("utils.rho"))
	assert.Equal(t, []string{"contract.rho", "main.rho"}, deps)

	assert.Empty(t, g.Dependents("main.rho"))
}

func TestDependentsExcludesSelf(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a.rho", "b.rho")

	for _, uri := range []string{"a.rho", "b.rho"} {
		for _, dep := range g.Dependents(uri) {
			assert.NotEqual(t, uri, dep)
		}
	}
}

func TestCyclicImportsTerminate(t *testing.T) {
	// A -> B -> A: both edges stored, BFS terminates, each side sees the
	// other exactly once.
	g := NewGraph()
	g.AddDependency("a.rho", "b.rho")
	g.AddDependency("b.rho", "a.rho")

	assert.Equal(t, []string{"b.rho"}, g.Dependents("a.rho"))
	assert.Equal(t, []string{"a.rho"}, g.Dependents("b.rho"))
	assert.True(t, g.CheckConsistent())
}

func TestUnknownFileYieldsEmpty(t *testing.T) {
	g := NewGraph()
	assert.Empty(t, g.Dependents("ghost.rho"))
	assert.Empty(t, g.DependenciesOf("ghost.rho"))
}

func TestRemoveFileDeletesBothDirections(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a.rho", "b.rho")
	g.AddDependency("b.rho", "c.rho")
	g.AddDependency("d.rho", "b.rho")

	g.RemoveFile("b.rho")

	assert.Empty(t, g.DependenciesOf("b.rho"))
	assert.Empty(t, g.Dependents("b.rho"))
	assert.False(t, g.HasEdge("a.rho", "b.rho"))
	assert.False(t, g.HasEdge("b.rho", "c.rho"))
	assert.Empty(t, g.Dependents("c.rho"))
	assert.True(t, g.CheckConsistent())
}

func TestSetDependenciesReplacesWholesale(t *testing.T) {
	g := NewGraph()
	g.AddDependency("a.rho", "old.rho")

	g.SetDependencies("a.rho", []string{"new1.rho", "new2.rho"})

	assert.False(t, g.HasEdge("a.rho", "old.rho"))
	assert.True(t, g.HasEdge("a.rho", "new1.rho"))
	assert.True(t, g.HasEdge("a.rho", "new2.rho"))
	assert.Empty(t, g.Dependents("old.rho"))
	assert.True(t, g.CheckConsistent())

	require.Equal(t, 2, g.EdgeCount())
}

func TestDiamondDependentsVisitedOnce(t *testing.T) {
	// b and c depend on d; a depends on both b and c. Dependents(d) must
	// contain a exactly once.
	g := NewGraph()
	g.AddDependency("b.rho", "d.rho")
	g.AddDependency("c.rho", "d.rho")
	g.AddDependency("a.rho", "b.rho")
	g.AddDependency("a.rho", "c.rho")

	deps := g.Dependents("d.rho")
	counts := map[string]int{}
	for _, d := range deps {
		counts[d]++
	}
	assert.Equal(t, 1, counts["a.rho"])
	assert.Len(t, deps, 3)
}
