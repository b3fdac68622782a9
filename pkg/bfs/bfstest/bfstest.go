// Package bfstest holds graph fixtures and result comparisons shared by the
// tests of every traversal backend.
package bfstest

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edges builds an edge slice from (src, dst) pairs.
func Edges(pairs ...[2]int) []types.Edge {
	edges := make([]types.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = types.Edge{Src: types.VertexId(p[0]), Dst: types.VertexId(p[1])}
	}
	return edges
}

// RandomGraph returns a graph with n vertices and m uniformly random edges.
func RandomGraph(seed int64, n, m int) *csr.Graph {
	rnd := rand.New(rand.NewSource(seed))
	edges := make([]types.Edge, 0, m+1)
	for i := 0; i < m; i++ {
		edges = append(edges, types.Edge{
			Src: types.VertexId(rnd.Intn(n)),
			Dst: types.VertexId(rnd.Intn(n)),
		})
	}
	// pin the vertex count to n
	edges = append(edges, types.Edge{Src: types.VertexId(n - 1), Dst: types.VertexId(n - 1)})
	return csr.Build(edges)
}

// Grid returns a directed rows x cols grid with right and down edges.
func Grid(rows, cols int) *csr.Graph {
	edges := make([]types.Edge, 0, 2*rows*cols)
	id := func(r, c int) types.VertexId { return types.VertexId(r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				edges = append(edges, types.Edge{Src: id(r, c), Dst: id(r, c+1)})
			}
			if r+1 < rows {
				edges = append(edges, types.Edge{Src: id(r, c), Dst: id(r+1, c)})
			}
		}
	}
	return csr.Build(edges)
}

// AssertEquivalent checks that got visits the same vertices at the same
// levels as want, and that its order is grouped by level.
func AssertEquivalent(t testing.TB, want, got *bfs.Result) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Levels, got.Levels, "levels differ")
	assert.Equal(t, want.NumLevels, got.NumLevels, "level count differs")
	require.Len(t, got.Order, len(want.Order))
	assert.ElementsMatch(t, want.Order, got.Order)
	AssertLevelOrdered(t, got)
}

// AssertLevelOrdered checks that Order starts at the source and never visits
// a vertex of level k after one of level k+1.
func AssertLevelOrdered(t testing.TB, res *bfs.Result) {
	t.Helper()
	require.NotEmpty(t, res.Order)
	assert.Equal(t, res.Source, res.Order[0])
	prev := int32(0)
	seen := make(map[types.VertexId]bool, len(res.Order))
	for _, v := range res.Order {
		assert.False(t, seen[v], "vertex %d visited twice", v)
		seen[v] = true
		l := res.Levels[v]
		assert.GreaterOrEqual(t, l, prev, "vertex %d at level %d after level %d", v, l, prev)
		prev = l
	}
}

// Conformance runs the scenarios every Traverser must satisfy, comparing
// against the sequential strategy.
func Conformance(t *testing.T, tr bfs.Traverser) {
	ctx := context.Background()
	seq := bfs.NewSequential()

	t.Run("small scenario", func(t *testing.T) {
		g := csr.Build(Edges([2]int{1, 2}, [2]int{1, 3}, [2]int{2, 4}))
		res, err := tr.Traverse(ctx, g, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.VertexId{1, 2, 3, 4}, res.Order)
		assert.Equal(t, []int32{bfs.Unvisited, 0, 1, 1, 2}, res.Levels)
		assert.Equal(t, types.VertexId(4), res.Order[3])
	})

	t.Run("two cycle", func(t *testing.T) {
		g := csr.Build(Edges([2]int{0, 1}, [2]int{1, 0}))
		res, err := tr.Traverse(ctx, g, 0)
		require.NoError(t, err)
		assert.Equal(t, []types.VertexId{0, 1}, res.Order)
	})

	t.Run("isolated source", func(t *testing.T) {
		g := csr.Build(Edges([2]int{0, 1}, [2]int{1, 2}))
		res, err := tr.Traverse(ctx, g, 2)
		require.NoError(t, err)
		assert.Equal(t, []types.VertexId{2}, res.Order)
		assert.Equal(t, []int32{bfs.Unvisited, bfs.Unvisited, 0}, res.Levels)
	})

	t.Run("invalid source", func(t *testing.T) {
		empty := csr.Build(nil)
		for _, src := range []int{0, 1, -1} {
			_, err := tr.Traverse(ctx, empty, src)
			assert.True(t, errors.Is(err, bfs.ErrInvalidArgument), "source %d on empty graph: %v", src, err)
		}
		g := csr.Build(Edges([2]int{0, 1}))
		for _, src := range []int{-1, 2, 100} {
			_, err := tr.Traverse(ctx, g, src)
			assert.ErrorIs(t, err, bfs.ErrInvalidArgument)
		}
	})

	t.Run("matches sequential", func(t *testing.T) {
		graphs := map[string]*csr.Graph{
			"sparse": RandomGraph(1, 500, 800),
			"dense":  RandomGraph(2, 200, 4000),
			"grid":   Grid(20, 30),
		}
		for name, g := range graphs {
			for _, src := range []int{0, g.NumVertices() / 2, g.NumVertices() - 1} {
				want, err := seq.Traverse(ctx, g, src)
				require.NoError(t, err)
				got, err := tr.Traverse(ctx, g, src)
				require.NoError(t, err, "%s from %d", name, src)
				AssertEquivalent(t, want, got)
			}
		}
	})

	t.Run("repeatable", func(t *testing.T) {
		g := RandomGraph(3, 300, 900)
		first, err := tr.Traverse(ctx, g, 0)
		require.NoError(t, err)
		second, err := tr.Traverse(ctx, g, 0)
		require.NoError(t, err)
		AssertEquivalent(t, first, second)
	})
}

// SortedCopy returns a sorted copy of vs.
func SortedCopy(vs []types.VertexId) []types.VertexId {
	out := slices.Clone(vs)
	slices.Sort(out)
	return out
}
