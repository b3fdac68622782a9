package csr

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomEdges(rnd *rand.Rand, numVertices, numEdges int) []types.Edge {
	edges := make([]types.Edge, numEdges)
	for i := range edges {
		edges[i] = types.Edge{
			Src: types.VertexId(rnd.Intn(numVertices)),
			Dst: types.VertexId(rnd.Intn(numVertices)),
		}
	}
	return edges
}

func TestBuildSmallGraph(t *testing.T) {
	g := Build([]types.Edge{{1, 2}, {1, 3}, {2, 4}})

	require.Equal(t, 5, g.NumVertices())
	require.Equal(t, 3, g.NumEdges())
	assert.Equal(t, []int64{0, 0, 2, 3, 3, 3}, g.Offsets().Clone())
	assert.Equal(t, []types.VertexId{2, 3, 4}, g.Adjacency().Clone())
	assert.Equal(t, []types.VertexId{2, 3}, slices.Collect(g.Neighbors(1)))
	assert.Empty(t, slices.Collect(g.Neighbors(0)))
	assert.Equal(t, 0, g.Degree(4))
	assert.Equal(t, types.VertexId(3), g.NeighborAt(1, 1))
	require.NoError(t, g.Validate())
}

func TestBuildVertexCountCountsDestinations(t *testing.T) {
	// 9 only ever appears as a destination.
	g := Build([]types.Edge{{0, 9}})
	assert.Equal(t, 10, g.NumVertices())
	assert.Equal(t, 0, g.Degree(9))
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil)
	assert.Equal(t, 0, g.NumVertices())
	assert.Equal(t, 0, g.NumEdges())
	assert.Equal(t, []int64{0}, g.Offsets().Clone())
	assert.False(t, g.HasVertex(0))
	require.NoError(t, g.Validate())
}

func TestBuildPreservesInputOrderPerVertex(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rnd.Intn(50)
		edges := randomEdges(rnd, n, rnd.Intn(300))
		g := Build(edges)

		want := make(map[types.VertexId][]types.VertexId)
		for _, e := range edges {
			want[e.Src] = append(want[e.Src], e.Dst)
		}

		offsets := g.Offsets().Clone()
		require.Len(t, offsets, g.NumVertices()+1)
		assert.Equal(t, int64(0), offsets[0])
		assert.Equal(t, int64(len(edges)), offsets[g.NumVertices()])
		assert.True(t, slices.IsSorted(offsets), "offsets must be non-decreasing")

		for v := 0; v < g.NumVertices(); v++ {
			got := slices.Collect(g.Neighbors(types.VertexId(v)))
			if len(want[types.VertexId(v)]) == 0 {
				assert.Empty(t, got, "vertex %d", v)
				continue
			}
			assert.Equal(t, want[types.VertexId(v)], got, "vertex %d", v)
		}
	}
}

func TestFromArraysRejectsMalformedGraphs(t *testing.T) {
	tests := []struct {
		name      string
		offset    []int64
		adjacency []types.VertexId
	}{
		{"empty offset", nil, nil},
		{"nonzero first offset", []int64{1, 1}, []types.VertexId{0}},
		{"decreasing offset", []int64{0, 2, 1, 2}, []types.VertexId{0, 1}},
		{"edge count mismatch", []int64{0, 1, 1}, []types.VertexId{0, 1}},
		{"target out of range", []int64{0, 1, 1}, []types.VertexId{2}},
		{"negative target", []int64{0, 1}, []types.VertexId{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromArrays(tt.offset, tt.adjacency)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructural)
			var serr *StructuralError
			assert.True(t, errors.As(err, &serr))
		})
	}
}

func TestFromArraysCopiesInput(t *testing.T) {
	offset := []int64{0, 1, 1}
	adjacency := []types.VertexId{1}
	g, err := FromArrays(offset, adjacency)
	require.NoError(t, err)

	adjacency[0] = 0
	assert.Equal(t, types.VertexId(1), g.NeighborAt(0, 0))
}

func TestMustFromArraysPanics(t *testing.T) {
	assert.Panics(t, func() { MustFromArrays([]int64{0, 3}, nil) })
}

func TestBufferBoundsChecks(t *testing.T) {
	g := Build([]types.Edge{{0, 1}})
	assert.Panics(t, func() { g.Adjacency().At(1) })
	assert.Panics(t, func() { g.Offsets().At(-1) })
	assert.Panics(t, func() { g.NeighborAt(0, 1) })
	assert.Panics(t, func() { g.Adjacency().CloneRange(0, 2) })
}

func TestBufferCloneIsDetached(t *testing.T) {
	g := Build([]types.Edge{{0, 1}})
	c := g.Adjacency().Clone()
	c[0] = 0
	assert.Equal(t, types.VertexId(1), g.Adjacency().At(0))
}

func TestEdgesAndTranspose(t *testing.T) {
	edges := []types.Edge{{2, 0}, {0, 1}, {2, 1}, {0, 2}}
	g := Build(edges)

	var got []types.Edge
	for src, dst := range g.Edges() {
		got = append(got, types.Edge{Src: src, Dst: dst})
	}
	assert.Equal(t, []types.Edge{{0, 1}, {0, 2}, {2, 0}, {2, 1}}, got)

	tr := g.Transpose()
	require.NoError(t, tr.Validate())
	assert.Equal(t, g.NumEdges(), tr.NumEdges())
	assert.Equal(t, []types.VertexId{2}, slices.Collect(tr.Neighbors(0)))
	assert.Equal(t, []types.VertexId{0, 2}, slices.Collect(tr.Neighbors(1)))
	assert.Equal(t, []types.VertexId{0}, slices.Collect(tr.Neighbors(2)))
}

func BenchmarkBuild(b *testing.B) {
	rnd := rand.New(rand.NewSource(42))
	edges := randomEdges(rnd, 10000, 100000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(edges)
	}
}
