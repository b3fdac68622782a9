// Package csr holds the compressed-sparse-row graph used by every traversal
// backend. A Graph is immutable once built: an offset array of length V+1
// and an adjacency array of length E, where the out-neighbors of v are
// adjacency[offset[v]:offset[v+1]] in input order.
package csr

import (
	"errors"
	"fmt"
	"iter"

	"github.com/pjavanrood/csrbench/internal/types"
)

// ErrStructural marks a graph whose arrays violate the CSR invariants.
var ErrStructural = errors.New("csr: structural invariant violated")

// StructuralError reports which invariant failed and where.
type StructuralError struct {
	Invariant string
	Index     int
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("csr: structural invariant violated at index %d: %s", e.Index, e.Invariant)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// Graph is a CSR graph.
type Graph struct {
	offset    Buffer[int64]
	adjacency Buffer[types.VertexId]
}

// Build constructs a graph from edges in two passes over the input. The
// vertex count is one more than the largest id seen on either endpoint.
func Build(edges []types.Edge) *Graph {
	// Pass 1: vertex and edge counts.
	maxVertex := types.VertexId(-1)
	for _, e := range edges {
		maxVertex = max(maxVertex, e.Src, e.Dst)
	}
	numVertices := int(maxVertex) + 1

	offset := make([]int64, numVertices+1)
	for _, e := range edges {
		offset[e.Src+1]++
	}
	for v := 1; v <= numVertices; v++ {
		offset[v] += offset[v-1]
	}

	// Pass 2: place destinations in input order.
	adjacency := make([]types.VertexId, len(edges))
	cursor := make([]int64, numVertices)
	copy(cursor, offset[:numVertices])
	for _, e := range edges {
		adjacency[cursor[e.Src]] = e.Dst
		cursor[e.Src]++
	}

	return &Graph{
		offset:    newBuffer("offset", offset),
		adjacency: newBuffer("adjacency", adjacency),
	}
}

// FromArrays adopts arrays built elsewhere after validating them. The slices
// are copied.
func FromArrays(offset []int64, adjacency []types.VertexId) (*Graph, error) {
	g := &Graph{
		offset:    newBuffer("offset", append([]int64(nil), offset...)),
		adjacency: newBuffer("adjacency", append([]types.VertexId(nil), adjacency...)),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustFromArrays is FromArrays for arrays known to be well formed; a
// violation panics.
func MustFromArrays(offset []int64, adjacency []types.VertexId) *Graph {
	g, err := FromArrays(offset, adjacency)
	if err != nil {
		panic(err)
	}
	return g
}

// Validate checks every CSR invariant.
func (g *Graph) Validate() error {
	return ValidateArrays(g.offset.data, g.adjacency.data, g.offset.Len()-1)
}

// ValidateArrays checks a CSR block whose adjacency entries must lie in
// [0, numTargets). Partitions validate their slice of the graph with it.
func ValidateArrays(offset []int64, adjacency []types.VertexId, numTargets int) error {
	if len(offset) == 0 {
		return &StructuralError{Invariant: "offset must have at least one entry", Index: 0}
	}
	if offset[0] != 0 {
		return &StructuralError{Invariant: "offset[0] must be 0", Index: 0}
	}
	for i := 1; i < len(offset); i++ {
		if offset[i] < offset[i-1] {
			return &StructuralError{Invariant: "offset must be non-decreasing", Index: i}
		}
	}
	if last := len(offset) - 1; offset[last] != int64(len(adjacency)) {
		return &StructuralError{
			Invariant: fmt.Sprintf("offset[%d]=%d must equal edge count %d", last, offset[last], len(adjacency)),
			Index:     last,
		}
	}
	for i, v := range adjacency {
		if v < 0 || int(v) >= numTargets {
			return &StructuralError{
				Invariant: fmt.Sprintf("adjacency target %d outside [0, %d)", v, numTargets),
				Index:     i,
			}
		}
	}
	return nil
}

// NumVertices returns V.
func (g *Graph) NumVertices() int { return g.offset.Len() - 1 }

// NumEdges returns E.
func (g *Graph) NumEdges() int { return g.adjacency.Len() }

// HasVertex reports whether v is a vertex id of g.
func (g *Graph) HasVertex(v int) bool { return v >= 0 && v < g.NumVertices() }

// Degree returns the out-degree of v.
func (g *Graph) Degree(v types.VertexId) int {
	return int(g.offset.At(int(v)+1) - g.offset.At(int(v)))
}

// Neighbors yields the out-neighbors of v in stored order.
func (g *Graph) Neighbors(v types.VertexId) iter.Seq[types.VertexId] {
	return g.adjacency.Range(int(g.offset.At(int(v))), int(g.offset.At(int(v)+1)))
}

// NeighborAt returns the i-th out-neighbor of v.
func (g *Graph) NeighborAt(v types.VertexId, i int) types.VertexId {
	if i < 0 || i >= g.Degree(v) {
		panic(fmt.Sprintf("csr: neighbor index %d out of range for vertex %d with degree %d", i, v, g.Degree(v)))
	}
	return g.adjacency.At(int(g.offset.At(int(v))) + i)
}

// Offsets returns the read-only offset array.
func (g *Graph) Offsets() Buffer[int64] { return g.offset }

// Adjacency returns the read-only adjacency array.
func (g *Graph) Adjacency() Buffer[types.VertexId] { return g.adjacency }

// Edges yields every (src, dst) pair grouped by source.
func (g *Graph) Edges() iter.Seq2[types.VertexId, types.VertexId] {
	return func(yield func(types.VertexId, types.VertexId) bool) {
		for v := 0; v < g.NumVertices(); v++ {
			for i := g.offset.data[v]; i < g.offset.data[v+1]; i++ {
				if !yield(types.VertexId(v), g.adjacency.data[i]) {
					return
				}
			}
		}
	}
}

// Transpose returns the graph with every edge reversed. Within each reversed
// block, sources appear in increasing order.
func (g *Graph) Transpose() *Graph {
	n := g.NumVertices()
	offset := make([]int64, n+1)
	for _, dst := range g.adjacency.data {
		offset[dst+1]++
	}
	for v := 1; v <= n; v++ {
		offset[v] += offset[v-1]
	}
	adjacency := make([]types.VertexId, g.NumEdges())
	cursor := make([]int64, n)
	copy(cursor, offset[:n])
	for src, dst := range g.Edges() {
		adjacency[cursor[dst]] = src
		cursor[dst]++
	}
	return &Graph{
		offset:    newBuffer("offset", offset),
		adjacency: newBuffer("adjacency", adjacency),
	}
}
