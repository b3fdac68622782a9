package bfs

import (
	"context"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/csr"
)

// Sequential is the reference strategy: one goroutine, frontier expanded in
// insertion order, each adjacency block in stored order.
type Sequential struct{}

// NewSequential returns the sequential strategy.
func NewSequential() *Sequential { return &Sequential{} }

func (s *Sequential) Name() string { return "sequential" }

func (s *Sequential) Traverse(_ context.Context, g *csr.Graph, source int) (*Result, error) {
	if err := CheckSource(g, source); err != nil {
		return nil, err
	}

	n := g.NumVertices()
	res := &Result{
		Source: types.VertexId(source),
		Order:  make([]types.VertexId, 0, n),
		Levels: NewLevels(n),
	}

	res.Levels[source] = 0
	res.Order = append(res.Order, types.VertexId(source))
	frontier := []types.VertexId{types.VertexId(source)}
	next := make([]types.VertexId, 0)

	for level := int32(0); len(frontier) > 0; level++ {
		res.NumLevels++
		for _, u := range frontier {
			for v := range g.Neighbors(u) {
				if res.Levels[v] != Unvisited {
					continue
				}
				res.Levels[v] = level + 1
				res.Order = append(res.Order, v)
				next = append(next, v)
			}
		}
		frontier, next = next, frontier[:0]
	}

	return res, nil
}
