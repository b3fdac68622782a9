package bfs

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"golang.org/x/sync/errgroup"
)

// DefaultGrain is the frontier size below which a level is expanded inline.
const DefaultGrain = 64

// SharedMemory expands each frontier with a fixed pool of workers over
// disjoint chunks. A vertex is claimed by CAS on its level entry, so exactly
// one worker records it; every worker appends to its own buffer and buffers
// are merged in worker order at the level barrier. The order of vertices
// within a level depends on which worker wins a claim.
type SharedMemory struct {
	workers int
	grain   int
}

// NewSharedMemory returns a pool of workers goroutines. workers <= 0 means
// runtime.NumCPU(); grain <= 0 means DefaultGrain.
func NewSharedMemory(workers, grain int) *SharedMemory {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if grain <= 0 {
		grain = DefaultGrain
	}
	return &SharedMemory{workers: workers, grain: grain}
}

func (s *SharedMemory) Name() string { return fmt.Sprintf("shared_memory(%d)", s.workers) }

// Workers returns the pool size.
func (s *SharedMemory) Workers() int { return s.workers }

func (s *SharedMemory) Traverse(ctx context.Context, g *csr.Graph, source int) (*Result, error) {
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

	locals := make([][]types.VertexId, s.workers)
	frontier := []types.VertexId{types.VertexId(source)}

	for level := int32(0); len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.NumLevels++

		chunks := s.chunk(len(frontier))
		if len(chunks) == 1 {
			locals[0] = expand(g, res.Levels, frontier, level, locals[0][:0])
		} else {
			eg, _ := errgroup.WithContext(ctx)
			eg.SetLimit(s.workers)
			for w, c := range chunks {
				eg.Go(func() error {
					locals[w] = expand(g, res.Levels, frontier[c.lo:c.hi], level, locals[w][:0])
					return nil
				})
			}
			// level barrier
			if err := eg.Wait(); err != nil {
				return nil, err
			}
		}

		next := make([]types.VertexId, 0)
		for w := range chunks {
			next = append(next, locals[w]...)
		}
		res.Order = append(res.Order, next...)
		frontier = next
	}

	return res, nil
}

type span struct{ lo, hi int }

// chunk splits a frontier of size n into at most s.workers contiguous spans
// of at least s.grain vertices.
func (s *SharedMemory) chunk(n int) []span {
	parts := min(s.workers, max(1, n/s.grain))
	size := (n + parts - 1) / parts
	spans := make([]span, 0, parts)
	for lo := 0; lo < n; lo += size {
		spans = append(spans, span{lo: lo, hi: min(lo+size, n)})
	}
	return spans
}

// expand claims the unvisited neighbors of frontier for level+1 and appends
// the ones this caller won to out.
func expand(g *csr.Graph, levels []int32, frontier []types.VertexId, level int32, out []types.VertexId) []types.VertexId {
	for _, u := range frontier {
		for v := range g.Neighbors(u) {
			if atomic.LoadInt32(&levels[v]) != Unvisited {
				continue
			}
			if atomic.CompareAndSwapInt32(&levels[v], Unvisited, level+1) {
				out = append(out, v)
			}
		}
	}
	return out
}
