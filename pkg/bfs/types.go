// Package bfs defines the level-synchronous breadth-first traversal shared
// by every backend, and implements the sequential and shared-memory
// strategies. Distributed and accelerator strategies live in pkg/dist and
// pkg/device and satisfy the same Traverser interface.
package bfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/csr"
)

// ErrInvalidArgument is returned for an out-of-range source vertex.
var ErrInvalidArgument = errors.New("bfs: invalid argument")

// Unvisited is the level of a vertex the traversal never reached.
const Unvisited int32 = -1

// Output selects how a Result is rendered for verification.
type Output int

const (
	// OutputOrder renders the visitation order.
	OutputOrder Output = iota
	// OutputDistance renders one level per vertex, Unvisited for unreachable ones.
	OutputDistance
)

// ParseOutput maps the traversal.output config value to an Output.
func ParseOutput(s string) (Output, error) {
	switch s {
	case "order", "":
		return OutputOrder, nil
	case "distance":
		return OutputDistance, nil
	default:
		return 0, fmt.Errorf("bfs: unknown output %q", s)
	}
}

func (o Output) String() string {
	if o == OutputDistance {
		return "distance"
	}
	return "order"
}

// Traverser runs one BFS over a CSR graph.
type Traverser interface {
	Name() string
	Traverse(ctx context.Context, g *csr.Graph, source int) (*Result, error)
}

// Result is the outcome of a traversal.
//   - Order: vertices in the order they were discovered, source first.
//   - Levels: per-vertex discovery level, Unvisited when unreachable.
type Result struct {
	Source types.VertexId
	Order  []types.VertexId
	Levels []int32
	// NumLevels counts the non-empty frontiers, source level included.
	NumLevels int
}

// Values renders the result as the integers a reference file holds.
func (r *Result) Values(out Output) []int64 {
	if out == OutputDistance {
		vals := make([]int64, len(r.Levels))
		for i, l := range r.Levels {
			vals[i] = int64(l)
		}
		return vals
	}
	vals := make([]int64, len(r.Order))
	for i, v := range r.Order {
		vals[i] = int64(v)
	}
	return vals
}

// Reached reports whether v was visited.
func (r *Result) Reached(v types.VertexId) bool {
	return int(v) < len(r.Levels) && r.Levels[v] != Unvisited
}

// CheckSource validates source against g. It must run before any traversal
// state is allocated.
func CheckSource(g *csr.Graph, source int) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", ErrInvalidArgument)
	}
	if !g.HasVertex(source) {
		return fmt.Errorf("%w: source %d outside [0, %d)", ErrInvalidArgument, source, g.NumVertices())
	}
	return nil
}

// NewLevels allocates a level array with every vertex unvisited.
func NewLevels(n int) []int32 {
	levels := make([]int32, n)
	for i := range levels {
		levels[i] = Unvisited
	}
	return levels
}
