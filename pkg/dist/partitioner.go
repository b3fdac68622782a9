package dist

import (
	"fmt"

	"github.com/pjavanrood/csrbench/internal/types"
)

// Partitioner assigns every vertex of an n-vertex graph to one of P
// partitions and numbers the vertices of each partition 0..Size(p)-1.
type Partitioner interface {
	Name() string
	NumPartitions() int
	Owner(v types.VertexId) int
	Local(v types.VertexId) int
	Global(p, local int) types.VertexId
	Size(p int) int
}

// NewPartitioner returns the partitioner named by algorithm.
func NewPartitioner(algorithm string, numPartitions, numVertices int) (Partitioner, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("partition count must be positive: %d", numPartitions)
	}
	if numVertices < 0 {
		return nil, fmt.Errorf("vertex count cannot be negative: %d", numVertices)
	}
	switch algorithm {
	case "hash", "":
		return &HashPartitioner{p: numPartitions, n: numVertices}, nil
	case "range":
		block := (numVertices + numPartitions - 1) / numPartitions
		return &RangePartitioner{p: numPartitions, n: numVertices, block: max(block, 1)}, nil
	default:
		return nil, fmt.Errorf("invalid partitioning algorithm: %s (valid options: hash, range)", algorithm)
	}
}

// HashPartitioner deals vertices round-robin: v is owned by v mod P.
type HashPartitioner struct {
	p, n int
}

func (h *HashPartitioner) Name() string       { return "hash" }
func (h *HashPartitioner) NumPartitions() int { return h.p }

func (h *HashPartitioner) Owner(v types.VertexId) int { return int(v) % h.p }
func (h *HashPartitioner) Local(v types.VertexId) int { return int(v) / h.p }

func (h *HashPartitioner) Global(p, local int) types.VertexId {
	return types.VertexId(local*h.p + p)
}

func (h *HashPartitioner) Size(p int) int {
	if p >= h.n {
		return 0
	}
	return (h.n - p + h.p - 1) / h.p
}

// RangePartitioner gives each partition a contiguous block of ceil(n/P) ids.
type RangePartitioner struct {
	p, n, block int
}

func (r *RangePartitioner) Name() string       { return "range" }
func (r *RangePartitioner) NumPartitions() int { return r.p }

func (r *RangePartitioner) Owner(v types.VertexId) int { return int(v) / r.block }
func (r *RangePartitioner) Local(v types.VertexId) int { return int(v) % r.block }

func (r *RangePartitioner) Global(p, local int) types.VertexId {
	return types.VertexId(p*r.block + local)
}

func (r *RangePartitioner) Size(p int) int {
	return min(max(r.n-p*r.block, 0), r.block)
}
