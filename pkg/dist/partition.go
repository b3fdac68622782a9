package dist

import (
	"fmt"
	"sync"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/csr"
	rpcTypes "github.com/pjavanrood/csrbench/pkg/rpc"
)

var log = util.New("Partition", util.LogLevelInfo)

// SetLogLevel adjusts the package logger.
func SetLogLevel(level util.LogLevel) { log.SetLevel(level) }

// Partition owns a subset of the vertices of one graph: their adjacency
// blocks, their visited markers and their share of the current frontier.
// It is served over net/rpc as the "Partition" service.
type Partition struct {
	mu sync.Mutex

	id          int
	partitioner Partitioner
	numVertices int
	offsets     []int64
	adjacency   []types.VertexId

	traversal uint64
	visited   []bool
	frontier  []types.VertexId
}

// NewPartition returns an empty partition with the given id.
func NewPartition(id int) *Partition {
	return &Partition{id: id}
}

// ID returns the partition id.
func (p *Partition) ID() int { return p.id }

// Load replaces the partition's slice of the graph.
func (p *Partition) Load(req rpcTypes.LoadRequest, resp *rpcTypes.LoadResponse) error {
	success := false
	defer func() {
		resp.Success = success
	}()

	if req.PartitionID != p.id {
		return fmt.Errorf("partition %d received data for partition %d", p.id, req.PartitionID)
	}
	partitioner, err := NewPartitioner(req.Algorithm, req.NumPartitions, req.NumVertices)
	if err != nil {
		return err
	}
	owned := partitioner.Size(p.id)
	if len(req.Offsets) != owned+1 {
		return &csr.StructuralError{
			Invariant: fmt.Sprintf("partition %d owns %d vertices but received %d offsets", p.id, owned, len(req.Offsets)),
			Index:     len(req.Offsets),
		}
	}
	if err := csr.ValidateArrays(req.Offsets, req.Adjacency, req.NumVertices); err != nil {
		return fmt.Errorf("partition %d: %w", p.id, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.partitioner = partitioner
	p.numVertices = req.NumVertices
	p.offsets = req.Offsets
	p.adjacency = req.Adjacency
	p.visited = make([]bool, owned)
	p.frontier = p.frontier[:0]
	p.traversal = 0

	resp.OwnedVertices = owned
	resp.Edges = len(req.Adjacency)
	success = true
	log.Debugf("Partition %d loaded %d vertices and %d edges (%s)", p.id, owned, len(req.Adjacency), partitioner.Name())
	return nil
}

// Reset clears the visited markers and frontier for a new traversal.
func (p *Partition) Reset(req rpcTypes.ResetRequest, resp *rpcTypes.ResetResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.partitioner == nil {
		return fmt.Errorf("partition %d has no graph loaded", p.id)
	}
	clear(p.visited)
	p.frontier = p.frontier[:0]
	p.traversal = req.TraversalID
	resp.Success = true
	return nil
}

// Claim marks the unvisited candidates as visited, in proposal order, and
// makes them the partition's frontier for the next Expand.
func (p *Partition) Claim(req rpcTypes.ClaimRequest, resp *rpcTypes.ClaimResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkTraversal(req.TraversalID); err != nil {
		return err
	}

	claimed := make([]types.VertexId, 0, len(req.Candidates))
	for _, v := range req.Candidates {
		if v < 0 || int(v) >= p.numVertices || p.partitioner.Owner(v) != p.id {
			return fmt.Errorf("partition %d does not own vertex %d", p.id, v)
		}
		local := p.partitioner.Local(v)
		if p.visited[local] {
			continue
		}
		p.visited[local] = true
		claimed = append(claimed, v)
	}

	p.frontier = append(p.frontier[:0], claimed...)
	resp.Claimed = claimed
	return nil
}

// Expand scans the adjacency blocks of the frontier and returns the
// neighbors bucketed by owner. Neighbors this partition owns and has already
// visited are filtered locally; every other neighbor is left for its owner
// to claim. The frontier is consumed.
func (p *Partition) Expand(req rpcTypes.ExpandRequest, resp *rpcTypes.ExpandResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkTraversal(req.TraversalID); err != nil {
		return err
	}

	outbox := make([][]types.VertexId, p.partitioner.NumPartitions())
	edges := 0
	for _, u := range p.frontier {
		local := p.partitioner.Local(u)
		for _, w := range p.adjacency[p.offsets[local]:p.offsets[local+1]] {
			edges++
			owner := p.partitioner.Owner(w)
			if owner == p.id && p.visited[p.partitioner.Local(w)] {
				continue
			}
			outbox[owner] = append(outbox[owner], w)
		}
	}
	p.frontier = p.frontier[:0]

	resp.Outbox = outbox
	resp.Edges = edges
	return nil
}

// Status reports what the partition currently holds.
func (p *Partition) Status(_ rpcTypes.StatusRequest, resp *rpcTypes.StatusResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	resp.PartitionID = p.id
	resp.Loaded = p.partitioner != nil
	resp.OwnedVertices = len(p.visited)
	resp.Edges = len(p.adjacency)
	resp.TraversalID = p.traversal
	return nil
}

func (p *Partition) checkTraversal(id uint64) error {
	if p.partitioner == nil {
		return fmt.Errorf("partition %d has no graph loaded", p.id)
	}
	if id != p.traversal {
		return fmt.Errorf("partition %d is running traversal %d, not %d", p.id, p.traversal, id)
	}
	return nil
}
