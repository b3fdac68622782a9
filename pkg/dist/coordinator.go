// Package dist implements the distributed BFS backend. Vertices are split
// across partitions that run as net/rpc services; a Coordinator drives them
// level by level. Each level is one Expand round on every partition with a
// frontier, an all-to-all exchange of the resulting candidates, and one
// Claim round on every owner. Both rounds end in a barrier.
package dist

import (
	"context"
	"fmt"
	"sync"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/csr"
	rpcTypes "github.com/pjavanrood/csrbench/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Coordinator is a bfs.Traverser over a Cluster. One traversal runs at a
// time.
type Coordinator struct {
	mu sync.Mutex

	cluster     *Cluster
	algorithm   string
	loaded      *csr.Graph
	partitioner Partitioner
	traversal   uint64
}

// NewCoordinator drives cluster, splitting graphs with the named
// partitioning algorithm.
func NewCoordinator(cluster *Cluster, algorithm string) (*Coordinator, error) {
	if cluster == nil || cluster.Size() == 0 {
		return nil, fmt.Errorf("coordinator needs at least one partition")
	}
	if _, err := NewPartitioner(algorithm, cluster.Size(), 0); err != nil {
		return nil, err
	}
	if algorithm == "" {
		algorithm = "hash"
	}
	return &Coordinator{cluster: cluster, algorithm: algorithm}, nil
}

func (c *Coordinator) Name() string {
	return fmt.Sprintf("distributed(%d,%s)", c.cluster.Size(), c.algorithm)
}

// Close releases the partition connections.
func (c *Coordinator) Close() error {
	return c.cluster.Close()
}

// Load ships g to the partitions. Traverse calls it when g differs from the
// graph the partitions hold.
func (c *Coordinator) Load(ctx context.Context, g *csr.Graph) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, g)
}

func (c *Coordinator) load(ctx context.Context, g *csr.Graph) error {
	n := g.NumVertices()
	part, err := NewPartitioner(c.algorithm, c.cluster.Size(), n)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	for p, client := range c.cluster.clients {
		eg.Go(func() error {
			req := localBlock(g, part, p)
			req.NumPartitions = part.NumPartitions()
			req.Algorithm = part.Name()
			resp, err := client.Load(ctx, req)
			if err != nil {
				return err
			}
			log.Debugf("Loaded partition %d: %d vertices, %d edges", p, resp.OwnedVertices, resp.Edges)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		c.loaded = nil
		return err
	}

	c.loaded = g
	c.partitioner = part
	return nil
}

// localBlock extracts the CSR rows partition p owns, renumbered locally.
// Adjacency entries keep their global ids.
func localBlock(g *csr.Graph, part Partitioner, p int) rpcTypes.LoadRequest {
	size := part.Size(p)
	offsets := make([]int64, size+1)
	adjacency := make([]types.VertexId, 0)
	for local := range size {
		for w := range g.Neighbors(part.Global(p, local)) {
			adjacency = append(adjacency, w)
		}
		offsets[local+1] = int64(len(adjacency))
	}
	return rpcTypes.LoadRequest{
		PartitionID: p,
		NumVertices: g.NumVertices(),
		Offsets:     offsets,
		Adjacency:   adjacency,
	}
}

func (c *Coordinator) Traverse(ctx context.Context, g *csr.Graph, source int) (*bfs.Result, error) {
	if err := bfs.CheckSource(g, source); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded != g {
		if err := c.load(ctx, g); err != nil {
			return nil, err
		}
	}

	c.traversal++
	id := c.traversal
	if err := c.reset(ctx, id); err != nil {
		return nil, err
	}

	n := g.NumVertices()
	res := &bfs.Result{
		Source: types.VertexId(source),
		Order:  make([]types.VertexId, 0, n),
		Levels: bfs.NewLevels(n),
	}

	numParts := c.cluster.Size()
	candidates := make([][]types.VertexId, numParts)
	candidates[c.partitioner.Owner(types.VertexId(source))] = []types.VertexId{types.VertexId(source)}

	for level := int32(0); ; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		claimed, err := c.claim(ctx, id, level, candidates)
		if err != nil {
			return nil, err
		}
		discovered := 0
		for p := range claimed {
			for _, v := range claimed[p] {
				res.Levels[v] = level
				res.Order = append(res.Order, v)
			}
			discovered += len(claimed[p])
		}
		if discovered == 0 {
			break
		}
		res.NumLevels++

		outboxes, err := c.expand(ctx, id, level, claimed)
		if err != nil {
			return nil, err
		}
		// all-to-all exchange
		for q := range candidates {
			candidates[q] = candidates[q][:0]
			for p := range outboxes {
				if outboxes[p] != nil {
					candidates[q] = append(candidates[q], outboxes[p][q]...)
				}
			}
		}
	}

	return res, nil
}

func (c *Coordinator) reset(ctx context.Context, id uint64) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, client := range c.cluster.clients {
		eg.Go(func() error {
			return client.Reset(ctx, id)
		})
	}
	return eg.Wait()
}

// claim sends each owner its candidates and returns what every partition
// claimed. Partitions without candidates are skipped.
func (c *Coordinator) claim(ctx context.Context, id uint64, level int32, candidates [][]types.VertexId) ([][]types.VertexId, error) {
	claimed := make([][]types.VertexId, len(candidates))
	eg, ctx := errgroup.WithContext(ctx)
	for p, client := range c.cluster.clients {
		if len(candidates[p]) == 0 {
			continue
		}
		eg.Go(func() error {
			resp, err := client.Claim(ctx, rpcTypes.ClaimRequest{
				TraversalID: id,
				Level:       level,
				Candidates:  candidates[p],
			})
			if err != nil {
				return err
			}
			claimed[p] = resp.Claimed
			return nil
		})
	}
	// level barrier
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return claimed, nil
}

// expand asks every partition that claimed vertices to scan them. The
// result holds one outbox per partition, nil for skipped partitions.
func (c *Coordinator) expand(ctx context.Context, id uint64, level int32, frontier [][]types.VertexId) ([][][]types.VertexId, error) {
	numParts := c.cluster.Size()
	outboxes := make([][][]types.VertexId, numParts)
	eg, ctx := errgroup.WithContext(ctx)
	for p, client := range c.cluster.clients {
		if len(frontier[p]) == 0 {
			continue
		}
		eg.Go(func() error {
			resp, err := client.Expand(ctx, rpcTypes.ExpandRequest{TraversalID: id, Level: level})
			if err != nil {
				return err
			}
			if len(resp.Outbox) != numParts {
				return fmt.Errorf("partition %d returned %d outboxes for %d partitions", p, len(resp.Outbox), numParts)
			}
			outboxes[p] = resp.Outbox
			return nil
		})
	}
	// level barrier
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outboxes, nil
}
