package bench

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"github.com/pjavanrood/csrbench/pkg/edgelist"
)

type graphKey struct {
	path       string
	symmetrize bool
}

type cachedGraph struct {
	graph *csr.Graph
	stats edgelist.Stats
}

// graphCache keeps recently built graphs so datasets sharing an edge list
// are parsed and built once.
type graphCache struct {
	lru    *lru.Cache
	hits   int
	misses int
}

func newGraphCache(size int) (*graphCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	return &graphCache{lru: c}, nil
}

// Get returns the graph for ds, loading and building it on a miss.
func (c *graphCache) Get(ds config.DatasetConfig) (*csr.Graph, edgelist.Stats, error) {
	key := graphKey{path: ds.Edges, symmetrize: ds.Symmetrize}
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		entry := v.(cachedGraph)
		return entry.graph, entry.stats, nil
	}
	c.misses++

	edges, stats, err := edgelist.Load(ds.Edges, edgelist.Options{Symmetrize: ds.Symmetrize})
	if err != nil {
		return nil, stats, err
	}
	g := csr.Build(edges)
	c.lru.Add(key, cachedGraph{graph: g, stats: stats})
	return g, stats, nil
}
