// Package backend builds the configured traversal strategy.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/device"
	"github.com/pjavanrood/csrbench/pkg/dist"
)

// New returns the traverser cfg selects. cfg must have been validated.
// Distributed traversers hold connections and implement io.Closer; release
// them with Close.
func New(ctx context.Context, cfg config.BackendConfig, logger *util.Logger) (bfs.Traverser, error) {
	var (
		tr  bfs.Traverser
		err error
	)
	switch cfg.Kind {
	case config.KindSequential:
		tr = bfs.NewSequential()
	case config.KindSharedMemory:
		tr = bfs.NewSharedMemory(cfg.Workers, cfg.Grain)
	case config.KindDistributed:
		tr, err = newDistributed(ctx, cfg)
	case config.KindAccelerator:
		tr = device.NewAccelerator(device.New(cfg.Blocks, cfg.ThreadsPerBlock))
	default:
		err = fmt.Errorf("invalid backend kind: %q", cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Name, err)
	}
	if logger != nil {
		logger.Debugf("Backend %s uses %s", cfg.Name, tr.Name())
	}
	return tr, nil
}

func newDistributed(ctx context.Context, cfg config.BackendConfig) (*dist.Coordinator, error) {
	var (
		cluster *dist.Cluster
		err     error
	)
	if cfg.Transport == "tcp" {
		addrs := make([]string, len(cfg.Peers))
		for _, peer := range cfg.Peers {
			addrs[peer.ID] = peer.GetAddress()
		}
		cluster, err = dist.DialCluster(ctx, addrs)
	} else {
		cluster, err = dist.NewLocalCluster(cfg.Partitions)
	}
	if err != nil {
		return nil, err
	}

	coord, err := dist.NewCoordinator(cluster, cfg.Partitioning)
	if err != nil {
		cluster.Close()
		return nil, err
	}
	return coord, nil
}

// Close releases tr if it holds resources.
func Close(tr bfs.Traverser) error {
	if c, ok := tr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
