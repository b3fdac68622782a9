package dist

import (
	"context"
	"errors"
	"fmt"

	rpcTypes "github.com/pjavanrood/csrbench/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Cluster is the set of partition clients a coordinator drives. Client i
// talks to partition i.
type Cluster struct {
	clients []*Client
}

// NewLocalCluster starts n partitions in this process, each behind its own
// in-memory RPC connection.
func NewLocalCluster(n int) (*Cluster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("partition count must be positive: %d", n)
	}
	c := &Cluster{}
	for id := range n {
		client, err := ServeInProcess(NewPartition(id))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.clients = append(c.clients, client)
	}
	return c, nil
}

// DialCluster connects to partition processes; addrs[i] must serve
// partition i.
func DialCluster(ctx context.Context, addrs []string) (*Cluster, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no partition addresses")
	}
	c := &Cluster{}
	for id, addr := range addrs {
		client, err := Dial(id, addr)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.clients = append(c.clients, client)
	}

	statuses, err := c.Status(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	for i, st := range statuses {
		if st.PartitionID != i {
			c.Close()
			return nil, fmt.Errorf("partition at %s reports id %d, expected %d", addrs[i], st.PartitionID, i)
		}
	}
	return c, nil
}

// Size returns the number of partitions.
func (c *Cluster) Size() int { return len(c.clients) }

// Status queries every partition in parallel.
func (c *Cluster) Status(ctx context.Context) ([]*rpcTypes.StatusResponse, error) {
	statuses := make([]*rpcTypes.StatusResponse, len(c.clients))
	eg, ctx := errgroup.WithContext(ctx)
	for i, client := range c.clients {
		eg.Go(func() error {
			st, err := client.Status(ctx)
			statuses[i] = st
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *Cluster) Close() error {
	var errs []error
	for _, client := range c.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.clients = nil
	return errors.Join(errs...)
}
