package dist

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"testing"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/bfs/bfstest"
	"github.com/pjavanrood/csrbench/pkg/csr"
	rpcTypes "github.com/pjavanrood/csrbench/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionersCoverEveryVertexOnce(t *testing.T) {
	for _, algorithm := range []string{"hash", "range"} {
		for _, parts := range []int{1, 2, 3, 7} {
			for _, n := range []int{0, 1, 5, 20, 101} {
				name := fmt.Sprintf("%s/%dparts/%dvertices", algorithm, parts, n)
				t.Run(name, func(t *testing.T) {
					part, err := NewPartitioner(algorithm, parts, n)
					require.NoError(t, err)

					total := 0
					for p := range parts {
						total += part.Size(p)
						for local := range part.Size(p) {
							v := part.Global(p, local)
							assert.Equal(t, p, part.Owner(v))
							assert.Equal(t, local, part.Local(v))
						}
					}
					assert.Equal(t, n, total)
				})
			}
		}
	}
}

func TestNewPartitionerRejectsBadArguments(t *testing.T) {
	_, err := NewPartitioner("metis", 2, 10)
	assert.Error(t, err)
	_, err = NewPartitioner("hash", 0, 10)
	assert.Error(t, err)
	_, err = NewPartitioner("range", 2, -1)
	assert.Error(t, err)
}

func TestCodecRoundTripOverPipe(t *testing.T) {
	srv, err := NewServer(NewPartition(0))
	require.NoError(t, err)
	serverConn, clientConn := net.Pipe()
	go srv.ServeConn(serverConn)
	client := rpc.NewClientWithCodec(NewClientCodec(clientConn))
	defer client.Close()

	var load rpcTypes.LoadResponse
	require.NoError(t, client.Call("Partition.Load", rpcTypes.LoadRequest{
		PartitionID:   0,
		NumPartitions: 1,
		Algorithm:     "hash",
		NumVertices:   3,
		Offsets:       []int64{0, 2, 2, 3},
		Adjacency:     []types.VertexId{1, 2, 0},
	}, &load))
	assert.True(t, load.Success)
	assert.Equal(t, 3, load.OwnedVertices)
	assert.Equal(t, 3, load.Edges)

	var status rpcTypes.StatusResponse
	require.NoError(t, client.Call("Partition.Status", rpcTypes.StatusRequest{}, &status))
	assert.True(t, status.Loaded)

	// server-side errors arrive as rpc.ServerError
	err = client.Call("Partition.Claim", rpcTypes.ClaimRequest{TraversalID: 9}, &rpcTypes.ClaimResponse{})
	var serverErr rpc.ServerError
	assert.ErrorAs(t, err, &serverErr)
}

func TestPartitionRejectsMalformedBlocks(t *testing.T) {
	p := NewPartition(0)
	var resp rpcTypes.LoadResponse

	err := p.Load(rpcTypes.LoadRequest{
		PartitionID: 0, NumPartitions: 1, NumVertices: 2,
		Offsets: []int64{0, 1, 3}, Adjacency: []types.VertexId{1, 5, 0},
	}, &resp)
	assert.ErrorIs(t, err, csr.ErrStructural)
	assert.False(t, resp.Success)

	err = p.Load(rpcTypes.LoadRequest{
		PartitionID: 0, NumPartitions: 2, NumVertices: 4,
		Offsets: []int64{0, 0}, Adjacency: nil,
	}, &resp)
	assert.ErrorIs(t, err, csr.ErrStructural)

	err = p.Load(rpcTypes.LoadRequest{PartitionID: 3, NumPartitions: 4, NumVertices: 4}, &resp)
	assert.Error(t, err)
}

func TestStructuralRejectionSurvivesRPC(t *testing.T) {
	client, err := ServeInProcess(NewPartition(0))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.Load(ctx, rpcTypes.LoadRequest{
		PartitionID: 0, NumPartitions: 1, NumVertices: 2,
		Offsets: []int64{0, 2, 1}, Adjacency: []types.VertexId{1, 0},
	})
	assert.ErrorIs(t, err, csr.ErrStructural)
	assert.ErrorContains(t, err, "partition 0")

	// other server errors keep their type
	_, err = client.Load(ctx, rpcTypes.LoadRequest{PartitionID: 1, NumPartitions: 2, NumVertices: 2})
	require.Error(t, err)
	assert.NotErrorIs(t, err, csr.ErrStructural)
	var serverErr rpc.ServerError
	assert.ErrorAs(t, err, &serverErr)
}

func TestClusterLoadSurfacesOutOfRangeTarget(t *testing.T) {
	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)
	defer cluster.Close()

	g := bfstest.Grid(3, 3)
	part, err := NewPartitioner("hash", 2, g.NumVertices())
	require.NoError(t, err)
	req := localBlock(g, part, 1)
	req.NumPartitions = 2
	req.Algorithm = "hash"
	req.Adjacency[0] = types.VertexId(g.NumVertices() + 5)

	_, err = cluster.clients[1].Load(context.Background(), req)
	assert.ErrorIs(t, err, csr.ErrStructural)
}

func TestPartitionClaimAndExpand(t *testing.T) {
	// graph 0->1, 0->2, 1->3, 2->3 split by hash over two partitions;
	// partition 0 owns 0 and 2.
	g := csr.Build(bfstest.Edges([2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3}))
	part, err := NewPartitioner("hash", 2, g.NumVertices())
	require.NoError(t, err)

	p := NewPartition(0)
	req := localBlock(g, part, 0)
	req.NumPartitions = 2
	req.Algorithm = "hash"
	require.NoError(t, p.Load(req, &rpcTypes.LoadResponse{}))
	require.NoError(t, p.Reset(rpcTypes.ResetRequest{TraversalID: 1}, &rpcTypes.ResetResponse{}))

	var claim rpcTypes.ClaimResponse
	require.NoError(t, p.Claim(rpcTypes.ClaimRequest{TraversalID: 1, Candidates: []types.VertexId{0, 0}}, &claim))
	assert.Equal(t, []types.VertexId{0}, claim.Claimed)

	var expand rpcTypes.ExpandResponse
	require.NoError(t, p.Expand(rpcTypes.ExpandRequest{TraversalID: 1}, &expand))
	require.Len(t, expand.Outbox, 2)
	assert.Equal(t, []types.VertexId{2}, expand.Outbox[0])
	assert.Equal(t, []types.VertexId{1}, expand.Outbox[1])
	assert.Equal(t, 2, expand.Edges)

	// frontier was consumed
	require.NoError(t, p.Expand(rpcTypes.ExpandRequest{TraversalID: 1}, &expand))
	assert.Zero(t, expand.Edges)

	err = p.Claim(rpcTypes.ClaimRequest{TraversalID: 1, Candidates: []types.VertexId{1}}, &claim)
	assert.ErrorContains(t, err, "does not own")

	err = p.Claim(rpcTypes.ClaimRequest{TraversalID: 2}, &claim)
	assert.ErrorContains(t, err, "traversal")
}

func TestCoordinatorConformance(t *testing.T) {
	for _, algorithm := range []string{"hash", "range"} {
		for _, parts := range []int{1, 2, 3, 4} {
			cluster, err := NewLocalCluster(parts)
			require.NoError(t, err)
			coord, err := NewCoordinator(cluster, algorithm)
			require.NoError(t, err)

			t.Run(coord.Name(), func(t *testing.T) {
				bfstest.Conformance(t, coord)
			})
			require.NoError(t, coord.Close())
		}
	}
}

func TestCoordinatorOverTCP(t *testing.T) {
	var addrs []string
	for id := range 3 {
		srv, err := NewServer(NewPartition(id))
		require.NoError(t, err)
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { listener.Close() })
		go srv.Serve(listener)
		addrs = append(addrs, listener.Addr().String())
	}

	ctx := context.Background()
	cluster, err := DialCluster(ctx, addrs)
	require.NoError(t, err)
	coord, err := NewCoordinator(cluster, "range")
	require.NoError(t, err)
	defer coord.Close()

	g := bfstest.RandomGraph(7, 300, 1200)
	want, err := bfs.NewSequential().Traverse(ctx, g, 5)
	require.NoError(t, err)
	got, err := coord.Traverse(ctx, g, 5)
	require.NoError(t, err)
	bfstest.AssertEquivalent(t, want, got)

	statuses, err := cluster.Status(ctx)
	require.NoError(t, err)
	edges := 0
	for _, st := range statuses {
		assert.True(t, st.Loaded)
		edges += st.Edges
	}
	assert.Equal(t, g.NumEdges(), edges)
}

func TestDialClusterRejectsMisorderedPartitions(t *testing.T) {
	var addrs []string
	for _, id := range []int{1, 0} {
		srv, err := NewServer(NewPartition(id))
		require.NoError(t, err)
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { listener.Close() })
		go srv.Serve(listener)
		addrs = append(addrs, listener.Addr().String())
	}

	_, err := DialCluster(context.Background(), addrs)
	assert.ErrorContains(t, err, "expected 0")
}

func TestCoordinatorHonoursCancellation(t *testing.T) {
	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)
	coord, err := NewCoordinator(cluster, "hash")
	require.NoError(t, err)
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = coord.Traverse(ctx, bfstest.Grid(5, 5), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCoordinatorRejectsUnknownAlgorithm(t *testing.T) {
	cluster, err := NewLocalCluster(1)
	require.NoError(t, err)
	defer cluster.Close()
	_, err = NewCoordinator(cluster, "metis")
	assert.Error(t, err)
}
