package device

import (
	"context"
	"testing"

	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/bfs/bfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFor(t *testing.T) {
	d := New(4, 32)
	tests := []struct {
		n      int
		blocks int
	}{
		{0, 1},
		{1, 1},
		{32, 1},
		{33, 2},
		{1000, 4},
	}
	for _, tt := range tests {
		grid := d.GridFor(tt.n)
		assert.Equal(t, tt.blocks, grid.Blocks, "n=%d", tt.n)
		assert.Equal(t, 32, grid.ThreadsPerBlock)
	}
}

func TestLaunchCoversEveryItemOnce(t *testing.T) {
	d := New(3, 8)
	const n = 1000
	hits := d.Alloc(n)

	stream := d.NewStream()
	grid := d.GridFor(n)
	stream.Launch(grid, func(th Thread) {
		for i := th.ID(); i < n; i += th.Stride() {
			hits.Add(i, 1)
		}
	})
	require.NoError(t, stream.Synchronize())

	out := make([]int32, n)
	hits.CopyToHost(out)
	for i, h := range out {
		assert.Equal(t, int32(1), h, "item %d", i)
	}
}

func TestStreamOrdersLaunches(t *testing.T) {
	d := New(4, 16)
	buf := d.Alloc(1)
	stream := d.NewStream()

	stream.Launch(Grid{Blocks: 4, ThreadsPerBlock: 16}, func(th Thread) { buf.Add(0, 1) })
	stream.Launch(Grid{Blocks: 1, ThreadsPerBlock: 1}, func(th Thread) {
		// the first launch has completed
		buf.Store(0, buf.Load(0)*10)
	})
	require.NoError(t, stream.Synchronize())
	assert.Equal(t, int32(640), buf.Load(0))
}

func TestKernelFaultSurfacesOnSynchronize(t *testing.T) {
	d := New(2, 4)
	buf := d.Alloc(2)
	stream := d.NewStream()

	stream.Launch(d.GridFor(8), func(th Thread) { buf.Store(th.ID(), 1) })
	ran := false
	stream.Launch(d.GridFor(1), func(th Thread) { ran = true })

	err := stream.Synchronize()
	assert.ErrorContains(t, err, "kernel fault")
	assert.False(t, ran)
}

func TestCopyToDevice(t *testing.T) {
	d := New(1, 1)
	buf := d.CopyToDevice([]int32{4, 5, 6})
	assert.Equal(t, 3, buf.Len())
	assert.True(t, buf.CompareAndSwap(1, 5, 7))
	assert.False(t, buf.CompareAndSwap(1, 5, 8))

	out := make([]int32, 3)
	buf.CopyToHost(out)
	assert.Equal(t, []int32{4, 7, 6}, out)
	assert.Panics(t, func() { buf.CopyToHost(make([]int32, 4)) })
}

func TestAcceleratorConformance(t *testing.T) {
	for _, d := range []*Device{New(1, 1), New(2, 4), New(8, 32), New(0, 0)} {
		a := NewAccelerator(d)
		t.Run(a.Name(), func(t *testing.T) {
			bfstest.Conformance(t, a)
		})
	}
}

func TestAcceleratorDistanceOutput(t *testing.T) {
	g := bfstest.Grid(10, 10)
	res, err := NewAccelerator(New(4, 8)).Traverse(context.Background(), g, 0)
	require.NoError(t, err)

	// manhattan distance from the corner
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			assert.Equal(t, int32(r+c), res.Levels[r*10+c])
		}
	}
	assert.Equal(t, 19, res.NumLevels)
	bfstest.AssertLevelOrdered(t, res)
}

func TestAcceleratorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAccelerator(New(0, 0)).Traverse(ctx, bfstest.Grid(3, 3), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkAccelerator(b *testing.B) {
	g := bfstest.RandomGraph(42, 100000, 500000)
	a := NewAccelerator(New(0, 0))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Traverse(context.Background(), g, 0)
	}
}

var _ bfs.Traverser = (*Accelerator)(nil)
