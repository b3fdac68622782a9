package device

import (
	"context"
	"fmt"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/bfs"
	"github.com/pjavanrood/csrbench/pkg/csr"
)

var log = util.New("Device", util.LogLevelInfo)

// SetLogLevel adjusts the package logger.
func SetLogLevel(level util.LogLevel) { log.SetLevel(level) }

// Accelerator is the device BFS backend. Each level is one kernel launch
// with a thread per frontier vertex; the host synchronizes the stream
// between levels.
type Accelerator struct {
	device *Device
}

// NewAccelerator returns a traverser running on d.
func NewAccelerator(d *Device) *Accelerator {
	return &Accelerator{device: d}
}

func (a *Accelerator) Name() string { return fmt.Sprintf("accelerator(%s)", a.device) }

// graphImage is a graph resident on the device.
type graphImage struct {
	offsets   *Const[int64]
	adjacency *Const[types.VertexId]
	levels    *Buffer
	frontier  *Buffer
	next      *Buffer
	tail      *Buffer
}

func (a *Accelerator) upload(g *csr.Graph) *graphImage {
	n := g.NumVertices()
	img := &graphImage{
		offsets:   Upload(g.Offsets().Clone()),
		adjacency: Upload(g.Adjacency().Clone()),
		levels:    a.device.Alloc(n),
		frontier:  a.device.Alloc(n),
		next:      a.device.Alloc(n),
		tail:      a.device.Alloc(1),
	}
	img.levels.Fill(bfs.Unvisited)
	return img
}

// expandKernel claims the unvisited neighbors of the first size frontier
// vertices for level+1 and appends them to next.
func expandKernel(img *graphImage, size int, level int32) Kernel {
	return func(t Thread) {
		for i := t.ID(); i < size; i += t.Stride() {
			u := int(img.frontier.Load(i))
			for j := img.offsets.At(u); j < img.offsets.At(u+1); j++ {
				w := int(img.adjacency.At(int(j)))
				if img.levels.CompareAndSwap(w, bfs.Unvisited, level+1) {
					slot := img.tail.Add(0, 1) - 1
					img.next.Store(int(slot), int32(w))
				}
			}
		}
	}
}

func (a *Accelerator) Traverse(ctx context.Context, g *csr.Graph, source int) (*bfs.Result, error) {
	if err := bfs.CheckSource(g, source); err != nil {
		return nil, err
	}

	n := g.NumVertices()
	img := a.upload(g)
	stream := a.device.NewStream()

	img.levels.Store(source, 0)
	img.frontier.Store(0, int32(source))
	size := 1

	res := &bfs.Result{
		Source: types.VertexId(source),
		Order:  make([]types.VertexId, 0, n),
		Levels: make([]int32, n),
	}
	res.Order = append(res.Order, types.VertexId(source))
	host := make([]int32, n)

	for level := int32(0); size > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.NumLevels++

		img.tail.Store(0, 0)
		stream.Launch(a.device.GridFor(size), expandKernel(img, size, level))
		// level barrier
		if err := stream.Synchronize(); err != nil {
			return nil, err
		}

		size = int(img.tail.Load(0))
		img.next.CopyToHost(host[:size])
		for _, v := range host[:size] {
			res.Order = append(res.Order, types.VertexId(v))
		}
		img.frontier, img.next = img.next, img.frontier
	}

	img.levels.CopyToHost(res.Levels)
	log.Debugf("%s visited %d of %d vertices in %d levels", a.Name(), len(res.Order), n, res.NumLevels)
	return res, nil
}
