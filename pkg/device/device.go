// Package device simulates a data-parallel accelerator on goroutines and
// implements the accelerator BFS backend on top of it.
//
// The model follows the usual GPU programming shape: host data is copied
// into device buffers, kernels run over a grid of blocks of threads, and a
// Stream orders kernel launches and lets the host wait for them. Mutable
// device memory is made of atomic int32 cells so kernels can claim and
// count with compare-and-swap and add.
package device

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// DefaultThreadsPerBlock is used when a device is created without a block size.
const DefaultThreadsPerBlock = 128

// Device describes the simulated hardware: how many blocks may run at once
// and how many threads each block has.
type Device struct {
	maxBlocks       int
	threadsPerBlock int
}

// New returns a device. Non-positive values select NumCPU blocks and
// DefaultThreadsPerBlock threads.
func New(maxBlocks, threadsPerBlock int) *Device {
	if maxBlocks <= 0 {
		maxBlocks = runtime.NumCPU()
	}
	if threadsPerBlock <= 0 {
		threadsPerBlock = DefaultThreadsPerBlock
	}
	return &Device{maxBlocks: maxBlocks, threadsPerBlock: threadsPerBlock}
}

func (d *Device) String() string {
	return fmt.Sprintf("%dx%d", d.maxBlocks, d.threadsPerBlock)
}

// MaxBlocks returns the largest grid the device launches.
func (d *Device) MaxBlocks() int { return d.maxBlocks }

// ThreadsPerBlock returns the block size.
func (d *Device) ThreadsPerBlock() int { return d.threadsPerBlock }

// GridFor returns the launch shape covering n work items: enough blocks for
// one thread per item, capped at MaxBlocks. Threads past n find no work in
// their grid-stride loop.
func (d *Device) GridFor(n int) Grid {
	blocks := (n + d.threadsPerBlock - 1) / d.threadsPerBlock
	return Grid{Blocks: min(max(blocks, 1), d.maxBlocks), ThreadsPerBlock: d.threadsPerBlock}
}

// Grid is a kernel launch shape.
type Grid struct {
	Blocks          int
	ThreadsPerBlock int
}

// Size returns the total number of threads.
func (g Grid) Size() int { return g.Blocks * g.ThreadsPerBlock }

// Thread identifies one kernel thread within its launch.
type Thread struct {
	Block int
	Index int
	Grid  Grid
}

// ID returns the thread's global index.
func (t Thread) ID() int { return t.Block*t.Grid.ThreadsPerBlock + t.Index }

// Stride returns the step of a grid-stride loop.
func (t Thread) Stride() int { return t.Grid.Size() }

// ------------------------------------------------------------

// Buffer is mutable device memory: n atomic int32 cells.
type Buffer struct {
	cells []atomic.Int32
}

// Alloc returns a zeroed buffer of n cells.
func (d *Device) Alloc(n int) *Buffer {
	return &Buffer{cells: make([]atomic.Int32, n)}
}

// CopyToDevice allocates a buffer holding a copy of host.
func (d *Device) CopyToDevice(host []int32) *Buffer {
	b := d.Alloc(len(host))
	for i, v := range host {
		b.cells[i].Store(v)
	}
	return b
}

func (b *Buffer) Len() int { return len(b.cells) }

func (b *Buffer) Load(i int) int32 { return b.cells[i].Load() }

func (b *Buffer) Store(i int, v int32) { b.cells[i].Store(v) }

func (b *Buffer) CompareAndSwap(i int, old, new int32) bool {
	return b.cells[i].CompareAndSwap(old, new)
}

// Add adds delta to cell i and returns the new value.
func (b *Buffer) Add(i int, delta int32) int32 { return b.cells[i].Add(delta) }

// Fill stores v in every cell.
func (b *Buffer) Fill(v int32) {
	for i := range b.cells {
		b.cells[i].Store(v)
	}
}

// CopyToHost copies the first len(dst) cells into dst.
func (b *Buffer) CopyToHost(dst []int32) {
	if len(dst) > len(b.cells) {
		panic(fmt.Sprintf("device: copy of %d cells from a %d-cell buffer", len(dst), len(b.cells)))
	}
	for i := range dst {
		dst[i] = b.cells[i].Load()
	}
}

// ------------------------------------------------------------

// Const is read-only device memory.
type Const[T any] struct {
	data []T
}

// Upload copies host into read-only device memory.
func Upload[T any](host []T) *Const[T] {
	return &Const[T]{data: append([]T(nil), host...)}
}

func (c *Const[T]) Len() int { return len(c.data) }

func (c *Const[T]) At(i int) T { return c.data[i] }
