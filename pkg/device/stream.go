package device

import (
	"fmt"
	"sync"
)

// Kernel is the body every thread of a launch runs.
type Kernel func(t Thread)

// Stream runs kernel launches one after another, asynchronously to the
// host. A kernel that panics faults the stream: later launches are skipped
// and Synchronize reports the fault.
type Stream struct {
	device *Device

	mu   sync.Mutex
	last chan struct{}
	err  error
}

// NewStream returns an idle stream on d.
func (d *Device) NewStream() *Stream {
	done := make(chan struct{})
	close(done)
	return &Stream{device: d, last: done}
}

// Launch queues kernel over grid. It returns immediately.
func (s *Stream) Launch(grid Grid, kernel Kernel) {
	s.mu.Lock()
	prev := s.last
	done := make(chan struct{})
	s.last = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		<-prev
		if s.fault() != nil {
			return
		}
		s.run(grid, kernel)
	}()
}

// Synchronize blocks until every queued launch has finished and returns the
// stream's fault, if any.
func (s *Stream) Synchronize() error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	<-last
	return s.fault()
}

func (s *Stream) fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// run executes one launch: a goroutine per block, the block's threads in
// index order.
func (s *Stream) run(grid Grid, kernel Kernel) {
	var wg sync.WaitGroup
	for b := range grid.Blocks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.mu.Lock()
					if s.err == nil {
						s.err = fmt.Errorf("device: kernel fault in block %d: %v", b, r)
					}
					s.mu.Unlock()
				}
			}()
			for i := range grid.ThreadsPerBlock {
				kernel(Thread{Block: b, Index: i, Grid: grid})
			}
		}()
	}
	wg.Wait()
}
