package csr

import (
	"fmt"
	"iter"
)

// Buffer is a fixed-length, read-only array. Index errors panic with the
// buffer name to make out-of-bounds reads easy to attribute.
type Buffer[T ~int32 | ~int64] struct {
	name string
	data []T
}

func newBuffer[T ~int32 | ~int64](name string, data []T) Buffer[T] {
	return Buffer[T]{name: name, data: data}
}

// Len returns the number of elements.
func (b Buffer[T]) Len() int { return len(b.data) }

// At returns element i.
func (b Buffer[T]) At(i int) T {
	if i < 0 || i >= len(b.data) {
		panic(fmt.Sprintf("csr: %s index %d out of range [0, %d)", b.name, i, len(b.data)))
	}
	return b.data[i]
}

// Range yields the elements in [lo, hi) in order.
func (b Buffer[T]) Range(lo, hi int) iter.Seq[T] {
	if lo < 0 || hi > len(b.data) || lo > hi {
		panic(fmt.Sprintf("csr: %s range [%d, %d) out of bounds [0, %d)", b.name, lo, hi, len(b.data)))
	}
	return func(yield func(T) bool) {
		for _, v := range b.data[lo:hi] {
			if !yield(v) {
				return
			}
		}
	}
}

// Clone returns a copy of the elements that the caller may modify.
func (b Buffer[T]) Clone() []T {
	out := make([]T, len(b.data))
	copy(out, b.data)
	return out
}

// CloneRange is Clone restricted to [lo, hi).
func (b Buffer[T]) CloneRange(lo, hi int) []T {
	if lo < 0 || hi > len(b.data) || lo > hi {
		panic(fmt.Sprintf("csr: %s range [%d, %d) out of bounds [0, %d)", b.name, lo, hi, len(b.data)))
	}
	out := make([]T, hi-lo)
	copy(out, b.data[lo:hi])
	return out
}
