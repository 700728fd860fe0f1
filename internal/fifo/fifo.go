package fifo

import "sync/atomic"

// Bounded circular fifo with a single producer and a single consumer.
// Write may run in interrupt context while Read runs in task context :
// neither blocks nor allocates. It is not safe for multiple producers
// or multiple consumers, callers must serialize those.
type Fifo[T any] struct {
	buffer   []T
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

func NewFifo[T any](size int) *Fifo[T] {
	if size < 1 {
		size = 1
	}
	return &Fifo[T]{buffer: make([]T, size)}
}

// Capacity of the fifo
func (f *Fifo[T]) Cap() int {
	return len(f.buffer)
}

func (f *Fifo[T]) GetOccupied() int {
	return int(f.writePos.Load() - f.readPos.Load())
}

func (f *Fifo[T]) GetSpace() int {
	return len(f.buffer) - f.GetOccupied()
}

// Write one element, returns false if fifo is full.
// Existing elements are never overwritten.
func (f *Fifo[T]) Write(element T) bool {
	writePos := f.writePos.Load()
	if writePos-f.readPos.Load() >= uint64(len(f.buffer)) {
		return false
	}
	f.buffer[writePos%uint64(len(f.buffer))] = element
	f.writePos.Store(writePos + 1)
	return true
}

// Read oldest element, ok is false if fifo is empty
func (f *Fifo[T]) Read() (element T, ok bool) {
	readPos := f.readPos.Load()
	if readPos == f.writePos.Load() {
		return element, false
	}
	index := readPos % uint64(len(f.buffer))
	element = f.buffer[index]
	var zero T
	f.buffer[index] = zero
	f.readPos.Store(readPos + 1)
	return element, true
}

// Peek at oldest element without consuming it
func (f *Fifo[T]) Peek() (element T, ok bool) {
	readPos := f.readPos.Load()
	if readPos == f.writePos.Load() {
		return element, false
	}
	return f.buffer[readPos%uint64(len(f.buffer))], true
}

// Reset drops all elements. Must not run concurrently with Write or Read.
func (f *Fifo[T]) Reset() {
	var zero T
	for i := range f.buffer {
		f.buffer[i] = zero
	}
	f.readPos.Store(0)
	f.writePos.Store(0)
}
