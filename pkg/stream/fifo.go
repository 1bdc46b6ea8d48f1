/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package stream

import (
	"context"
	"sync"
)

const (
	// DefaultDepth is the FIFO depth of the board link, each direction.
	DefaultDepth = 512
)

// Fifo is a fixed capacity byte queue. Blocking operations take a
// context and return early when it is done, which is what makes every
// wait on the link a cooperative suspension point.
type Fifo struct {
	mu     sync.Mutex
	buf    []byte
	head   int
	count  int
	closed bool

	// arrival and space carry one-slot pulses so that a waiter never
	// misses a push or a pop that happened between its check and its
	// wait. done broadcasts Close to all waiters.
	arrival chan struct{}
	space   chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewFifo(depth int) *Fifo {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Fifo{
		buf:     make([]byte, depth),
		arrival: make(chan struct{}, 1),
		space:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func pulse(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Cap returns the FIFO depth.
func (f *Fifo) Cap() int {
	return len(f.buf)
}

// Len returns the number of queued bytes.
func (f *Fifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// TryPush appends one byte without blocking. It reports false when the
// FIFO is full or closed.
func (f *Fifo) TryPush(b byte) bool {
	f.mu.Lock()
	if f.closed || f.count == len(f.buf) {
		f.mu.Unlock()
		return false
	}
	f.buf[(f.head+f.count)%len(f.buf)] = b
	f.count++
	f.mu.Unlock()
	pulse(f.arrival)
	return true
}

// Push appends one byte, waiting for space.
func (f *Fifo) Push(ctx context.Context, b byte) error {
	for {
		if f.TryPush(b) {
			return nil
		}
		f.mu.Lock()
		closed := f.closed
		f.mu.Unlock()
		if closed {
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return ErrClosed
		case <-f.space:
		}
	}
}

// TryPop removes the oldest byte without blocking. It reports false
// when the FIFO is empty.
func (f *Fifo) TryPop() (byte, bool) {
	f.mu.Lock()
	if f.count == 0 {
		f.mu.Unlock()
		return 0, false
	}
	b := f.buf[f.head]
	f.head = (f.head + 1) % len(f.buf)
	f.count--
	f.mu.Unlock()
	pulse(f.space)
	return b, true
}

// Pop removes the oldest byte, waiting for one to arrive. Queued bytes
// are still delivered after Close; once drained Pop returns ErrClosed.
func (f *Fifo) Pop(ctx context.Context) (byte, error) {
	for {
		if b, ok := f.TryPop(); ok {
			return b, nil
		}
		f.mu.Lock()
		closed := f.closed
		f.mu.Unlock()
		if closed {
			return 0, ErrClosed
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-f.done:
		case <-f.arrival:
		}
	}
}

// WaitLen blocks until the FIFO holds at least n bytes. A level larger
// than the capacity can never be reached; the wait then lasts until the
// context is canceled or the FIFO is closed, which mirrors what the
// hardware does.
func (f *Fifo) WaitLen(ctx context.Context, n int) error {
	for {
		f.mu.Lock()
		reached := f.count >= n
		closed := f.closed
		f.mu.Unlock()
		if reached {
			return nil
		}
		if closed {
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
		case <-f.arrival:
		}
	}
}

// Flush discards all queued bytes and returns how many were dropped.
func (f *Fifo) Flush() int {
	f.mu.Lock()
	n := f.count
	f.head, f.count = 0, 0
	f.mu.Unlock()
	if n > 0 {
		pulse(f.space)
	}
	return n
}

// Close rejects further pushes and wakes all waiters. Queued bytes can
// still be popped.
func (f *Fifo) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}
