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
	"io"
)

// Link is one endpoint of a duplex byte stream. Recv, Buffered and
// WaitBuffered operate on the receive FIFO, Send on the transmit FIFO.
// It also implements io.ReadWriter so host side code can treat an
// in-process link like any other wire.
type Link struct {
	rx, tx *Fifo
}

func NewLink(rx, tx *Fifo) *Link {
	return &Link{rx: rx, tx: tx}
}

// Pipe returns two crossed links: bytes sent on one are received on the
// other. Both directions hold at most depth bytes, the board FIFO depth
// when depth is 0.
func Pipe(depth int) (*Link, *Link) {
	ab := NewFifo(depth)
	ba := NewFifo(depth)
	return NewLink(ba, ab), NewLink(ab, ba)
}

// Recv returns the next inbound byte, suspending until one arrives.
func (l *Link) Recv(ctx context.Context) (byte, error) {
	return l.rx.Pop(ctx)
}

// TryRecv returns the next inbound byte without suspending.
func (l *Link) TryRecv() (byte, bool) {
	return l.rx.TryPop()
}

// Send queues one outbound byte, suspending while the transmit FIFO is
// full.
func (l *Link) Send(ctx context.Context, b byte) error {
	return l.tx.Push(ctx, b)
}

// Buffered returns the number of inbound bytes waiting to be received.
func (l *Link) Buffered() int {
	return l.rx.Len()
}

// WaitBuffered suspends until at least n inbound bytes are waiting.
func (l *Link) WaitBuffered(ctx context.Context, n int) error {
	return l.rx.WaitLen(ctx, n)
}

// FlushRx discards all pending inbound bytes.
func (l *Link) FlushRx() int {
	return l.rx.Flush()
}

// Close shuts down both directions.
func (l *Link) Close() error {
	l.rx.Close()
	l.tx.Close()
	return nil
}

// Read implements io.Reader. It blocks for the first byte, then drains
// whatever else is already buffered.
func (l *Link) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := l.rx.Pop(context.Background())
	if err != nil {
		return 0, io.EOF
	}
	p[0] = b
	n := 1
	for n < len(p) {
		b, ok := l.rx.TryPop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// Write implements io.Writer.
func (l *Link) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := l.tx.Push(context.Background(), b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}
