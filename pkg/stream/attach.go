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

// Attach binds a byte oriented wire, a TCP connection or a serial port,
// to a fresh link. Two pump goroutines run until the context is done or
// the wire fails; the first error is delivered on the returned channel.
// A pump stuck in wire.Read is unblocked by closing the wire.
func Attach(ctx context.Context, wire io.ReadWriter, depth int) (*Link, <-chan error) {
	rx := NewFifo(depth)
	tx := NewFifo(depth)
	errCh := make(chan error, 2)

	// Read bytes from the wire and queue them on the receive FIFO.
	// A full FIFO exerts backpressure on the wire.
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := wire.Read(buf)
			for i := 0; i < n; i++ {
				if perr := rx.Push(ctx, buf[i]); perr != nil {
					errCh <- perr
					return
				}
			}
			if err != nil {
				rx.Close()
				errCh <- err
				return
			}
		}
	}()

	// Drain the transmit FIFO to the wire, batching whatever is ready.
	go func() {
		buf := make([]byte, 0, 64)
		for {
			b, err := tx.Pop(ctx)
			if err != nil {
				errCh <- err
				return
			}
			buf = append(buf[:0], b)
			for len(buf) < cap(buf) {
				b, ok := tx.TryPop()
				if !ok {
					break
				}
				buf = append(buf, b)
			}
			if _, err := wire.Write(buf); err != nil {
				errCh <- err
				return
			}
		}
	}()

	return NewLink(rx, tx), errCh
}
