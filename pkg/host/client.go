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

package host

import (
	"bufio"
	"fmt"
	"io"

	"github.com/google/gopacket"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/stream"
)

const (
	defaultSysFreq = 100e6
)

// operation is one pipelined command: its wire cost, its expected
// response, and after resolution either the read data or a deferred
// error.
type operation struct {
	kind     string
	addr     uint16
	size     int
	datagram int
	resp     int
	data     []byte
	err      error
}

// batch collects the datagrams of a buffered section until the section
// closes and the whole burst goes on the wire at once.
type batch struct {
	buf []byte
	ops []*operation
}

// Client drives a bridge over any byte wire: a TCP connection to the
// daemon, a serial port to real hardware, or an in-process link.
//
// Operations are pipelined: a datagram is put on the wire as soon as
// the board command FIFO is known to have room for it, and responses
// are resolved lazily in order. The client tracks how many datagram
// bytes are in flight, a byte leaves the FIFO once the response of its
// operation has been read back. A poll timeout of a lazily resolved
// write therefore surfaces on whichever later call drains it; the
// error identifies the operation it belongs to.
//
// A Client is not safe for concurrent use.
type Client struct {
	rw io.ReadWriter
	r  *bufio.Reader

	fifoDepth int
	sysFreq   float64
	version   string

	pending  []*operation
	inFlight int
	section  *batch

	// The timeout register cannot be read back, so the last written
	// value is cached here to skip redundant configurations.
	timeoutRaw   uint32
	timeoutSet   bool
	timeoutStack []uint32
}

// Option configures a Client.
type Option func(*Client)

// WithFifoDepth overrides the assumed board FIFO depth used for the
// pipelining bookkeeping.
func WithFifoDepth(depth int) Option {
	return func(c *Client) {
		if depth > 0 {
			c.fifoDepth = depth
		}
	}
}

// WithSysFreq sets the board system clock frequency used to convert
// durations to timeout units and delay cycles.
func WithSysFreq(hz float64) Option {
	return func(c *Client) {
		if hz > 0 {
			c.sysFreq = hz
		}
	}
}

// WithVersion primes the known board version, which gates the
// operations newer boards added. Version discovers it from the board
// itself.
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

func New(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		rw:        rw,
		r:         bufio.NewReader(rw),
		fifoDepth: stream.DefaultDepth,
		sysFreq:   defaultSysFreq,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying wire when it supports closing. It does
// not wait for pipelined operations, call Flush first when their
// outcome matters.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Pending returns the number of operations queued but not yet
// resolved.
func (c *Client) Pending() int {
	return len(c.pending)
}

// queue serializes a datagram and puts it on the wire once the FIFO
// bookkeeping allows it, resolving older operations to make room.
// Inside a buffered section the datagram is collected instead of sent.
func (c *Client) queue(op *operation, layer layers.Datagram, payload []byte) error {
	buf := gopacket.NewSerializeBuffer()
	var err error
	if payload != nil {
		err = gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, layer, gopacket.Payload(payload))
	} else {
		err = gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, layer)
	}
	if err != nil {
		return err
	}
	op.datagram = layer.DatagramLen()
	op.resp = layer.ResponseLen()

	if c.section != nil {
		if op.kind == "read" {
			return fmt.Errorf("host: read operations are not allowed in a buffered section")
		}
		c.section.buf = append(c.section.buf, buf.Bytes()...)
		c.section.ops = append(c.section.ops, op)
		return nil
	}

	if err := c.require(op.datagram); err != nil {
		return err
	}
	log.Debug("Sending %s datagram, %d bytes", op.kind, op.datagram)
	if _, err := c.rw.Write(buf.Bytes()); err != nil {
		return err
	}
	c.pending = append(c.pending, op)
	c.inFlight += op.datagram
	return nil
}

// require resolves pending operations until the board FIFO is
// guaranteed to have room for size more bytes.
func (c *Client) require(size int) error {
	for c.inFlight+size > c.fifoDepth {
		if len(c.pending) == 0 {
			return fmt.Errorf("host: command needs %d bytes of FIFO, the board has %d",
				size, c.fifoDepth)
		}
		resolved, err := c.resolveNext()
		if err != nil {
			return err
		}
		if resolved.err != nil {
			return resolved.err
		}
	}
	return nil
}

// resolveNext reads the response of the oldest pending operation. The
// returned error reports wire failures; protocol level timeouts are
// deferred on the operation itself.
func (c *Client) resolveNext() (*operation, error) {
	op := c.pending[0]
	buf := make([]byte, op.resp)
	if op.resp > 0 {
		if _, err := io.ReadFull(c.r, buf); err != nil {
			return nil, err
		}
	}
	c.pending = c.pending[1:]
	c.inFlight -= op.datagram

	switch op.kind {
	case "read":
		completed := int(buf[op.size])
		switch {
		case completed > op.size:
			return nil, fmt.Errorf("host: read of %d bytes acknowledged %d", op.size, completed)
		case completed < op.size:
			op.err = &TimeoutError{
				Op:        op.kind,
				Addr:      op.addr,
				Requested: op.size,
				Completed: completed,
				Data:      buf[:completed],
			}
		default:
			op.data = buf[:op.size]
		}
	case "write":
		completed := int(buf[0])
		switch {
		case completed > op.size:
			return nil, fmt.Errorf("host: write of %d bytes acknowledged %d", op.size, completed)
		case completed < op.size:
			op.err = &TimeoutError{
				Op:        op.kind,
				Addr:      op.addr,
				Requested: op.size,
				Completed: completed,
			}
		}
	case "timeout":
		// No response to read. The datagram is counted as drained
		// once every earlier response has arrived.
	default:
		// Delay and buffer wait acknowledge with a single zero byte.
		if buf[0] != 0 {
			return nil, fmt.Errorf("host: unexpected %s acknowledgment 0x%02x", op.kind, buf[0])
		}
	}
	return op, nil
}

// resolveThrough drains responses until the given operation has been
// resolved. Deferred errors of other operations met on the way are
// surfaced immediately.
func (c *Client) resolveThrough(op *operation) error {
	for {
		resolved, err := c.resolveNext()
		if err != nil {
			return err
		}
		if resolved == op {
			return nil
		}
		if resolved.err != nil {
			return resolved.err
		}
	}
}

// Flush resolves every pipelined operation still in flight and
// returns the first deferred error it meets.
func (c *Client) Flush() error {
	var first error
	for len(c.pending) > 0 {
		resolved, err := c.resolveNext()
		if err != nil {
			return err
		}
		if resolved.err != nil && first == nil {
			first = resolved.err
		}
	}
	return first
}
