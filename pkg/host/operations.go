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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
)

// Poll names the register condition a polled access waits on: the
// access proceeds one byte each time the register at Addr, masked with
// Mask, equals Value masked the same way.
type Poll struct {
	Addr  uint16
	Mask  byte
	Value byte
}

// accessLayer builds the datagram layer of one read or write chunk.
// One byte transfers use the unsized command form, it is one byte
// shorter on the wire.
func accessLayer(addr uint16, size int, write bool, poll *Poll) *layers.AccessLayer {
	var op layers.Opcode
	if write {
		op |= layers.OpWrite
	}
	if size > 1 {
		op |= layers.OpSized
	}
	l := &layers.AccessLayer{Opcode: op, Addr: addr, Size: byte(size)}
	if poll != nil {
		l.Opcode |= layers.OpPoll
		l.PollAddr = poll.Addr
		l.PollMask = poll.Mask
		l.PollValue = poll.Value
	}
	return l
}

// Read fetches size bytes from the register at addr. A size of zero
// returns no data without touching the wire.
func (c *Client) Read(addr uint16, size int) ([]byte, error) {
	return c.read(addr, size, nil)
}

// ReadPoll fetches size bytes from the register at addr, waiting for
// the poll condition before each byte. On a board timeout the returned
// error is a *TimeoutError carrying the bytes read so far.
func (c *Client) ReadPoll(addr uint16, size int, poll Poll) ([]byte, error) {
	return c.read(addr, size, &poll)
}

// ReadByte fetches one byte from the register at addr.
func (c *Client) ReadByte(addr uint16) (byte, error) {
	data, err := c.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (c *Client) read(addr uint16, size int, poll *Poll) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("host: invalid read size %d", size)
	}
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, 0, size)
	remaining := size
	for remaining > 0 {
		chunk := remaining
		if chunk > layers.MaxChunk {
			chunk = layers.MaxChunk
		}
		op := &operation{kind: "read", addr: addr, size: chunk}
		if err := c.queue(op, accessLayer(addr, chunk, false, poll), nil); err != nil {
			return nil, err
		}
		if err := c.resolveThrough(op); err != nil {
			return nil, err
		}
		if op.err != nil {
			te, ok := op.err.(*TimeoutError)
			if !ok {
				return nil, op.err
			}
			data = append(data, te.Data...)
			return nil, &TimeoutError{
				Op:        "read",
				Addr:      addr,
				Requested: size,
				Completed: len(data),
				Data:      data,
			}
		}
		data = append(data, op.data...)
		remaining -= chunk
	}
	return data, nil
}

// Write stores data into the register at addr. The operation is
// pipelined, its acknowledgment is checked lazily: a poll timeout
// surfaces as a *TimeoutError on a later call or on Flush.
func (c *Client) Write(addr uint16, data []byte) error {
	return c.write(addr, data, nil)
}

// WritePoll stores data into the register at addr, waiting for the
// poll condition before each byte.
func (c *Client) WritePoll(addr uint16, data []byte, poll Poll) error {
	return c.write(addr, data, &poll)
}

// WriteByte stores one byte into the register at addr.
func (c *Client) WriteByte(addr uint16, value byte) error {
	return c.Write(addr, []byte{value})
}

func (c *Client) write(addr uint16, data []byte, poll *Poll) error {
	if len(data) == 0 {
		return ErrNoData
	}
	// A chunk and its header must fit the board FIFO in one piece.
	hdr := 4
	if poll != nil {
		hdr += 4
	}
	max := layers.MaxChunk
	if m := c.fifoDepth - hdr; m < max {
		max = m
	}
	if max < 1 {
		return fmt.Errorf("host: FIFO depth %d cannot carry a write", c.fifoDepth)
	}
	offset := 0
	for offset < len(data) {
		chunk := len(data) - offset
		if chunk > max {
			chunk = max
		}
		op := &operation{kind: "write", addr: addr, size: chunk}
		layer := accessLayer(addr, chunk, true, poll)
		if err := c.queue(op, layer, data[offset:offset+chunk]); err != nil {
			return err
		}
		offset += chunk
	}
	return nil
}

// timeoutUnitDen is the denominator of the nanoseconds to timeout
// units conversion: one unit is TimeoutUnitCycles/sysFreq seconds.
const timeoutUnitDen = layers.TimeoutUnitCycles * uint64(time.Second)

// timeoutUnits converts a duration to polling timeout units, flooring
// but never below one unit: a short non zero timeout must not silently
// disable the watchdog. Zero or negative durations disable it. The
// math is integer so unit counts are exact.
func (c *Client) timeoutUnits(d time.Duration) (uint32, error) {
	if d <= 0 {
		return 0, nil
	}
	f := uint64(c.sysFreq)
	if f == 0 {
		return 0, fmt.Errorf("host: invalid system frequency %g", c.sysFreq)
	}
	ns := uint64(d)
	units := (ns/timeoutUnitDen)*f + (ns%timeoutUnitDen)*f/timeoutUnitDen
	if units > math.MaxUint32 {
		return 0, fmt.Errorf("host: timeout %v out of range", d)
	}
	if units == 0 {
		units = 1
	}
	return uint32(units), nil
}

// SetTimeoutRaw configures the polling timeout register, in units of
// three system clock cycles. Zero disables the timeout: a polling
// access that never matches then stalls the bridge until an external
// reset.
func (c *Client) SetTimeoutRaw(units uint32) error {
	op := &operation{kind: "timeout"}
	if err := c.queue(op, &layers.TimeoutLayer{Value: units}, nil); err != nil {
		return err
	}
	c.timeoutRaw = units
	c.timeoutSet = true
	return nil
}

// SetTimeout configures the polling timeout from a duration, see
// SetTimeoutRaw. Configurations matching the cached value are skipped.
func (c *Client) SetTimeout(d time.Duration) error {
	units, err := c.timeoutUnits(d)
	if err != nil {
		return err
	}
	if c.timeoutSet && units == c.timeoutRaw {
		return nil
	}
	return c.SetTimeoutRaw(units)
}

// Timeout reports the cached timeout configuration. The second return
// is false when no timeout has been configured through this client,
// the board value is then unknown.
func (c *Client) Timeout() (time.Duration, bool) {
	if !c.timeoutSet {
		return 0, false
	}
	f := uint64(c.sysFreq)
	if f == 0 {
		return 0, false
	}
	return time.Duration(uint64(c.timeoutRaw) * timeoutUnitDen / f), true
}

// PushTimeout saves the current timeout configuration on a stack and
// applies d. The new timeout is clamped so the effective value never
// grows: an enclosing tighter timeout wins over a nested looser one.
// PopTimeout restores the saved value.
func (c *Client) PushTimeout(d time.Duration) error {
	units, err := c.timeoutUnits(d)
	if err != nil {
		return err
	}
	if c.timeoutSet && c.timeoutRaw != 0 && (units == 0 || units > c.timeoutRaw) {
		units = c.timeoutRaw
	}
	prev := c.timeoutRaw
	if !c.timeoutSet || units != c.timeoutRaw {
		if err := c.SetTimeoutRaw(units); err != nil {
			return err
		}
	}
	c.timeoutStack = append(c.timeoutStack, prev)
	return nil
}

// PopTimeout restores the timeout configuration saved by the matching
// PushTimeout call.
func (c *Client) PopTimeout() error {
	if len(c.timeoutStack) == 0 {
		return errors.New("host: timeout stack is empty")
	}
	units := c.timeoutStack[len(c.timeoutStack)-1]
	c.timeoutStack = c.timeoutStack[:len(c.timeoutStack)-1]
	if c.timeoutSet && units == c.timeoutRaw {
		return nil
	}
	return c.SetTimeoutRaw(units)
}

// DelayCycles queues a pause of the given number of system clock
// cycles between the commands around it. Requires hardware 0.9.
func (c *Client) DelayCycles(cycles uint32) error {
	if err := c.requireVersion("delay", "0.9"); err != nil {
		return err
	}
	if cycles > layers.MaxDelayCycles {
		return fmt.Errorf("host: delay of %d cycles out of range", cycles)
	}
	op := &operation{kind: "delay"}
	return c.queue(op, &layers.DelayLayer{Cycles: cycles}, nil)
}

// Delay queues a pause of the given duration, rounded to system clock
// cycles. Requires hardware 0.9.
func (c *Client) Delay(d time.Duration) error {
	cycles := math.Round(d.Seconds() * c.sysFreq)
	if cycles < 0 || cycles > layers.MaxDelayCycles {
		return fmt.Errorf("host: delay %v out of range", d)
	}
	return c.DelayCycles(uint32(cycles))
}

// BufferWait stalls the bridge until its command FIFO holds at least
// level bytes. Requires hardware 0.9.
func (c *Client) BufferWait(level int) error {
	if err := c.requireVersion("buffer wait", "0.9"); err != nil {
		return err
	}
	if level < 0 || level >= c.fifoDepth {
		return fmt.Errorf("host: buffer level %d out of range", level)
	}
	op := &operation{kind: "wait"}
	return c.queue(op, &layers.BufferWaitLayer{Level: uint16(level)}, nil)
}

// Buffered collects the commands fn queues and sends them in one burst
// behind a buffer wait command, so the bridge starts executing them
// only once it holds the whole burst. The commands then run back to
// back, without the wire latency between them. Register reads cannot
// run inside fn, their resolution would deadlock on the unsent
// datagrams. Nested calls merge into the outermost burst. Requires
// hardware 0.9.
func (c *Client) Buffered(fn func() error) error {
	if err := c.requireVersion("buffer wait", "0.9"); err != nil {
		return err
	}
	if c.section != nil {
		return fn()
	}
	prevRaw, prevSet := c.timeoutRaw, c.timeoutSet
	c.section = &batch{}
	err := fn()
	b := c.section
	c.section = nil
	if err != nil {
		// The burst is dropped, so any timeout configuration it
		// carried never reached the board.
		c.timeoutRaw, c.timeoutSet = prevRaw, prevSet
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	if len(b.buf) >= c.fifoDepth {
		return fmt.Errorf("host: buffered section of %d bytes exceeds the board FIFO", len(b.buf))
	}
	wop := &operation{kind: "wait"}
	wait := &layers.BufferWaitLayer{Level: uint16(len(b.buf))}
	if err := c.require(wait.DatagramLen() + len(b.buf)); err != nil {
		return err
	}
	if err := c.queue(wop, wait, nil); err != nil {
		return err
	}
	if _, err := c.rw.Write(b.buf); err != nil {
		return err
	}
	for _, op := range b.ops {
		c.pending = append(c.pending, op)
		c.inFlight += op.datagram
	}
	return nil
}
