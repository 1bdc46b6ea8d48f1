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

package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/stream"
)

const (
	defaultSysFreq = 100e6
)

// errReset flows up from a suspension point interrupted by Reset.
var errReset = errors.New("bridge: external reset")

// Engine is the bridge protocol engine: it decodes command datagrams
// from the link, executes them against the register bus and encodes
// the responses back onto the link.
//
// All protocol work runs on the single goroutine that called Run.
// Every wait, for an inbound byte, for room to send, for a poll
// iteration, is a suspension point at which cancellation and external
// reset are honored. The engine never drops or reorders response
// bytes and services at most one transaction at a time.
type Engine struct {
	bus  bus.Bus
	link *stream.Link

	// settle is the register pipeline latency honored after issuing a
	// bus access before its value is used.
	settle  time.Duration
	sysFreq float64

	resetCh chan struct{}

	mu       sync.Mutex
	state    State
	faultOp  layers.Opcode
	timeout  uint32
	counters Counters
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettle sets the register access settle latency. Zero disables
// the wait, which is what tests use.
func WithSettle(d time.Duration) Option {
	return func(e *Engine) {
		e.settle = d
	}
}

// WithSysFreq sets the system clock frequency used to convert delay
// cycle counts to durations.
func WithSysFreq(hz float64) Option {
	return func(e *Engine) {
		if hz > 0 {
			e.sysFreq = hz
		}
	}
}

func New(b bus.Bus, link *stream.Link, opts ...Option) *Engine {
	e := &Engine{
		bus:     b,
		link:    link,
		sysFreq: defaultSysFreq,
		resetCh: make(chan struct{}, 1),
	}
	e.settle = time.Duration(float64(layers.TimeoutUnitCycles) / e.sysFreq * float64(time.Second))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset pulses the external reset line. It interrupts the engine at
// its current suspension point, abandons any transaction in flight,
// discards pending inbound bytes, clears the fault and the timeout
// configuration, and returns the engine to Idle. It is the only way
// out of the fault state and may be called from any goroutine.
func (e *Engine) Reset() {
	select {
	case e.resetCh <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		State:    e.state.String(),
		Timeout:  e.timeout,
		Counters: e.counters,
	}
	if e.state == StateFault {
		s.Fault = fmt.Sprintf("0x%02x", byte(e.faultOp))
	}
	return s
}

// Run executes the engine until the context is canceled and returns
// the cancellation cause. External resets are handled internally.
func (e *Engine) Run(ctx context.Context) error {
	log.Info("Bridge engine started")
	for {
		err := e.session(ctx)
		if errors.Is(err, errReset) {
			e.applyReset()
			continue
		}
		log.Info("Bridge engine stopped: %s", err)
		return err
	}
}

// session services transactions until the context is canceled or a
// reset is requested. Reset interrupts any suspension point by
// canceling the session context.
func (e *Engine) session(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.resetCh:
			cancel()
		case <-sctx.Done():
		}
	}()
	for {
		if err := e.transact(sctx); err != nil {
			if sctx.Err() != nil && ctx.Err() == nil {
				return errReset
			}
			return err
		}
	}
}

// transact decodes and executes one command.
func (e *Engine) transact(ctx context.Context) error {
	e.setState(StateIdle)
	b, err := e.link.Recv(ctx)
	if err != nil {
		return err
	}

	e.setState(StateDecoding)
	op := layers.Opcode(b)
	if !op.Valid() {
		return e.fault(ctx, op)
	}

	e.setState(StateCapturing)
	params := make([]byte, op.ParamLen())
	for i := range params {
		if params[i], err = e.link.Recv(ctx); err != nil {
			return err
		}
	}

	switch {
	case op.Access():
		err = e.access(ctx, op, params)
	case op == layers.OpTimeout:
		e.setTimeout(binary.BigEndian.Uint32(params))
		err = nil
	case op == layers.OpDelay:
		err = e.delay(ctx, params)
	default:
		err = e.bufferWait(ctx, params)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.counters.Transactions++
	e.mu.Unlock()
	return nil
}

// fault is the terminal error state entered on an unknown opcode: the
// engine consumes and discards every inbound byte and emits nothing
// until an external reset, so no stale bytes are ever interpreted as
// commands.
func (e *Engine) fault(ctx context.Context, op layers.Opcode) error {
	log.Error("Unknown opcode 0x%02x, bridge is faulted until reset", byte(op))
	e.mu.Lock()
	e.state = StateFault
	e.faultOp = op
	e.counters.Faults++
	e.mu.Unlock()
	for {
		if _, err := e.link.Recv(ctx); err != nil {
			return err
		}
	}
}

// access executes a register access transaction: poll, transfer one
// byte, repeat, then acknowledge with the completed count.
func (e *Engine) access(ctx context.Context, op layers.Opcode, params []byte) error {
	tx := newTransaction(op, params, e.timeoutValue())
	e.setState(StateTransferring)
	log.Debug("%s 0x%04x, %d bytes", op, tx.addr, tx.size)

	for tx.completed < tx.size {
		ok, err := e.await(ctx, tx)
		if err != nil {
			return err
		}
		if !ok {
			return e.abort(ctx, tx)
		}
		if op.Write() {
			b, err := e.link.Recv(ctx)
			if err != nil {
				return err
			}
			e.bus.Write(tx.addr, b)
		} else {
			v := e.bus.Read(tx.addr)
			if err := e.wait(ctx, e.settle); err != nil {
				return err
			}
			if err := e.link.Send(ctx, v); err != nil {
				return err
			}
		}
		tx.completed++
	}
	return e.ack(ctx, tx)
}

// await blocks until the poll condition holds and reports false when
// the timeout countdown expires instead. Non-polling commands proceed
// at once. The countdown is armed from the latched timeout
// configuration once per byte, it is not reset by failed attempts
// within the same byte; zero means no timeout, which can block
// forever by design.
func (e *Engine) await(ctx context.Context, tx *transaction) (bool, error) {
	if !tx.op.Polling() {
		return true, nil
	}
	countdown := tx.timeout
	for {
		v := e.bus.Read(tx.poll.Addr)
		if err := e.wait(ctx, e.settle); err != nil {
			return false, err
		}
		if tx.match(v) {
			return true, nil
		}
		if tx.timeout != 0 {
			countdown--
			if countdown == 0 {
				return false, nil
			}
		}
	}
}

// abort balances the byte counts of a timed out transfer: a write
// consumes and discards the payload bytes that will never reach the
// bus, a read emits a zero for every position that was never read.
// The short acknowledgment then reports how many accesses really
// happened.
func (e *Engine) abort(ctx context.Context, tx *transaction) error {
	log.Warning("Poll timeout on 0x%04x after %d of %d bytes", tx.addr, tx.completed, tx.size)
	e.mu.Lock()
	e.counters.Timeouts++
	e.mu.Unlock()
	for i := tx.completed; i < tx.size; i++ {
		if tx.op.Write() {
			if _, err := e.link.Recv(ctx); err != nil {
				return err
			}
		} else {
			if err := e.link.Send(ctx, 0); err != nil {
				return err
			}
		}
	}
	return e.ack(ctx, tx)
}

// ack emits the single acknowledgment byte carrying the completed
// count. Read data, zero filled or not, has already been sent, so the
// response layout never depends on whether the transfer timed out.
func (e *Engine) ack(ctx context.Context, tx *transaction) error {
	return e.link.Send(ctx, byte(tx.completed))
}

// delay stalls the bridge for a cycle count converted against the
// system clock, then acknowledges with a zero byte.
func (e *Engine) delay(ctx context.Context, params []byte) error {
	cycles := uint32(params[0])<<16 | uint32(params[1])<<8 | uint32(params[2])
	d := time.Duration(float64(cycles) / e.sysFreq * float64(time.Second))
	log.Debug("Delay of %d cycles (%s)", cycles, d)
	if err := e.wait(ctx, d); err != nil {
		return err
	}
	return e.link.Send(ctx, 0)
}

// bufferWait stalls the bridge until the receive FIFO holds the
// requested number of bytes, then acknowledges with a zero byte. A
// level beyond the FIFO depth can never be reached and blocks until
// reset, exactly like the hardware.
func (e *Engine) bufferWait(ctx context.Context, params []byte) error {
	level := int(binary.BigEndian.Uint16(params))
	log.Debug("Waiting for %d buffered bytes", level)
	if err := e.link.WaitBuffered(ctx, level); err != nil {
		return err
	}
	return e.link.Send(ctx, 0)
}

// wait suspends for the given duration while honoring cancellation.
// A zero duration still yields so an unbounded poll loop remains
// interruptible.
func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) applyReset() {
	dropped := e.link.FlushRx()
	e.mu.Lock()
	e.state = StateIdle
	e.faultOp = 0
	e.timeout = 0
	e.counters.Resets++
	e.mu.Unlock()
	log.Info("Bridge reset, %d pending bytes dropped", dropped)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setTimeout(v uint32) {
	log.Debug("Timeout configuration set to %d units", v)
	e.mu.Lock()
	e.timeout = v
	e.mu.Unlock()
}

func (e *Engine) timeoutValue() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeout
}
