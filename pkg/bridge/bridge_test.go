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
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/stream"
)

// fifoReg is a pass-through register: writes queue bytes, reads pop
// them, so a write-then-read round trip preserves the payload.
type fifoReg struct {
	mu sync.Mutex
	q  []byte
}

func (f *fifoReg) Read(addr uint16) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.q) == 0 {
		return 0
	}
	b := f.q[0]
	f.q = f.q[1:]
	return b
}

func (f *fifoReg) Write(addr uint16, value byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.q = append(f.q, value)
}

// countingBus counts bus accesses on top of an inner bus.
type countingBus struct {
	inner  bus.Bus
	mu     sync.Mutex
	reads  int
	writes int
}

func (c *countingBus) Read(addr uint16) byte {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.inner.Read(addr)
}

func (c *countingBus) Write(addr uint16, value byte) {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	c.inner.Write(addr, value)
}

func (c *countingBus) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.writes
}

// startEngine runs an engine against the given bus and returns the
// host end of the link.
func startEngine(t *testing.T, b bus.Bus, opts ...Option) (*stream.Link, *Engine) {
	t.Helper()
	engineEnd, hostEnd := stream.Pipe(0)
	e := New(b, engineEnd, append([]Option{WithSettle(0)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hostEnd, e
}

func sendBytes(t *testing.T, link *stream.Link, data ...byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, b := range data {
		if err := link.Send(ctx, b); err != nil {
			t.Fatalf("Send(%#x) error = %v", b, err)
		}
	}
}

func recvBytes(t *testing.T, link *stream.Link, n int) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := make([]byte, n)
	for i := range got {
		b, err := link.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv() byte %d of %d: %v", i+1, n, err)
		}
		got[i] = b
	}
	return got
}

func expectSilence(t *testing.T, link *stream.Link) {
	t.Helper()
	time.Sleep(20 * time.Millisecond)
	if b, ok := link.TryRecv(); ok {
		t.Fatalf("unexpected response byte %#x", b)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitState(t *testing.T, e *Engine, want string) {
	t.Helper()
	waitFor(t, "engine state "+want, func() bool {
		return e.Status().State == want
	})
}

func TestSingleWrite(t *testing.T) {
	regs := bus.NewMem()
	host, _ := startEngine(t, regs)

	sendBytes(t, host, 0x01, 0x04, 0x03, 0x01)
	if got := recvBytes(t, host, 1); got[0] != 0x01 {
		t.Errorf("ack = %#x, want 0x01", got[0])
	}
	if got := regs.Read(0x0403); got != 0x01 {
		t.Errorf("bus[0x0403] = %#x, want 0x01", got)
	}
	expectSilence(t, host)
}

func TestSingleRead(t *testing.T) {
	regs := bus.NewMem()
	regs.Write(0x0200, 0x5a)
	host, _ := startEngine(t, regs)

	sendBytes(t, host, 0x00, 0x02, 0x00)
	got := recvBytes(t, host, 2)
	if want := []byte{0x5a, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("response = % x, want % x", got, want)
	}
}

func TestSizedWriteCompletesFully(t *testing.T) {
	reg := &fifoReg{}
	counting := &countingBus{inner: reg}
	host, _ := startEngine(t, counting)

	sendBytes(t, host, 0x03, 0x04, 0x00, 0x05, 0x10, 0x20, 0x30, 0x40, 0x50)
	if got := recvBytes(t, host, 1); got[0] != 0x05 {
		t.Errorf("ack = %#x, want 0x05", got[0])
	}
	if _, writes := counting.counts(); writes != 5 {
		t.Errorf("bus writes = %d, want 5", writes)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	host, _ := startEngine(t, &fifoReg{})
	payload := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x42}

	buf := gopacket.NewSerializeBuffer()
	write := &layers.AccessLayer{Opcode: 0x03, Addr: 0x0400}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, write, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers() error = %v", err)
	}
	sendBytes(t, host, buf.Bytes()...)
	if got := recvBytes(t, host, 1); got[0] != byte(len(payload)) {
		t.Fatalf("write ack = %#x, want %#x", got[0], len(payload))
	}

	buf = gopacket.NewSerializeBuffer()
	read := &layers.AccessLayer{Opcode: 0x02, Addr: 0x0400, Size: byte(len(payload))}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, read); err != nil {
		t.Fatalf("SerializeLayers() error = %v", err)
	}
	sendBytes(t, host, buf.Bytes()...)
	got := recvBytes(t, host, len(payload)+1)
	if !bytes.Equal(got[:len(payload)], payload) {
		t.Errorf("read data = % x, want % x", got[:len(payload)], payload)
	}
	if got[len(payload)] != byte(len(payload)) {
		t.Errorf("read ack = %#x, want %#x", got[len(payload)], len(payload))
	}
}

func TestSizedZeroTransfersNothing(t *testing.T) {
	counting := &countingBus{inner: bus.NewMem()}
	host, _ := startEngine(t, counting)

	// Sized read of zero bytes: just the zero acknowledgment.
	sendBytes(t, host, 0x02, 0x04, 0x00, 0x00)
	if got := recvBytes(t, host, 1); got[0] != 0x00 {
		t.Errorf("read ack = %#x, want 0x00", got[0])
	}

	// Sized write of zero bytes: no payload follows, same ack.
	sendBytes(t, host, 0x03, 0x04, 0x00, 0x00)
	if got := recvBytes(t, host, 1); got[0] != 0x00 {
		t.Errorf("write ack = %#x, want 0x00", got[0])
	}

	if reads, writes := counting.counts(); reads != 0 || writes != 0 {
		t.Errorf("bus accesses = %d reads, %d writes, want none", reads, writes)
	}
	expectSilence(t, host)
}

func TestPollingWriteTimeoutConsumesPayload(t *testing.T) {
	regs := bus.NewMem() // poll register stays 0, condition never true
	host, e := startEngine(t, regs)

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x00, 0x10)
	// Polling sized write, 3 bytes, poll on 0x0402 for bit0 == 1.
	sendBytes(t, host, 0x07, 0x04, 0x00, 0x04, 0x02, 0x01, 0x01, 0x03)
	sendBytes(t, host, 0xaa, 0xbb, 0xcc)

	if got := recvBytes(t, host, 1); got[0] != 0x00 {
		t.Errorf("ack = %#x, want 0x00", got[0])
	}
	// The payload was consumed and discarded: nothing is left over to
	// be misread as a next command, and nothing was written.
	expectSilence(t, host)
	waitState(t, e, "idle")
	if got := regs.Read(0x0400); got != 0 {
		t.Errorf("bus[0x0400] = %#x, want 0 after timeout", got)
	}
	if c := e.Status().Counters; c.Timeouts != 1 {
		t.Errorf("timeout counter = %d, want 1", c.Timeouts)
	}
}

func TestPollingReadTimeoutZeroFills(t *testing.T) {
	host, _ := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x00, 0x10)
	// Polling sized read, 3 bytes, condition never true.
	sendBytes(t, host, 0x06, 0x04, 0x00, 0x04, 0x02, 0x01, 0x01, 0x03)

	got := recvBytes(t, host, 4)
	if want := []byte{0x00, 0x00, 0x00, 0x00}; !bytes.Equal(got, want) {
		t.Errorf("response = % x, want % x", got, want)
	}
	expectSilence(t, host)
}

func TestPollingPartialTransfer(t *testing.T) {
	// The poll register matches exactly once, so one byte goes
	// through before the countdown expires.
	regs := bus.NewMem()
	regs.Write(0x0402, 0x01)
	host, e := startEngine(t, regs)

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x00, 0x20)
	sendBytes(t, host, 0x07, 0x04, 0x02, 0x04, 0x02, 0x01, 0x01, 0x03)
	// First payload byte clears the poll register itself, the two
	// remaining bytes can then never be written.
	sendBytes(t, host, 0x00, 0xbb, 0xcc)

	if got := recvBytes(t, host, 1); got[0] != 0x01 {
		t.Errorf("ack = %#x, want 0x01", got[0])
	}
	expectSilence(t, host)
	if got := regs.Read(0x0402); got != 0x00 {
		t.Errorf("bus[0x0402] = %#x, want 0x00", got)
	}
	waitState(t, e, "idle")
}

func TestTimeoutConfigPersistsAcrossTransactions(t *testing.T) {
	host, e := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x00, 0x08)
	for i := 0; i < 2; i++ {
		sendBytes(t, host, 0x04, 0x04, 0x00, 0x04, 0x02, 0x01, 0x01)
		got := recvBytes(t, host, 2)
		if want := []byte{0x00, 0x00}; !bytes.Equal(got, want) {
			t.Errorf("transaction %d response = % x, want % x", i, got, want)
		}
	}
	if got := e.Status().Timeout; got != 8 {
		t.Errorf("timeout config = %d, want 8", got)
	}
}

func TestTimeoutZeroWaitsUnbounded(t *testing.T) {
	regs := bus.NewMem()
	host, _ := startEngine(t, regs, WithSettle(10*time.Microsecond))

	// Disable timeouts, then poll a condition that only becomes true
	// later. The engine must keep polling instead of timing out.
	sendBytes(t, host, 0x08, 0x00, 0x00, 0x00, 0x00)
	sendBytes(t, host, 0x04, 0x02, 0x00, 0x04, 0x02, 0x01, 0x01)

	time.Sleep(30 * time.Millisecond)
	if _, ok := host.TryRecv(); ok {
		t.Fatal("engine answered before the poll condition was true")
	}
	regs.Write(0x0200, 0x99)
	regs.Write(0x0402, 0x01)

	got := recvBytes(t, host, 2)
	if want := []byte{0x99, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("response = % x, want % x", got, want)
	}
}

func TestTimeoutScenario(t *testing.T) {
	host, e := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x20, 0x00)
	sendBytes(t, host, 0x06, 0x04, 0x00, 0x04, 0x02, 0x01, 0x01, 0x02)

	got := recvBytes(t, host, 3)
	if want := []byte{0x00, 0x00, 0x00}; !bytes.Equal(got, want) {
		t.Errorf("response = % x, want % x", got, want)
	}
	waitState(t, e, "idle")
	if got := e.Status().Timeout; got != 0x2000 {
		t.Errorf("timeout config = %#x, want 0x2000", got)
	}
}

func TestUnknownOpcodeFaultsUntilReset(t *testing.T) {
	regs := bus.NewMem()
	host, e := startEngine(t, regs)

	sendBytes(t, host, 0xff)
	waitState(t, e, "fault")
	if got := e.Status().Fault; got != "0xff" {
		t.Errorf("fault opcode = %q, want \"0xff\"", got)
	}

	// Everything sent while faulted is swallowed, even well-formed
	// commands.
	sendBytes(t, host, 0x01, 0x04, 0x03, 0x01)
	expectSilence(t, host)
	if got := regs.Read(0x0403); got != 0 {
		t.Errorf("bus[0x0403] = %#x, want 0 while faulted", got)
	}

	e.Reset()
	waitState(t, e, "idle")
	if got := e.Status().Fault; got != "" {
		t.Errorf("fault after reset = %q, want empty", got)
	}

	sendBytes(t, host, 0x01, 0x04, 0x03, 0x01)
	if got := recvBytes(t, host, 1); got[0] != 0x01 {
		t.Errorf("ack after reset = %#x, want 0x01", got[0])
	}
	if got := regs.Read(0x0403); got != 0x01 {
		t.Errorf("bus[0x0403] = %#x, want 0x01 after reset", got)
	}
}

func TestResetInterruptsCapture(t *testing.T) {
	host, e := startEngine(t, bus.NewMem())

	// A command left hanging in parameter capture is abandoned by the
	// reset and its stale bytes are flushed.
	sendBytes(t, host, 0x01, 0x04)
	time.Sleep(10 * time.Millisecond)
	e.Reset()
	waitState(t, e, "idle")

	sendBytes(t, host, 0x00, 0x02, 0x00)
	got := recvBytes(t, host, 2)
	if want := []byte{0x00, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("response after reset = % x, want % x", got, want)
	}
}

func TestResetClearsTimeoutConfig(t *testing.T) {
	host, e := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x08, 0x00, 0x00, 0x20, 0x00)
	sendBytes(t, host, 0x00, 0x02, 0x00)
	recvBytes(t, host, 2)
	if got := e.Status().Timeout; got != 0x2000 {
		t.Fatalf("timeout config = %#x, want 0x2000", got)
	}

	e.Reset()
	waitFor(t, "reset to be applied", func() bool {
		return e.Status().Counters.Resets == 1
	})
	if got := e.Status().Timeout; got != 0 {
		t.Errorf("timeout config after reset = %d, want 0", got)
	}
}

func TestDelayAcknowledges(t *testing.T) {
	host, _ := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x09, 0x00, 0x00, 0x64)
	if got := recvBytes(t, host, 1); got[0] != 0x00 {
		t.Errorf("delay ack = %#x, want 0x00", got[0])
	}
}

func TestBufferWaitHoldsUntilLevelReached(t *testing.T) {
	regs := bus.NewMem()
	host, _ := startEngine(t, regs)

	sendBytes(t, host, 0x0a, 0x00, 0x04)
	time.Sleep(10 * time.Millisecond)
	if _, ok := host.TryRecv(); ok {
		t.Fatal("buffer wait acknowledged before the level was reached")
	}

	// The next command itself fills the buffer to the requested
	// level, then executes back to back.
	sendBytes(t, host, 0x01, 0x04, 0x03, 0x42)
	got := recvBytes(t, host, 2)
	if want := []byte{0x00, 0x01}; !bytes.Equal(got, want) {
		t.Errorf("response = % x, want % x", got, want)
	}
	if got := regs.Read(0x0403); got != 0x42 {
		t.Errorf("bus[0x0403] = %#x, want 0x42", got)
	}
}

func TestCountersAccumulate(t *testing.T) {
	host, e := startEngine(t, bus.NewMem())

	sendBytes(t, host, 0x01, 0x04, 0x03, 0x01)
	recvBytes(t, host, 1)
	sendBytes(t, host, 0x00, 0x04, 0x03)
	recvBytes(t, host, 2)

	waitFor(t, "both transactions to be counted", func() bool {
		return e.Status().Counters.Transactions == 2
	})
}
