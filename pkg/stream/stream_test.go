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
	"errors"
	"net"
	"testing"
	"time"
)

func TestPipeRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe(8)
	for _, v := range []byte{0x01, 0x02, 0xff} {
		if err := a.Send(ctx, v); err != nil {
			t.Fatalf("Send(%#x) error = %v", v, err)
		}
	}
	if got := b.Buffered(); got != 3 {
		t.Errorf("Buffered() = %d, want 3", got)
	}
	for _, want := range []byte{0x01, 0x02, 0xff} {
		got, err := b.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if got != want {
			t.Errorf("Recv() = %#x, want %#x", got, want)
		}
	}
	if _, ok := b.TryRecv(); ok {
		t.Error("TryRecv() on an empty link should report false")
	}
}

func TestRecvSuspendsUntilCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a, _ := Pipe(8)
	_, err := a.Recv(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recv() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSendBackpressure(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe(2)
	if err := a.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := a.Send(ctx, 2); err != nil {
		t.Fatal(err)
	}

	sent := make(chan error, 1)
	go func() {
		sent <- a.Send(ctx, 3)
	}()

	select {
	case err := <-sent:
		t.Fatalf("Send() on a full link returned early: %v", err)
	case <-time.After(10 * time.Millisecond):
	}

	if _, err := b.Recv(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-sent:
		if err != nil {
			t.Errorf("Send() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send() still blocked after space was freed")
	}
}

func TestWaitBuffered(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe(8)

	reached := make(chan error, 1)
	go func() {
		reached <- b.WaitBuffered(ctx, 3)
	}()

	for _, v := range []byte{1, 2} {
		if err := a.Send(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-reached:
		t.Fatal("WaitBuffered(3) returned with only 2 bytes queued")
	case <-time.After(10 * time.Millisecond):
	}

	if err := a.Send(ctx, 3); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-reached:
		if err != nil {
			t.Errorf("WaitBuffered() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitBuffered(3) still blocked with 3 bytes queued")
	}
}

func TestFlushRx(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe(8)
	for _, v := range []byte{1, 2, 3} {
		if err := a.Send(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	if got := b.FlushRx(); got != 3 {
		t.Errorf("FlushRx() = %d, want 3", got)
	}
	if got := b.Buffered(); got != 0 {
		t.Errorf("Buffered() after flush = %d, want 0", got)
	}
}

func TestCloseUnblocksRecv(t *testing.T) {
	a, b := Pipe(8)
	got := make(chan error, 1)
	go func() {
		_, err := b.Recv(context.Background())
		got <- err
	}()
	time.Sleep(5 * time.Millisecond)
	a.Close()
	b.Close()
	select {
	case err := <-got:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Recv() after Close error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv() still blocked after Close")
	}
}

func TestCloseDrainsQueuedBytes(t *testing.T) {
	ctx := context.Background()
	f := NewFifo(4)
	if err := f.Push(ctx, 0x42); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if b, err := f.Pop(ctx); err != nil || b != 0x42 {
		t.Errorf("Pop() = %#x, %v, want 0x42, nil", b, err)
	}
	if _, err := f.Pop(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Pop() on drained closed fifo error = %v, want ErrClosed", err)
	}
}

func TestAttachPumpsBothDirections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	near, far := net.Pipe()
	defer far.Close()
	link, _ := Attach(ctx, near, 0)

	go func() {
		far.Write([]byte{0xde, 0xad})
	}()
	for _, want := range []byte{0xde, 0xad} {
		got, err := link.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if got != want {
			t.Errorf("Recv() = %#x, want %#x", got, want)
		}
	}

	if err := link.Send(ctx, 0x55); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	buf := make([]byte, 1)
	if _, err := far.Read(buf); err != nil {
		t.Fatalf("far.Read() error = %v", err)
	}
	if buf[0] != 0x55 {
		t.Errorf("far.Read() = %#x, want 0x55", buf[0])
	}
	near.Close()
}
