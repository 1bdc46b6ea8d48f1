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

package bus

import (
	"strings"
	"testing"
)

func TestMemDefaultsToZero(t *testing.T) {
	m := NewMem()
	if got := m.Read(0x0403); got != 0 {
		t.Errorf("Read(0x0403) = %#x, want 0", got)
	}
	m.Write(0x0403, 0xa5)
	if got := m.Read(0x0403); got != 0xa5 {
		t.Errorf("Read(0x0403) = %#x, want 0xa5", got)
	}
}

func TestMuxDispatch(t *testing.T) {
	rom := NewVersionROM("scaffold", "0.9")
	regs := NewMem()
	m := NewMux(regs, Range{Base: 0x0100, Size: 0x100, Dev: rom})

	// The device behind a range sees relative addresses, so any
	// address inside the range hits the ROM.
	if got := m.Read(0x0100); got != 's' {
		t.Errorf("Read(0x0100) = %q, want 's'", got)
	}
	if got := m.Read(0x0142); got != 'c' {
		t.Errorf("Read(0x0142) = %q, want 'c'", got)
	}

	// Writes into the ROM range are ignored.
	m.Write(0x0100, 0xff)
	if got := regs.Read(0x0100); got != 0 {
		t.Errorf("ROM write leaked into the fallback: %#x", got)
	}

	// Everything else lands on the fallback store.
	m.Write(0x0403, 0x42)
	if got := m.Read(0x0403); got != 0x42 {
		t.Errorf("Read(0x0403) = %#x, want 0x42", got)
	}
}

func TestMuxUnmapped(t *testing.T) {
	m := NewMux(nil, Range{Base: 0x0200, Size: 0x10, Dev: NewMem()})
	if got := m.Read(0x0403); got != 0 {
		t.Errorf("unmapped Read() = %#x, want 0", got)
	}
	m.Write(0x0403, 0xff) // discarded
}

func TestVersionROMCycles(t *testing.T) {
	rom := NewVersionROM("scaffold", "0.9")
	want := "scaffold-0.9\x00scaffold-0.9\x00sc"
	got := make([]byte, len(want))
	for i := range got {
		got[i] = rom.Read(0)
	}
	if string(got) != want {
		t.Errorf("cyclic read = %q, want %q", got, want)
	}
}

func TestResolveAddr(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    uint16
		wantErr bool
	}{
		{"hex", "0x0403", 0x0403, false},
		{"decimal", "1027", 0x0403, false},
		{"module", "uart0", 0x0400, false},
		{"module offset", "uart0+3", 0x0403, false},
		{"module hex offset", "mtxr+0x10", 0xf110, false},
		{"unknown module", "nope+1", 0, true},
		{"garbage", "zzz", 0, true},
		{"overflow", "mtxr+0xffff", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAddr(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveAddr(%q) error = nil, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveAddr(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveAddr(%q) = 0x%04x, want 0x%04x", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewMem()
	m.Write(0x0403, 0x42)
	m.Write(0x0200, 0x0f)

	snap, err := TakeSnapshot(m, "scaffold", "0.9")
	if err != nil {
		t.Fatalf("TakeSnapshot() error = %v", err)
	}
	data, err := snap.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "0x0403") {
		t.Errorf("snapshot does not mention register 0x0403:\n%s", data)
	}

	parsed, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error = %v", err)
	}
	restored := NewMem()
	if err := RestoreSnapshot(restored, parsed); err != nil {
		t.Fatalf("RestoreSnapshot() error = %v", err)
	}
	if got := restored.Read(0x0403); got != 0x42 {
		t.Errorf("restored Read(0x0403) = %#x, want 0x42", got)
	}
	if got := restored.Read(0x0200); got != 0x0f {
		t.Errorf("restored Read(0x0200) = %#x, want 0x0f", got)
	}
}
