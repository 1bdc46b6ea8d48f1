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
	"path/filepath"
	"testing"
)

func TestFilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registers.db")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if got := f.Read(0x0403); got != 0 {
		t.Errorf("Read(0x0403) on a fresh file = %#x, want 0", got)
	}
	f.Write(0x0403, 0x42)
	f.Write(0xf000, 0x01)
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err = OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() reopen error = %v", err)
	}
	defer f.Close()
	if got := f.Read(0x0403); got != 0x42 {
		t.Errorf("Read(0x0403) after reopen = %#x, want 0x42", got)
	}
	if got := f.Read(0xf000); got != 0x01 {
		t.Errorf("Read(0xf000) after reopen = %#x, want 0x01", got)
	}
}

func TestFileDumpAndRestore(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "registers.db"))
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	f.Write(0x0200, 0x0f)
	f.Write(0x0403, 0x42)

	regs, err := f.Dump()
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if len(regs) != 2 || regs[0x0200] != 0x0f || regs[0x0403] != 0x42 {
		t.Errorf("Dump() = %v, want {0x0200: 0x0f, 0x0403: 0x42}", regs)
	}

	if err := f.Restore(map[uint16]byte{0x0500: 0xaa}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got := f.Read(0x0403); got != 0 {
		t.Errorf("Read(0x0403) after restore = %#x, want 0", got)
	}
	if got := f.Read(0x0500); got != 0xaa {
		t.Errorf("Read(0x0500) after restore = %#x, want 0xaa", got)
	}
}
