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
	"sync"
)

// BoardName is the board identifier served by the version register.
const BoardName = "scaffold"

// VersionROM serves the board identification string one byte per read,
// cycling through "<board>-<version>" followed by a NUL separator.
// Hosts read an arbitrary window and cut a complete token out of it, so
// the read position does not need to be aligned. Writes are ignored.
type VersionROM struct {
	mu  sync.Mutex
	s   []byte
	pos int
}

var _ Bus = &VersionROM{}

func NewVersionROM(board, version string) *VersionROM {
	return &VersionROM{s: append([]byte(board+"-"+version), 0)}
}

func (v *VersionROM) Read(addr uint16) byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	b := v.s[v.pos]
	v.pos = (v.pos + 1) % len(v.s)
	return b
}

func (v *VersionROM) Write(addr uint16, value byte) {}
