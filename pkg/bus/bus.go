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

// Bus is the register space behind the bridge. Accesses are modeled as
// synchronous calls; the settle latency of the hardware register
// pipeline is the caller's concern.
type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// Store is a bus whose whole register file can be dumped and restored.
type Store interface {
	Bus
	Dump() (map[uint16]byte, error)
	Restore(regs map[uint16]byte) error
}

// Mem is a volatile register file. Unwritten registers read zero.
type Mem struct {
	mu   sync.Mutex
	regs map[uint16]byte
}

var _ Store = &Mem{}

func NewMem() *Mem {
	return &Mem{regs: make(map[uint16]byte)}
}

func (m *Mem) Read(addr uint16) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

func (m *Mem) Write(addr uint16, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = value
}

func (m *Mem) Dump() (map[uint16]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	regs := make(map[uint16]byte, len(m.regs))
	for addr, value := range m.regs {
		regs[addr] = value
	}
	return regs, nil
}

func (m *Mem) Restore(regs map[uint16]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = make(map[uint16]byte, len(regs))
	for addr, value := range regs {
		m.regs[addr] = value
	}
	return nil
}
