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

// Range maps the addresses [Base, Base+Size) onto a child bus, which
// sees addresses relative to Base. This is the address decoding the
// board performs to dispatch accesses to its modules.
type Range struct {
	Base uint16
	Size uint32
	Dev  Bus
}

// Mux dispatches register accesses to the first matching range, or to
// the fallback bus. Unmapped reads return zero, unmapped writes are
// discarded, as on real hardware.
type Mux struct {
	ranges   []Range
	fallback Bus
}

var _ Bus = &Mux{}

func NewMux(fallback Bus, ranges ...Range) *Mux {
	return &Mux{ranges: ranges, fallback: fallback}
}

func (m *Mux) resolve(addr uint16) (Bus, uint16) {
	for _, r := range m.ranges {
		if addr >= r.Base && uint32(addr) < uint32(r.Base)+r.Size {
			return r.Dev, addr - r.Base
		}
	}
	return m.fallback, addr
}

func (m *Mux) Read(addr uint16) byte {
	dev, rel := m.resolve(addr)
	if dev == nil {
		return 0
	}
	return dev.Read(rel)
}

func (m *Mux) Write(addr uint16, value byte) {
	dev, rel := m.resolve(addr)
	if dev == nil {
		return
	}
	dev.Write(rel, value)
}
