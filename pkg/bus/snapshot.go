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
	"fmt"
	"strconv"

	"sigs.k8s.io/yaml"
)

// Snapshot is a portable dump of the register file, rendered with hex
// addresses and values so it can be read and edited by hand.
type Snapshot struct {
	Board     string            `json:"board,omitempty"`
	Version   string            `json:"version,omitempty"`
	Registers map[string]string `json:"registers"`
}

// TakeSnapshot dumps a store into a snapshot.
func TakeSnapshot(s Store, board, version string) (*Snapshot, error) {
	regs, err := s.Dump()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Board:     board,
		Version:   version,
		Registers: make(map[string]string, len(regs)),
	}
	for addr, value := range regs {
		snap.Registers[fmt.Sprintf("0x%04x", addr)] = fmt.Sprintf("0x%02x", value)
	}
	return snap, nil
}

// Regs parses the snapshot back into addressable form.
func (s *Snapshot) Regs() (map[uint16]byte, error) {
	regs := make(map[uint16]byte, len(s.Registers))
	for addrStr, valueStr := range s.Registers {
		addr, err := strconv.ParseUint(addrStr, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("bad register address %q: %s", addrStr, err)
		}
		value, err := strconv.ParseUint(valueStr, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad register value %q: %s", valueStr, err)
		}
		regs[uint16(addr)] = byte(value)
	}
	return regs, nil
}

// Marshal renders the snapshot as a YAML document.
func (s *Snapshot) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// UnmarshalSnapshot parses a YAML snapshot document.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreSnapshot loads a snapshot into a store, replacing its
// contents.
func RestoreSnapshot(s Store, snap *Snapshot) error {
	regs, err := snap.Regs()
	if err != nil {
		return err
	}
	return s.Restore(regs)
}
