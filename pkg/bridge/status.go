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

// State is the engine execution state. The engine cycles through
// Idle, Decoding, Capturing and Transferring; Fault is terminal and
// only an external reset leaves it.
type State int

const (
	StateIdle State = iota
	StateDecoding
	StateCapturing
	StateTransferring
	StateFault
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoding:
		return "decoding"
	case StateCapturing:
		return "capturing"
	case StateTransferring:
		return "transferring"
	case StateFault:
		return "fault"
	}
	return "unknown"
}

// Counters accumulate over the engine lifetime. Resets do not clear
// them.
type Counters struct {
	Transactions uint64 `json:"transactions"`
	Timeouts     uint64 `json:"timeouts"`
	Faults       uint64 `json:"faults"`
	Resets       uint64 `json:"resets"`
}

// Status is a point in time snapshot of the engine for the control
// API. Fault carries the offending opcode while the engine is faulted.
type Status struct {
	State    string   `json:"state"`
	Fault    string   `json:"fault,omitempty"`
	Timeout  uint32   `json:"timeout"`
	Counters Counters `json:"counters"`
}
