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

package layers

import (
	"fmt"
)

const (
	// MaxChunk is the largest transfer a single sized datagram can carry.
	// The size field is one byte and 0 means "no bytes", so 256 cannot
	// be encoded.
	MaxChunk = 255
	// VersionAddr is the read-only version register. Reading it returns
	// the version string cyclically, NUL-delimited.
	VersionAddr uint16 = 0x0100
	// TimeoutUnitCycles is the number of system clock cycles per timeout
	// counter tick.
	TimeoutUnitCycles = 3
)

// Opcode is the first byte of every datagram sent to the bridge.
// Values 0 to 7 are register access commands encoded as a bit field,
// the rest are control commands.
type Opcode byte

const (
	// OpWrite set means register write, clear means register read.
	OpWrite Opcode = 1 << 0
	// OpSized set means an explicit one-byte transfer size follows the
	// parameters. Clear means exactly one byte is transferred.
	OpSized Opcode = 1 << 1
	// OpPoll set means a poll specification precedes the transfer and
	// every byte waits for the poll condition.
	OpPoll Opcode = 1 << 2

	// OpTimeout loads the polling timeout configuration.
	OpTimeout Opcode = 0x08
	// OpDelay stalls the bridge for a given number of clock cycles.
	// Requires hardware version 0.9 or later.
	OpDelay Opcode = 0x09
	// OpBufferWait stalls the bridge until the receive buffer holds at
	// least a given number of bytes. Requires hardware version 0.9 or
	// later.
	OpBufferWait Opcode = 0x0a
)

// Access reports whether the opcode is a register access command.
func (op Opcode) Access() bool {
	return op <= 0x07
}

// Write reports whether the opcode is a register write.
func (op Opcode) Write() bool {
	return op.Access() && op&OpWrite != 0
}

// Sized reports whether the datagram carries an explicit size byte.
func (op Opcode) Sized() bool {
	return op.Access() && op&OpSized != 0
}

// Polling reports whether the datagram carries a poll specification.
func (op Opcode) Polling() bool {
	return op.Access() && op&OpPoll != 0
}

// Valid reports whether the opcode is known to the bridge. Anything
// else is a fatal decode error.
func (op Opcode) Valid() bool {
	return op <= OpBufferWait
}

// ParamLen returns the number of parameter bytes following the opcode
// on the wire. Write payload bytes are not counted.
func (op Opcode) ParamLen() int {
	switch {
	case op.Access():
		n := 2 // addr_hi, addr_lo
		if op.Polling() {
			n += 4 // poll_hi, poll_lo, mask, value
		}
		if op.Sized() {
			n++
		}
		return n
	case op == OpTimeout:
		return 4
	case op == OpDelay:
		return 3
	case op == OpBufferWait:
		return 2
	}
	return 0
}

func (op Opcode) String() string {
	switch {
	case op == OpTimeout:
		return "timeout"
	case op == OpDelay:
		return "delay"
	case op == OpBufferWait:
		return "buffer-wait"
	case op.Access():
		s := "read"
		if op.Write() {
			s = "write"
		}
		if op.Polling() {
			s += " polling"
		}
		if op.Sized() {
			s += " sized"
		}
		return s
	}
	return fmt.Sprintf("invalid(0x%02x)", byte(op))
}
