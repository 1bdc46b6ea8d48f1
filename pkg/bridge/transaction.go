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
	"encoding/binary"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
)

type pollSpec struct {
	Addr  uint16
	Mask  byte
	Value byte
}

// transaction is one in-flight register access command. There is at
// most one at a time; completed never exceeds size, and size never
// exceeds 255, so the acknowledgment always fits in one byte.
type transaction struct {
	op        layers.Opcode
	addr      uint16
	poll      pollSpec
	size      int
	completed int
	// timeout latches the timeout configuration at the start of the
	// transaction. The countdown is re-armed from it for every byte.
	timeout uint32
}

// newTransaction interprets the captured parameter bytes. Their order
// on the wire is addr_hi, addr_lo, then for polling commands poll_hi,
// poll_lo, mask, value, then for sized commands one size byte.
func newTransaction(op layers.Opcode, params []byte, timeout uint32) *transaction {
	tx := &transaction{
		op:      op,
		addr:    binary.BigEndian.Uint16(params[0:2]),
		size:    1,
		timeout: timeout,
	}
	i := 2
	if op.Polling() {
		tx.poll = pollSpec{
			Addr:  binary.BigEndian.Uint16(params[i : i+2]),
			Mask:  params[i+2],
			Value: params[i+3],
		}
		i += 4
	}
	if op.Sized() {
		tx.size = int(params[i])
	}
	return tx
}

// match evaluates the poll condition against a sampled register value.
func (tx *transaction) match(v byte) bool {
	return v&tx.poll.Mask == tx.poll.Value&tx.poll.Mask
}
