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
	"errors"
	"fmt"

	"github.com/google/gopacket"
)

// Datagram is implemented by every host-to-bridge command layer. The
// length accounting drives the host side FIFO space bookkeeping: an
// operation may only be queued when the board FIFOs have room for the
// whole datagram and its whole response.
type Datagram interface {
	gopacket.SerializableLayer
	// DatagramLen is the number of bytes the command occupies on the
	// wire, write payload included.
	DatagramLen() int
	// ResponseLen is the number of bytes the bridge sends back.
	ResponseLen() int
}

var _ Datagram = &AccessLayer{}
var _ Datagram = &TimeoutLayer{}
var _ Datagram = &DelayLayer{}
var _ Datagram = &BufferWaitLayer{}

// DecodeCommand decodes a single datagram by dispatching on its opcode.
func DecodeCommand(data []byte, p gopacket.PacketBuilder) error {
	if len(data) == 0 {
		return errors.New("empty datagram")
	}
	op := Opcode(data[0])
	switch {
	case op.Access():
		return DecodeAccessLayer(data, p)
	case op == OpTimeout:
		return DecodeTimeoutLayer(data, p)
	case op == OpDelay:
		return DecodeDelayLayer(data, p)
	case op == OpBufferWait:
		return DecodeBufferWaitLayer(data, p)
	}
	return fmt.Errorf("invalid opcode 0x%02x", data[0])
}

// CommandDecoder decodes host-to-bridge datagrams.
var CommandDecoder = gopacket.DecodeFunc(DecodeCommand)
