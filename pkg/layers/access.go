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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// AccessLayerNum identifies the layer
	AccessLayerNum = 2085
)

// AccessLayer is a register access datagram, opcodes 0 to 7. The wire
// layout is opcode, addr_hi, addr_lo, then for polling opcodes poll_hi,
// poll_lo, mask, value, then for sized opcodes one size byte. Write
// payload bytes follow the header and are carried as the layer payload.
type AccessLayer struct {
	layers.BaseLayer
	Opcode Opcode
	Addr   uint16
	// Poll parameters, present on the wire only for polling opcodes.
	// The condition is bus[PollAddr] & PollMask == PollValue & PollMask.
	PollAddr  uint16
	PollMask  byte
	PollValue byte
	// Size is the transfer size byte. Serialized only for sized opcodes,
	// where 0 is legal and means no bytes. Unsized commands transfer
	// exactly one byte regardless of this field.
	Size byte
}

var AccessLayerType = gopacket.RegisterLayerType(AccessLayerNum,
	gopacket.LayerTypeMetadata{Name: "AccessLayerType", Decoder: gopacket.DecodeFunc(DecodeAccessLayer)})

// LayerType returns the type of the access layer in the layer catalog
func (a *AccessLayer) LayerType() gopacket.LayerType {
	return AccessLayerType
}

// TransferSize returns the number of data bytes the command moves.
func (a *AccessLayer) TransferSize() int {
	if !a.Opcode.Sized() {
		return 1
	}
	return int(a.Size)
}

// DatagramLen returns the number of bytes the command occupies on the
// wire, write payload included.
func (a *AccessLayer) DatagramLen() int {
	n := 1 + a.Opcode.ParamLen()
	if a.Opcode.Write() {
		n += a.TransferSize()
	}
	return n
}

// ResponseLen returns the number of bytes the bridge answers with: the
// data bytes for reads, then one acknowledgment byte either way.
func (a *AccessLayer) ResponseLen() int {
	n := 1
	if !a.Opcode.Write() {
		n += a.TransferSize()
	}
	return n
}

// Serialize serializes the datagram header to a buffer which must be
// at least 1+ParamLen bytes long. Write payload is not included.
func (a *AccessLayer) Serialize(buf []byte) {
	buf[0] = byte(a.Opcode)
	binary.BigEndian.PutUint16(buf[1:3], a.Addr)
	i := 3
	if a.Opcode.Polling() {
		binary.BigEndian.PutUint16(buf[i:i+2], a.PollAddr)
		buf[i+2] = a.PollMask
		buf[i+3] = a.PollValue
		i += 4
	}
	if a.Opcode.Sized() {
		buf[i] = a.Size
	}
}

// SerializeTo serializes the access datagram header into bytes and writes the
// bytes to the SerializeBuffer. The write payload must already be in the
// buffer, i.e. serialized as a gopacket.Payload after this layer.
func (a *AccessLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if !a.Opcode.Access() {
		return fmt.Errorf("not an access opcode: %s", a.Opcode)
	}
	payload := len(b.Bytes())
	if a.Opcode.Write() {
		if opts.FixLengths && a.Opcode.Sized() {
			if payload > MaxChunk {
				return fmt.Errorf("write payload too long: %d bytes", payload)
			}
			a.Size = byte(payload)
		}
		if payload != a.TransferSize() {
			return fmt.Errorf("write payload is %d bytes, want %d", payload, a.TransferSize())
		}
	} else if payload != 0 {
		return fmt.Errorf("read datagram cannot carry a payload")
	}
	bytes, err := b.PrependBytes(1 + a.Opcode.ParamLen())
	if err != nil {
		return err
	}
	a.Serialize(bytes)
	return nil
}

func (a *AccessLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 {
		return errors.New("access datagram is empty")
	}
	op := Opcode(data[0])
	if !op.Access() {
		return fmt.Errorf("not an access opcode: 0x%02x", data[0])
	}
	hdr := 1 + op.ParamLen()
	if len(data) < hdr {
		df.SetTruncated()
		return errors.New("access datagram header truncated")
	}
	a.Opcode = op
	a.Addr = binary.BigEndian.Uint16(data[1:3])
	i := 3
	if op.Polling() {
		a.PollAddr = binary.BigEndian.Uint16(data[i : i+2])
		a.PollMask = data[i+2]
		a.PollValue = data[i+3]
		i += 4
	}
	if op.Sized() {
		a.Size = data[i]
	} else {
		a.Size = 1
	}
	end := hdr
	if op.Write() {
		end += a.TransferSize()
		if len(data) < end {
			df.SetTruncated()
			return errors.New("write payload truncated")
		}
	}
	a.BaseLayer = layers.BaseLayer{
		Contents: data[:hdr],
		Payload:  data[hdr:end],
	}
	return nil
}

func DecodeAccessLayer(data []byte, p gopacket.PacketBuilder) error {
	a := &AccessLayer{}
	err := a.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(a)
	if len(a.Payload) > 0 {
		return p.NextDecoder(gopacket.LayerTypePayload)
	}
	return nil
}
