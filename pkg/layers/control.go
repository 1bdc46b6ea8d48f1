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
	// TimeoutLayerNum identifies the layer
	TimeoutLayerNum = 2086
	// DelayLayerNum identifies the layer
	DelayLayerNum = 2087
	// BufferWaitLayerNum identifies the layer
	BufferWaitLayerNum = 2088

	// MaxDelayCycles is the largest cycle count a delay datagram can
	// encode, the field is three bytes wide.
	MaxDelayCycles = 0xffffff
)

// TimeoutLayer loads the polling timeout configuration, opcode 8 plus
// four big-endian value bytes. The value counts timeout units of
// TimeoutUnitCycles clock cycles, 0 disables timeouts. The bridge sends
// no response. The configuration persists until rewritten or reset.
type TimeoutLayer struct {
	layers.BaseLayer
	Value uint32
}

var TimeoutLayerType = gopacket.RegisterLayerType(TimeoutLayerNum,
	gopacket.LayerTypeMetadata{Name: "TimeoutLayerType", Decoder: gopacket.DecodeFunc(DecodeTimeoutLayer)})

func (t *TimeoutLayer) LayerType() gopacket.LayerType {
	return TimeoutLayerType
}

func (t *TimeoutLayer) DatagramLen() int {
	return 1 + OpTimeout.ParamLen()
}

func (t *TimeoutLayer) ResponseLen() int {
	return 0
}

// Serialize serializes the timeout datagram to a buffer of at least
// five bytes.
func (t *TimeoutLayer) Serialize(buf []byte) {
	buf[0] = byte(OpTimeout)
	binary.BigEndian.PutUint32(buf[1:5], t.Value)
}

func (t *TimeoutLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(t.DatagramLen())
	if err != nil {
		return err
	}
	t.Serialize(bytes)
	return nil
}

func (t *TimeoutLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 || Opcode(data[0]) != OpTimeout {
		return errors.New("not a timeout datagram")
	}
	if len(data) < 5 {
		df.SetTruncated()
		return errors.New("timeout datagram truncated")
	}
	t.Value = binary.BigEndian.Uint32(data[1:5])
	t.BaseLayer = layers.BaseLayer{Contents: data[:5], Payload: []byte{}}
	return nil
}

func DecodeTimeoutLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &TimeoutLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}

// DelayLayer stalls the bridge, opcode 9 plus a three-byte big-endian
// clock cycle count. The bridge acknowledges with a single zero byte
// once the delay has elapsed.
type DelayLayer struct {
	layers.BaseLayer
	Cycles uint32
}

var DelayLayerType = gopacket.RegisterLayerType(DelayLayerNum,
	gopacket.LayerTypeMetadata{Name: "DelayLayerType", Decoder: gopacket.DecodeFunc(DecodeDelayLayer)})

func (d *DelayLayer) LayerType() gopacket.LayerType {
	return DelayLayerType
}

func (d *DelayLayer) DatagramLen() int {
	return 1 + OpDelay.ParamLen()
}

func (d *DelayLayer) ResponseLen() int {
	return 1
}

// Serialize serializes the delay datagram to a buffer of at least four
// bytes.
func (d *DelayLayer) Serialize(buf []byte) {
	buf[0] = byte(OpDelay)
	buf[1] = byte(d.Cycles >> 16)
	buf[2] = byte(d.Cycles >> 8)
	buf[3] = byte(d.Cycles)
}

func (d *DelayLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if d.Cycles > MaxDelayCycles {
		return fmt.Errorf("delay of %d cycles does not fit in three bytes", d.Cycles)
	}
	bytes, err := b.PrependBytes(d.DatagramLen())
	if err != nil {
		return err
	}
	d.Serialize(bytes)
	return nil
}

func (d *DelayLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 || Opcode(data[0]) != OpDelay {
		return errors.New("not a delay datagram")
	}
	if len(data) < 4 {
		df.SetTruncated()
		return errors.New("delay datagram truncated")
	}
	d.Cycles = uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	d.BaseLayer = layers.BaseLayer{Contents: data[:4], Payload: []byte{}}
	return nil
}

func DecodeDelayLayer(data []byte, p gopacket.PacketBuilder) error {
	d := &DelayLayer{}
	err := d.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(d)
	return nil
}

// BufferWaitLayer stalls the bridge until its receive buffer holds at
// least Level bytes, opcode 10 plus a two-byte big-endian level. The
// bridge acknowledges with a single zero byte. Hosts use it to pre-load
// timing critical command sections into the board FIFO.
type BufferWaitLayer struct {
	layers.BaseLayer
	Level uint16
}

var BufferWaitLayerType = gopacket.RegisterLayerType(BufferWaitLayerNum,
	gopacket.LayerTypeMetadata{Name: "BufferWaitLayerType", Decoder: gopacket.DecodeFunc(DecodeBufferWaitLayer)})

func (w *BufferWaitLayer) LayerType() gopacket.LayerType {
	return BufferWaitLayerType
}

func (w *BufferWaitLayer) DatagramLen() int {
	return 1 + OpBufferWait.ParamLen()
}

func (w *BufferWaitLayer) ResponseLen() int {
	return 1
}

// Serialize serializes the buffer wait datagram to a buffer of at least
// three bytes.
func (w *BufferWaitLayer) Serialize(buf []byte) {
	buf[0] = byte(OpBufferWait)
	binary.BigEndian.PutUint16(buf[1:3], w.Level)
}

func (w *BufferWaitLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(w.DatagramLen())
	if err != nil {
		return err
	}
	w.Serialize(bytes)
	return nil
}

func (w *BufferWaitLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) == 0 || Opcode(data[0]) != OpBufferWait {
		return errors.New("not a buffer wait datagram")
	}
	if len(data) < 3 {
		df.SetTruncated()
		return errors.New("buffer wait datagram truncated")
	}
	w.Level = binary.BigEndian.Uint16(data[1:3])
	w.BaseLayer = layers.BaseLayer{Contents: data[:3], Payload: []byte{}}
	return nil
}

func DecodeBufferWaitLayer(data []byte, p gopacket.PacketBuilder) error {
	w := &BufferWaitLayer{}
	err := w.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(w)
	return nil
}
