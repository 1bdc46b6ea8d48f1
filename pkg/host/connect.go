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

package host

import (
	"net"

	"go.bug.st/serial"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
)

// DialTCP connects to a bridge daemon listening at addr.
func DialTCP(addr string, opts ...Option) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Debug("Connected to bridge at %s", addr)
	return New(conn, opts...), nil
}

// OpenSerial connects to a board over a serial device, 8N1 at the
// given baudrate.
func OpenSerial(device string, baudrate int, opts ...Option) (*Client, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	log.Debug("Opened %s at %d baud", device, baudrate)
	return New(port, opts...), nil
}
