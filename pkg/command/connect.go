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

package command

import (
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/host"
)

// Connect opens the host link: the serial device when dev is set,
// otherwise a TCP connection to the daemon link. An empty connect
// address falls back to the configured one.
func Connect(cfg *config.Config, connect, dev string) (*host.Client, error) {
	opts := []host.Option{
		host.WithFifoDepth(cfg.Board.FifoDepth),
		host.WithSysFreq(cfg.Board.SysFreq),
	}
	if dev != "" {
		return host.OpenSerial(dev, cfg.Serial.Baudrate, opts...)
	}
	if connect == "" {
		connect = cfg.LinkAddr()
	}
	return host.DialTCP(connect, opts...)
}
