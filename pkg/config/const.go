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

package config

const (
	ConfigDir  = ".sub000"
	ConfigFile = "config"
	DBFile     = "registers.db"

	DefaultLinkAddress = "127.0.0.1"
	DefaultLinkPort    = 5850
	DefaultApiAddress  = "127.0.0.1"
	DefaultApiPort     = 8850

	DefaultBoardVersion = "0.9"
	// The board runs its bus and link logic from a 100 MHz system clock.
	DefaultSysFreq      = 100000000
	DefaultSettleCycles = 3
	DefaultFifoDepth    = 512

	DefaultSerialDevice = "/dev/ttyUSB0"
	DefaultBaudrate     = 2000000

	DefaultLogLevel = "info"
)
