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

package reg

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
)

func NewReadCommand() *cobra.Command {
	var connect, dev, addr, poll, pollMask, pollValue string
	var baudrate, size int
	var timeout time.Duration
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read register bytes through the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			regAddr, err := bus.ResolveAddr(addr)
			if err != nil {
				return err
			}
			pollCond, err := pollArgs(poll, pollMask, pollValue)
			if err != nil {
				return err
			}
			c, err := open(cfg, connect, dev, baudrate)
			if err != nil {
				return err
			}
			defer c.Close()
			if cmd.Flags().Changed(TimeoutOptionName) {
				if err := c.SetTimeout(timeout); err != nil {
					return err
				}
			}
			var data []byte
			if pollCond != nil {
				data, err = c.ReadPoll(regAddr, size, *pollCond)
			} else {
				data, err = c.Read(regAddr, size)
			}
			if err != nil {
				return err
			}
			if len(data) == 1 {
				fmt.Printf("0x%04x = 0x%02x\n", regAddr, data[0])
				return nil
			}
			fmt.Printf("0x%04x = %s\n", regAddr, hex.EncodeToString(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address. Hexadecimal or module+offset, e.g. uart0+3")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().IntVar(&size, SizeOptionName, 1, "Number of bytes to read")
	cmd.Flags().DurationVar(&timeout, TimeoutOptionName, 0, "Poll timeout to program first. 0 disables the timeout")
	pollFlags(cmd, &poll, &pollMask, &pollValue)
	linkFlags(cmd, &connect, &dev, &baudrate)
	return cmd
}
