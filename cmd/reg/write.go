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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
)

func NewWriteCommand() *cobra.Command {
	var connect, dev, addr, value, poll, pollMask, pollValue string
	var baudrate int
	var timeout time.Duration
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write register bytes through the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			regAddr, err := bus.ResolveAddr(addr)
			if err != nil {
				return err
			}
			data, err := parseValue(value)
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
			if pollCond != nil {
				err = c.WritePoll(regAddr, data, *pollCond)
			} else {
				err = c.Write(regAddr, data)
			}
			if err != nil {
				return err
			}
			// Writes are pipelined, surface poll timeouts before
			// reporting success.
			if err := c.Flush(); err != nil {
				return err
			}
			fmt.Printf("0x%04x: %d bytes written\n", regAddr, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address. Hexadecimal or module+offset, e.g. uart0+3")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Bytes to write (hexadecimal), e.g. 0xa5 or a5b4c3")
	cmd.MarkFlagRequired(ValueOptionName)
	cmd.Flags().DurationVar(&timeout, TimeoutOptionName, 0, "Poll timeout to program first. 0 disables the timeout")
	pollFlags(cmd, &poll, &pollMask, &pollValue)
	linkFlags(cmd, &connect, &dev, &baudrate)
	return cmd
}
