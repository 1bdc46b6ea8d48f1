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

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
)

func NewTimeoutCommand() *cobra.Command {
	var connect, dev string
	var baudrate int
	var duration time.Duration
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "timeout",
		Short: "Program the poll timeout of the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cfg, connect, dev, baudrate)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.SetTimeout(duration); err != nil {
				return err
			}
			if err := c.Flush(); err != nil {
				return err
			}
			// Timeout() reports the quantized value actually programmed.
			if quantized, ok := c.Timeout(); ok && quantized > 0 {
				fmt.Printf("Poll timeout set to %s\n", quantized)
			} else {
				fmt.Println("Poll timeout disabled")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, DurationOptionName, 0, "Timeout duration. 0 disables the timeout")
	cmd.MarkFlagRequired(DurationOptionName)
	linkFlags(cmd, &connect, &dev, &baudrate)
	return cmd
}
