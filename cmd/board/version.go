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

package board

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/command"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
)

const (
	ConnectOptionName  = "connect"
	DevOptionName      = "dev"
	BaudrateOptionName = "baudrate"
)

func NewVersionCommand() *cobra.Command {
	var connect, dev string
	var baudrate int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Read the board identification through the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if baudrate != 0 {
				cfg.Serial.Baudrate = baudrate
			}
			c, err := command.Connect(cfg, connect, dev)
			if err != nil {
				return err
			}
			defer c.Close()
			board, version, err := c.Version()
			if err != nil {
				return err
			}
			fmt.Printf("%s-%s\n", board, version)
			return nil
		},
	}
	cmd.Flags().StringVar(&connect, ConnectOptionName, "", "TCP address of the daemon link. Defaults to the configured one")
	cmd.Flags().StringVar(&dev, DevOptionName, "", "Serial device of a real board. E.g. /dev/ttyUSB0")
	cmd.Flags().IntVar(&baudrate, BaudrateOptionName, 0, fmt.Sprintf("Serial baudrate. E.g. %d", config.DefaultBaudrate))
	return cmd
}
