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

package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/command"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
)

const (
	LinkAddressOptionName  = "link-address"
	LinkPortOptionName     = "link-port"
	ApiAddressOptionName   = "api-address"
	ApiPortOptionName      = "api-port"
	DBOptionName           = "db"
	SettleOptionName       = "settle"
	BoardVersionOptionName = "board-version"
)

// NewCommand creates the command running the bridge daemon.
func NewCommand() *cobra.Command {
	var linkAddress, apiAddress, db, boardVersion string
	var linkPort, apiPort, settle int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if linkAddress != "" {
				cfg.Link.Address = linkAddress
			}
			if linkPort != 0 {
				cfg.Link.Port = linkPort
			}
			if apiAddress != "" {
				cfg.Api.Address = apiAddress
			}
			if apiPort != 0 {
				cfg.Api.Port = apiPort
			}
			if cmd.Flags().Changed(DBOptionName) {
				cfg.Board.DBPath = db
			}
			if settle >= 0 {
				cfg.Board.SettleCycles = settle
			}
			if boardVersion != "" {
				cfg.Board.Version = boardVersion
			}
			return command.StartBridgeServer(cfg)
		},
	}
	cmd.Flags().StringVar(&linkAddress, LinkAddressOptionName, "", fmt.Sprintf("Link address to bind. E.g. %s", config.DefaultLinkAddress))
	cmd.Flags().IntVar(&linkPort, LinkPortOptionName, 0, fmt.Sprintf("Link port to bind. E.g. %d", config.DefaultLinkPort))
	cmd.Flags().StringVar(&apiAddress, ApiAddressOptionName, "", fmt.Sprintf("API address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, 0, fmt.Sprintf("API port to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&db, DBOptionName, "", "Register file database path. Empty for a volatile register file")
	cmd.Flags().IntVar(&settle, SettleOptionName, -1, "Register access settle latency in clock cycles")
	cmd.Flags().StringVar(&boardVersion, BoardVersionOptionName, "", fmt.Sprintf("Board hardware version to emulate. E.g. %s", config.DefaultBoardVersion))
	return cmd
}
