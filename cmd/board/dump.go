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

func NewDumpCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the register file of the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := command.NewApiClient(cfg).Snapshot()
			if err != nil {
				return err
			}
			data, err := snap.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	return cmd
}
