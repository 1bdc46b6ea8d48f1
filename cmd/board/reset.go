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

func NewResetCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Pulse the external reset of the running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := command.NewApiClient(cfg).Reset(); err != nil {
				return err
			}
			fmt.Println("Reset delivered")
			return nil
		},
	}
	return cmd
}
