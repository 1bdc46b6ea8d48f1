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
	"github.com/spf13/cobra"
)

// NewCommand groups the board inspection commands. They go through the
// control API of a running daemon, except version which reads the
// version register through the bridge itself.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect and control the board",
	}
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewResetCommand())
	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewDumpCommand())
	return cmd
}
