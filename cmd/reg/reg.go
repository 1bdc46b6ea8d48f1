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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/command"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/host"
)

const (
	ConnectOptionName   = "connect"
	DevOptionName       = "dev"
	BaudrateOptionName  = "baudrate"
	AddrOptionName      = "addr"
	SizeOptionName      = "size"
	ValueOptionName     = "value"
	TimeoutOptionName   = "timeout"
	PollOptionName      = "poll"
	PollMaskOptionName  = "poll-mask"
	PollValueOptionName = "poll-value"
	DurationOptionName  = "duration"
)

// NewCommand groups the protocol level register commands. They drive
// the board through the bridge itself, not through the control API.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Access registers through the bridge",
	}
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewWriteCommand())
	cmd.AddCommand(NewTimeoutCommand())
	return cmd
}

// linkFlags adds the options selecting the wire to drive.
func linkFlags(cmd *cobra.Command, connect, dev *string, baudrate *int) {
	cmd.Flags().StringVar(connect, ConnectOptionName, "", "TCP address of the daemon link. Defaults to the configured one")
	cmd.Flags().StringVar(dev, DevOptionName, "", "Serial device of a real board. E.g. /dev/ttyUSB0")
	cmd.Flags().IntVar(baudrate, BaudrateOptionName, 0, fmt.Sprintf("Serial baudrate. E.g. %d", config.DefaultBaudrate))
}

// pollFlags adds the options describing a poll condition.
func pollFlags(cmd *cobra.Command, poll, pollMask, pollValue *string) {
	cmd.Flags().StringVar(poll, PollOptionName, "", "Poll register address. Each byte transfers once (*poll & mask) == value")
	cmd.Flags().StringVar(pollMask, PollMaskOptionName, "0xff", "Poll mask (hexadecimal)")
	cmd.Flags().StringVar(pollValue, PollValueOptionName, "0xff", "Poll value (hexadecimal)")
}

func open(cfg *config.Config, connect, dev string, baudrate int) (*host.Client, error) {
	if baudrate != 0 {
		cfg.Serial.Baudrate = baudrate
	}
	return command.Connect(cfg, connect, dev)
}

// pollArgs assembles the poll condition, nil when no poll register was
// given.
func pollArgs(poll, pollMask, pollValue string) (*host.Poll, error) {
	if poll == "" {
		return nil, nil
	}
	addr, err := bus.ResolveAddr(poll)
	if err != nil {
		return nil, err
	}
	mask, err := strconv.ParseUint(pollMask, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("bad poll mask: %s", pollMask)
	}
	value, err := strconv.ParseUint(pollValue, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("bad poll value: %s", pollValue)
	}
	return &host.Poll{Addr: addr, Mask: byte(mask), Value: byte(value)}, nil
}

// parseValue decodes a hexadecimal byte string like 0xa5 or a5b4c3.
func parseValue(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed)%2 == 1 {
		trimmed = "0" + trimmed
	}
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("bad value %q: %s", s, err)
	}
	return data, nil
}
