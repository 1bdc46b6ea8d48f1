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

package host

import (
	"errors"
	"fmt"
)

// ErrNoData returned when a write is requested without any payload
var ErrNoData = errors.New("host: write needs at least one byte")

// TimeoutError reports that the bridge gave up polling before the
// whole transfer completed. For reads, Data holds the bytes that were
// really read; the zero fill the bridge emitted for the missing
// positions is stripped. The board itself is fine after a timeout,
// only this operation came up short.
type TimeoutError struct {
	Op        string
	Addr      uint16
	Requested int
	Completed int
	Data      []byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s at 0x%04x timed out after %d of %d bytes",
		e.Op, e.Addr, e.Completed, e.Requested)
}

// NotSupportedError returned when an operation requires a newer board
// than the one connected
type NotSupportedError struct {
	Op      string
	Version string
	Min     string
}

func (e *NotSupportedError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%s requires hardware version %s or later, board version is unknown",
			e.Op, e.Min)
	}
	return fmt.Sprintf("%s requires hardware version %s or later, board is %s",
		e.Op, e.Min, e.Version)
}
