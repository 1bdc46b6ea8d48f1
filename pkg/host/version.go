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
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
)

// versionStringMax is the longest version string the register is
// expected to hold, NUL terminator excluded.
const versionStringMax = 32

// Version reads the hardware version register and parses the
// advertised "<board>-<version>" string. The register streams the
// string endlessly, NUL separated, starting at an arbitrary offset, so
// two full copies are read to guarantee one complete instance. The
// parsed version is cached on the client and unlocks the version gated
// commands.
func (c *Client) Version() (board, version string, err error) {
	raw, err := c.Read(layers.VersionAddr, 2*(versionStringMax+1))
	if err != nil {
		return "", "", err
	}
	start := bytes.IndexByte(raw, 0)
	if start < 0 {
		return "", "", fmt.Errorf("host: version register stream has no terminator")
	}
	rest := raw[start+1:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", "", fmt.Errorf("host: version register stream has no terminator")
	}
	s := string(rest[:end])
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("host: malformed version string %q", s)
	}
	c.version = parts[1]
	return parts[0], parts[1], nil
}

// HardwareVersion returns the board version known to the client,
// either primed with WithVersion or read with Version. Empty when
// unknown.
func (c *Client) HardwareVersion() string {
	return c.version
}

// requireVersion gates operations the given hardware version
// introduced.
func (c *Client) requireVersion(op, min string) error {
	if c.version == "" || !versionAtLeast(c.version, min) {
		return &NotSupportedError{Op: op, Version: c.version, Min: min}
	}
	return nil
}

// versionAtLeast compares dotted decimal version strings, "0.10" sorts
// after "0.9". Unparseable versions compare as older than anything.
func versionAtLeast(version, min string) bool {
	v, ok := parseVersion(version)
	if !ok {
		return false
	}
	m, ok := parseVersion(min)
	if !ok {
		return false
	}
	for i := 0; i < len(v) || i < len(m); i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(m) {
			b = m[i]
		}
		if a != b {
			return a > b
		}
	}
	return true
}

func parseVersion(s string) ([]int, bool) {
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
