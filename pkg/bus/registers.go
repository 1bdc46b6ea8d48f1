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

package bus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Module base addresses of the board address space. Peripheral
// registers live at small offsets from their module base.
var ModMap = map[string]uint16{
	"version": 0x0100,
	"leds":    0x0200,
	"pgen0":   0x0300,
	"pgen1":   0x0310,
	"pgen2":   0x0320,
	"pgen3":   0x0330,
	"uart0":   0x0400,
	"uart1":   0x0410,
	"iso7816": 0x0500,
	"power":   0x0600,
	"i2c0":    0x0700,
	"spi0":    0x0800,
	"chain0":  0x0900,
	"chain1":  0x0910,
	"clock":   0x0a00,
	"mtxl":    0xf000,
	"mtxr":    0xf100,
}

// ModNames returns the known module names, sorted.
func ModNames() []string {
	names := make([]string, 0, len(ModMap))
	for name := range ModMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAddr parses a register address: either a number like 0x0403,
// or a module name with an optional offset like uart0+3.
func ResolveAddr(s string) (uint16, error) {
	name, offset := s, ""
	if i := strings.IndexByte(s, '+'); i >= 0 {
		name, offset = s[:i], s[i+1:]
	}
	base, ok := ModMap[name]
	if !ok {
		if offset != "" {
			return 0, fmt.Errorf("unknown module %q, known modules: %s", name, strings.Join(ModNames(), ", "))
		}
		v, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return 0, fmt.Errorf("bad register address: %s", s)
		}
		return uint16(v), nil
	}
	if offset == "" {
		return base, nil
	}
	off, err := strconv.ParseUint(offset, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad register offset: %s", offset)
	}
	addr := uint32(base) + uint32(off)
	if addr > 0xffff {
		return 0, fmt.Errorf("register address overflows: %s", s)
	}
	return uint16(addr), nil
}
