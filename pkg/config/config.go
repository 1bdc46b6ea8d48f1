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

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// LinkConfig describes where the daemon exposes the raw byte link.
type LinkConfig struct {
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ApiConfig describes where the daemon exposes the control REST API.
type ApiConfig struct {
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// BoardConfig describes the emulated board behind the bridge.
type BoardConfig struct {
	// Version is served by the version register at 0x0100.
	Version string `yaml:"version,omitempty"`
	// SysFreq is the system clock frequency in Hz. Timeout units are
	// three clock cycles, delays are counted in cycles.
	SysFreq float64 `yaml:"sysfreq,omitempty"`
	// SettleCycles is the register access settle latency in cycles.
	SettleCycles int `yaml:"settle,omitempty"`
	// FifoDepth is the link FIFO depth in bytes, each direction.
	FifoDepth int `yaml:"fifo,omitempty"`
	// DBPath is the persistent register file. Empty means volatile.
	DBPath string `yaml:"db,omitempty"`
}

// SerialConfig describes the serial device used when talking to real
// hardware instead of the daemon.
type SerialConfig struct {
	Device   string `yaml:"device,omitempty"`
	Baudrate int    `yaml:"baudrate,omitempty"`
}

type Config struct {
	Link     *LinkConfig   `yaml:"link,omitempty"`
	Api      *ApiConfig    `yaml:"api,omitempty"`
	Board    *BoardConfig  `yaml:"board,omitempty"`
	Serial   *SerialConfig `yaml:"serial,omitempty"`
	LogLevel string        `yaml:"loglevel,omitempty"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load merges the persisted config file, if any, over the defaults.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

// LinkAddr returns the host:port of the daemon byte link.
func (c *Config) LinkAddr() string {
	return fmt.Sprintf("%s:%d", c.Link.Address, c.Link.Port)
}

// ApiAddr returns the host:port of the control API.
func (c *Config) ApiAddr() string {
	return fmt.Sprintf("%s:%d", c.Api.Address, c.Api.Port)
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Link: &LinkConfig{
			Address: DefaultLinkAddress,
			Port:    DefaultLinkPort,
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		Board: &BoardConfig{
			Version:      DefaultBoardVersion,
			SysFreq:      DefaultSysFreq,
			SettleCycles: DefaultSettleCycles,
			FifoDepth:    DefaultFifoDepth,
			DBPath:       DefaultDBPath(),
		},
		Serial: &SerialConfig{
			Device:   DefaultSerialDevice,
			Baudrate: DefaultBaudrate,
		},
		LogLevel: DefaultLogLevel,
		filepath: DefaultConfigPath(),
	}
}
