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

package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/srv"
)

// ApiClient talks to the REST endpoint of a running bridge daemon.
type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

func (c *ApiClient) regReadUrl(addr string) string {
	return fmt.Sprintf("%s/reg/%s", c.ApiPrefix, addr)
}

func (c *ApiClient) regWriteUrl() string {
	return fmt.Sprintf("%s/reg", c.ApiPrefix)
}

// Status fetches the daemon and session status.
func (c *ApiClient) Status() (*srv.Status, error) {
	r, err := req.Get(fmt.Sprintf("%s/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	status := &srv.Status{}
	if err = r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// Reset pulses the external reset of the running session.
func (c *ApiClient) Reset() error {
	r, err := req.Post(fmt.Sprintf("%s/reset", c.ApiPrefix))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// RegRead low level api request to get the value of a register
func (c *ApiClient) RegRead(addr string) (string, error) {
	r, err := req.Get(c.regReadUrl(addr))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	reg := &srv.RegHex{}
	if err = r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegWrite low level api request to set the value of a register
func (c *ApiClient) RegWrite(addr, value string) error {
	reg := &srv.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.regWriteUrl(), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// Snapshot dumps the whole register file of the board.
func (c *ApiClient) Snapshot() (*bus.Snapshot, error) {
	r, err := req.Get(fmt.Sprintf("%s/regs", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	snap := &bus.Snapshot{}
	if err = r.ToJSON(snap); err != nil {
		return nil, err
	}
	return snap, nil
}
