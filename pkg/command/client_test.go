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
	"context"
	"net/http/httptest"
	"testing"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/srv"
)

func startTestApi(t *testing.T) (*ApiClient, *srv.BridgeServer) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	// Volatile register file, tests must not touch the home directory.
	cfg.Board.DBPath = ""

	s, err := srv.NewBridgeServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewBridgeServer() error = %v", err)
	}
	handler, err := s.Api().Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &ApiClient{Config: cfg, ApiPrefix: ts.URL + "/api"}, s
}

func TestApiClientRoundTrip(t *testing.T) {
	c, s := startTestApi(t)

	if err := c.RegWrite("0x0204", "0xa5"); err != nil {
		t.Fatalf("RegWrite() error = %v", err)
	}
	if got := s.RegPeek(0x0204); got != 0xa5 {
		t.Fatalf("RegPeek(0x0204) = %#x, want 0xa5", got)
	}

	value, err := c.RegRead("0x0204")
	if err != nil {
		t.Fatalf("RegRead() error = %v", err)
	}
	if value != "0xa5" {
		t.Fatalf("RegRead() = %s, want 0xa5", value)
	}

	status, err := c.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Board != bus.BoardName || status.Connected {
		t.Fatalf("Status() = %+v, want an idle board", status)
	}

	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Registers["0x0204"] != "0xa5" {
		t.Fatalf("Snapshot() registers = %v", snap.Registers)
	}

	if err := c.Reset(); err == nil {
		t.Fatal("Reset() without a session should fail")
	}

	if _, err := c.RegRead("0x.bad"); err == nil {
		t.Fatal("RegRead() with a malformed address should fail")
	}
}
