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

package srv

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bridge"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/bus"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/layers"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/stream"
)

// BridgeServer exposes the board over two endpoints: a raw TCP byte
// link that behaves like the serial wire of the real hardware, and a
// REST API for inspecting the board while a host drives it.
//
// A single host owns the link at a time, the next connection is
// accepted once the current one ends. Every connection gets a fresh
// bridge engine; the register file is shared across sessions and, when
// backed by a database file, across daemon restarts.
type BridgeServer struct {
	context.Context
	*config.Config

	store bus.Store
	board bus.Bus

	mu     sync.Mutex
	engine *bridge.Engine

	api *ApiServer
}

// NewBridgeServer assembles the board address space and the API server.
func NewBridgeServer(ctx context.Context, cfg *config.Config) (*BridgeServer, error) {
	log.Debug("Initializing bridge server: link: %s api: %s", cfg.LinkAddr(), cfg.ApiAddr())

	var store bus.Store
	if cfg.Board.DBPath != "" {
		file, err := bus.OpenFile(cfg.Board.DBPath)
		if err != nil {
			return nil, err
		}
		store = file
	} else {
		store = bus.NewMem()
	}

	s := &BridgeServer{
		Context: ctx,
		Config:  cfg,
		store:   store,
		board: bus.NewMux(store, bus.Range{
			Base: layers.VersionAddr,
			Size: 1,
			Dev:  bus.NewVersionROM(bus.BoardName, cfg.Board.Version),
		}),
	}

	api, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		return nil, err
	}
	s.api = api

	return s, nil
}

// Run serves the link and the API until the context is canceled or
// either endpoint fails.
func (s *BridgeServer) Run() error {
	lis, err := net.Listen("tcp", s.LinkAddr())
	if err != nil {
		return err
	}
	defer lis.Close()
	if closer, ok := s.store.(io.Closer); ok {
		defer closer.Close()
	}

	log.Info("Listening for host connections on %s", s.LinkAddr())

	errChan := make(chan error, 1)

	go func() {
		for {
			conn, acceptErr := lis.Accept()
			if acceptErr != nil {
				errChan <- acceptErr
				return
			}
			s.serve(conn)
		}
	}()

	go func() {
		errChan <- s.api.Run()
	}()

	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err = <-errChan:
		return err
	}
}

// serve runs one bridge session over an accepted connection. The
// engine lives and dies with the connection, the register file stays.
func (s *BridgeServer) serve(conn net.Conn) {
	defer conn.Close()
	log.Info("Host connected: %s", conn.RemoteAddr())

	ctx, cancel := context.WithCancel(s.Context)
	defer cancel()

	link, wireErr := stream.Attach(ctx, conn, s.Config.Board.FifoDepth)
	engine := bridge.New(s.board, link, s.engineOptions()...)

	s.setEngine(engine)
	defer s.setEngine(nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- engine.Run(ctx)
	}()

	select {
	case err := <-wireErr:
		if err != nil && err != io.EOF && err != context.Canceled {
			log.Warning("Link error from %s: %s", conn.RemoteAddr(), err)
		}
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled && err != stream.ErrClosed {
			log.Error("Bridge session failed: %s", err)
		}
	}
	log.Info("Host disconnected: %s", conn.RemoteAddr())
}

func (s *BridgeServer) engineOptions() []bridge.Option {
	freq := s.Config.Board.SysFreq
	if freq <= 0 {
		freq = config.DefaultSysFreq
	}
	settle := time.Duration(float64(s.Config.Board.SettleCycles) / freq * float64(time.Second))
	return []bridge.Option{
		bridge.WithSettle(settle),
		bridge.WithSysFreq(freq),
	}
}

func (s *BridgeServer) setEngine(e *bridge.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// Engine returns the engine of the current host session, nil when no
// host is connected.
func (s *BridgeServer) Engine() *bridge.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Api returns the REST endpoint bound to this server.
func (s *BridgeServer) Api() *ApiServer {
	return s.api
}

// Status is the daemon view reported by the control API. Bridge is only
// present while a host session is running.
type Status struct {
	Board     string         `json:"board"`
	Version   string         `json:"version"`
	Connected bool           `json:"connected"`
	Bridge    *bridge.Status `json:"bridge,omitempty"`
}

func (s *BridgeServer) Status() *Status {
	status := &Status{
		Board:   bus.BoardName,
		Version: s.Config.Board.Version,
	}
	if e := s.Engine(); e != nil {
		engineStatus := e.Status()
		status.Connected = true
		status.Bridge = &engineStatus
	}
	return status
}

// Reset pulses the external reset line of the running session.
func (s *BridgeServer) Reset() error {
	e := s.Engine()
	if e == nil {
		return ErrNoSession{}
	}
	e.Reset()
	return nil
}

// RegPeek reads a register directly from the register file, without
// going through the bridge. The version ROM is not part of the file.
func (s *BridgeServer) RegPeek(addr uint16) byte {
	return s.store.Read(addr)
}

// RegPoke writes a register directly to the register file.
func (s *BridgeServer) RegPoke(addr uint16, value byte) {
	s.store.Write(addr, value)
}

// Snapshot dumps the whole register file.
func (s *BridgeServer) Snapshot() (*bus.Snapshot, error) {
	return bus.TakeSnapshot(s.store, bus.BoardName, s.Config.Board.Version)
}
