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

// sub000 API
//
// # RESTful APIs to interact with the sub000 bridge daemon
//
// Terms Of Service:
//
// Schemes: http
// Host: localhost:8850
// Version: 1.0.0
// Contact:
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package srv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Ledger-Donjon/scaffold-sub000/pkg/config"
	"github.com/Ledger-Donjon/scaffold-sub000/pkg/log"
)

// Success response
// swagger:response okResp
type RespOk struct {
	// in:body
	Body struct {
		// HTTP status code 200 - OK
		Code int `json:"code"`
	}
}

// Error Bad Request
// swagger:response badReq
type ReqBadRequest struct {
	// in:body
	Body struct {
		// HTTP status code 400 - Bad Request
		Code int `json:"code"`
	}
}

// RegHex is a register address and value, both hexadecimal.
type RegHex struct {
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl *BridgeServer
}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl *BridgeServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
	}
	return s, nil
}

// Run starts the control API endpoint.
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.ApiAddr())
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler: handler,
		Addr:    s.ApiAddr(),
	}
	return httpServer.ListenAndServe()
}

// Handler returns the fully routed API handler wrapped with the access
// log and panic recovery middleware.
func (s *ApiServer) Handler() (http.Handler, error) {
	if err := s.configureRouter(); err != nil {
		return nil, err
	}
	return handlers.CombinedLoggingHandler(os.Stdout, handlers.RecoveryHandler()(s.Router)), nil
}

func (s *ApiServer) configureRouter() error {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /status status
	// ---
	// summary: report the board and the current host session
	// description:
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	// swagger:operation POST /reset reset
	// ---
	// summary: pulse the external reset of the running session
	// description:
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "404":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/reset", s.handleReset()).Methods("POST")
	// swagger:operation GET /reg/addr read register
	// ---
	// summary: read a register from the register file
	// description:
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/reg/{addr:0x[0-9abcdef]{4}}", s.handleRegRead()).Methods("GET")
	// swagger:operation POST /reg write register
	// ---
	// summary: write a register to the register file
	// description:
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "400":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/reg", s.handleRegWrite()).Methods("POST")
	// swagger:operation GET /regs read all registers
	// ---
	// summary: dump the whole register file
	// description:
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	//   "502":
	//     "$ref": "#/responses/badReq"
	subRouter.HandleFunc("/regs", s.handleRegReadAll()).Methods("GET")
	return s.configureDocs(subRouter)
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling status request")
		json.NewEncoder(w).Encode(s.ctrl.Status())
	}
}

func (s *ApiServer) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reset request")
		if err := s.ctrl.Reset(); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		log.Debug("Handling reg read request: addr: %s", vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 16)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		value := s.ctrl.RegPeek(uint16(addr))
		json.NewEncoder(w).Encode(&RegHex{
			Addr:  fmt.Sprintf("0x%04x", uint16(addr)),
			Value: fmt.Sprintf("0x%02x", value),
		})
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling reg write request: addr: %s value: %s", regHex.Addr, regHex.Value)

		addr, err := strconv.ParseUint(regHex.Addr, 0, 16)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := strconv.ParseUint(regHex.Value, 0, 8)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.ctrl.RegPoke(uint16(addr), byte(value))
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling reg read all request")
		snap, err := s.ctrl.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(snap)
	}
}
