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
	"encoding/json"
	"net/http"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/mux"
)

// apiDoc is the OpenAPI document served at /api/swagger.json. The API
// is small enough to keep the document by hand.
const apiDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "sub000 API",
    "description": "RESTful APIs to interact with the sub000 bridge daemon",
    "version": "1.0.0"
  },
  "schemes": ["http"],
  "basePath": "/api",
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "paths": {
    "/status": {
      "get": {
        "summary": "Report the board and the current host session",
        "responses": {
          "200": {"description": "daemon status", "schema": {"$ref": "#/definitions/Status"}}
        }
      }
    },
    "/reset": {
      "post": {
        "summary": "Pulse the external reset of the running session",
        "responses": {
          "200": {"description": "reset delivered"},
          "404": {"description": "no host is connected"}
        }
      }
    },
    "/reg/{addr}": {
      "get": {
        "summary": "Read a register from the register file",
        "parameters": [
          {"name": "addr", "in": "path", "required": true, "type": "string"}
        ],
        "responses": {
          "200": {"description": "register value", "schema": {"$ref": "#/definitions/RegHex"}},
          "400": {"description": "bad register address"}
        }
      }
    },
    "/reg": {
      "post": {
        "summary": "Write a register to the register file",
        "parameters": [
          {"name": "register", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegHex"}}
        ],
        "responses": {
          "200": {"description": "register written"},
          "400": {"description": "bad register address or value"}
        }
      }
    },
    "/regs": {
      "get": {
        "summary": "Dump the whole register file",
        "responses": {
          "200": {"description": "register file snapshot"},
          "502": {"description": "register file unavailable"}
        }
      }
    }
  },
  "definitions": {
    "RegHex": {
      "type": "object",
      "properties": {
        "addr": {"type": "string"},
        "value": {"type": "string"}
      }
    },
    "Status": {
      "type": "object",
      "properties": {
        "board": {"type": "string"},
        "version": {"type": "string"},
        "connected": {"type": "boolean"},
        "bridge": {"type": "object"}
      }
    }
  }
}`

// configureDocs parses the embedded API document, serves it under
// /swagger.json and mounts a Redoc viewer on /docs.
func (s *ApiServer) configureDocs(r *mux.Router) error {
	doc, err := loads.Analyzed(json.RawMessage(apiDoc), "")
	if err != nil {
		return err
	}
	r.HandleFunc("/swagger.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc.Raw())
	}).Methods("GET")
	r.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/api",
		SpecURL:  "/api/swagger.json",
		Path:     "docs",
	}, nil)).Methods("GET")
	return nil
}
