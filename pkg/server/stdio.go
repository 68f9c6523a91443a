// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// ServeStdio runs the JSON-RPC 2.0 loop: one line in, at most one line out,
// until in is exhausted. Every session gets a uuid so its start/end can be
// correlated in the log even across the many short-lived processes an MCP
// client spawns.
func (s *Server) ServeStdio(in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.NewString()
	logger.Info("mcp.session.start", "session_id", sessionID, "project_id", s.ProjectID)
	defer logger.Info("mcp.session.end", "session_id", sessionID)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			writeResponse(out, jsonRPCResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: errParseError, Message: "Parse error", Data: err.Error()},
			})
			continue
		}

		resp := s.handleRequest(context.Background(), req)
		if resp.ID == nil && resp.Result == nil && resp.Error == nil {
			continue // notification, no response expected
		}
		writeResponse(out, resp)
	}
	return scanner.Err()
}

func writeResponse(out io.Writer, resp jsonRPCResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		b, _ = json.Marshal(jsonRPCResponse{
			JSONRPC: "2.0", ID: resp.ID,
			Error: &rpcError{Code: errInvalidParams, Message: "failed to encode response"},
		})
	}
	fmt.Fprintf(out, "%s\n", b)
}

// handleRequest dispatches one request. Unlike a generic tools/call
// wrapper, method names map directly onto the five keel/* operations.
func (s *Server) handleRequest(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	switch req.Method {
	case "initialize":
		return jsonRPCResponse{
			JSONRPC: "2.0", ID: req.ID,
			Result: mcpInitializeResult{
				ProtocolVersion: protocolVersion,
				Capabilities:    mcpCapabilities{Tools: map[string]any{"listChanged": false}},
				ServerInfo:      mcpServerInfo{Name: serverName, Version: Version},
			},
		}

	case "notifications/initialized":
		return jsonRPCResponse{}

	case "tools/list":
		return jsonRPCResponse{
			JSONRPC: "2.0", ID: req.ID,
			Result: mcpToolsListResult{Tools: toolSchemas()},
		}

	case "keel/compile":
		var p compileParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "Invalid params", err)
		}
		result, err := s.HandleCompile(ctx, p.Files, p.Strict)
		if err != nil {
			return errResponse(req.ID, errInvalidParams, err.Error(), nil)
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	case "keel/discover":
		var p discoverParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "Invalid params", err)
		}
		result, err := s.HandleDiscover(p.Hash, p.Depth, p.SuggestPlacement)
		if err != nil {
			return errResponse(req.ID, errInvalidParams, err.Error(), nil)
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	case "keel/where":
		var p whereParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "Invalid params", err)
		}
		result, err := s.HandleWhere(p.Hash)
		if err != nil {
			return errResponse(req.ID, errInvalidParams, err.Error(), nil)
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	case "keel/explain":
		var p explainParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "Invalid params", err)
		}
		result, err := s.HandleExplain(p.Code, p.Hash)
		if err != nil {
			return errResponse(req.ID, errInvalidParams, err.Error(), nil)
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	case "keel/map":
		var p mapParams
		if err := unmarshalParams(req.Params, &p); err != nil {
			return errResponse(req.ID, errInvalidParams, "Invalid params", err)
		}
		result, err := s.HandleMap(p.Depth)
		if err != nil {
			return errResponse(req.ID, errInvalidParams, err.Error(), nil)
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	default:
		return errResponse(req.ID, errMethodNotFound, "Method not found", nil)
	}
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errResponse(id any, code int, message string, err error) jsonRPCResponse {
	e := &rpcError{Code: code, Message: message}
	if err != nil {
		e.Data = err.Error()
	}
	return jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: e}
}

type compileParams struct {
	Files  []string `json:"files"`
	Strict bool     `json:"strict"`
}

type discoverParams struct {
	Hash             string `json:"hash"`
	Depth            int    `json:"depth"`
	SuggestPlacement bool   `json:"suggest_placement"`
}

type whereParams struct {
	Hash string `json:"hash"`
}

type explainParams struct {
	Code string `json:"code"`
	Hash string `json:"hash"`
}

type mapParams struct {
	Depth int `json:"depth"`
}
