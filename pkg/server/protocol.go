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

// Package server exposes the five query/compile operations over JSON-RPC 2.0
// (stdio, for MCP clients) and plain HTTP. Both transports share one Server,
// so a handler is written once and reached two ways.
package server

import "encoding/json"

const (
	protocolVersion = "2024-11-05"
	serverName      = "keel"
	// Version is the server's own version string, reported in initialize's
	// serverInfo and separate from the wire protocolVersion above.
	Version = "0.1.0"
)

// jsonRPCRequest is one line of a stdio MCP session.
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// jsonRPCResponse carries either Result or Error, never both.
type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	errParseError     = -32700
	errMethodNotFound = -32601
	errInvalidParams  = -32602
)

type mcpServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type mcpCapabilities struct {
	Tools map[string]any `json:"tools,omitempty"`
}

type mcpInitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    mcpCapabilities `json:"capabilities"`
	ServerInfo      mcpServerInfo   `json:"serverInfo"`
	Instructions    string          `json:"instructions"`
}

type mcpTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type mcpToolsListResult struct {
	Tools []mcpTool `json:"tools"`
}

// toolSchemas describes the five MCP tools. Unlike the teacher's generic
// tools/call dispatch, method names on this wire map directly onto these
// tools: keel/compile, keel/discover, keel/where, keel/explain, keel/map.
func toolSchemas() []mcpTool {
	return []mcpTool{
		{
			Name:        "keel/compile",
			Description: "Run every enforcement rule over a set of files and return errors and warnings.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"files":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Paths relative to the project root to parse and check."},
					"strict": map[string]any{"type": "boolean", "description": "Promote warnings to an error status.", "default": false},
				},
				"required": []string{"files"},
			},
		},
		{
			Name:        "keel/discover",
			Description: "Look up a definition by hash: its signature, callers, callees, and containing module.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"hash":              map[string]any{"type": "string"},
					"depth":             map[string]any{"type": "integer", "description": "Call-graph hops to walk in each direction.", "default": 1},
					"suggest_placement": map[string]any{"type": "boolean", "default": false},
				},
				"required": []string{"hash"},
			},
		},
		{
			Name:        "keel/where",
			Description: "Find a definition's current file and line, with its rename history.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"hash": map[string]any{"type": "string"}},
				"required":   []string{"hash"},
			},
		},
		{
			Name:        "keel/explain",
			Description: "Explain how a violation's target was resolved: the tier, confidence, and resolution chain.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{"type": "string", "description": "Violation code, e.g. E001."},
					"hash": map[string]any{"type": "string"},
				},
				"required": []string{"code", "hash"},
			},
		},
		{
			Name:        "keel/map",
			Description: "Summarize the structural graph: modules, hotspots, and (at higher depth) individual functions.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"depth": map[string]any{"type": "integer", "description": "0=counts, 1=modules+hotspots, 2=+functions", "default": 1},
				},
				"required": []string{},
			},
		},
	}
}
