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
	"encoding/json"
	"net/http"
	"strconv"
)

// HTTPMux builds the HTTP mirror of the five MCP operations plus /health,
// the same shape the teacher's own CIE server exposes under /v1/*.
func (s *Server) HTTPMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealthHTTP)
	mux.HandleFunc("/keel/compile", s.handleCompileHTTP)
	mux.HandleFunc("/keel/discover", s.handleDiscoverHTTP)
	mux.HandleFunc("/keel/where", s.handleWhereHTTP)
	mux.HandleFunc("/keel/explain", s.handleExplainHTTP)
	mux.HandleFunc("/keel/map", s.handleMapHTTP)
	return mux
}

func (s *Server) handleHealthHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"project_id": s.ProjectID,
	})
}

func (s *Server) handleCompileHTTP(w http.ResponseWriter, r *http.Request) {
	var p compileParams
	if !decodeBody(w, r, &p) {
		return
	}
	result, err := s.HandleCompile(r.Context(), p.Files, p.Strict)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDiscoverHTTP(w http.ResponseWriter, r *http.Request) {
	var p discoverParams
	if !decodeBody(w, r, &p) {
		return
	}
	result, err := s.HandleDiscover(p.Hash, p.Depth, p.SuggestPlacement)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWhereHTTP(w http.ResponseWriter, r *http.Request) {
	var p whereParams
	if !decodeBody(w, r, &p) {
		return
	}
	result, err := s.HandleWhere(p.Hash)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExplainHTTP(w http.ResponseWriter, r *http.Request) {
	var p explainParams
	if !decodeBody(w, r, &p) {
		return
	}
	result, err := s.HandleExplain(p.Code, p.Hash)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMapHTTP(w http.ResponseWriter, r *http.Request) {
	var p mapParams
	if r.Method == http.MethodGet {
		// depth is commonly a query param for a read-only GET; POST carries
		// it in the body like every other handler here.
		if d := r.URL.Query().Get("depth"); d != "" {
			p.Depth, _ = strconv.Atoi(d)
		}
	} else if !decodeBody(w, r, &p) {
		return
	}
	result, err := s.HandleMap(p.Depth)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
