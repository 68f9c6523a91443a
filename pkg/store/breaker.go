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

package store

import (
	"database/sql"

	"github.com/kraklabs/keel/pkg/graph"
)

// BreakerRow is one persisted circuit-breaker counter.
type BreakerRow struct {
	ErrorCode   string
	Identifier  string
	Consecutive uint32
	Downgraded  bool
}

// SaveCircuitBreaker persists the full breaker state, replacing any prior
// snapshot. Called between invocations so long-running and one-shot CLI
// processes share escalation state.
func (s *Store) SaveCircuitBreaker(rows []BreakerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM circuit_breaker`); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	for _, r := range rows {
		if _, err := tx.Exec(`INSERT INTO circuit_breaker(error_code, identifier, consecutive, downgraded)
			VALUES (?,?,?,?)`, r.ErrorCode, r.Identifier, r.Consecutive, boolToInt(r.Downgraded)); err != nil {
			return &graph.DatabaseError{Msg: err.Error()}
		}
	}
	if err := tx.Commit(); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}

// LoadCircuitBreaker returns the persisted breaker state.
func (s *Store) LoadCircuitBreaker() ([]BreakerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT error_code, identifier, consecutive, downgraded FROM circuit_breaker`)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()

	var out []BreakerRow
	for rows.Next() {
		var r BreakerRow
		var downgraded int
		if err := rows.Scan(&r.ErrorCode, &r.Identifier, &r.Consecutive, &downgraded); err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		r.Downgraded = downgraded != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolutionCacheEntry is a memoized Tier 3 (or cross-pass) resolution
// result, keyed by the call site and the content hash of the file it was
// resolved against.
type ResolutionCacheEntry struct {
	FilePath    string
	Line        int
	Callee      string
	ContentHash string
	TargetFile  string
	TargetName  string
	Confidence  float64
	Provider    string
}

// GetResolutionCache looks up a memoized resolution; returns nil, nil on a
// cache miss.
func (s *Store) GetResolutionCache(filePath string, line int, callee, contentHash string) (*ResolutionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e ResolutionCacheEntry
	err := s.db.QueryRow(`SELECT file_path, line, callee, content_hash, target_file, target_name, confidence, provider
		FROM resolution_cache WHERE file_path=? AND line=? AND callee=? AND content_hash=?`,
		filePath, line, callee, contentHash).Scan(
		&e.FilePath, &e.Line, &e.Callee, &e.ContentHash, &e.TargetFile, &e.TargetName, &e.Confidence, &e.Provider)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	return &e, nil
}

// PutResolutionCache memoizes a Tier 3 resolution result.
func (s *Store) PutResolutionCache(e ResolutionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO resolution_cache
		(file_path, line, callee, content_hash, target_file, target_name, confidence, provider)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(file_path, line, callee, content_hash) DO UPDATE SET
			target_file=excluded.target_file, target_name=excluded.target_name,
			confidence=excluded.confidence, provider=excluded.provider`,
		e.FilePath, e.Line, e.Callee, e.ContentHash, e.TargetFile, e.TargetName, e.Confidence, e.Provider)
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}
