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

// Package store implements the persistent structural graph: nodes, edges,
// module profiles, a resolution cache, and circuit-breaker state, backed by
// an embedded SQLite database. Reads may run concurrently; writes serialize
// under a single mutex per spec.md's store contract.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/hashid"
)

// Store is the persistent graph store. One Store wraps one database file
// and is safe for concurrent use by multiple goroutines.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open creates the database file if missing, applies schema migrations, and
// enables foreign-key enforcement. The returned Store owns the connection.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, &graph.DatabaseError{Msg: fmt.Sprintf("create store dir: %v", err)}
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: fmt.Sprintf("open %s: %v", path, err)}
	}
	// Writers serialize at the Go level; a single physical connection avoids
	// SQLITE_BUSY races under modernc.org/sqlite's driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, &graph.DatabaseError{Msg: fmt.Sprintf("enable foreign keys: %v", err)}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return &graph.DatabaseError{Msg: fmt.Sprintf("migrate: %v (stmt: %s)", err, stmt)}
		}
	}

	version, err := s.schemaVersionLocked()
	if err != nil {
		return err
	}
	if version == 0 {
		if err := s.setMetaLocked("schema_version", fmt.Sprintf("%d", CurrentSchemaVersion)); err != nil {
			return err
		}
		return nil
	}
	if version > CurrentSchemaVersion {
		return &graph.SchemaMigrationError{From: version, To: CurrentSchemaVersion}
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// SchemaVersion returns the schema version recorded in meta.
func (s *Store) SchemaVersion() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemaVersionLocked()
}

func (s *Store) schemaVersionLocked() (uint32, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &graph.DatabaseError{Msg: err.Error()}
	}
	var v uint32
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return 0, &graph.DatabaseError{Msg: fmt.Sprintf("parse schema_version: %v", err)}
	}
	return v, nil
}

func (s *Store) setMetaLocked(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO meta(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}

// UpdateNodes applies a batch of node changes atomically. Re-adding an
// identical node (same hash, file, name, lines) is idempotent. A node whose
// hash is already held by a differently named node is re-hashed with its file
// path (hashid.ComputeDisambiguated) and stored under that hash; it fails
// with HashCollisionError only when the disambiguated hash is also held by a
// differently named node.
func (s *Store) UpdateNodes(changes []graph.NodeChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	defer tx.Rollback()

	for _, c := range changes {
		switch c.Op {
		case graph.OpAdd, graph.OpUpdate:
			if err := upsertNode(tx, &c.Node); err != nil {
				return err
			}
		case graph.OpRemove:
			if _, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, c.NodeID); err != nil {
				return &graph.DatabaseError{Msg: err.Error()}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}

func upsertNode(tx *sql.Tx, n *graph.Node) error {
	var existingID int64
	var existingName, existingFile string
	var existingLineStart, existingLineEnd int
	err := tx.QueryRow(`SELECT id, name, file_path, line_start, line_end FROM nodes WHERE hash = ? AND file_path = ?`,
		n.Hash, n.FilePath).Scan(&existingID, &existingName, &existingFile, &existingLineStart, &existingLineEnd)

	switch {
	case err == sql.ErrNoRows:
		// Check for a hash collision against a *different* file path with a
		// semantically distinct definition (different name). Resolve it by
		// folding file_path into the hash, per the disambiguation rule, and
		// retry once against the new hash before giving up.
		var conflictName, conflictFile string
		cErr := tx.QueryRow(`SELECT name, file_path FROM nodes WHERE hash = ? AND name != ? LIMIT 1`,
			n.Hash, n.Name).Scan(&conflictName, &conflictFile)
		if cErr == nil {
			disambiguated := hashid.ComputeDisambiguated(n.Signature, n.BodyNormalized, n.Docstring, n.FilePath)
			var stillConflicting string
			sErr := tx.QueryRow(`SELECT name FROM nodes WHERE hash = ? AND name != ? LIMIT 1`,
				disambiguated, n.Name).Scan(&stillConflicting)
			if sErr == nil {
				return &graph.HashCollisionError{Hash: disambiguated, Existing: stillConflicting, New: n.Name}
			}
			n.Hash = disambiguated
		}

		res, iErr := tx.Exec(`INSERT INTO nodes
			(hash, kind, name, signature, file_path, line_start, line_end, docstring,
			 is_public, type_hints_present, has_docstring, module_id)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			n.Hash, string(n.Kind), n.Name, n.Signature, n.FilePath, n.LineStart, n.LineEnd,
			n.Docstring, boolToInt(n.IsPublic), boolToInt(n.TypeHintsPresent), boolToInt(n.HasDocstring), n.ModuleID)
		if iErr != nil {
			return &graph.DatabaseError{Msg: iErr.Error()}
		}
		id, _ := res.LastInsertId()
		n.ID = id
		return writeNodeChildren(tx, n)
	case err != nil:
		return &graph.DatabaseError{Msg: err.Error()}
	default:
		// Idempotent re-add: identical (hash, file, name, lines) is a no-op
		// beyond refreshing mutable fields (signature/docstring/flags).
		n.ID = existingID
		if existingName == n.Name && existingLineStart == n.LineStart && existingLineEnd == n.LineEnd {
			_, uErr := tx.Exec(`UPDATE nodes SET signature=?, docstring=?, is_public=?, type_hints_present=?,
				has_docstring=?, module_id=? WHERE id=?`,
				n.Signature, n.Docstring, boolToInt(n.IsPublic), boolToInt(n.TypeHintsPresent),
				boolToInt(n.HasDocstring), n.ModuleID, existingID)
			if uErr != nil {
				return &graph.DatabaseError{Msg: uErr.Error()}
			}
			return writeNodeChildren(tx, n)
		}
		_, uErr := tx.Exec(`UPDATE nodes SET name=?, signature=?, line_start=?, line_end=?, docstring=?,
			is_public=?, type_hints_present=?, has_docstring=?, module_id=? WHERE id=?`,
			n.Name, n.Signature, n.LineStart, n.LineEnd, n.Docstring,
			boolToInt(n.IsPublic), boolToInt(n.TypeHintsPresent), boolToInt(n.HasDocstring), n.ModuleID, existingID)
		if uErr != nil {
			return &graph.DatabaseError{Msg: uErr.Error()}
		}
		return writeNodeChildren(tx, n)
	}
}

func writeNodeChildren(tx *sql.Tx, n *graph.Node) error {
	if _, err := tx.Exec(`DELETE FROM external_endpoints WHERE node_id = ?`, n.ID); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	for _, ep := range n.ExternalEndpoints {
		if _, err := tx.Exec(`INSERT INTO external_endpoints(node_id, kind, method, path, direction) VALUES (?,?,?,?,?)`,
			n.ID, ep.Kind, ep.Method, ep.Path, ep.Direction); err != nil {
			return &graph.DatabaseError{Msg: err.Error()}
		}
	}

	if len(n.PreviousHashes) > 0 {
		if _, err := tx.Exec(`DELETE FROM previous_hashes WHERE node_id = ?`, n.ID); err != nil {
			return &graph.DatabaseError{Msg: err.Error()}
		}
		limit := len(n.PreviousHashes)
		if limit > graph.MaxPreviousHashes {
			limit = graph.MaxPreviousHashes
		}
		for i := 0; i < limit; i++ {
			if _, err := tx.Exec(`INSERT INTO previous_hashes(node_id, hash, position) VALUES (?,?,?)`,
				n.ID, n.PreviousHashes[i], i); err != nil {
				return &graph.DatabaseError{Msg: err.Error()}
			}
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpdateEdges applies a batch of edge changes atomically. A duplicate
// (source, target, kind, file, line) is idempotent.
func (s *Store) UpdateEdges(changes []graph.EdgeChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	defer tx.Rollback()

	for _, c := range changes {
		switch c.Op {
		case graph.OpAdd:
			_, err := tx.Exec(`INSERT INTO edges(source_id, target_id, kind, file_path, line, confidence)
				VALUES (?,?,?,?,?,?)
				ON CONFLICT(source_id, target_id, kind, file_path, line) DO UPDATE SET confidence=excluded.confidence`,
				c.Edge.SourceID, c.Edge.TargetID, string(c.Edge.Kind), c.Edge.FilePath, c.Edge.Line, c.Edge.Confidence)
			if err != nil {
				return &graph.DatabaseError{Msg: err.Error()}
			}
		case graph.OpRemove:
			if _, err := tx.Exec(`DELETE FROM edges WHERE id = ?`, c.EdgeID); err != nil {
				return &graph.DatabaseError{Msg: err.Error()}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}

func scanNode(row interface {
	Scan(dest ...any) error
}) (*graph.Node, error) {
	var n graph.Node
	var kind string
	var isPublic, typeHints, hasDoc int
	err := row.Scan(&n.ID, &n.Hash, &kind, &n.Name, &n.Signature, &n.FilePath, &n.LineStart, &n.LineEnd,
		&n.Docstring, &isPublic, &typeHints, &hasDoc, &n.ModuleID)
	if err != nil {
		return nil, err
	}
	n.Kind = graph.NodeKind(kind)
	n.IsPublic = isPublic != 0
	n.TypeHintsPresent = typeHints != 0
	n.HasDocstring = hasDoc != 0
	return &n, nil
}

const nodeColumns = `id, hash, kind, name, signature, file_path, line_start, line_end, docstring, is_public, type_hints_present, has_docstring, module_id`

// GetNode looks up a node by its content hash.
func (s *Store) GetNode(hash string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE hash = ? LIMIT 1`, hash)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, &graph.NodeNotFoundError{Identifier: hash}
	}
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	prev, err := s.previousHashesLocked(n.ID)
	if err != nil {
		return nil, err
	}
	n.PreviousHashes = prev
	return n, nil
}

// previousHashesLocked loads the previous-hash chain for one node. Callers
// must already hold s.mu.
func (s *Store) previousHashesLocked(id int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT hash FROM previous_hashes WHERE node_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// attachPreviousHashesLocked batch-loads previous-hash chains for a node
// slice in one query. Callers must already hold s.mu.
func (s *Store) attachPreviousHashesLocked(nodes []*graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	query, args := inClauseQuery(`SELECT node_id, hash FROM previous_hashes WHERE node_id IN (`, ids)
	query += ` ORDER BY node_id, position`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	byID := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var h string
		if err := rows.Scan(&id, &h); err != nil {
			return &graph.DatabaseError{Msg: err.Error()}
		}
		byID[id] = append(byID[id], h)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, n := range nodes {
		n.PreviousHashes = byID[n.ID]
	}
	return nil
}

// GetNodeByID looks up a node by its store-assigned numeric id.
func (s *Store) GetNodeByID(id int64) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, &graph.NodeNotFoundError{Identifier: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	prev, err := s.previousHashesLocked(n.ID)
	if err != nil {
		return nil, err
	}
	n.PreviousHashes = prev
	return n, nil
}

// GetNodesInFile returns every node defined in the given file path, ordered
// by line_start.
func (s *Store) GetNodesInFile(path string) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT `+nodeColumns+` FROM nodes WHERE file_path = ? ORDER BY line_start`, path)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachPreviousHashesLocked(nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// FindNodesByName searches for nodes by exact name, optionally filtered by
// kind and module id (0 = no module filter).
func (s *Store) FindNodesByName(name string, kindFilter graph.NodeKind, moduleFilter int64) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE name = ?`
	args := []any{name}
	if kindFilter != "" {
		query += ` AND kind = ?`
		args = append(args, string(kindFilter))
	}
	if moduleFilter != 0 {
		query += ` AND module_id = ?`
		args = append(args, moduleFilter)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	return collectNodes(rows)
}

// SearchNodesByName returns every node whose name contains term
// (case-insensitive), optionally narrowed to one kind, ordered by name. This
// backs `keel search`, a free-text lookup distinct from FindNodesByName's
// exact-match lookup behind `keel check`.
func (s *Store) SearchNodesByName(term string, kindFilter graph.NodeKind) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE name LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(term) + "%"}
	if kindFilter != "" {
		query += ` AND kind = ?`
		args = append(args, string(kindFilter))
	}
	query += ` ORDER BY name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	return collectNodes(rows)
}

// escapeLike escapes SQL LIKE metacharacters so a search term is matched
// literally rather than as a pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetAllModules returns every Module-kind node.
func (s *Store) GetAllModules() ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT `+nodeColumns+` FROM nodes WHERE kind = ? ORDER BY file_path`, string(graph.KindModule))
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	return collectNodes(rows)
}

func collectNodes(rows *sql.Rows) ([]*graph.Node, error) {
	var out []*graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	return out, nil
}

// GetEdges returns edges touching nodeID in the given direction.
func (s *Store) GetEdges(nodeID int64, direction graph.EdgeDirection) ([]*graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	switch direction {
	case graph.DirectionIncoming:
		query = `SELECT id, source_id, target_id, kind, file_path, line, confidence FROM edges WHERE target_id = ?`
	case graph.DirectionOutgoing:
		query = `SELECT id, source_id, target_id, kind, file_path, line, confidence FROM edges WHERE source_id = ?`
	default:
		query = `SELECT id, source_id, target_id, kind, file_path, line, confidence FROM edges WHERE source_id = ? OR target_id = ?`
	}

	var rows *sql.Rows
	var err error
	if direction == graph.DirectionBoth {
		rows, err = s.db.Query(query, nodeID, nodeID)
	} else {
		rows, err = s.db.Query(query, nodeID)
	}
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()

	var out []*graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kind string
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &kind, &e.FilePath, &e.Line, &e.Confidence); err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		e.Kind = graph.EdgeKind(kind)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// BatchLoadEndpoints returns external endpoints for every id in one query,
// avoiding N+1 access when hydrating a set of nodes.
func (s *Store) BatchLoadEndpoints(ids []int64) (map[int64][]graph.ExternalEndpoint, error) {
	out := make(map[int64][]graph.ExternalEndpoint)
	if len(ids) == 0 {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := inClauseQuery(`SELECT node_id, kind, method, path, direction FROM external_endpoints WHERE node_id IN (`, ids)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	for rows.Next() {
		var nodeID int64
		var ep graph.ExternalEndpoint
		if err := rows.Scan(&nodeID, &ep.Kind, &ep.Method, &ep.Path, &ep.Direction); err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		out[nodeID] = append(out[nodeID], ep)
	}
	return out, rows.Err()
}

// BatchLoadPreviousHashes returns the previous-hash list (newest first) for
// every id in one query.
func (s *Store) BatchLoadPreviousHashes(ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	if len(ids) == 0 {
		return out, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args := inClauseQuery(`SELECT node_id, hash FROM previous_hashes WHERE node_id IN (`, ids)
	query += ` ORDER BY node_id, position`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	defer rows.Close()
	for rows.Next() {
		var nodeID int64
		var hash string
		if err := rows.Scan(&nodeID, &hash); err != nil {
			return nil, &graph.DatabaseError{Msg: err.Error()}
		}
		out[nodeID] = append(out[nodeID], hash)
	}
	return out, rows.Err()
}

func inClauseQuery(prefix string, ids []int64) (string, []any) {
	args := make([]any, len(ids))
	placeholders := make([]byte, 0, len(ids)*2)
	for i, id := range ids {
		args[i] = id
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return prefix + string(placeholders) + ")", args
}

// SaveModuleProfile upserts a derived module profile.
func (s *Store) SaveModuleProfile(p *graph.ModuleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefixes, _ := json.Marshal(p.FunctionNamePrefixes)
	types, _ := json.Marshal(p.PrimaryTypes)
	imports, _ := json.Marshal(p.ImportSources)
	exports, _ := json.Marshal(p.ExportTargets)
	keywords, _ := json.Marshal(p.ResponsibilityKeywords)
	_, err := s.db.Exec(`INSERT INTO module_profiles
		(module_id, path, function_count, function_name_prefixes, primary_types, import_sources,
		 export_targets, external_endpoint_count, responsibility_keywords)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(module_id) DO UPDATE SET path=excluded.path, function_count=excluded.function_count,
			function_name_prefixes=excluded.function_name_prefixes, primary_types=excluded.primary_types,
			import_sources=excluded.import_sources, export_targets=excluded.export_targets,
			external_endpoint_count=excluded.external_endpoint_count,
			responsibility_keywords=excluded.responsibility_keywords`,
		p.ModuleID, p.Path, p.FunctionCount, string(prefixes), string(types), string(imports),
		string(exports), p.ExternalEndpointCount, string(keywords))
	if err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}

// GetModuleProfile loads a module's derived profile, if present.
func (s *Store) GetModuleProfile(moduleID int64) (*graph.ModuleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var p graph.ModuleProfile
	var prefixes, types, imports, exports, keywords string
	err := s.db.QueryRow(`SELECT module_id, path, function_count, function_name_prefixes, primary_types,
		import_sources, export_targets, external_endpoint_count, responsibility_keywords
		FROM module_profiles WHERE module_id = ?`, moduleID).Scan(
		&p.ModuleID, &p.Path, &p.FunctionCount, &prefixes, &types, &imports, &exports,
		&p.ExternalEndpointCount, &keywords)
	if err == sql.ErrNoRows {
		return nil, &graph.NodeNotFoundError{Identifier: fmt.Sprintf("module %d", moduleID)}
	}
	if err != nil {
		return nil, &graph.DatabaseError{Msg: err.Error()}
	}
	_ = json.Unmarshal([]byte(prefixes), &p.FunctionNamePrefixes)
	_ = json.Unmarshal([]byte(types), &p.PrimaryTypes)
	_ = json.Unmarshal([]byte(imports), &p.ImportSources)
	_ = json.Unmarshal([]byte(exports), &p.ExportTargets)
	_ = json.Unmarshal([]byte(keywords), &p.ResponsibilityKeywords)
	return &p, nil
}

// DeleteNodesForFile removes every node defined in path; FK cascade removes
// their edges, endpoints, and previous-hash rows.
func (s *Store) DeleteNodesForFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM nodes WHERE file_path = ?`, path); err != nil {
		return &graph.DatabaseError{Msg: err.Error()}
	}
	return nil
}
