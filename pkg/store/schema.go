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

// CurrentSchemaVersion gates migrations recorded in meta.schema_version.
const CurrentSchemaVersion = 1

// schemaStatements creates every table the store needs if it doesn't
// already exist. Each statement is run independently so a partially
// populated database (e.g. from an interrupted first run) is repaired
// rather than rejected.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		signature TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		docstring TEXT NOT NULL DEFAULT '',
		is_public INTEGER NOT NULL DEFAULT 0,
		type_hints_present INTEGER NOT NULL DEFAULT 0,
		has_docstring INTEGER NOT NULL DEFAULT 0,
		module_id INTEGER NOT NULL DEFAULT 0,
		UNIQUE(hash, file_path)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_hash ON nodes(hash)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_module ON nodes(module_id)`,
	`CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		target_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line INTEGER NOT NULL,
		confidence REAL NOT NULL,
		UNIQUE(source_id, target_id, kind, file_path, line)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
	`CREATE TABLE IF NOT EXISTS external_endpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		direction TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_endpoints_node ON external_endpoints(node_id)`,
	`CREATE TABLE IF NOT EXISTS previous_hashes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		hash TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prevhash_node ON previous_hashes(node_id)`,
	`CREATE TABLE IF NOT EXISTS module_profiles (
		module_id INTEGER PRIMARY KEY REFERENCES nodes(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		function_count INTEGER NOT NULL DEFAULT 0,
		function_name_prefixes TEXT NOT NULL DEFAULT '[]',
		primary_types TEXT NOT NULL DEFAULT '[]',
		import_sources TEXT NOT NULL DEFAULT '[]',
		export_targets TEXT NOT NULL DEFAULT '[]',
		external_endpoint_count INTEGER NOT NULL DEFAULT 0,
		responsibility_keywords TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS resolution_cache (
		file_path TEXT NOT NULL,
		line INTEGER NOT NULL,
		callee TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		target_file TEXT NOT NULL,
		target_name TEXT NOT NULL,
		confidence REAL NOT NULL,
		provider TEXT NOT NULL,
		PRIMARY KEY(file_path, line, callee, content_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS circuit_breaker (
		error_code TEXT NOT NULL,
		identifier TEXT NOT NULL,
		consecutive INTEGER NOT NULL DEFAULT 0,
		downgraded INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY(error_code, identifier)
	)`,
}
