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

package graph

import "fmt"

// NodeNotFoundError reports a lookup miss by hash or id.
type NodeNotFoundError struct {
	Identifier string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.Identifier)
}

// EdgeNotFoundError reports a lookup miss by edge id.
type EdgeNotFoundError struct {
	ID int64
}

func (e *EdgeNotFoundError) Error() string {
	return fmt.Sprintf("edge not found: %d", e.ID)
}

// DuplicateHashError reports an idempotency violation the store refused.
type DuplicateHashError struct {
	Hash string
}

func (e *DuplicateHashError) Error() string {
	return fmt.Sprintf("duplicate hash: %s", e.Hash)
}

// HashCollisionError reports two semantically distinct definitions sharing
// a hash even after disambiguation.
type HashCollisionError struct {
	Hash     string
	Existing string
	New      string
}

func (e *HashCollisionError) Error() string {
	return fmt.Sprintf("hash collision detected for hash %s between functions %q and %q", e.Hash, e.Existing, e.New)
}

// SchemaMigrationError signals the on-disk schema version predates what the
// running binary expects.
type SchemaMigrationError struct {
	From, To uint32
}

func (e *SchemaMigrationError) Error() string {
	return fmt.Sprintf("schema migration required: v%d -> v%d", e.From, e.To)
}

// DatabaseError wraps a failure from the underlying storage engine.
type DatabaseError struct {
	Msg string
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %s", e.Msg)
}

// InternalError wraps an unexpected internal failure.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Msg)
}

// ParseFailureError reports a per-file parse failure; the file is skipped
// and contributes no nodes.
type ParseFailureError struct {
	File string
	Msg  string
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse failure in %s: %s", e.File, e.Msg)
}

// PermissionDeniedError reports a filesystem access failure.
type PermissionDeniedError struct {
	Path string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Path)
}

// ProviderUnavailableError reports a Tier 3 provider that could not start.
type ProviderUnavailableError struct {
	Provider string
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable: %s", e.Provider)
}
