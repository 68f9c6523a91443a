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

// Package graph holds the shared entities of the structural graph: nodes,
// edges, derived module profiles, and the transient per-file parse output
// that feeds both the mapper and the enforcement engine.
package graph

// NodeKind classifies a graph node.
type NodeKind string

const (
	KindModule   NodeKind = "module"
	KindClass    NodeKind = "class"
	KindFunction NodeKind = "function"
)

// EdgeKind classifies a directed relationship between two nodes.
type EdgeKind string

const (
	EdgeCalls    EdgeKind = "calls"
	EdgeImports  EdgeKind = "imports"
	EdgeInherits EdgeKind = "inherits"
	EdgeContains EdgeKind = "contains"
)

// ExternalEndpoint records an HTTP/gRPC/GraphQL surface a function exposes
// or calls.
type ExternalEndpoint struct {
	Kind      string `json:"kind"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Direction string `json:"direction"` // "inbound" or "outbound"
}

// Node represents a module (file), class, or function in the structural
// graph. The hash is the node's content identity; the id is a store-assigned
// stable numeric handle used for edges and back-references.
type Node struct {
	ID                int64              `json:"id"`
	Hash              string             `json:"hash"`
	Kind              NodeKind           `json:"kind"`
	Name              string             `json:"name"`
	Signature         string             `json:"signature"`
	FilePath          string             `json:"file_path"`
	LineStart         int                `json:"line_start"`
	LineEnd           int                `json:"line_end"`
	Docstring         string             `json:"docstring,omitempty"`
	IsPublic          bool               `json:"is_public"`
	TypeHintsPresent  bool               `json:"type_hints_present"`
	HasDocstring      bool               `json:"has_docstring"`
	ExternalEndpoints []ExternalEndpoint `json:"external_endpoints,omitempty"`
	PreviousHashes    []string           `json:"previous_hashes,omitempty"`
	ModuleID          int64              `json:"module_id"`

	// BodyNormalized is the normalized function/class body that went into
	// Hash's digest. It isn't persisted as a column; it's carried only far
	// enough for the store to recompute a disambiguated hash on collision.
	BodyNormalized string `json:"-"`
}

// MaxPreviousHashes bounds the previous-hash list retained per node.
const MaxPreviousHashes = 3

// PushPreviousHash prepends hash to n's previous-hash list, newest first,
// truncating to MaxPreviousHashes.
func (n *Node) PushPreviousHash(hash string) {
	if hash == "" {
		return
	}
	n.PreviousHashes = append([]string{hash}, n.PreviousHashes...)
	if len(n.PreviousHashes) > MaxPreviousHashes {
		n.PreviousHashes = n.PreviousHashes[:MaxPreviousHashes]
	}
}

// Edge is a directed relationship between two nodes, discovered at a
// specific reference site.
type Edge struct {
	ID         int64    `json:"id"`
	SourceID   int64    `json:"source_id"`
	TargetID   int64    `json:"target_id"`
	Kind       EdgeKind `json:"kind"`
	FilePath   string   `json:"file_path"`
	Line       int      `json:"line"`
	Confidence float64  `json:"confidence"`
}

// EdgeDirection selects which side of an edge to traverse from.
type EdgeDirection int

const (
	DirectionIncoming EdgeDirection = iota
	DirectionOutgoing
	DirectionBoth
)

// ModuleProfile is a derived per-module summary used for placement scoring
// (W001) and responsibility tagging.
type ModuleProfile struct {
	ModuleID               int64    `json:"module_id"`
	Path                   string   `json:"path"`
	FunctionCount          int      `json:"function_count"`
	FunctionNamePrefixes   []string `json:"function_name_prefixes"`
	PrimaryTypes           []string `json:"primary_types"`
	ImportSources          []string `json:"import_sources"`
	ExportTargets          []string `json:"export_targets"`
	ExternalEndpointCount  int      `json:"external_endpoint_count"`
	ResponsibilityKeywords []string `json:"responsibility_keywords"`
}

// ReferenceKind classifies a reference recorded by a FileIndex.
type ReferenceKind string

const (
	RefCall    ReferenceKind = "call"
	RefImport  ReferenceKind = "import"
	RefTypeRef ReferenceKind = "type_ref"
)

// Reference is a single use-site discovered while parsing a file: a call,
// an import, or a type reference.
type Reference struct {
	Name         string        `json:"name"`
	Line         int           `json:"line"`
	Kind         ReferenceKind `json:"kind"`
	ResolvedHash string        `json:"resolved_hash,omitempty"`
	// CallerHash is the hash of the enclosing definition this reference
	// occurs within, when known; used by the mapper to attach edges.
	CallerHash string `json:"caller_hash,omitempty"`
	// Receiver/qualifier, when the reference is of the form pkg.Name or
	// obj.Method — empty for unqualified references.
	Qualifier string `json:"qualifier,omitempty"`
	// ArgCount is the number of arguments at a call site, used for E005.
	ArgCount int `json:"arg_count,omitempty"`
}

// Import is a single import statement discovered while parsing a file.
type Import struct {
	Source        string   `json:"source"`
	ImportedNames []string `json:"imported_names,omitempty"`
	Alias         string   `json:"alias,omitempty"`
	Relative      bool     `json:"relative"`
	Star          bool     `json:"star"`
}

// PendingNode is a definition discovered during parsing, not yet assigned a
// store id. The mapper turns these into Node/NodeChange values.
type PendingNode struct {
	Hash              string
	Kind              NodeKind
	Name              string
	Signature         string
	LineStart         int
	LineEnd           int
	Docstring         string
	IsPublic          bool
	TypeHintsPresent  bool
	HasDocstring      bool
	ExternalEndpoints []ExternalEndpoint
	ParamCount        int
	IsTest            bool
	BodyNormalized    string
}

// FileIndex is the transient per-file parse output: the input to both the
// mapper and the enforcement engine.
type FileIndex struct {
	Path            string
	ContentHash     uint64
	Language        string
	Definitions     []PendingNode
	References      []Reference
	Imports         []Import
	ExternalEndpoints []ExternalEndpoint
	ParseDuration   int64 // nanoseconds
	ParseError      error
	// AllExports holds the names listed in a module-level `__all__` list,
	// when the language and file have one (Python only). Empty means either
	// no `__all__` exists or the language doesn't have the concept.
	AllExports []string
}

// NodeChange is a pending mutation to apply to the store's node table.
type NodeChange struct {
	Op     ChangeOp
	Node   Node // valid for Add/Update
	NodeID int64 // valid for Remove
}

// EdgeChange is a pending mutation to apply to the store's edge table.
type EdgeChange struct {
	Op     ChangeOp
	Edge   Edge // valid for Add
	EdgeID int64 // valid for Remove
}

// ChangeOp enumerates the kinds of batched mutation.
type ChangeOp int

const (
	OpAdd ChangeOp = iota
	OpUpdate
	OpRemove
)

// ViolationKey identifies a violation for snapshot diffing.
type ViolationKey struct {
	Code string `json:"code"`
	Hash string `json:"hash"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// Snapshot is the last-compile violation set, keyed for --delta comparison.
type Snapshot struct {
	Errors   []ViolationKey `json:"errors"`
	Warnings []ViolationKey `json:"warnings"`
}
