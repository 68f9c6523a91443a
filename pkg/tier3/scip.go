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

package tier3

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
)

// scipConfidence is the fixed confidence a SCIP-backed resolution reports.
// A pre-built index is as close to ground truth as Tier 3 gets.
const scipConfidence = 0.95

// SCIP's SymbolRole bitmask (see scip.proto). Only Definition matters here:
// it tells us which occurrence at a symbol's position is the definition
// site rather than a reference to it.
const scipRoleDefinition = 0x1

// scipLocation is a (file, 0-based line) position inside a SCIP index.
type scipLocation struct {
	file string
	line int
}

// ScipProvider resolves call sites against a pre-built SCIP protobuf index
// (an `index.scip` file, as produced by scip-python/scip-typescript/scip-go
// and friends). The index is immutable for the life of the provider:
// invalidating a file is a no-op, since a SCIP index is a static snapshot
// taken at generation time, not a live view of the tree.
type ScipProvider struct {
	language string

	mu                sync.RWMutex
	loaded            bool
	occurrencesByLine map[string]map[int][]string
	definitionBySymbol map[string]scipLocation
}

// NewScipProvider constructs a provider for language before any index is
// loaded. Available() reports false until LoadIndex succeeds.
func NewScipProvider(language string) *ScipProvider {
	return &ScipProvider{
		language:          language,
		occurrencesByLine: make(map[string]map[int][]string),
		definitionBySymbol: make(map[string]scipLocation),
	}
}

// LoadIndex parses a serialized SCIP Index message and replaces the
// provider's in-memory occurrence and definition tables.
func (p *ScipProvider) LoadIndex(data []byte) error {
	fields, err := decodeProtoFields(data)
	if err != nil {
		return fmt.Errorf("decode scip index: %w", err)
	}

	occurrencesByLine := make(map[string]map[int][]string)
	definitionBySymbol := make(map[string]scipLocation)

	for _, f := range fields {
		// Index.documents is field 2, length-delimited.
		if f.num != 2 || f.typ != protowire.BytesType {
			continue
		}
		doc, err := decodeScipDocument(f.bytes)
		if err != nil {
			continue
		}
		for _, occ := range doc.occurrences {
			if occ.symbol == "" || len(occ.rangeVals) == 0 {
				continue
			}
			line := int(occ.rangeVals[0])
			if occurrencesByLine[doc.relativePath] == nil {
				occurrencesByLine[doc.relativePath] = make(map[int][]string)
			}
			occurrencesByLine[doc.relativePath][line] = append(occurrencesByLine[doc.relativePath][line], occ.symbol)

			if occ.roles&scipRoleDefinition != 0 {
				definitionBySymbol[occ.symbol] = scipLocation{file: doc.relativePath, line: line}
			}
		}
	}

	p.mu.Lock()
	p.occurrencesByLine = occurrencesByLine
	p.definitionBySymbol = definitionBySymbol
	p.loaded = true
	p.mu.Unlock()
	return nil
}

func (p *ScipProvider) Language() string { return p.language }

func (p *ScipProvider) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Resolve looks up the occurrence at (file, line-1, name) in 0-based
// coordinates and, if its symbol has a recorded definition site, returns
// that site as the resolution target.
func (p *ScipProvider) Resolve(cs CallSite) Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.loaded {
		return Result{}
	}

	lines, ok := p.occurrencesByLine[cs.FilePath]
	if !ok {
		return Result{}
	}
	symbols, ok := lines[cs.Line-1]
	if !ok {
		return Result{}
	}

	for _, symbolStr := range symbols {
		sym, ok := ParseScipSymbol(symbolStr)
		if !ok || !SymbolMatchesName(sym, cs.CalleeName) {
			continue
		}
		def, ok := p.definitionBySymbol[symbolStr]
		if !ok {
			continue
		}
		return Result{
			Resolved:   true,
			TargetFile: def.file,
			TargetName: SymbolName(sym),
			Confidence: scipConfidence,
			Provider:   "scip",
		}
	}
	return Result{}
}

// InvalidateFile is a no-op: SCIP indexes are static snapshots.
func (p *ScipProvider) InvalidateFile(string) {}

// Shutdown releases the in-memory index.
func (p *ScipProvider) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.occurrencesByLine = nil
	p.definitionBySymbol = nil
	p.loaded = false
}

// scipDocument is the subset of a SCIP Document message this provider cares
// about: its path and the occurrences recorded against it.
type scipDocument struct {
	relativePath string
	occurrences  []scipOccurrence
}

type scipOccurrence struct {
	rangeVals []int64
	symbol    string
	roles     uint64
}

func decodeScipDocument(data []byte) (scipDocument, error) {
	fields, err := decodeProtoFields(data)
	if err != nil {
		return scipDocument{}, err
	}

	var doc scipDocument
	for _, f := range fields {
		switch f.num {
		case 1: // relative_path
			if f.typ == protowire.BytesType {
				doc.relativePath = string(f.bytes)
			}
		case 2: // occurrences
			if f.typ == protowire.BytesType {
				occ, err := decodeScipOccurrence(f.bytes)
				if err == nil {
					doc.occurrences = append(doc.occurrences, occ)
				}
			}
		}
	}
	return doc, nil
}

func decodeScipOccurrence(data []byte) (scipOccurrence, error) {
	fields, err := decodeProtoFields(data)
	if err != nil {
		return scipOccurrence{}, err
	}

	var occ scipOccurrence
	for _, f := range fields {
		switch f.num {
		case 1: // range, packed repeated int32
			if f.typ == protowire.BytesType {
				occ.rangeVals = decodePackedVarints(f.bytes)
			}
		case 2: // symbol
			if f.typ == protowire.BytesType {
				occ.symbol = string(f.bytes)
			}
		case 3: // symbol_roles
			if f.typ == protowire.VarintType {
				occ.roles = f.varint
			}
		}
	}
	return occ, nil
}

func decodePackedVarints(data []byte) []int64 {
	var out []int64
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			break
		}
		out = append(out, int64(v))
		data = data[n:]
	}
	return out
}

// protoField is one decoded top-level field of a protobuf message: a raw
// varint value, or the raw bytes of a length-delimited value. fixed32 and
// fixed64 fields are skipped since no message this provider reads uses them.
type protoField struct {
	num  protowire.Number
	typ  protowire.Type
	varint uint64
	bytes  []byte
}

// decodeProtoFields walks the wire-format fields of a single message,
// tolerating and stopping at the first malformed tag rather than failing
// the whole index load.
func decodeProtoFields(data []byte) ([]protoField, error) {
	var fields []protoField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fields, fmt.Errorf("malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fields, fmt.Errorf("malformed varint: %w", protowire.ParseError(n))
			}
			fields = append(fields, protoField{num: num, typ: typ, varint: v})
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fields, fmt.Errorf("malformed bytes: %w", protowire.ParseError(n))
			}
			fields = append(fields, protoField{num: num, typ: typ, bytes: v})
			data = data[n:]
		case protowire.Fixed32Type:
			_, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return fields, fmt.Errorf("malformed fixed32: %w", protowire.ParseError(n))
			}
			data = data[n:]
		case protowire.Fixed64Type:
			_, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return fields, fmt.Errorf("malformed fixed64: %w", protowire.ParseError(n))
			}
			data = data[n:]
		default:
			return fields, fmt.Errorf("unsupported wire type %v", typ)
		}
	}
	return fields, nil
}
