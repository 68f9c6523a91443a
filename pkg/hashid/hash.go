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

// Package hashid computes the content-addressed node identity used
// throughout the graph: an 11-character base62 digest derived from a
// function or class's signature, normalized body, and docstring.
package hashid

import "github.com/cespare/xxhash/v2"

const (
	// Length is the fixed width of every hash produced by this package.
	Length = 11
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base62Base  = uint64(len(base62Chars))
)

// Compute returns the 11-character base62 identity for a node:
// base62_11(xxhash64(signature + 0x00 + bodyNormalized + 0x00 + docstring)).
func Compute(signature, bodyNormalized, docstring string) string {
	return base62Encode(digest(signature, bodyNormalized, docstring, ""))
}

// ComputeDisambiguated computes a collision-resolved hash by folding the
// node's file path into the digest input. Used only after the store detects
// that two semantically distinct definitions would otherwise share a hash.
func ComputeDisambiguated(signature, bodyNormalized, docstring, filePath string) string {
	return base62Encode(digest(signature, bodyNormalized, docstring, filePath))
}

func digest(signature, bodyNormalized, docstring, filePath string) uint64 {
	size := len(signature) + len(bodyNormalized) + len(docstring) + 3
	if filePath != "" {
		size += len(filePath) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, signature...)
	buf = append(buf, 0)
	buf = append(buf, bodyNormalized...)
	buf = append(buf, 0)
	buf = append(buf, docstring...)
	if filePath != "" {
		buf = append(buf, 0)
		buf = append(buf, filePath...)
	}
	return xxhash.Sum64(buf)
}

// base62Encode performs little-endian divmod of value into Length
// characters from [0-9A-Za-z], left-padded with '0'. value == 0 yields
// eleven '0' characters.
func base62Encode(value uint64) string {
	out := make([]byte, Length)
	for i := Length - 1; i >= 0; i-- {
		out[i] = base62Chars[value%base62Base]
		value /= base62Base
	}
	return string(out)
}
