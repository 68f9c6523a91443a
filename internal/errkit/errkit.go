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

// Package errkit provides the user-facing error type shared by every keel
// CLI command: a title, a detail line, an optional fix suggestion, and an
// optional wrapped cause.
package errkit

import (
	"encoding/json"
	"fmt"
	"os"
)

// UserError is a CLI-facing error with enough structure to render either as
// a human message or as a JSON error object.
type UserError struct {
	Title      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause      error  `json:"-"`
}

func (e *UserError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// New constructs a UserError with a title only.
func New(title string) *UserError {
	return &UserError{Title: title}
}

// WithDetail returns a copy of e with Detail set.
func (e *UserError) WithDetail(detail string) *UserError {
	c := *e
	c.Detail = detail
	return &c
}

// WithSuggestion returns a copy of e with Suggestion set.
func (e *UserError) WithSuggestion(suggestion string) *UserError {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// WithCause returns a copy of e wrapping cause.
func (e *UserError) WithCause(cause error) *UserError {
	c := *e
	c.Cause = cause
	return &c
}

// Format renders the error either as a single JSON object (jsonMode) or as
// a multi-line human message with an optional suggestion footer.
func (e *UserError) Format(jsonMode bool) string {
	if jsonMode {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprintf(`{"error":%q}`, e.Title)
		}
		return string(b)
	}
	msg := "keel: error: " + e.Title
	if e.Detail != "" {
		msg += "\n  " + e.Detail
	}
	if e.Suggestion != "" {
		msg += "\n  suggestion: " + e.Suggestion
	}
	return msg
}

// FatalError prints err (formatted per jsonMode) to stderr and exits with
// code 2, matching the "internal error" exit-code contract. Non-UserError
// values are wrapped with a generic title first.
func FatalError(err error, jsonMode bool) {
	ue, ok := err.(*UserError)
	if !ok {
		ue = New("internal error").WithDetail(err.Error())
	}
	fmt.Fprintln(os.Stderr, ue.Format(jsonMode))
	os.Exit(2)
}

// Uninitialized returns the stock error for a missing .keel directory.
func Uninitialized() *UserError {
	return New("project not initialized").
		WithDetail("no .keel directory found").
		WithSuggestion("run `keel init` first")
}

// MissingGraph returns the stock error for a missing graph.db.
func MissingGraph() *UserError {
	return New("graph not found").
		WithDetail("no .keel/graph.db found").
		WithSuggestion("run `keel map` first")
}
