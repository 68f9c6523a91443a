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

// Package updatecheck reports whether a newer keel release is available.
// The network call this would make is an external collaborator outside the
// scope of this module, so Check always reports the binary up to date.
package updatecheck

// Result is the outcome of one update check.
type Result struct {
	UpToDate      bool
	LatestVersion string
}

// Check always reports the running version as current; a real
// implementation would query a release endpoint, which this module does
// not talk to.
func Check(currentVersion string) Result {
	return Result{UpToDate: true, LatestVersion: currentVersion}
}
