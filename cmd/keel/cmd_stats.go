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

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/keel/internal/errkit"
	"github.com/kraklabs/keel/pkg/output"
)

// runStats reports the session counters internal/telemetry has accumulated
// for this project across every prior compile.
func runStats(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	_ = fs.Parse(args)

	root, err := os.Getwd()
	if err != nil {
		errkit.FatalError(errkit.New("cannot determine working directory").WithCause(err), globals.jsonMode())
	}
	proj := openProjectOrExit(root, globals)
	defer proj.close()

	snap := proj.telemetry.Snapshot()

	result := &output.StatsResult{
		Version:          output.Version,
		Command:          "stats",
		ProjectID:        proj.root,
		Compiles:         snap.Compiles,
		TotalViolations:  snap.TotalErrors + snap.TotalWarnings,
		TotalErrors:      snap.TotalErrors,
		TotalWarnings:    snap.TotalWarnings,
		SessionsStarted:  snap.SessionsStarted,
		AvgCompileMillis: snap.AvgCompileMillis,
	}

	fmt.Print(formatterFor(globals).FormatStats(result))
}
