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

// Package telemetry records in-process counters backing `keel stats`. Every
// CLI invocation is a short-lived process, so counts are persisted to
// .keel/telemetry.db between runs and re-seeded into the prometheus
// collectors on load; there is deliberately no HTTP /metrics endpoint here
// (that would make this a dashboard, which is out of scope) — the
// collectors exist so the counters are real prometheus metrics and not just
// plain integers, matching how the rest of this module favors the
// ecosystem library over a hand-rolled equivalent.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const fileName = "telemetry.db"

// persisted is the on-disk shape saved to .keel/telemetry.db.
type persisted struct {
	Compiles         int64   `json:"compiles"`
	Errors           int64   `json:"errors"`
	Warnings         int64   `json:"warnings"`
	SessionsStarted  int64   `json:"sessions_started"`
	CompileMillisSum float64 `json:"compile_millis_sum"`
}

// Recorder accumulates session and compile counters for one project. It
// registers its metrics on a private registry rather than the global
// default one, so multiple Recorders (as in tests) never collide.
type Recorder struct {
	registry *prometheus.Registry

	compiles        prometheus.Counter
	errorsTotal     prometheus.Counter
	warningsTotal   prometheus.Counter
	sessionsStarted prometheus.Counter
	compileDuration prometheus.Histogram

	mu    sync.Mutex
	state persisted
}

// New builds an empty Recorder with freshly registered collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		compiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_compiles_total", Help: "Total keel compile invocations.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_violations_errors_total", Help: "Total ERROR-severity violations returned.",
		}),
		warningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_violations_warnings_total", Help: "Total WARNING-severity violations returned.",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keel_sessions_started_total", Help: "Total MCP/HTTP server sessions started.",
		}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "keel_compile_duration_seconds", Help: "Compile call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.compiles, r.errorsTotal, r.warningsTotal, r.sessionsStarted, r.compileDuration)
	return r
}

// Path returns the telemetry.db path under a project's .keel directory.
func Path(keelDir string) string {
	return filepath.Join(keelDir, fileName)
}

// Load builds a Recorder seeded from a prior run's persisted counters. A
// missing file yields a fresh, zeroed Recorder.
func Load(keelDir string) (*Recorder, error) {
	r := New()
	data, err := os.ReadFile(Path(keelDir))
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read telemetry state: %w", err)
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse telemetry state: %w", err)
	}
	r.state = p
	if p.Compiles > 0 {
		r.compiles.Add(float64(p.Compiles))
	}
	if p.Errors > 0 {
		r.errorsTotal.Add(float64(p.Errors))
	}
	if p.Warnings > 0 {
		r.warningsTotal.Add(float64(p.Warnings))
	}
	if p.SessionsStarted > 0 {
		r.sessionsStarted.Add(float64(p.SessionsStarted))
	}
	return r, nil
}

// Save persists the current counters to .keel/telemetry.db.
func (r *Recorder) Save(keelDir string) error {
	r.mu.Lock()
	p := r.state
	r.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize telemetry state: %w", err)
	}
	if err := os.MkdirAll(keelDir, 0o750); err != nil {
		return fmt.Errorf("create .keel dir: %w", err)
	}
	if err := os.WriteFile(Path(keelDir), data, 0o600); err != nil {
		return fmt.Errorf("write telemetry state: %w", err)
	}
	return nil
}

// RecordCompile records one compile call's duration and violation counts.
func (r *Recorder) RecordCompile(d time.Duration, errorCount, warningCount int) {
	r.compiles.Inc()
	r.errorsTotal.Add(float64(errorCount))
	r.warningsTotal.Add(float64(warningCount))
	r.compileDuration.Observe(d.Seconds())

	r.mu.Lock()
	r.state.Compiles++
	r.state.Errors += int64(errorCount)
	r.state.Warnings += int64(warningCount)
	r.state.CompileMillisSum += float64(d.Milliseconds())
	r.mu.Unlock()
}

// RecordSessionStart records one MCP/HTTP server session starting.
func (r *Recorder) RecordSessionStart() {
	r.sessionsStarted.Inc()
	r.mu.Lock()
	r.state.SessionsStarted++
	r.mu.Unlock()
}

// Snapshot is the counter values `keel stats` reads, independent of
// pkg/output so this package never depends on the CLI's result types.
type Snapshot struct {
	Compiles         int64
	TotalErrors      int64
	TotalWarnings    int64
	SessionsStarted  int64
	AvgCompileMillis float64
}

// Snapshot returns the current counter values.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var avg float64
	if r.state.Compiles > 0 {
		avg = r.state.CompileMillisSum / float64(r.state.Compiles)
	}
	return Snapshot{
		Compiles:         r.state.Compiles,
		TotalErrors:      r.state.Errors,
		TotalWarnings:    r.state.Warnings,
		SessionsStarted:  r.state.SessionsStarted,
		AvgCompileMillis: avg,
	}
}
