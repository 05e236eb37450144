/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package metrics

import (
	"regexp"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpengine/perf"
)

// Config declares the metrics component's inputs (spec §6 config
// keys): the transaction-log URL filter, the slow-request threshold,
// and the recent-request ring capacity.
type Config struct {
	LogRegex      *regexp.Regexp // URLs matching this get a transaction-log line
	SlowThreshold time.Duration  // 0 disables slow-request emission
	RingSize      int
}

// Metrics is the per-server aggregate. Record is called once per
// completed request; Tick swaps the current/last buffers (driven by
// the embedding host, spec §1's out-of-scope "ticks").
type Metrics struct {
	cfg     Config
	current atomic.Pointer[Buffer]
	last    atomic.Pointer[Buffer]
	recent  *ring
}

// New builds a Metrics aggregate ready to Record.
func New(cfg Config) *Metrics {
	m := &Metrics{cfg: cfg, recent: newRing(cfg.RingSize)}
	m.current.Store(newBuffer())
	m.last.Store(newBuffer())
	return m
}

// Completion is the per-request outcome Record needs: identifying
// fields for the transaction-log/slow-request lines and ring entry,
// plus the perf.Snapshot to fold into the current buffer.
type Completion struct {
	Method   string
	Path     string
	Status   int
	BytesIn  int64
	BytesOut int64
	Snapshot perf.Snapshot
}

// Record performs spec §4.10's on-completion sequence: fold the
// snapshot into the current buffer, push a recent-request entry, and
// optionally emit a transaction-log line and/or a slow-request
// record.
func (m *Metrics) Record(c Completion) {
	m.current.Load().Merge(c.Snapshot)

	m.recent.push(RecentRequest{
		Time:     time.Now(),
		Method:   c.Method,
		Path:     c.Path,
		Status:   c.Status,
		Elapsed:  c.Snapshot.Elapsed,
		BytesIn:  c.BytesIn,
		BytesOut: c.BytesOut,
	})

	if m.cfg.LogRegex != nil && m.cfg.LogRegex.MatchString(c.Path) {
		liblog.InfoLevel.Logf("%s %s %d %s in=%d out=%d", c.Method, c.Path, c.Status, c.Snapshot.Elapsed, c.BytesIn, c.BytesOut)
	}

	if m.cfg.SlowThreshold > 0 && c.Snapshot.Elapsed >= m.cfg.SlowThreshold {
		liblog.WarnLevel.Logf("slow request: %s %s took %s (threshold %s)", c.Method, c.Path, c.Snapshot.Elapsed, m.cfg.SlowThreshold)
	}
}

// Tick swaps current into last and resets current to a fresh buffer.
func (m *Metrics) Tick() {
	fresh := newBuffer()
	prev := m.current.Swap(fresh)
	m.last.Store(prev)
}

// Stats is the §6 GetStats() snapshot: the just-swapped "last"
// buffer (a complete tick interval), the in-progress "current"
// buffer, and the recent-request ring.
type Stats struct {
	Last    Buffer
	Current Buffer
	Recent  []RecentRequest
}

// GetStats returns a consistent point-in-time snapshot.
func (m *Metrics) GetStats() Stats {
	return Stats{
		Last:    m.last.Load().Snapshot(),
		Current: m.current.Load().Snapshot(),
		Recent:  m.recent.dump(),
	}
}
