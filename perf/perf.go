/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package perf is the per-request performance-phase primitive. The
// request-lifecycle engine treats it as an external collaborator (spec §1):
// begin/end named phases, plain counters, and a metrics snapshot. This
// package is that component.
package perf

import (
	"sync"
	"time"
)

// Phase holds the min/max/total/count aggregate for one named phase,
// matching the "st=mma" bucket shape from the metrics component (spec §4.10).
type Phase struct {
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
	Count int64
}

// Snapshot is a point-in-time read of a Timer's phases and counters.
type Snapshot struct {
	Phases   map[string]Phase
	Counters map[string]int64
	Elapsed  time.Duration
}

// Timer tracks named phases across the lifetime of a single request and
// plain integer counters (bytes in/out, cache hits, etc.). A Timer is not
// safe for concurrent Begin/End calls on the *same* phase name from two
// goroutines, but independent phase names and counters are safe.
type Timer struct {
	mu       sync.Mutex
	start    time.Time
	phases   map[string]Phase
	open     map[string]time.Time
	counters map[string]int64
}

// New creates a Timer and immediately starts its overall-elapsed clock.
func New() *Timer {
	return &Timer{
		start:    time.Now(),
		phases:   make(map[string]Phase),
		open:     make(map[string]time.Time),
		counters: make(map[string]int64),
	}
}

// Begin marks the start of a named phase. Calling Begin again for a phase
// that is already open overwrites the open marker (last Begin wins).
func (t *Timer) Begin(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[name] = time.Now()
}

// End closes a named phase opened with Begin and folds its duration into
// the phase's min/max/total/count aggregate. End on a phase that was never
// begun is a no-op.
func (t *Timer) End(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.open[name]
	if !ok {
		return 0
	}
	delete(t.open, name)

	d := time.Since(s)
	p, ok := t.phases[name]
	if !ok {
		p = Phase{Min: d, Max: d}
	} else {
		if d < p.Min {
			p.Min = d
		}
		if d > p.Max {
			p.Max = d
		}
	}
	p.Total += d
	p.Count++
	t.phases[name] = p

	return d
}

// Count adds delta to the named counter (creating it at 0 if absent).
func (t *Timer) Count(name string, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[name] += delta
}

// Elapsed returns the time since the Timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Snapshot returns a deep copy of the current phases, counters and
// overall elapsed duration.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Phases:   make(map[string]Phase, len(t.phases)),
		Counters: make(map[string]int64, len(t.counters)),
		Elapsed:  time.Since(t.start),
	}

	for k, v := range t.phases {
		s.Phases[k] = v
	}
	for k, v := range t.counters {
		s.Counters[k] = v
	}

	return s
}
