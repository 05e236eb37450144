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

// Package metrics implements the Metrics component of spec §4.10: per-
// request stats folding into a current/last buffer pair swapped on
// tick, a bounded recent-request ring, transaction-log and slow-
// request emission, and an optional Prometheus mirror.
package metrics

import (
	"sync"
	"time"

	"github.com/sabouaram/httpengine/perf"
)

// Buffer accumulates the "st=mma" per-phase aggregates and counter
// sums across every request folded into it since the last reset,
// mirroring perf.Snapshot's shape but across many requests instead of
// one.
type Buffer struct {
	mu       sync.Mutex
	Phases   map[string]perf.Phase
	Counters map[string]int64
	Requests int64
}

func newBuffer() *Buffer {
	return &Buffer{
		Phases:   make(map[string]perf.Phase),
		Counters: make(map[string]int64),
	}
}

// Merge folds one request's perf.Snapshot into the buffer.
func (b *Buffer) Merge(snap perf.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, p := range snap.Phases {
		existing, ok := b.Phases[name]
		if !ok {
			b.Phases[name] = p
			continue
		}
		if p.Min < existing.Min {
			existing.Min = p.Min
		}
		if p.Max > existing.Max {
			existing.Max = p.Max
		}
		existing.Total += p.Total
		existing.Count += p.Count
		b.Phases[name] = existing
	}

	for name, v := range snap.Counters {
		b.Counters[name] += v
	}

	b.Requests++
}

// Snapshot returns a deep copy of the buffer's current contents.
func (b *Buffer) Snapshot() Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := Buffer{
		Phases:   make(map[string]perf.Phase, len(b.Phases)),
		Counters: make(map[string]int64, len(b.Counters)),
		Requests: b.Requests,
	}
	for k, v := range b.Phases {
		out.Phases[k] = v
	}
	for k, v := range b.Counters {
		out.Counters[k] = v
	}
	return out
}

// RecentRequest is one entry in the bounded recent-request ring.
type RecentRequest struct {
	Time     time.Time
	Method   string
	Path     string
	Status   int
	Elapsed  time.Duration
	BytesIn  int64
	BytesOut int64
}

// ring is a fixed-capacity circular buffer of RecentRequest, oldest
// overwritten first.
type ring struct {
	mu   sync.Mutex
	buf  []RecentRequest
	next int
	full bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]RecentRequest, capacity)}
}

func (r *ring) push(rr RecentRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = rr
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// dump returns entries oldest-first.
func (r *ring) dump() []RecentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]RecentRequest, r.next)
		copy(out, r.buf[:r.next])
		return out
	}

	out := make([]RecentRequest, len(r.buf))
	copy(out, r.buf[r.next:])
	copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	return out
}
