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

package httpserver

import (
	"context"
	"fmt"
	"time"
)

// Status tags the outcome of a HealthCheck run.
type Status uint8

const (
	StatusOK Status = iota
	StatusWarn
	StatusKO
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	default:
		return "ko"
	}
}

// Snapshot is one point-in-time health reading: the engine's own
// admission/queue pressure plus the caller-supplied version string.
type Snapshot struct {
	Name      string
	Version   string
	Status    Status
	Message   string
	Running   bool
	Uptime    time.Duration
	Active    int
	Pending   int
	CheckedAt time.Time
}

// HealthCheckFunc is an additional caller-supplied probe folded into
// Monitor.Check's verdict (e.g. "can this instance reach its upstream
// database").
type HealthCheckFunc func(ctx context.Context) error

// Monitor is the health-check surface polled by a hosting daemon.
// Grounded on the pack's monitor package test suite
// (monitor_test.go's SetHealthCheck/GetHealthCheck/SetConfig shape) —
// like runner/startStop, this pack ships no buildable source for
// monitor/monitor/types, only tests, so Monitor is built directly from
// that observed contract instead of embedding the teacher's montps.Monitor.
type Monitor interface {
	Name() string
	Check(ctx context.Context) Snapshot
	SetHealthCheck(fn HealthCheckFunc)
	GetHealthCheck() HealthCheckFunc
}

type monitor struct {
	s       *srv
	version string
	health  HealthCheckFunc
}

// Monitor builds a Monitor bound to s's live state.
func (s *srv) Monitor(version string) (Monitor, error) {
	s.mu.RLock()
	name := s.cfg.Name
	s.mu.RUnlock()

	if name == "" {
		return nil, ErrorParamsEmpty.Error(fmt.Errorf("server has no name to monitor"))
	}

	return &monitor{s: s, version: version}, nil
}

func (s *srv) MonitorName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Name
}

func (m *monitor) Name() string {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.cfg.Name
}

func (m *monitor) SetHealthCheck(fn HealthCheckFunc) {
	m.health = fn
}

func (m *monitor) GetHealthCheck() HealthCheckFunc {
	return m.health
}

// Check reports the engine's current pressure (queue depth,
// active/pending counts) plus the outcome of any registered
// HealthCheckFunc, folding both into one Status verdict.
func (m *monitor) Check(ctx context.Context) Snapshot {
	s := m.s

	s.mu.RLock()
	maxActive := s.cfg.Admission.MaxConcurrent
	maxPending := s.cfg.Admission.MaxQueueLength
	s.mu.RUnlock()

	snap := Snapshot{
		Name:      s.GetName(),
		Version:   m.version,
		Running:   s.IsRunning(),
		Uptime:    s.Uptime(),
		Active:    s.q.Running(),
		Pending:   s.q.Length(),
		CheckedAt: time.Now(),
		Status:    StatusOK,
	}

	if !snap.Running {
		snap.Status = StatusKO
		snap.Message = "server is not running"
		return snap
	}

	if maxActive > 0 && snap.Active >= maxActive {
		snap.Status = StatusWarn
		snap.Message = "at max concurrent requests"
	}
	if maxPending > 0 && snap.Pending >= maxPending {
		snap.Status = StatusWarn
		snap.Message = "pending queue is full"
	}

	if m.health != nil {
		if err := m.health(ctx); err != nil {
			snap.Status = StatusKO
			snap.Message = err.Error()
		}
	}

	return snap
}
