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

package httpserver

import (
	"context"
	"sync"
)

// MapRunPoolServer is the callback given to Pool.WalkRun.
type MapRunPoolServer func(name string, srv Server)

// Pool manages several named Server instances sharing a lifecycle
// (e.g. one plain-HTTP and one HTTPS listener started/stopped
// together), mirroring the teacher's PoolServer interface shape
// reduced to this engine's Add/Remove/Merge/WalkRun surface.
type Pool interface {
	// Add registers srv under name, replacing any prior entry of the
	// same name (stopping it first if running).
	Add(ctx context.Context, name string, srv Server) error

	// Remove stops and unregisters the named server, if present.
	Remove(ctx context.Context, name string)

	// Merge is Add under a different name: it replaces the named
	// entry in place, stopping the old instance before installing the
	// new one, so a config reload doesn't leave two listeners racing
	// for the same bind address.
	Merge(ctx context.Context, name string, srv Server) error

	Get(name string) (Server, bool)
	Has(name string) bool
	Len() int

	// WalkRun invokes f once per registered server, in no particular
	// order. f must not mutate the pool.
	WalkRun(f MapRunPoolServer)

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning(atLeast bool) bool
}

type pool struct {
	mu sync.RWMutex
	m  map[string]Server
}

// NewPool returns an empty Pool ready to Add servers to.
func NewPool() Pool {
	return &pool{m: make(map[string]Server)}
}

func (p *pool) Add(ctx context.Context, name string, srv Server) error {
	p.mu.Lock()
	old, had := p.m[name]
	p.m[name] = srv
	p.mu.Unlock()

	if had && old != nil && old.IsRunning() {
		return old.Stop(ctx)
	}
	return nil
}

func (p *pool) Remove(ctx context.Context, name string) {
	p.mu.Lock()
	old, had := p.m[name]
	delete(p.m, name)
	p.mu.Unlock()

	if had && old != nil && old.IsRunning() {
		_ = old.Stop(ctx)
	}
}

func (p *pool) Merge(ctx context.Context, name string, srv Server) error {
	return p.Add(ctx, name, srv)
}

func (p *pool) Get(name string) (Server, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.m[name]
	return s, ok
}

func (p *pool) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

func (p *pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *pool) WalkRun(f MapRunPoolServer) {
	p.mu.RLock()
	snap := make(map[string]Server, len(p.m))
	for k, v := range p.m {
		snap[k] = v
	}
	p.mu.RUnlock()

	for k, v := range snap {
		f(k, v)
	}
}

func (p *pool) Start(ctx context.Context) error {
	var firstErr error
	p.WalkRun(func(_ string, srv Server) {
		if err := srv.Start(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (p *pool) Stop(ctx context.Context) error {
	var firstErr error
	p.WalkRun(func(_ string, srv Server) {
		if !srv.IsRunning() {
			return
		}
		if err := srv.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (p *pool) Restart(ctx context.Context) error {
	if err := p.Stop(ctx); err != nil {
		return err
	}
	return p.Start(ctx)
}

func (p *pool) IsRunning(atLeast bool) bool {
	if p.Len() < 1 {
		return false
	}

	running := false
	all := true

	p.WalkRun(func(_ string, srv Server) {
		if srv.IsRunning() {
			running = true
		} else {
			all = false
		}
	})

	if atLeast {
		return running
	}
	return all
}
