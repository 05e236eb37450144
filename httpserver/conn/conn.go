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

// Package conn implements the ConnAcceptor of spec §4.1: a
// net.Listener wrapper that enforces admission control (shutdown,
// max-connections, blacklist, SNI allow-list) before handing a socket
// to net/http, and the live Connection table fed by http.Server's
// ConnState hook.
package conn

import (
	"sync"
	"sync/atomic"
	"time"
)

// Connection is the exclusive-owner metadata for one live socket
// (spec §3, glossary "Connection"). The global Table length always
// equals the number of live entries.
type Connection struct {
	ID         string
	Proto      string // "http" or "https"
	Port       int
	Start      time.Time
	RemoteAddr string // net.Conn.RemoteAddr().String() at accept time, bridges *http.Request.RemoteAddr back to this entry

	Requests atomic.Int64
	BytesIn  atomic.Int64
	BytesOut atomic.Int64
	Aborted  atomic.Bool

	mu      sync.Mutex
	timer   *time.Timer
	current any // *request.Request, kept as any to avoid an import cycle
}

// SetPreliminaryTimer arms (or replaces) the idle timer fired when no
// request arrives within the configured window.
func (c *Connection) SetPreliminaryTimer(d time.Duration, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	if d > 0 {
		c.timer = time.AfterFunc(d, onExpire)
	} else {
		c.timer = nil
	}
}

// ClearPreliminaryTimer stops the idle timer; the listener calls it
// when the connection closes.
func (c *Connection) ClearPreliminaryTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// SetCurrent records the in-flight request owner of this socket, or
// clears it with a nil value.
func (c *Connection) SetCurrent(req any) {
	c.mu.Lock()
	c.current = req
	c.mu.Unlock()
}

// Current returns the in-flight request owner, or nil if idle.
func (c *Connection) Current() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Table is the registry of live Connections, keyed by ID, with a
// secondary index by RemoteAddr so a *http.Request (which only ever
// carries its socket's remote address, not the listener-assigned ID)
// can resolve its owning Connection.
type Table struct {
	mu   sync.RWMutex
	m    map[string]*Connection
	addr map[string]*Connection
}

// NewTable returns an empty connection table.
func NewTable() *Table {
	return &Table{m: make(map[string]*Connection), addr: make(map[string]*Connection)}
}

// Add registers c under its ID and, if set, its RemoteAddr.
func (t *Table) Add(c *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[c.ID] = c
	if c.RemoteAddr != "" {
		t.addr[c.RemoteAddr] = c
	}
}

// Remove drops the Connection with the given ID, if present.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.m[id]; ok {
		if c.RemoteAddr != "" && t.addr[c.RemoteAddr] == c {
			delete(t.addr, c.RemoteAddr)
		}
		delete(t.m, id)
	}
}

// Get returns the Connection with the given ID, or nil.
func (t *Table) Get(id string) *Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m[id]
}

// GetByAddr returns the Connection accepted from the given remote
// address, or nil. Remote addresses are only reused once the
// originating socket has closed and a new connection happens to draw
// the same ephemeral port, so this is a safe key for the lifetime of
// one *http.Request.
func (t *Table) GetByAddr(remoteAddr string) *Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.addr[remoteAddr]
}

// Len returns the number of live connections.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// Dump returns a snapshot slice of all live connections, for
// diagnostics when an admission reject needs to log active state.
func (t *Table) Dump() []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Connection, 0, len(t.m))
	for _, c := range t.m {
		out = append(out, c)
	}
	return out
}
