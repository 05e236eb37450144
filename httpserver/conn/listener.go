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

package conn

import (
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpengine/acl"
)

// Reason identifies why Accept rejected a socket.
type Reason string

const (
	ReasonMaxConns   Reason = "maxconns"
	ReasonShutdown   Reason = "shutdown"
	ReasonBlacklist  Reason = "blacklist"
	ReasonAllowHosts Reason = "allowhosts"
)

// Config bundles the admission inputs evaluated on every Accept
// (spec §4.1).
type Config struct {
	Port       int
	TLS        bool
	MaxConns   int
	Blacklist  acl.Checker
	AllowHosts []string // lowercased SNI allow-list, TLS only
	Shutdown   func() bool
	Table      *Table
}

// Listener wraps a net.Listener (plain TCP or TLS) applying the
// ConnAcceptor admission checks before the socket reaches net/http.
type Listener struct {
	net.Listener
	cfg Config
	seq atomic.Int64
}

// Wrap returns a Listener enforcing cfg's admission rules around inner.
func Wrap(inner net.Listener, cfg Config) *Listener {
	return &Listener{Listener: inner, cfg: cfg}
}

// Accept implements net.Listener, running the admission chain from
// spec §4.1 before returning a socket to the caller.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		c, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if l.cfg.MaxConns > 0 && l.cfg.Table != nil && l.cfg.Table.Len() >= l.cfg.MaxConns {
			l.reject(c, ReasonMaxConns)
			continue
		}

		if l.cfg.Shutdown != nil && l.cfg.Shutdown() {
			l.reject(c, ReasonShutdown)
			continue
		}

		if !l.cfg.TLS {
			if l.cfg.Blacklist != nil && l.blacklisted(c.RemoteAddr()) {
				l.reject(c, ReasonBlacklist)
				continue
			}
		} else if tc, ok := c.(*tls.Conn); ok {
			if err := tc.Handshake(); err != nil {
				_ = c.Close()
				continue
			}
			if len(l.cfg.AllowHosts) > 0 {
				name := strings.ToLower(tc.ConnectionState().ServerName)
				if !containsFold(l.cfg.AllowHosts, name) {
					l.reject(c, ReasonAllowHosts)
					continue
				}
			}
		}

		if tcpConn, ok := c.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}

		id := l.nextID()
		proto := "http"
		if l.cfg.TLS {
			proto = "https"
		}

		cn := &Connection{ID: id, Proto: proto, Port: l.cfg.Port, RemoteAddr: c.RemoteAddr().String()}
		if l.cfg.Table != nil {
			l.cfg.Table.Add(cn)
		}

		return &trackedConn{Conn: c, id: id, table: l.cfg.Table}, nil
	}
}

func (l *Listener) blacklisted(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	return ip != nil && l.cfg.Blacklist.Check(ip)
}

// reject half-closes (where supported) then hard-closes the socket
// and logs the rejection reason, dumping active connections for
// diagnostics per spec §4.1 step 1.
func (l *Listener) reject(c net.Conn, reason Reason) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = c.Close()

	var ids []string
	if l.cfg.Table != nil {
		for _, cn := range l.cfg.Table.Dump() {
			ids = append(ids, cn.ID)
		}
	}
	logger.ErrorLevel.Logf("connection rejected (%s) from %s, active=%d %v", reason, c.RemoteAddr(), len(ids), ids)
}

func (l *Listener) nextID() string {
	n := l.seq.Add(1)
	prefix := "c"
	if l.cfg.TLS {
		prefix = "cs"
	}
	return prefix + uuid.NewString()[:8] + "-" + strconv.FormatInt(n, 10)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// trackedConn decrements the connection Table on Close, per spec
// §4.1 step 7 ("on close, clear the timer and decrement the
// counter").
type trackedConn struct {
	net.Conn
	id     string
	table  *Table
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		if c.table != nil {
			if cn := c.table.Get(c.id); cn != nil {
				cn.ClearPreliminaryTimer()
			}
			c.table.Remove(c.id)
		}
	}
	return c.Conn.Close()
}
