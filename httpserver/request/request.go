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

// Package request owns the parsed view of one HTTP transaction (spec §3
// "Request") and the RequestIntake admission checks (spec §4.3).
package request

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sabouaram/httpengine/multipart"
	"github.com/sabouaram/httpengine/perf"
)

// State is the monotonic per-request state tag from spec §3.
type State int32

const (
	StateQueued State = iota
	StateReading
	StateFiltering
	StateProcessing
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateReading:
		return "reading"
	case StateFiltering:
		return "filtering"
	case StateProcessing:
		return "processing"
	case StateWriting:
		return "writing"
	default:
		return "unknown"
	}
}

// Request is the mutable per-transaction context threaded through every
// stage of the pipeline. Exactly one stage owns it at a time.
type Request struct {
	ID        string
	Timestamp time.Time
	Method    string
	RawURL    string
	Header    http.Header

	Query   url.Values
	Cookies map[string]*http.Cookie
	Params  map[string]any
	Files   map[string][]multipart.File

	ClientIPs []net.IP
	PublicIP  net.IP

	Matches []string

	ConnID     string
	RemoteAddr string
	TLS        bool

	Perf *perf.Timer

	Code   int
	Status string

	state       atomic.Int32
	releaseOnce sync.Once
	release     func()
}

// New creates a Request for an inbound *http.Request, filling in
// identification fields. Body parsing, query/cookie parsing and dispatch
// happen in later stages (parser, dispatch packages).
func New(r *http.Request, connID string, tls bool) *Request {
	req := &Request{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Method:     r.Method,
		RawURL:     r.URL.RequestURI(),
		Header:     r.Header.Clone(),
		Query:      url.Values{},
		Cookies:    make(map[string]*http.Cookie),
		Params:     make(map[string]any),
		Files:      make(map[string][]multipart.File),
		ConnID:     connID,
		RemoteAddr: r.RemoteAddr,
		TLS:        tls,
		Perf:       perf.New(),
	}
	req.state.Store(int32(StateQueued))
	return req
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	return State(r.state.Load())
}

// SetState advances the lifecycle state. Transitions are expected to be
// monotonic (spec §5); the engine does not itself forbid going backwards,
// it is on callers to only ever move forward.
func (r *Request) SetState(s State) {
	r.state.Store(int32(s))
}

// SetRelease installs the queue-slot releaser (spec §4.4/§5: "every
// Request owns a single callback that releases its queue slot").
func (r *Request) SetRelease(f func()) {
	r.release = f
}

// Release invokes the queue-slot releaser exactly once, guarding against
// the double-invocation the spec calls out as an invariant. Non-invocation
// is the caller's responsibility to avoid (it leaks a slot); Release alone
// cannot detect a path that forgot to call it at all.
func (r *Request) Release() {
	r.releaseOnce.Do(func() {
		if r.release != nil {
			r.release()
		}
	})
}

// DeleteUploads removes every spilled upload temp file owned by this
// Request. Safe to call multiple times and on requests with no uploads.
func (r *Request) DeleteUploads() {
	for _, files := range r.Files {
		for _, f := range files {
			_ = os.Remove(f.Path)
		}
	}
}

// StripIPv4InIPv6 strips the "::ffff:" prefix some stacks wrap IPv4
// addresses in when traversing a dual-stack socket.
func StripIPv4InIPv6(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}

// forwardedForToken extracts the "for=" token value from one Forwarded
// header element per RFC 7239, stripping quotes, brackets and port.
func forwardedForToken(element string) (net.IP, bool) {
	for _, part := range strings.Split(element, ";") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(strings.ToLower(part), "for=") {
			continue
		}
		v := strings.TrimSpace(part[len("for="):])
		v = strings.Trim(v, `"`)
		v = strings.TrimPrefix(v, "[")

		if idx := strings.LastIndex(v, "]"); idx >= 0 {
			v = v[:idx]
		} else if idx := strings.LastIndex(v, ":"); idx >= 0 && strings.Count(v, ":") == 1 {
			v = v[:idx]
		}

		if ip := net.ParseIP(v); ip != nil {
			return ip, true
		}
	}
	return nil, false
}
