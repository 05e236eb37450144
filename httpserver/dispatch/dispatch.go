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

// Package dispatch implements the Dispatcher of spec §4.7: redirects,
// then method handlers, then URI handlers (first match wins), each
// optionally ACL-gated, falling through to the static file server
// when nothing matches or a handler declines.
package dispatch

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sync"

	"github.com/sabouaram/httpengine/acl"
	"github.com/sabouaram/httpengine/httpserver/types"
)

// Redirect is one declared redirect entry: a regex, a Location
// template using $N capture placeholders, the status to emit, and
// optional headers.
type Redirect struct {
	Match    *regexp.Regexp
	Location string
	Status   int
	Headers  map[string]string
}

// MethodHandler fires when the request method equals Method, ahead of
// any URI handler.
type MethodHandler struct {
	Method string
	Name   string
	ACL    acl.Checker
	Func   types.HandlerFunc
}

// URIHandler fires on the first regex match against the path (query
// stripped). Capture groups are not recorded on the request.
type URIHandler struct {
	Name  string
	Match *regexp.Regexp
	ACL   acl.Checker
	Func  types.HandlerFunc
}

// Dispatcher holds the registered redirects and handlers and runs the
// spec §4.7 selection order.
type Dispatcher struct {
	mu        sync.RWMutex
	redirects []Redirect
	methods   []MethodHandler
	uris      []URIHandler
}

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) AddRedirect(r Redirect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.redirects = append(d.redirects, r)
}

func (d *Dispatcher) AddMethodHandler(h MethodHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods = append(d.methods, h)
}

func (d *Dispatcher) AddURIHandler(h URIHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uris = append(d.uris, h)
}

// RemoveMethodHandler drops every method handler registered under
// name.
func (d *Dispatcher) RemoveMethodHandler(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.methods[:0]
	for _, h := range d.methods {
		if h.Name != name {
			out = append(out, h)
		}
	}
	d.methods = out
}

// RemoveURIHandler drops every URI handler registered under name.
func (d *Dispatcher) RemoveURIHandler(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.uris[:0]
	for _, h := range d.uris {
		if h.Name != name {
			out = append(out, h)
		}
	}
	d.uris = out
}

// Outcome tags what Dispatch decided.
type Outcome uint8

const (
	OutcomeRedirect Outcome = iota
	OutcomeHandled
	OutcomeRawWritten
	OutcomeFallthroughStatic
	OutcomeForbidden
	OutcomeError
)

// Decision is the result of running the dispatch order against one
// request.
type Decision struct {
	Outcome      Outcome
	RedirectTo   string
	RedirectCode int
	Headers      map[string]string
	Response     types.HandlerResult
	HandlerName  string
}

// Dispatch runs the spec §4.7 selection order: redirects, then method
// handlers, then URI handlers. clientIPs feeds any matched handler's
// ACL.CheckAll. URI handler capture groups are not passed on to req.
func (d *Dispatcher) Dispatch(method, path string, clientIPs []net.IP, req any) Decision {
	d.mu.RLock()
	redirects := append([]Redirect(nil), d.redirects...)
	methods := append([]MethodHandler(nil), d.methods...)
	uris := append([]URIHandler(nil), d.uris...)
	d.mu.RUnlock()

	for _, r := range redirects {
		loc := r.Match.FindStringSubmatchIndex(path)
		if loc == nil {
			continue
		}
		location := string(r.Match.ExpandString(nil, r.Location, path, loc))
		status := r.Status
		if status == 0 {
			status = http.StatusFound
		}
		return Decision{Outcome: OutcomeRedirect, RedirectTo: location, RedirectCode: status, Headers: r.Headers}
	}

	for _, h := range methods {
		if h.Method != method {
			continue
		}
		if h.ACL != nil && !h.ACL.CheckAll(clientIPs) {
			return Decision{Outcome: OutcomeForbidden, HandlerName: h.Name}
		}
		return runHandler(h.Name, h.Func, req)
	}

	for _, h := range uris {
		if !h.Match.MatchString(path) {
			continue
		}
		if h.ACL != nil && !h.ACL.CheckAll(clientIPs) {
			return Decision{Outcome: OutcomeForbidden, HandlerName: h.Name}
		}
		return runHandler(h.Name, h.Func, req)
	}

	return Decision{Outcome: OutcomeFallthroughStatic}
}

func runHandler(name string, fn types.HandlerFunc, req any) Decision {
	res := fn(req)

	switch res.Kind {
	case types.ResultResponse, types.ResultJSON:
		return Decision{Outcome: OutcomeHandled, Response: res, HandlerName: name}
	case types.ResultRawWritten:
		return Decision{Outcome: OutcomeRawWritten, HandlerName: name}
	case types.ResultDecline:
		return Decision{Outcome: OutcomeFallthroughStatic, HandlerName: name}
	default:
		return Decision{Outcome: OutcomeError, HandlerName: name}
	}
}

// JSONReply serializes a JSON handler's value per spec §4.7: `?pretty=1`
// indents, legacy JSONP wraps in a JS call (optionally inside an HTML
// document under `?format=html`) when legacyCallback is enabled and
// `?callback=` is present, otherwise plain `application/json` with a
// trailing newline.
func JSONReply(value any, query url.Values, legacyCallback bool) (contentType string, body []byte, err error) {
	pretty := query.Get("pretty") == "1"

	raw, err := marshalJSON(value, pretty)
	if err != nil {
		return "", nil, err
	}

	callback := query.Get("callback")
	if legacyCallback && callback != "" {
		js := callback + "(" + string(raw) + ");"
		if query.Get("format") == "html" {
			html := "<html><head></head><body><script type=\"text/javascript\">" + js + "</script></body></html>"
			return "text/html", []byte(html), nil
		}
		return "text/javascript", []byte(js), nil
	}

	return "application/json", append(raw, '\n'), nil
}

func marshalJSON(value any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(value, "", "  ")
	}
	return json.Marshal(value)
}
