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

// Package respond implements the Responder of spec §4.9: six-step
// header assembly, compression engagement, header sanitization, and
// keep-alive policy, operating over the types.Body/HandlerResult
// tagged unions rather than runtime duck-typing (spec §9 REDESIGN
// FLAG).
package respond

import (
	"net/http"
	"regexp"
)

// URIHeaderRule overlays extra headers onto responses whose request
// path matches Match (header-assembly step 6).
type URIHeaderRule struct {
	Match  *regexp.Regexp
	Header http.Header
}

// KeepAliveMode selects one of spec §4.9's three keep-alive policies.
type KeepAliveMode uint8

const (
	KeepAliveDefault KeepAliveMode = iota // keep open unless client said close
	KeepAliveRequest                      // keep open only if client requested it
	KeepAliveClose                        // always close
)

// Config bundles the Responder's declared, mostly-static inputs.
type Config struct {
	DefaultHeaders  http.Header
	ServerSignature string // e.g. "httpengine/1.0", used if caller/default headers omit Server
	StatusHeaders   map[int]http.Header
	URIHeaders      []URIHeaderRule
	TextContent     *regexp.Regexp // governs the compression "text-like" test
	CleanHeaders    bool           // false restricts sanitization to Location only
	KeepAlive       KeepAliveMode
	MaxReqsPerConn  int64 // 0 means unbounded
}
