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

// Package parser applies URL rewrites, front-end-HTTPS detection,
// query/cookie parsing and body routing described in spec §4.5, ahead
// of the FilterChain and Dispatcher.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nabbar/golib/logger"
)

// Rewrite is one declared URL rewrite entry (spec glossary "Rewrite
// entry"): a regex, a replacement URL template using $N capture
// placeholders, optional headers to inject, and an optional
// chain-stopping Last flag.
type Rewrite struct {
	Match   *regexp.Regexp
	Replace string
	Headers map[string]string
	Last    bool
}

// HTTPSDetect maps a header name to a regex; a match sets the
// synthetic ssl/https headers (spec §4.5, "front-end HTTPS").
type HTTPSDetect struct {
	Header string
	Match  *regexp.Regexp
}

// Config bundles the parser's declared inputs.
type Config struct {
	Rewrites     []Rewrite
	HTTPSDetect  []HTTPSDetect
	FlattenQuery bool
}

// Result is the parser's output overlay onto a Request: the rewritten
// path, injected headers, the parsed query, cookies, and whether a
// front-end-HTTPS signal fired.
type Result struct {
	Path    string
	Headers map[string]string
	Query   url.Values
	Cookies map[string]string
	HTTPS   bool
}

// ApplyRewrites runs Config.Rewrites in declared order against path,
// substituting $N placeholders in each matching entry's Replace
// template, merging its Headers, and stopping at the first Last match.
func ApplyRewrites(rewrites []Rewrite, path string) (string, map[string]string) {
	headers := map[string]string{}
	cur := path

	for _, rw := range rewrites {
		loc := rw.Match.FindStringSubmatchIndex(cur)
		if loc == nil {
			continue
		}

		cur = string(rw.Match.ExpandString(nil, rw.Replace, cur, loc))

		for k, v := range rw.Headers {
			headers[k] = v
		}

		if rw.Last {
			break
		}
	}

	return cur, headers
}

// DetectHTTPS reports whether any configured header→regex mapping
// matches its header value, signalling a front-end TLS terminator.
func DetectHTTPS(detectors []HTTPSDetect, header func(name string) string) bool {
	for _, d := range detectors {
		v := header(d.Header)
		if v == "" {
			continue
		}
		if d.Match.MatchString(v) {
			return true
		}
	}
	return false
}

// ParseQuery parses a raw query string. When flatten is true, repeated
// keys collapse to their last value instead of accumulating a slice
// (spec §4.5, "flatten_query").
func ParseQuery(rawQuery string, flatten bool) url.Values {
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		logger.DebugLevel.Logf("query parse error, best-effort result kept: %v", err)
	}
	if !flatten {
		return v
	}

	flat := make(url.Values, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			flat[k] = []string{vals[len(vals)-1]}
		}
	}
	return flat
}

// ParseCookies implements spec §4.5's tolerant cookie parser: split on
// "; ", then each pair on the first "=", URL-decode key and value,
// and drop malformed pairs with a debug log rather than rejecting the
// whole header (unlike http.Request.Cookies, which is stricter).
func ParseCookies(header string) map[string]string {
	out := map[string]string{}
	if header == "" {
		return out
	}

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		i := strings.IndexByte(part, '=')
		if i < 0 {
			logger.DebugLevel.Logf("malformed cookie pair dropped: %q", part)
			continue
		}

		rawKey, rawVal := part[:i], part[i+1:]

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			logger.DebugLevel.Logf("malformed cookie key dropped: %q", rawKey)
			continue
		}

		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			logger.DebugLevel.Logf("malformed cookie value dropped for key %q", key)
			continue
		}

		out[key] = val
	}

	return out
}
