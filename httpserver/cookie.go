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
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CookieOptions is the declared set of outbound cookie attributes
// SetCookie serializes, per the engine's setCookie(name, value, opts)
// surface.
type CookieOptions struct {
	MaxAge int // seconds; 0 omits the attribute, negative expires immediately

	Expires time.Time // zero value omits the attribute

	Domain string

	// Path defaults to "/" when empty.
	Path string

	// Secure is "true", "false", or "auto" (default): "auto" emits
	// the attribute only when the request that triggered this
	// response arrived over TLS.
	Secure string

	// HttpOnly defaults to true; set explicitly to false to omit it.
	HttpOnly *bool

	// SameSite is "Strict", "None", or "Lax" (default).
	SameSite string
}

// SetCookie appends a Set-Cookie header to h for name/value per opts,
// following the exact serialization rules: Max-Age, UTC Expires,
// Domain, Path (default "/"), Secure (literal or "auto"), HttpOnly
// (default on), SameSite (default "Lax"). Set-Cookie is the one
// header allowed to accumulate multiple values, so repeated calls add
// additional lines rather than replacing the prior one.
func SetCookie(h http.Header, name, value string, opts CookieOptions, requestIsTLS bool) {
	var b strings.Builder

	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)

	if opts.MaxAge != 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", opts.MaxAge)
	}
	if !opts.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(opts.Expires.UTC().Format(http.TimeFormat))
	}
	if opts.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.Domain)
	}

	path := opts.Path
	if path == "" {
		path = "/"
	}
	b.WriteString("; Path=")
	b.WriteString(path)

	secure := strings.ToLower(opts.Secure)
	switch secure {
	case "true":
		b.WriteString("; Secure")
	case "auto", "":
		if requestIsTLS {
			b.WriteString("; Secure")
		}
	}

	if opts.HttpOnly == nil || *opts.HttpOnly {
		b.WriteString("; HttpOnly")
	}

	sameSite := opts.SameSite
	if sameSite == "" {
		sameSite = "Lax"
	}
	switch strings.ToLower(sameSite) {
	case "strict":
		b.WriteString("; SameSite=Strict")
	case "none":
		b.WriteString("; SameSite=None")
	default:
		b.WriteString("; SameSite=Lax")
	}

	h.Add("Set-Cookie", b.String())
}
