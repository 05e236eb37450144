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

package respond

import (
	"net/http"
	"strings"
)

// sanitizeValue strips control bytes ([\x00-\x1F\x7F]) and high-byte
// Latin-1/UTF-16 noise (anything above \x7E) from a single header
// value, per spec §4.9.
func sanitizeValue(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= 0x20 && r <= 0x7E {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeHeaders rewrites h in place per spec §4.9: when cleanAll is
// false, only the Location header is sanitized; otherwise every header
// value is.
func SanitizeHeaders(h http.Header, cleanAll bool) {
	if !cleanAll {
		if v := h.Get("Location"); v != "" {
			h.Set("Location", sanitizeValue(v))
		}
		return
	}

	for k, vs := range h {
		cleaned := make([]string, len(vs))
		for i, v := range vs {
			cleaned[i] = sanitizeValue(v)
		}
		h[k] = cleaned
	}
}
