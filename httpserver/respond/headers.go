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

import "net/http"

// AssembleHeaders builds the final response header set per spec
// §4.9's six-step order. caller is never mutated; every step only
// fills gaps the previous steps left, except step 4 (keep-alive) and
// steps 5-6 (overlays), which set their header unconditionally.
func AssembleHeaders(cfg Config, caller http.Header, status int, uriPath string, connection string) http.Header {
	out := http.Header{}
	for k, v := range caller {
		out[k] = append([]string(nil), v...)
	}

	for k, v := range cfg.DefaultHeaders {
		if _, present := out[k]; !present {
			out[k] = append([]string(nil), v...)
		}
	}

	if _, present := out["Server"]; !present && cfg.ServerSignature != "" {
		out.Set("Server", cfg.ServerSignature)
	}

	if connection != "" {
		out.Set("Connection", connection)
	}

	if h, ok := cfg.StatusHeaders[status]; ok {
		for k, v := range h {
			out[k] = append([]string(nil), v...)
		}
	}

	for _, rule := range cfg.URIHeaders {
		if rule.Match != nil && rule.Match.MatchString(uriPath) {
			for k, v := range rule.Header {
				out[k] = append([]string(nil), v...)
			}
		}
	}

	return out
}
