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

// Package httpserver is an embeddable HTTP/HTTPS request-lifecycle
// engine: admission control, a bounded queue, request parsing, a
// filter chain, a dispatcher, a static file server, and a response
// writer with compression and keep-alive handling, wired together
// behind a single http.Handler.
//
// # Overview
//
// A Server is built from a ServerConfig and exposes the usual
// lifecycle (Start/Stop/Restart/IsRunning/Uptime/WaitNotify) plus a
// programmatic registration surface (AddURIFilter, AddURIHandler,
// AddMethodHandler, AddDirectoryHandler, and their removers). Every
// accepted connection and every request on it passes through the
// same pipeline:
//
//	Accept (admission: max connections, blacklist, SNI allow-list)
//	  -> Queue (bounded concurrency, skip-URI fast lane)
//	    -> Parser (rewrites, query, cookies, front-end TLS, body)
//	      -> FilterChain (registered URI filters, first-match order)
//	        -> Dispatcher (redirects, method/URI handlers, static fallthrough)
//	          -> Responder (headers, compression, keep-alive)
//	            -> Metrics (per-request completion record)
//
// # Basic usage
//
//	cfg := httpserver.ServerConfig{
//	    Name:     "api",
//	    HTTPPort: 8080,
//	}
//	srv, err := httpserver.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.AddURIHandler("health", regexp.MustCompile(`^/health$`), nil, func(req any) types.HandlerResult {
//	    return types.Response(http.StatusOK, nil, types.TextBody("ok"))
//	})
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
//
// # Pool
//
// Pool orchestrates several named Server instances sharing a single
// Start/Stop/Restart lifecycle (e.g. one plain-HTTP and one HTTPS
// listener for the same application).
//
// # Monitor
//
// Monitor surfaces queue depth, active/pending counts, and uptime as
// a poll-able health check for a hosting daemon, with room for an
// additional caller-supplied HealthCheckFunc.
package httpserver
