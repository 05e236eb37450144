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
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/sabouaram/httpengine/acl"
	"github.com/sabouaram/httpengine/httpserver/metrics"
	"github.com/sabouaram/httpengine/httpserver/types"
)

// Info provides read-only identification of a running instance.
type Info interface {
	GetName() string
	GetBindable() string
	IsTLS() bool
}

// Runner is the lifecycle surface every Server exposes, mirroring the
// start/stop/restart/uptime contract the pack's runner/startStop
// package tests against (the package itself ships no buildable source
// in this retrieval pack, only its test suite, so this surface is
// built directly from that suite's observed behavior rather than
// embedded).
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	WaitNotify() <-chan struct{}
}

// Server is the complete request-lifecycle engine instance: lifecycle
// control plus the programmatic registration surface spec §6
// describes (addURIFilter/addURIHandler/addMethodHandler/
// addDirectoryHandler and their removers, plus getStats).
type Server interface {
	Runner
	Info

	// AddURIFilter registers a FilterChain entry matched against
	// request paths (query stripped), spec §4.6.
	AddURIFilter(name string, match *regexp.Regexp, fn types.FilterFunc)
	RemoveURIFilter(name string)

	// AddURIHandler registers a Dispatcher URI handler, spec §4.7.
	AddURIHandler(name string, match *regexp.Regexp, checker acl.Checker, fn types.HandlerFunc)
	RemoveURIHandler(name string)

	// AddMethodHandler registers a Dispatcher method handler, spec §4.7.
	AddMethodHandler(method, name string, checker acl.Checker, fn types.HandlerFunc)
	RemoveMethodHandler(name string)

	// AddDirectoryHandler mounts urlPrefix onto an on-disk directory
	// served by the StaticServer, by registering a URI handler that
	// rewrites into the internal-redirect file path spec §4.8
	// describes.
	AddDirectoryHandler(name, urlPrefix, dir string)
	RemoveDirectoryHandler(name string)

	// GetStats returns the current metrics snapshot, spec §5.10's
	// getStats() operation.
	GetStats() metrics.Stats

	// Monitor returns a health-check surface for the hosting daemon to
	// poll: queue depth and active/pending counts.
	Monitor(version string) (Monitor, error)

	// MonitorName returns the unique monitoring identifier for this
	// instance (its configured Name).
	MonitorName() string

	// ServeHTTP implements http.Handler, running the full admission →
	// queue → parse → filter → dispatch → respond pipeline for one
	// inbound request.
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// New validates cfg and constructs a ready-to-Start Server.
func New(cfg ServerConfig) (Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newServer(cfg)
}
