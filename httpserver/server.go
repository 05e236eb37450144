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
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpengine/acl"
	"github.com/sabouaram/httpengine/httpserver/cert"
	"github.com/sabouaram/httpengine/httpserver/conn"
	"github.com/sabouaram/httpengine/httpserver/dispatch"
	"github.com/sabouaram/httpengine/httpserver/filter"
	"github.com/sabouaram/httpengine/httpserver/metrics"
	"github.com/sabouaram/httpengine/httpserver/parser"
	"github.com/sabouaram/httpengine/httpserver/queue"
	"github.com/sabouaram/httpengine/httpserver/request"
	"github.com/sabouaram/httpengine/httpserver/respond"
	"github.com/sabouaram/httpengine/httpserver/static"
	"github.com/sabouaram/httpengine/httpserver/types"
)

// srv is the concrete Server: one admission-controlled listener plus
// the queue/parser/filter/dispatch/static/respond/metrics pipeline
// run against it on every accepted request.
type srv struct {
	mu  sync.RWMutex
	cfg ServerConfig

	table     *conn.Table
	certMgr   *cert.Manager
	q         *queue.Queue
	dsp       *dispatch.Dispatcher
	chain     *filter.Chain
	staticSrv *static.Server
	responder *respond.Responder
	mtr       *metrics.Metrics

	blacklist  acl.Checker
	allowACL   acl.Checker
	privateIPs acl.Checker

	rewrites    []parser.Rewrite
	httpsDetect []parser.HTTPSDetect
	skipMatch   *regexp.Regexp
	textContent *regexp.Regexp

	httpSrv *http.Server
	ln      net.Listener

	running    atomic.Bool
	shutdown   atomic.Bool
	started    atomic.Pointer[time.Time]
	notify     chan struct{}
	pollCancel context.CancelFunc
}

func newServer(cfg ServerConfig) (*srv, error) {
	s := &srv{
		cfg:    cfg,
		table:  conn.NewTable(),
		dsp:    dispatch.New(),
		chain:  filter.NewChain(),
		notify: make(chan struct{}),
	}

	if len(cfg.Admission.Blacklist) > 0 {
		s.blacklist = acl.New(cfg.Admission.Blacklist)
	}
	if len(cfg.Admission.DefaultACL) > 0 {
		s.allowACL = acl.New(cfg.Admission.DefaultACL)
	}
	if len(cfg.Admission.PrivateIPRanges) > 0 {
		s.privateIPs = acl.New(cfg.Admission.PrivateIPRanges)
	}

	if cfg.Admission.QueueSkipURIMatch != "" {
		re, err := regexp.Compile(cfg.Admission.QueueSkipURIMatch)
		if err != nil {
			return nil, ErrorConfigValidate.Errorf("invalid http_queue_skip_uri_match: %v", err)
		}
		s.skipMatch = re
	}

	if cfg.Compression.TextContent {
		s.textContent = defaultTextContentRegex
	}

	for header, pattern := range cfg.TLS.HeaderDetect {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		s.httpsDetect = append(s.httpsDetect, parser.HTTPSDetect{Header: header, Match: re})
	}

	s.q = queue.New(cfg.Admission.MaxConcurrent)

	if cfg.Static.HtdocsDir != "" {
		st, err := static.New(static.Config{
			Root:        cfg.Static.HtdocsDir,
			Index:       cfg.Static.Index,
			TextContent: s.textContent,
			CacheMaxAge: cfg.Static.TTL,
		})
		if err != nil {
			return nil, ErrorConfigValidate.Errorf("cannot initialize static root: %v", err)
		}
		s.staticSrv = st
	}

	if cfg.HTTPS {
		mgr, err := cert.New(cfg.Name, cert.Bundle{
			KeyFile:  cfg.TLS.KeyFile,
			CertFile: cfg.TLS.CertFile,
			CAFile:   cfg.TLS.CAFile,
		})
		if err != nil {
			return nil, ErrorCertLoad.Error(err)
		}
		s.certMgr = mgr
	}

	s.responder = respond.New(s.responderConfig())

	s.mtr = metrics.New(metrics.Config{
		SlowThreshold: time.Duration(cfg.Logging.PerfThresholdMs) * time.Millisecond,
		RingSize:      cfg.Logging.RecentRequests,
	})

	for pattern, rw := range cfg.Routing.Rewrites {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		s.rewrites = append(s.rewrites, parser.Rewrite{Match: re, Replace: rw.URL, Headers: rw.Headers, Last: rw.Last})
	}
	for pattern, rd := range cfg.Routing.Redirects {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		status := rd.Status
		if status == 0 {
			status = http.StatusFound
		}
		s.dsp.AddRedirect(dispatch.Redirect{Match: re, Location: rd.URL, Status: status, Headers: rd.Headers})
	}

	return s, nil
}

var defaultTextContentRegex = regexp.MustCompile(`(?i)^text/|json|xml|javascript`)

func (s *srv) responderConfig() respond.Config {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	mode := respond.KeepAliveDefault
	switch strings.ToLower(cfg.KeepAlive.Mode) {
	case "close", "0":
		mode = respond.KeepAliveClose
	case "request", "1":
		mode = respond.KeepAliveRequest
	}

	defHeaders := http.Header{}
	for k, v := range cfg.Headers.ResponseHeaders {
		defHeaders.Set(k, v)
	}

	statusHeaders := map[int]http.Header{}
	for code, kv := range cfg.Headers.CodeResponseHeaders {
		h := http.Header{}
		for k, v := range kv {
			h.Set(k, v)
		}
		statusHeaders[code] = h
	}

	var uriRules []respond.URIHeaderRule
	for _, ur := range cfg.Headers.URIResponseHeaders {
		re, err := regexp.Compile(ur.Match)
		if err != nil {
			continue
		}
		h := http.Header{}
		for k, v := range ur.Headers {
			h.Set(k, v)
		}
		uriRules = append(uriRules, respond.URIHeaderRule{Match: re, Header: h})
	}

	return respond.Config{
		DefaultHeaders:  defHeaders,
		ServerSignature: cfg.Headers.ServerSignature,
		StatusHeaders:   statusHeaders,
		URIHeaders:      uriRules,
		TextContent:     s.textContent,
		CleanHeaders:    cfg.Headers.CleanHeaders,
		KeepAlive:       mode,
		MaxReqsPerConn:  cfg.KeepAlive.MaxReqsPerConn,
	}
}

// --- Info ---

func (s *srv) GetName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Name
}

func (s *srv) GetBindable() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.HTTPS {
		return net.JoinHostPort(s.cfg.HTTPSBindAddress, strconv.Itoa(s.cfg.HTTPSPort))
	}
	return net.JoinHostPort(s.cfg.HTTPBindAddress, strconv.Itoa(s.cfg.HTTPPort))
}

func (s *srv) IsTLS() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.HTTPS
}

// --- Runner ---

func (s *srv) Start(ctx context.Context) error {
	if s.running.Load() {
		if err := s.Stop(ctx); err != nil {
			return err
		}
	}

	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	bind := net.JoinHostPort(cfg.HTTPBindAddress, strconv.Itoa(cfg.HTTPPort))
	if cfg.HTTPS {
		bind = net.JoinHostPort(cfg.HTTPSBindAddress, strconv.Itoa(cfg.HTTPSPort))
	}

	raw, err := net.Listen("tcp", bind)
	if err != nil {
		return ErrorListenerCreate.Error(err)
	}

	lnCfg := conn.Config{
		Port:     cfg.HTTPPort,
		TLS:      cfg.HTTPS,
		MaxConns: cfg.Admission.MaxConnections,
		Table:    s.table,
		Shutdown: s.shutdown.Load,
	}
	if cfg.HTTPS {
		lnCfg.Port = cfg.HTTPSPort
		lnCfg.AllowHosts = cfg.TLS.AllowHosts
	} else {
		lnCfg.Blacklist = s.blacklist
	}

	wrapped := conn.Wrap(raw, lnCfg)

	var finalLn net.Listener = wrapped
	if cfg.HTTPS {
		if s.certMgr == nil {
			_ = raw.Close()
			return ErrorCertLoad.Error(fmt.Errorf("https enabled but no certificate manager configured"))
		}
		finalLn = tls.NewListener(wrapped, s.certMgr.TLSConfig())

		pctx, cancel := context.WithCancel(context.Background())
		s.pollCancel = cancel
		go s.certMgr.Poll(pctx, cfg.TLS.PollInterval)
	}

	s.ln = finalLn

	s.httpSrv = &http.Server{
		Handler:           s,
		ReadTimeout:       cfg.Timeouts.HTTP,
		ReadHeaderTimeout: cfg.Timeouts.SocketPrelim,
		WriteTimeout:      cfg.Timeouts.HTTP,
		IdleTimeout:       cfg.Timeouts.KeepAlive,
		// Disabling HTTP/2 keeps this engine's own parser/filter/dispatch
		// pipeline in the single code path spec §4 describes instead of
		// splitting behavior across h1/h2 handler stacks.
		TLSNextProto: map[string]func(*http.Server, *tls.Conn, http.Handler){},
		ConnState:    s.onConnState,
	}

	now := time.Now()
	s.started.Store(&now)
	s.running.Store(true)
	s.shutdown.Store(false)

	go func() {
		_ = s.httpSrv.Serve(s.ln)
		s.running.Store(false)
		close(s.notify)
	}()

	return nil
}

// onConnState is registered as the http.Server's ConnState hook.
// Admission bookkeeping (the live Table) is already driven by
// conn.Listener/trackedConn on Accept/Close, and the preliminary
// timeout is applied through ReadHeaderTimeout; this hook
// exists so a future per-state behavior (e.g. StateHijacked cleanup)
// has a single place to attach without touching Start.
func (s *srv) onConnState(c net.Conn, state http.ConnState) {}

func (s *srv) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.shutdown.Store(true)
	if s.pollCancel != nil {
		s.pollCancel()
	}

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}

	s.running.Store(false)
	s.notify = make(chan struct{})
	return err
}

func (s *srv) Restart(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		return err
	}
	return s.Start(ctx)
}

func (s *srv) IsRunning() bool {
	return s.running.Load()
}

func (s *srv) Uptime() time.Duration {
	t := s.started.Load()
	if t == nil || !s.running.Load() {
		return 0
	}
	return time.Since(*t)
}

func (s *srv) WaitNotify() <-chan struct{} {
	return s.notify
}

// --- Registration surface ---

func (s *srv) AddURIFilter(name string, match *regexp.Regexp, fn types.FilterFunc) {
	s.chain.Add(filter.Entry{Name: name, Match: match, Func: fn})
}

func (s *srv) RemoveURIFilter(name string) {
	s.chain.Remove(name)
}

func (s *srv) AddURIHandler(name string, match *regexp.Regexp, checker acl.Checker, fn types.HandlerFunc) {
	s.dsp.AddURIHandler(dispatch.URIHandler{Name: name, Match: match, ACL: s.effectiveACL(checker), Func: fn})
}

func (s *srv) RemoveURIHandler(name string) {
	s.dsp.RemoveURIHandler(name)
}

func (s *srv) AddMethodHandler(method, name string, checker acl.Checker, fn types.HandlerFunc) {
	s.dsp.AddMethodHandler(dispatch.MethodHandler{Method: method, Name: name, ACL: s.effectiveACL(checker), Func: fn})
}

// effectiveACL falls back to the server's declared default ACL
// (http_default_acl) when a handler is registered without one of its
// own, so the server-wide allow-list still applies.
func (s *srv) effectiveACL(checker acl.Checker) acl.Checker {
	if checker != nil {
		return checker
	}
	return s.allowACL
}

func (s *srv) RemoveMethodHandler(name string) {
	s.dsp.RemoveMethodHandler(name)
}

func (s *srv) AddDirectoryHandler(name, urlPrefix, dir string) {
	prefix := strings.TrimSuffix(urlPrefix, "/")
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "(/.*)?$")

	s.dsp.AddURIHandler(dispatch.URIHandler{
		Name:  name,
		Match: re,
		Func: func(req any) types.HandlerResult {
			r, ok := req.(*request.Request)
			if ok {
				rest := strings.TrimPrefix(r.RawURL, prefix)
				r.Params["static.internalFile"] = strings.TrimSuffix(dir, "/") + rest
			}
			return types.Decline()
		},
	})
}

func (s *srv) RemoveDirectoryHandler(name string) {
	s.dsp.RemoveURIHandler(name)
}

func (s *srv) GetStats() metrics.Stats {
	return s.mtr.GetStats()
}

// --- request pipeline ---

func (s *srv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	clientIPs := request.CollectClientIPs(r.Header, r.RemoteAddr)

	preq := request.PreQueueConfig{
		Blacklist:      s.blacklist,
		AllowHosts:     cfg.Admission.AllowHosts,
		Shutdown:       s.shutdown.Load,
		ActiveCount:    s.q.Running,
		MaxActive:      cfg.Admission.MaxConcurrent,
		PendingCount:   s.q.Length,
		MaxPending:     cfg.Admission.MaxQueueLength,
		QueueSkipMatch: s.skipMatch,
	}

	skipQueue, rej := preq.Evaluate(r.RemoteAddr, clientIPs, r.Host, r.URL.Path)
	if rej != nil {
		liblog.DebugLevel.Logf("request rejected before queue: %s", rej.Reason)
		w.WriteHeader(rej.Status)
		return
	}

	req := request.New(r, s.connIDFromRemote(r), r.TLS != nil)
	req.ClientIPs = clientIPs
	req.PublicIP = request.PublicIP(clientIPs, s.privateIPs, cfg.Admission.PublicIPOffset)

	done := make(chan struct{})
	work := func() {
		defer close(done)
		s.handle(w, r, req, cfg)
	}

	if skipQueue {
		s.q.Unshift(work)
	} else {
		s.q.Push(work)
	}

	<-done
}

// connIDFromRemote resolves the live conn.Connection owning this
// request's socket. net/http only ever surfaces the remote address on
// *http.Request, never the listener-assigned Connection.ID, so the
// lookup goes through the Table's RemoteAddr index (conn.Listener
// populates it at Accept time).
func (s *srv) connIDFromRemote(r *http.Request) string {
	if cn := s.table.GetByAddr(r.RemoteAddr); cn != nil {
		return cn.ID
	}
	return ""
}

// countingReader tallies bytes read from an *http.Request's Body so
// the owning conn.Connection's BytesIn reflects what this request
// actually consumed, even when parsing fails partway through.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *srv) handle(w http.ResponseWriter, r *http.Request, req *request.Request, cfg ServerConfig) {
	req.SetState(request.StateReading)
	req.Perf.Begin("parse")

	cn := s.table.Get(req.ConnID)
	if cn != nil {
		cn.SetCurrent(req)
		defer cn.SetCurrent(nil)
	}

	if cfg.Timeouts.Request > 0 {
		deadline := time.Now().Add(cfg.Timeouts.Request)
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(deadline)
		_ = rc.SetWriteDeadline(deadline)
	}

	path, headers := parser.ApplyRewrites(s.rewrites, r.URL.Path)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Query = parser.ParseQuery(r.URL.RawQuery, cfg.Body.FlattenQuery)
	for name, value := range parser.ParseCookies(r.Header.Get("Cookie")) {
		req.Cookies[name] = &http.Cookie{Name: name, Value: value}
	}

	if !req.TLS && parser.DetectHTTPS(s.httpsDetect, r.Header.Get) {
		req.TLS = true
	}

	cr := &countingReader{r: r.Body}
	body, err := parser.ParseBody(cr, r.Method, r.Header.Get("Content-Type"), r.Header.Get("Content-Encoding"),
		r.ContentLength > 0, len(r.TransferEncoding) > 0, cfg.Body.MaxUploadSize, cfg.Body.TempDir)
	if cn != nil {
		cn.BytesIn.Add(cr.n)
	}
	if err != nil {
		if err == parser.ErrBodyTooLarge {
			liblog.ErrorLevel.Logf("request '%s' body too large, destroying socket", req.ID)
			s.destroySocket(w, req, cn)
			return
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			liblog.ErrorLevel.Logf("request '%s' timed out reading body", req.ID)
			s.writeResult(w, req, cn, types.Response(StatusForCode(ErrorRequestTimeout), nil, types.NoBody))
			return
		}
		s.writeResult(w, req, cn, types.Response(StatusForCode(ErrorBodyMalformed), nil, types.NoBody))
		return
	}
	req.Files = body.Files
	defer req.DeleteUploads()

	req.Params["body.kind"] = body.Kind
	switch body.Kind {
	case parser.BodyMultipart:
		for k, v := range body.Params {
			if len(v) > 0 {
				req.Params[k] = v[0]
			}
		}
	case parser.BodyJSON:
		if m, ok := body.JSON.(map[string]any); ok {
			for k, v := range m {
				req.Params[k] = v
			}
		} else {
			req.Params["json"] = body.JSON
		}
	case parser.BodyRaw:
		req.Params["raw"] = body.Raw
	}

	req.Perf.End("parse")

	req.SetState(request.StateFiltering)
	req.Perf.Begin("filter")
	fres := s.chain.RunChain(path, req)
	req.Perf.End("filter")

	switch fres.Outcome {
	case filter.OutcomeRawHandled:
		req.SetState(request.StateWriting)
		return
	case filter.OutcomeResponse:
		s.writeResult(w, req, cn, fres.Response)
		return
	case filter.OutcomeError:
		s.writeResult(w, req, cn, types.Response(filter.StatusForError(), nil, types.TextBody("filter error: "+fres.FilterName)))
		return
	}

	req.SetState(request.StateProcessing)
	req.Perf.Begin("dispatch")
	dec := s.dsp.Dispatch(r.Method, path, req.ClientIPs, req)
	req.Perf.End("dispatch")

	switch dec.Outcome {
	case dispatch.OutcomeRedirect:
		h := http.Header{"Location": []string{dec.RedirectTo}}
		for k, v := range dec.Headers {
			h.Set(k, v)
		}
		s.writeResult(w, req, cn, types.Response(dec.RedirectCode, h, types.NoBody))
		return
	case dispatch.OutcomeHandled:
		s.writeResult(w, req, cn, dec.Response)
		return
	case dispatch.OutcomeRawWritten:
		req.SetState(request.StateWriting)
		return
	case dispatch.OutcomeForbidden:
		s.writeResult(w, req, cn, types.Response(StatusForCode(ErrorDispatchForbidden), nil, types.NoBody))
		return
	case dispatch.OutcomeError:
		s.writeResult(w, req, cn, types.Response(http.StatusInternalServerError, nil, types.TextBody("handler error: "+dec.HandlerName)))
		return
	}

	// OutcomeFallthroughStatic
	if s.staticSrv == nil {
		s.writeResult(w, req, cn, types.Response(http.StatusNotFound, nil, types.NoBody))
		return
	}

	internalFile, _ := req.Params["static.internalFile"].(string)
	result, resolved := s.staticSrv.Serve(static.Request{
		URLPath:         path,
		InternalFile:    internalFile,
		AcceptsGzip:     strings.Contains(r.Header.Get("Accept-Encoding"), "gzip"),
		IfNoneMatch:     r.Header.Get("If-None-Match"),
		IfModifiedSince: r.Header.Get("If-Modified-Since"),
		RangeHeader:     r.Header.Get("Range"),
	})

	if resolved != nil && (result.Status == http.StatusOK || result.Status == http.StatusPartialContent) {
		onDiskPath := resolved.Path
		if resolved.GzSibling != "" {
			onDiskPath = resolved.GzSibling
		}

		f, ferr := os.Open(onDiskPath)
		if ferr != nil {
			s.writeResult(w, req, cn, types.Response(http.StatusNotFound, nil, types.NoBody))
			return
		}
		defer f.Close()

		if result.Status == http.StatusPartialContent {
			size := resolved.Info.Size()
			if ra, ok := static.ParseRange(r.Header.Get("Range"), size); ok {
				if _, serr := f.Seek(ra.From, io.SeekStart); serr == nil {
					result.Body = types.StreamBody(io.LimitReader(f, ra.To-ra.From+1))
				}
			}
		}
		if result.Body.Kind == types.BodyEmpty {
			result.Body = types.StreamBody(f)
		}
	}

	s.writeResult(w, req, cn, result)
}

// destroySocket hijacks and closes the raw connection without writing
// any response bytes, per spec §4.5's handling of an over-limit body:
// the client must see a transport-level failure, not a synthesized
// 200 OK from net/http's implicit "handler returned, nothing written"
// behavior.
func (s *srv) destroySocket(w http.ResponseWriter, req *request.Request, cn *conn.Connection) {
	if cn != nil {
		cn.Aborted.Store(true)
	}
	if hj, ok := w.(http.Hijacker); ok {
		if raw, _, err := hj.Hijack(); err == nil {
			_ = raw.Close()
		}
	}
	s.writeResult(w, req, cn, types.HandlerResult{})
}

func (s *srv) writeResult(w http.ResponseWriter, req *request.Request, cn *conn.Connection, result types.HandlerResult) {
	s.mu.RLock()
	legacyCallback := s.cfg.Logging.LegacyCallback
	s.mu.RUnlock()

	if result.Kind == types.ResultJSON {
		ct, body, err := dispatch.JSONReply(result.JSONValue, req.Query, legacyCallback)
		if err != nil {
			result = types.Response(http.StatusInternalServerError, nil, types.NoBody)
		} else {
			h := result.Header
			if h == nil {
				h = http.Header{}
			}
			h.Set("Content-Type", ct)
			result = types.Response(statusOr(result.Status, http.StatusOK), h, types.BytesBody(body))
		}
	}

	reqsOnConn := int64(0)
	if cn != nil {
		reqsOnConn = cn.Requests.Add(1)
	}

	connHeader := strings.ToLower(req.Header.Get("Connection"))
	clientKeepAlive := connHeader == "keep-alive"
	clientClose := connHeader == "close"

	socketDestroyed := cn != nil && cn.Aborted.Load()

	out := s.responder.Write(w, req, result, socketDestroyed, req.Header.Get("Accept-Encoding"), false,
		clientKeepAlive, clientClose, s.shutdown.Load(), reqsOnConn)

	if cn != nil {
		cn.BytesOut.Add(out.BytesOut)
	}

	s.mtr.Record(metrics.Completion{
		Method:   req.Method,
		Path:     req.RawURL,
		Status:   out.Status,
		BytesOut: out.BytesOut,
		Snapshot: req.Perf.Snapshot(),
	})
}

func statusOr(status, def int) int {
	if status == 0 {
		return def
	}
	return status
}
