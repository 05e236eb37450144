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

// Package static implements the StaticServer of spec §4.8: safe
// on-disk path resolution under an htdocs root, directory/index
// handling, pre-gzipped sibling preference, conditional GET, and
// single-range requests.
package static

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sabouaram/httpengine/httpserver/types"
)

// Config bundles the StaticServer's declared inputs (spec §6's
// static-file config keys).
type Config struct {
	Root        string
	Index       string
	TextContent *regexp.Regexp // matches MIME types eligible for .gz sibling preference
	CacheMaxAge time.Duration
}

// Server resolves and serves files rooted at Config.Root.
type Server struct {
	cfg  Config
	base string // canonicalized absolute root, computed once
}

// New canonicalizes cfg.Root and returns a ready Server.
func New(cfg Config) (*Server, error) {
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	base, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}

	if cfg.Index == "" {
		cfg.Index = "index.html"
	}

	return &Server{cfg: cfg, base: base}, nil
}

// ErrNotFound signals a 404: either path traversal outside the base
// dir, or a genuinely missing file.
var ErrNotFound = fmt.Errorf("static: not found")

// ErrIsDirectoryNeedsSlash signals the spec §4.8 directory-without-
// trailing-slash redirect case.
var ErrIsDirectoryNeedsSlash = fmt.Errorf("static: directory requires trailing slash")

// Resolved is the outcome of resolving a request path to an on-disk
// file, ready for serving.
type Resolved struct {
	Path      string
	Info      os.FileInfo
	GzSibling string // set when a .gz sibling should be served instead
}

// Resolve maps urlPath (query already stripped) to an on-disk file
// under the configured root, defending against path traversal by
// canonicalizing and requiring a base-dir prefix match. internalFile,
// when non-empty, is used verbatim (spec §4.8's internal-redirect
// case) and bypasses the base-dir containment check.
func (s *Server) Resolve(urlPath, internalFile string, acceptsGzip bool) (Resolved, error) {
	var full string

	if internalFile != "" {
		full = internalFile
	} else {
		clean := filepath.Clean("/" + strings.TrimSuffix(urlPath, "/"))
		full = filepath.Join(s.base, clean)

		canon, err := filepath.EvalSymlinks(full)
		if err == nil {
			full = canon
		}

		if !withinBase(s.base, full) {
			return Resolved{}, ErrNotFound
		}
	}

	info, err := os.Stat(full)
	if err != nil {
		return Resolved{}, ErrNotFound
	}

	if info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			return Resolved{}, ErrIsDirectoryNeedsSlash
		}

		full = filepath.Join(full, s.cfg.Index)
		info, err = os.Stat(full)
		if err != nil {
			return Resolved{}, ErrNotFound
		}
	}

	res := Resolved{Path: full, Info: info}

	if acceptsGzip && s.cfg.TextContent != nil {
		ct := mime.TypeByExtension(filepath.Ext(full))
		if s.cfg.TextContent.MatchString(ct) {
			if gzInfo, err := os.Stat(full + ".gz"); err == nil && !gzInfo.IsDir() {
				res.GzSibling = full + ".gz"
			}
		}
	}

	return res, nil
}

func withinBase(base, candidate string) bool {
	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ETag computes the JSON-quoted "inode-size-mtimeMs" triple described
// in spec §4.8.
func ETag(info os.FileInfo) string {
	ino := inodeOf(info)
	return fmt.Sprintf("%q", fmt.Sprintf("%d-%d-%d", ino, info.Size(), info.ModTime().UnixMilli()))
}

// CacheControl builds the "public, max-age=<ttl>" header value.
func (s *Server) CacheControl() string {
	return fmt.Sprintf("public, max-age=%d", int(s.cfg.CacheMaxAge.Seconds()))
}

// Request carries the subset of an inbound request Serve needs; kept
// minimal and decoupled from the request package to avoid an import
// cycle (mirrors the types.HandlerFunc convention elsewhere).
type Request struct {
	URLPath         string
	InternalFile    string
	AcceptsGzip     bool
	IfNoneMatch     string
	IfModifiedSince string
	RangeHeader     string
}

// Serve resolves req against the server's root and produces the full
// response decision: 404 (not found), 301 (missing trailing slash), 304
// (conditional GET match), 206 (satisfiable single range), or 200, with
// ETag/Cache-Control/Content-Encoding/Content-Range populated per spec
// §4.8. The caller streams Resolved.Path (or its .gz sibling) as the body.
func (s *Server) Serve(req Request) (types.HandlerResult, *Resolved) {
	res, err := s.Resolve(req.URLPath, req.InternalFile, req.AcceptsGzip)
	if err == ErrIsDirectoryNeedsSlash {
		h := http.Header{"Location": []string{req.URLPath + "/"}}
		return types.Response(http.StatusMovedPermanently, h, types.NoBody), nil
	}
	if err != nil {
		return types.Response(http.StatusNotFound, nil, types.NoBody), nil
	}

	etag := ETag(res.Info)

	if NotModified(res.Info, req.IfNoneMatch, req.IfModifiedSince) {
		h := http.Header{}
		h.Set("ETag", etag)
		return types.Response(http.StatusNotModified, h, types.NoBody), nil
	}

	h := http.Header{
		"Cache-Control": []string{s.CacheControl()},
		"Last-Modified": []string{res.Info.ModTime().UTC().Format(time.RFC1123)},
	}
	h.Set("ETag", etag)

	served := res
	size := res.Info.Size()

	if res.GzSibling != "" {
		h.Set("Content-Encoding", "gzip")
		if gzInfo, err := os.Stat(res.GzSibling); err == nil {
			size = gzInfo.Size()
		}
	}

	if req.RangeHeader != "" {
		if r, ok := ParseRange(req.RangeHeader, size); ok {
			h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.From, r.To, size))
			h.Set("Content-Length", fmt.Sprintf("%d", r.To-r.From+1))
			return types.Response(http.StatusPartialContent, h, types.NoBody), &served
		}
	}

	h.Set("Content-Length", fmt.Sprintf("%d", size))
	return types.Response(http.StatusOK, h, types.NoBody), &served
}
