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

// Package types holds the shared vocabulary used across the
// request-lifecycle engine's components: the handler/filter return shapes,
// the body variant, and the small function types handlers are registered
// with. Centralizing them here (mirroring the teacher's own
// httpserver/types package) keeps filter, dispatch, static and respond free
// of import cycles.
package types

import (
	"io"
	"net/http"
)

// BodyKind tags which variant a Body value holds.
type BodyKind uint8

const (
	BodyEmpty BodyKind = iota
	BodyBytes
	BodyText
	BodyStream
)

// Body is the tagged variant replacing the source's duck-typed response
// body (spec §9 REDESIGN FLAGS): a response is exactly one of no body, a
// byte buffer, a string, or a stream.
type Body struct {
	Kind   BodyKind
	Bytes  []byte
	Text   string
	Stream io.Reader
}

// NoBody is the Empty body variant.
var NoBody = Body{Kind: BodyEmpty}

// BytesBody wraps a byte slice as a buffered Body.
func BytesBody(b []byte) Body { return Body{Kind: BodyBytes, Bytes: b} }

// TextBody wraps a string as a buffered Body; the engine converts it to
// bytes before computing Content-Length so length is measured in bytes,
// not characters (spec §4.9).
func TextBody(s string) Body { return Body{Kind: BodyText, Text: s} }

// StreamBody wraps a reader as a streamed Body.
func StreamBody(r io.Reader) Body { return Body{Kind: BodyStream, Stream: r} }

// IsEmpty reports whether the body carries no content at all.
func (b Body) IsEmpty() bool {
	switch b.Kind {
	case BodyBytes:
		return len(b.Bytes) == 0
	case BodyText:
		return len(b.Text) == 0
	case BodyStream:
		return b.Stream == nil
	default:
		return true
	}
}

// ResultKind tags which variant a HandlerResult holds.
type ResultKind uint8

const (
	ResultResponse ResultKind = iota
	ResultRawWritten
	ResultDecline
	ResultJSON
)

// HandlerResult is the tagged variant replacing the source's runtime-typed
// handler/filter return value (bool/object/tuple, spec §4.6-4.7): every
// handler and filter callback in this port returns one of Response,
// RawWritten, Decline, or JSON explicitly.
type HandlerResult struct {
	Kind ResultKind

	// Response fields, valid when Kind == ResultResponse.
	Status int
	Header http.Header
	Body   Body

	// JSON fields, valid when Kind == ResultJSON.
	JSONValue any
}

// Response builds a normal status/headers/body result.
func Response(status int, header http.Header, body Body) HandlerResult {
	return HandlerResult{Kind: ResultResponse, Status: status, Header: header, Body: body}
}

// RawWritten signals that the handler already wrote the response directly
// to the underlying connection; the engine only synthesizes accounting.
func RawWritten() HandlerResult {
	return HandlerResult{Kind: ResultRawWritten}
}

// Decline signals the handler chose not to handle this request; dispatch
// falls through to the next candidate (method/URI handler, then static).
func Decline() HandlerResult {
	return HandlerResult{Kind: ResultDecline}
}

// JSON builds a JSON-reply result; status 0 and a nil header are valid and
// mean "use the dispatcher's defaults" (200, content-type negotiated per
// the JSONP/pretty rules in spec §4.7).
func JSON(value any, status int, header http.Header) HandlerResult {
	return HandlerResult{Kind: ResultJSON, JSONValue: value, Status: status, Header: header}
}

// HandlerFunc is the signature every URI/method handler callback
// implements. req is typed as any here to avoid an import cycle with the
// request package; callers type-assert to *request.Request.
type HandlerFunc func(req any) HandlerResult

// FilterFunc is the signature every filter callback implements.
type FilterFunc func(req any) HandlerResult

// FuncHandler returns the map of named http.Handler instances a server
// exposes; HandlerKeys selects one entry from the map (spec §6 "Handler
// entry").
type FuncHandler func() map[string]http.Handler

// BadHandlerName is the sentinel handler key returned when no handler
// function has been registered yet.
const BadHandlerName = "::bad-handler::"

// BadHandler answers every request with 503 Service Unavailable; it backs
// every HandlerGet miss so a misconfigured server fails loudly instead of
// panicking on a nil http.Handler.
type BadHandler struct{}

func NewBadHandler() http.Handler { return &BadHandler{} }

func (b *BadHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("no handler registered"))
}
