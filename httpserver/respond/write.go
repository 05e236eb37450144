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
	"io"
	"net/http"
	"strconv"

	liblog "github.com/nabbar/golib/logger"

	"github.com/sabouaram/httpengine/httpserver/request"
	"github.com/sabouaram/httpengine/httpserver/types"
)

// Responder applies header assembly, compression, sanitization and
// keep-alive policy, then writes the final response (spec §4.9).
type Responder struct {
	cfg Config
}

// New builds a Responder from cfg.
func New(cfg Config) *Responder {
	return &Responder{cfg: cfg}
}

// Outcome reports what Write actually did, for the metrics package
// and connection bookkeeping.
type Outcome struct {
	Status       int
	BytesOut     int64
	CloseAfter   bool
	SocketClosed bool
}

// Write renders result to w for req, enforcing the entry invariants
// (socket-destroyed synthesizes status 0; double-reply is a no-op),
// then runs header assembly, compression and sanitization, and
// finally applies the keep-alive decision.
func (resp *Responder) Write(w http.ResponseWriter, req *request.Request, result types.HandlerResult, socketDestroyed bool, acceptEncoding string, forceCompress bool, clientKeepAlive, clientClose, shuttingDown bool, reqsOnConn int64) Outcome {
	if socketDestroyed {
		liblog.DebugLevel.Logf("respond: socket destroyed before write for request '%s', synthesizing status 0", req.ID)
		return Outcome{Status: 0, SocketClosed: true, CloseAfter: true}
	}

	if req.State() == request.StateWriting {
		liblog.ErrorLevel.Logf("respond: double-reply attempted for request '%s', ignoring", req.ID)
		return Outcome{Status: req.Code}
	}
	req.SetState(request.StateWriting)

	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}

	body, contentType := bodyBytes(result.Body)

	ka := DecideKeepAlive(resp.cfg, clientKeepAlive, clientClose, shuttingDown, reqsOnConn)

	header := AssembleHeaders(resp.cfg, result.Header, status, req.RawURL, ka.Connection)
	if contentType != "" {
		if _, present := header["Content-Type"]; !present {
			header.Set("Content-Type", contentType)
		}
	}

	_, alreadyEncoded := header["Content-Encoding"]
	enc, compress := ShouldCompress(resp.cfg, len(body) == 0, status, alreadyEncoded, acceptEncoding, forceCompress, header.Get("Content-Type"))

	if compress {
		compressed, err := CompressBuffer(enc, body)
		if err == nil {
			body = compressed
			header.Set("Content-Encoding", string(enc))
		} else {
			liblog.ErrorLevel.Logf("respond: compression failed for request '%s', sending uncompressed: %v", req.ID, err)
		}
	}

	header.Set("Content-Length", strconv.Itoa(len(body)))

	SanitizeHeaders(header, resp.cfg.CleanHeaders)

	dst := w.Header()
	for k, v := range header {
		dst[k] = v
	}
	w.WriteHeader(status)

	n, _ := w.Write(body)

	headerBytes := estimateHeaderBytes(header)

	req.Code = status
	return Outcome{
		Status:     status,
		BytesOut:   int64(n) + headerBytes,
		CloseAfter: ka.CloseAfter,
	}
}

func bodyBytes(b types.Body) ([]byte, string) {
	switch b.Kind {
	case types.BodyBytes:
		return b.Bytes, ""
	case types.BodyText:
		return []byte(b.Text), "text/plain; charset=utf-8"
	case types.BodyStream:
		if b.Stream == nil {
			return nil, ""
		}
		data, _ := io.ReadAll(b.Stream)
		return data, ""
	default:
		return nil, ""
	}
}

// estimateHeaderBytes produces the "plausible header-bytes estimate"
// spec §4.9 asks for byte accounting, without requiring an actual
// wire-format render.
func estimateHeaderBytes(h http.Header) int64 {
	var n int64
	for k, vs := range h {
		for _, v := range vs {
			n += int64(len(k) + len(v) + 4) // ": " + "\r\n"
		}
	}
	return n + 2 // trailing CRLF after headers
}
