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

// KeepAliveDecision is the outcome of applying the keep-alive policy:
// the literal Connection header value to send, and whether the socket
// must be closed after writing the response. The two must always
// agree (spec §4.9).
type KeepAliveDecision struct {
	Connection string
	CloseAfter bool
}

// DecideKeepAlive applies spec §4.9's three-mode policy plus the
// max_reqs_per_conn hard cap and shutdown override.
func DecideKeepAlive(cfg Config, clientRequestedKeepAlive, clientRequestedClose, shuttingDown bool, reqsOnConn int64) KeepAliveDecision {
	if shuttingDown {
		return KeepAliveDecision{Connection: "close", CloseAfter: true}
	}

	if cfg.MaxReqsPerConn > 0 && reqsOnConn >= cfg.MaxReqsPerConn {
		return KeepAliveDecision{Connection: "close", CloseAfter: true}
	}

	var keep bool
	switch cfg.KeepAlive {
	case KeepAliveClose:
		keep = false
	case KeepAliveRequest:
		keep = clientRequestedKeepAlive
	default: // KeepAliveDefault
		keep = !clientRequestedClose
	}

	if !keep {
		return KeepAliveDecision{Connection: "close", CloseAfter: true}
	}
	return KeepAliveDecision{Connection: "keep-alive", CloseAfter: false}
}
