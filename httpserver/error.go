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
	"net/http"

	"github.com/nabbar/golib/errors"
)

// Error codes for the request-lifecycle engine, registered in the
// pack's shared httpserver range (spec §8's "every failure mode is a
// distinct CodeError").
const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgHttpServer
	ErrorConfigValidate
	ErrorConfigClone
	ErrorPoolAdd
	ErrorPoolValidate
	ErrorPoolListen
	ErrorServerValidate
	ErrorPortUse
	ErrorListenerCreate
	ErrorCertLoad
	ErrorCertReload
	ErrorAdmissionMaxConns
	ErrorAdmissionShutdown
	ErrorAdmissionBlacklist
	ErrorAdmissionAllowHosts
	ErrorQueueFull
	ErrorQueuePending
	ErrorBodyTooLarge
	ErrorBodyMalformed
	ErrorParseMultipart
	ErrorStaticTraversal
	ErrorStaticNotFound
	ErrorDispatchForbidden
	ErrorRequestTimeout
	ErrorSocketClosed
)

var isCodeError = false

// IsCodeError reports whether this package's error codes were
// successfully registered with the shared message map.
func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamsEmpty)
	errors.RegisterIdFctMessage(ErrorParamsEmpty, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorParamsEmpty:
		return "given parameters is empty"
	case ErrorConfigValidate:
		return "config seems to be not valid"
	case ErrorConfigClone:
		return "cannot clone config"
	case ErrorPoolAdd:
		return "cannot add server on pool"
	case ErrorPoolValidate:
		return "at least one config server seems to be not valid"
	case ErrorPoolListen:
		return "at least one server has listen error"
	case ErrorServerValidate:
		return "config server seems to be not valid"
	case ErrorPortUse:
		return "server port is still used"
	case ErrorListenerCreate:
		return "cannot create listener"
	case ErrorCertLoad:
		return "cannot load certificate bundle"
	case ErrorCertReload:
		return "cannot reload certificate bundle"
	case ErrorAdmissionMaxConns:
		return "connection rejected: max connections reached"
	case ErrorAdmissionShutdown:
		return "connection rejected: server is shutting down"
	case ErrorAdmissionBlacklist:
		return "connection rejected: remote address is blacklisted"
	case ErrorAdmissionAllowHosts:
		return "connection rejected: SNI host is not allowed"
	case ErrorQueueFull:
		return "request rejected: queue is full"
	case ErrorQueuePending:
		return "request rejected: too many pending requests"
	case ErrorBodyTooLarge:
		return "request body exceeds configured maximum size"
	case ErrorBodyMalformed:
		return "request body could not be parsed"
	case ErrorParseMultipart:
		return "multipart body could not be parsed"
	case ErrorStaticTraversal:
		return "static file request resolved outside the configured root"
	case ErrorStaticNotFound:
		return "static file not found"
	case ErrorDispatchForbidden:
		return "request forbidden by ACL"
	case ErrorRequestTimeout:
		return "request exceeded its per-request timeout"
	case ErrorSocketClosed:
		return "underlying socket was closed before the response could be written"
	}

	return ""
}

// StatusForCode maps an admission/parsing/dispatch CodeError to the
// terminal HTTP status spec §8 assigns it. Codes with no fixed status
// (config/pool/lifecycle errors, which never reach a client) return 0.
func StatusForCode(code errors.CodeError) int {
	switch code {
	case ErrorBodyMalformed, ErrorParseMultipart:
		return http.StatusBadRequest
	case ErrorAdmissionBlacklist, ErrorAdmissionAllowHosts, ErrorDispatchForbidden:
		return http.StatusForbidden
	case ErrorStaticTraversal, ErrorStaticNotFound:
		return http.StatusNotFound
	case ErrorRequestTimeout:
		return http.StatusRequestTimeout
	case ErrorBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorQueueFull, ErrorQueuePending:
		return http.StatusTooManyRequests
	case ErrorAdmissionShutdown:
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}
