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
	"net"
	"strings"
	"time"

	liberr "github.com/nabbar/golib/errors"
)

// timeoutWaitingPortFreeing bounds how long PortNotUse/PortInUse will
// probe a bind address when the caller's context carries no deadline
// of its own.
const timeoutWaitingPortFreeing = 500 * time.Millisecond

func dialableAddress(listen string) (string, liberr.Error) {
	if !strings.Contains(listen, ":") {
		return listen, nil
	}

	part := strings.Split(listen, ":")
	if len(part) < 2 {
		return "", ErrorConfigValidate.Errorf("invalid listen address %q", listen)
	}

	port := part[len(part)-1]
	addr := strings.Join(part[:len(part)-1], ":")

	if addr == "" || strings.HasPrefix(addr, "0") || strings.HasPrefix(addr, "::") {
		return "127.0.0.1:" + port, nil
	}
	return listen, nil
}

// PortNotUse reports nil if listen ("host:port") is free to bind, or
// ErrorPortUse when a listener accepts connections there. A Pool restart
// loop can use this before Start to avoid racing the old listener's
// own shutdown.
func PortNotUse(ctx context.Context, listen string) error {
	dial, lerr := dialableAddress(listen)
	if lerr != nil {
		return lerr
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutWaitingPortFreeing)
		defer cancel()
	}

	var dialer net.Dialer
	con, err := dialer.DialContext(ctx, "tcp", dial)
	if con != nil {
		_ = con.Close()
	}
	if err != nil {
		return nil
	}
	return ErrorPortUse.Error(nil)
}

// PortInUse returns ErrorPortUse if listen ("host:port") currently has
// a listener accepting connections, or nil if the port is free.
func PortInUse(ctx context.Context, listen string) liberr.Error {
	dial, lerr := dialableAddress(listen)
	if lerr != nil {
		return lerr
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutWaitingPortFreeing)
		defer cancel()
	}

	var dialer net.Dialer
	con, err := dialer.DialContext(ctx, "tcp", dial)
	if con != nil {
		_ = con.Close()
	}
	if err != nil {
		return nil
	}
	return ErrorPortUse.Error(nil)
}
