/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package acl is a minimal CIDR allow/deny evaluator. The request-lifecycle
// engine treats ACL evaluation as an external collaborator (spec §1): a
// component constructed from a list of CIDR blocks exposing Check,
// CheckAny and CheckAll. This package is that component.
package acl

import (
	"net"
	"strings"
)

// Checker evaluates IP addresses against a fixed set of CIDR blocks.
type Checker interface {
	// Check reports whether ip falls inside any configured block.
	Check(ip net.IP) bool

	// CheckAny reports whether at least one of ips falls inside any
	// configured block.
	CheckAny(ips []net.IP) bool

	// CheckAll reports whether every one of ips falls inside some
	// configured block. An empty ips slice is vacuously true.
	CheckAll(ips []net.IP) bool

	// Len returns the number of valid blocks held by the checker.
	Len() int
}

type checker struct {
	nets []*net.IPNet
}

// New builds a Checker from a list of CIDR blocks (e.g. "10.0.0.0/8").
// A bare IP address (no "/bits" suffix) is treated as a /32 (or /128 for
// IPv6) block. Malformed entries are skipped.
func New(blocks []string) Checker {
	c := &checker{nets: make([]*net.IPNet, 0, len(blocks))}

	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}

		if !strings.Contains(b, "/") {
			if ip := net.ParseIP(b); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				b = ip.String() + "/" + itoa(bits)
			}
		}

		if _, n, err := net.ParseCIDR(b); err == nil {
			c.nets = append(c.nets, n)
		}
	}

	return c
}

func itoa(i int) string {
	if i == 32 {
		return "32"
	}
	return "128"
}

func (c *checker) Len() int {
	return len(c.nets)
}

func (c *checker) Check(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, n := range c.nets {
		if n.Contains(ip) {
			return true
		}
	}

	return false
}

func (c *checker) CheckAny(ips []net.IP) bool {
	for _, ip := range ips {
		if c.Check(ip) {
			return true
		}
	}

	return false
}

func (c *checker) CheckAll(ips []net.IP) bool {
	for _, ip := range ips {
		if !c.Check(ip) {
			return false
		}
	}

	return true
}
