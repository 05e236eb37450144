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

package request

import (
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/sabouaram/httpengine/acl"
)

// singleValuedForwardedHeaders carry at most one hop of forwarding
// information and are read in this exact order (spec §4.3).
var singleValuedForwardedHeaders = []string{
	"X-Client-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Cluster-Client-IP",
}

// csvValuedForwardedHeaders may carry a comma-separated hop chain.
var csvValuedForwardedHeaders = []string{
	"X-Forwarded-For",
	"Forwarded-For",
}

// CollectClientIPs builds the ordered client-IP list per spec §4.3:
// single-valued forwarded headers, then CSV-valued ones, then
// "Forwarded: for=" tokens, then the socket remote address.
func CollectClientIPs(h http.Header, remoteAddr string) []net.IP {
	var ips []net.IP

	for _, name := range singleValuedForwardedHeaders {
		v := strings.TrimSpace(h.Get(name))
		if v == "" {
			continue
		}
		if ip := net.ParseIP(v); ip != nil {
			ips = append(ips, StripIPv4InIPv6(ip))
		}
	}

	for _, name := range csvValuedForwardedHeaders {
		v := h.Get(name)
		if v == "" {
			continue
		}
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if ip := net.ParseIP(part); ip != nil {
				ips = append(ips, StripIPv4InIPv6(ip))
			}
		}
	}

	if v := h.Get("Forwarded"); v != "" {
		for _, element := range strings.Split(v, ",") {
			if ip, ok := forwardedForToken(element); ok {
				ips = append(ips, StripIPv4InIPv6(ip))
			}
		}
	}

	if remoteAddr != "" {
		host := remoteAddr
		if h2, _, err := net.SplitHostPort(remoteAddr); err == nil {
			host = h2
		}
		if ip := net.ParseIP(host); ip != nil {
			ips = append(ips, StripIPv4InIPv6(ip))
		}
	}

	return ips
}

// PublicIP derives the "public IP" from an ordered client-IP list: the
// first address not found in the private-range ACL, an offset index into
// the list when offset != 0 (negative counts from the end), or the first
// address if every one of them is private (spec §4.3, glossary).
func PublicIP(ips []net.IP, private acl.Checker, offset int) net.IP {
	if len(ips) == 0 {
		return nil
	}

	if offset != 0 {
		idx := offset
		if idx < 0 {
			idx = len(ips) + idx
		}
		if idx >= 0 && idx < len(ips) {
			return ips[idx]
		}
	}

	if private != nil {
		for _, ip := range ips {
			if !private.Check(ip) {
				return ip
			}
		}
	}

	return ips[0]
}

// PreQueueConfig bundles the admission inputs evaluated, in order, before
// a Request is allowed to enter the Queue (spec §4.3).
type PreQueueConfig struct {
	Blacklist      acl.Checker
	AllowHosts     []string
	Shutdown       func() bool
	ActiveCount    func() int
	MaxActive      int
	PendingCount   func() int
	MaxPending     int
	QueueSkipMatch *regexp.Regexp
}

// Rejection is a terminal pre-queue (or parser) failure with its mapped
// HTTP status (spec §7).
type Rejection struct {
	Status int
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Evaluate runs the pre-queue checks in the declared order. skipQueue
// reports whether the request's path matched the configured skip-URI
// pattern and should be front-inserted rather than appended.
func (c PreQueueConfig) Evaluate(remoteAddr string, clientIPs []net.IP, host, path string) (skipQueue bool, rej *Rejection) {
	if remoteAddr == "" {
		return false, &Rejection{Status: http.StatusBadRequest, Reason: "missing socket remote address"}
	}

	if c.Shutdown != nil && c.Shutdown() {
		return false, &Rejection{Status: http.StatusServiceUnavailable, Reason: "server is shutting down"}
	}

	if c.Blacklist != nil {
		for _, ip := range clientIPs {
			if remoteIPMatches(ip, remoteAddr) {
				continue
			}
			if c.Blacklist.Check(ip) {
				return false, &Rejection{Status: http.StatusForbidden, Reason: "client ip is blacklisted"}
			}
		}
	}

	if len(c.AllowHosts) > 0 {
		h := strings.ToLower(host)
		if i := strings.LastIndex(h, ":"); i >= 0 {
			h = h[:i]
		}
		if !containsFold(c.AllowHosts, h) {
			return false, &Rejection{Status: http.StatusForbidden, Reason: "host not allowed"}
		}
	}

	if c.QueueSkipMatch != nil && c.QueueSkipMatch.MatchString(path) {
		return true, nil
	}

	if c.MaxActive > 0 && c.ActiveCount != nil && c.ActiveCount() >= c.MaxActive {
		return false, &Rejection{Status: http.StatusTooManyRequests, Reason: "too many active requests"}
	}

	if c.MaxPending > 0 && c.PendingCount != nil && c.PendingCount() >= c.MaxPending {
		return false, &Rejection{Status: http.StatusTooManyRequests, Reason: "pending queue is full"}
	}

	return false, nil
}

func remoteIPMatches(ip net.IP, remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	remote := net.ParseIP(host)
	return remote != nil && remote.Equal(ip)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
