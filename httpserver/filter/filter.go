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

// Package filter implements the FilterChain of spec §4.6: an ordered
// set of path-matched filters run ahead of the Dispatcher, each
// signalling intent through a tagged Result.
package filter

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/sabouaram/httpengine/httpserver/types"
)

// Entry is one registered filter: a path regex and the callback run
// when it matches (query string stripped before matching, per
// spec §4.6).
type Entry struct {
	Name  string
	Match *regexp.Regexp
	Func  types.FilterFunc
}

// Chain runs registered filters, in registration order, against a
// request path. Safe for concurrent Add/Remove alongside Run calls.
type Chain struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a filter entry.
func (c *Chain) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Remove drops the filter registered under name, if present.
func (c *Chain) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	c.entries = out
}

// Matches reports whether any registered filter's regex matches path,
// implementing the spec §4.6 fast path (no filters registered, or no
// filter matches, goes directly to the Dispatcher).
func (c *Chain) Matches(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.Match.MatchString(path) {
			return true
		}
	}
	return false
}

// Outcome is the kind of terminal action a Run call produced.
type Outcome uint8

const (
	// OutcomeDispatch means no filter intercepted the request; it
	// should proceed to the Dispatcher.
	OutcomeDispatch Outcome = iota
	// OutcomeRawHandled means a filter wrote the raw response itself;
	// the chain is finished.
	OutcomeRawHandled
	// OutcomeResponse means a filter supplied a normal response for
	// the Responder to send.
	OutcomeResponse
	// OutcomeError means a filter returned an invalid result shape;
	// respond 500 naming the offending filter.
	OutcomeError
)

// Result is what Run returns after walking the matching filters.
type Result struct {
	Outcome    Outcome
	Response   types.HandlerResult
	FilterName string // set only on OutcomeError
}

// Run executes every filter whose regex matches path, in registration
// order, stopping at the first one that does not pass through.
func Run(entries []Entry, path string, req any) Result {
	for _, e := range entries {
		if !e.Match.MatchString(path) {
			continue
		}

		res := e.Func(req)

		switch res.Kind {
		case types.ResultDecline:
			continue // "(false)" — pass through; continue.
		case types.ResultRawWritten:
			return Result{Outcome: OutcomeRawHandled}
		case types.ResultResponse:
			return Result{Outcome: OutcomeResponse, Response: res}
		default:
			return Result{Outcome: OutcomeError, FilterName: e.Name}
		}
	}

	return Result{Outcome: OutcomeDispatch}
}

// RunChain runs c's registered filters in order against path, per the
// fast-path/ordered-execution rule of spec §4.6.
func (c *Chain) RunChain(path string, req any) Result {
	c.mu.RLock()
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	c.mu.RUnlock()

	for _, e := range entries {
		if e.Match.MatchString(path) {
			return Run(entries, path, req)
		}
	}

	return Result{Outcome: OutcomeDispatch}
}

// StatusForError maps an OutcomeError Result to the status code the
// Responder must send.
func StatusForError() int {
	return http.StatusInternalServerError
}
