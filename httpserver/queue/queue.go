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

// Package queue is the bounded FIFO with a concurrency cap described in
// spec §4.4: at most Concurrency requests are in the parse/handle/respond
// phase at once; the rest wait in order, with a front-insertion bypass for
// skip-URI requests.
package queue

import (
	"container/list"
	"sync"
)

// Queue is a FIFO of pending work items bounded by a running-worker
// semaphore. The zero value is not usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	pending *list.List
	sem     chan struct{}
	running int
}

// New builds a Queue allowing at most concurrency items to run at once.
// A concurrency of 0 or less means unbounded (parse immediately).
func New(concurrency int) *Queue {
	q := &Queue{pending: list.New()}
	if concurrency > 0 {
		q.sem = make(chan struct{}, concurrency)
	}
	return q
}

// Length returns the number of items waiting (not yet dispatched).
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Running returns the number of items currently occupying a concurrency
// slot.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Push appends an item to the back of the pending list and attempts an
// immediate dispatch.
func (q *Queue) Push(item func()) {
	q.mu.Lock()
	q.pending.PushBack(item)
	q.mu.Unlock()
	q.drain()
}

// Unshift front-inserts an item (the skip-URI fast lane, spec §4.4) and
// attempts an immediate dispatch.
func (q *Queue) Unshift(item func()) {
	q.mu.Lock()
	q.pending.PushFront(item)
	q.mu.Unlock()
	q.drain()
}

// drain dispatches as many pending items as the concurrency cap allows.
// Each dispatched item runs in its own goroutine; its slot is freed
// when the item returns.
func (q *Queue) drain() {
	for {
		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
			default:
				return
			}
		}

		q.mu.Lock()
		el := q.pending.Front()
		if el == nil {
			q.mu.Unlock()
			if q.sem != nil {
				<-q.sem
			}
			return
		}
		q.pending.Remove(el)
		q.running++
		q.mu.Unlock()

		item := el.Value.(func())
		go func() {
			defer q.release()
			item()
		}()
	}
}

// release frees one concurrency slot and wakes the drain loop so the next
// pending item (if any) can run.
func (q *Queue) release() {
	q.mu.Lock()
	q.running--
	q.mu.Unlock()

	if q.sem != nil {
		<-q.sem
	}

	q.drain()
}
