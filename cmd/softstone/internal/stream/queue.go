// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package stream provides the line plumbing between the proxy control loop
// and the subordinate engine's text streams.
//
// Each stream (controller stdin, engine stdout, engine stderr) gets one
// background Reader pumping decoded lines into an unbounded Queue. The
// control loop is the only consumer, so a queue has exactly one producer
// and one consumer and needs no coordination beyond its own lock.
package stream

import "sync"

// Queue is an unbounded FIFO of text lines.
//
// Lines are delivered in exactly the order they were pushed; the queue
// itself never drops or reorders. There is no backpressure: if nothing
// consumes, the queue grows. That is acceptable for the short diagnostic
// bursts an analysis engine emits per move.
//
// A closed queue still hands out buffered lines. Once it is both closed
// and empty, Pop and TryPop report ok=false, which is how stream closure
// (engine exit, controller hangup) reaches the consumer instead of an
// indefinite stall.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	lines  []string
	closed bool
}

// NewQueue creates an empty, open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a line. Pushing to a closed queue is a no-op.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.lines = append(q.lines, line)
	q.cond.Signal()
}

// Pop blocks until a line is available and returns it.
//
// Returns ok=false only when the queue is closed and drained. There is
// deliberately no timeout: a reply that never arrives blocks forever,
// matching the protocol's synchronous request/reply shape.
func (q *Queue) Pop() (line string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.lines) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.lines) == 0 {
		return "", false
	}
	line = q.lines[0]
	q.lines = q.lines[1:]
	return line, true
}

// TryPop returns the next line without blocking.
//
// ok=false means nothing was available right now; use Done to tell an
// empty-but-open queue apart from a finished one.
func (q *Queue) TryPop() (line string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return "", false
	}
	line = q.lines[0]
	q.lines = q.lines[1:]
	return line, true
}

// Done reports whether the queue is closed and no buffered lines remain.
func (q *Queue) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.lines) == 0
}

// Len returns the number of buffered lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Close marks the end of the stream. Buffered lines stay consumable.
// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
