// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ReadLines pumps r into q one line at a time until the stream ends,
// then closes q and returns.
//
// Line terminators ("\n" or "\r\n") are stripped; writers re-add the
// convention their destination expects. A final unterminated line is
// still delivered. The scanner error, if any, is returned so a
// supervising errgroup can surface it; plain EOF returns nil.
//
// ReadLines runs for the lifetime of the stream and must be started on
// its own goroutine -- it never yields to its caller.
func ReadLines(r io.Reader, q *Queue) error {
	defer q.Close()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			q.Push(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Drain pops every currently buffered line from q and writes each,
// newline-terminated, to w. It never blocks: the first empty poll stops
// the sweep. Returns whether at least one line moved.
//
// The control loop calls this every iteration so unsolicited engine
// chatter reaches the controller promptly without stalling dispatch.
func Drain(q *Queue, w io.Writer) bool {
	drained := false
	for {
		line, ok := q.TryPop()
		if !ok {
			return drained
		}
		drained = true
		_, _ = io.WriteString(w, line+"\n")
	}
}

// Discard pops every currently buffered line from q and throws it away.
// Returns whether at least one line was discarded.
func Discard(q *Queue) bool {
	drained := false
	for {
		if _, ok := q.TryPop(); !ok {
			return drained
		}
		drained = true
	}
}
