// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis extracts candidate moves from an engine's diagnostic
// output and picks the one whose evaluated win probability sits closest
// to a configured target.
//
// Candidates are produced fresh for every move-generation cycle and never
// persisted. Their order matters: the first candidate in a block is the
// engine's own unmodified preference, and it doubles as the tie-break.
package analysis

// Candidate is one entry of the engine's per-move analysis block: a move
// token ("D4", "pass", "resign"), the number of visits the search spent
// on it, and the evaluated win percentage in [0,100].
type Candidate struct {
	Move       string
	Visits     int
	WinPercent float64
}

// Policy holds the selection knobs, loaded once at startup and immutable
// for the life of the session.
type Policy struct {
	// TargetWinPercent is the win probability the proxy steers toward.
	TargetWinPercent float64

	// MinVisits drops candidates the engine barely explored. "pass" is
	// exempt: it is never visit-filtered.
	MinVisits int

	// MaxDropPercent bounds how far below the engine's own top choice a
	// candidate may sit and still be playable. 100 disables the filter.
	MaxDropPercent float64

	// PassTerminates stops the scan at the first accepted "pass", so no
	// move the engine ranked below passing can be chosen.
	PassTerminates bool
}
