// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/softstone/pkg/logging"
)

// sentinelPrefix bounds the candidate block on the diagnostic stream.
// The engine prints one such line before the block and one after it.
const sentinelPrefix = "NN eval="

// IsSentinel reports whether a diagnostic line bounds a candidate block.
func IsSentinel(line string) bool {
	return strings.HasPrefix(line, sentinelPrefix)
}

// LineSource is a blocking supply of diagnostic lines. *stream.Queue
// satisfies it; tests feed slices.
type LineSource interface {
	// Pop blocks for the next line; ok=false means the stream ended.
	Pop() (line string, ok bool)
}

// ReadBlock consumes diagnostic lines up to the closing sentinel and
// returns the candidates that survive the visit filter, in engine order.
//
// The caller is expected to have consumed the opening sentinel already.
// Lines that do not match the candidate grammar are skipped silently
// (the engine interleaves progress chatter with the block). A candidate
// is kept when its visit count reaches minVisits, or unconditionally
// when its move is "pass".
//
// Errors: the diagnostic stream ending before the closing sentinel, or
// zero candidates surviving the filter. The latter means the thresholds
// are too strict for the configured visit budget and the move cycle
// cannot continue.
func ReadBlock(src LineSource, minVisits int, log *logging.Logger) ([]Candidate, error) {
	var kept []Candidate
	var dropped []Candidate

	for {
		line, ok := src.Pop()
		if !ok {
			return nil, fmt.Errorf("diagnostic stream closed inside candidate block")
		}
		if IsSentinel(line) {
			break
		}
		cand, ok := parseCandidateLine(line)
		if !ok {
			continue
		}
		if cand.Visits >= minVisits || cand.Move == "pass" {
			kept = append(kept, cand)
		} else {
			dropped = append(dropped, cand)
		}
	}

	if len(dropped) > 0 {
		pairs := make([]string, len(dropped))
		for i, d := range dropped {
			pairs[i] = fmt.Sprintf("%s (%d)", d.Move, d.Visits)
		}
		log.Info("dropped low-visit candidates",
			"count", len(dropped),
			"moves", strings.Join(pairs, " "),
		)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("no candidates survived the visit filter: "+
			"is min_visits (%d) too high for the configured visit budget?", minVisits)
	}

	considering := make([]string, len(kept))
	for i, c := range kept {
		considering[i] = fmt.Sprintf("%s (%.2f%%)", c.Move, c.WinPercent)
	}
	log.Debug("considering candidates", "moves", strings.Join(considering, " "))

	return kept, nil
}

// parseCandidateLine matches one analysis line of the form
//
//	<move> -> <visits> (V: <pct>%) ...
//
// with arbitrary leading spaces and arbitrary trailing detail. This is a
// hand-rolled tokenizer rather than a regex so the accepted grammar is
// exactly what is written here. Any structural mismatch returns ok=false
// and the line is treated as chatter.
func parseCandidateLine(line string) (Candidate, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[1] != "->" {
		return Candidate{}, false
	}
	move := fields[0]

	visits, ok := parseVisits(fields[2])
	if !ok {
		return Candidate{}, false
	}

	// The win rate lives in the "(V: <pct>%)" group somewhere after the
	// visit count.
	_, after, found := strings.Cut(line, "(V: ")
	if !found {
		return Candidate{}, false
	}
	pctText, _, found := strings.Cut(after, "%")
	if !found {
		return Candidate{}, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(pctText), 64)
	if err != nil {
		return Candidate{}, false
	}

	return Candidate{Move: move, Visits: visits, WinPercent: pct}, true
}

// parseVisits reads a visit count leniently: plain integers as printed
// by the engine, with a fallback that truncates decorated numbers
// (e.g. "55.2%") instead of rejecting the whole line.
func parseVisits(tok string) (int, bool) {
	tok = strings.TrimSuffix(tok, "%")
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && f >= 0 {
		return int(f), true
	}
	return 0, false
}
