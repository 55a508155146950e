// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"fmt"
	"math"

	"github.com/AleutianAI/softstone/pkg/logging"
)

// Selection is the outcome of a move pick: the adopted move token and
// how far its win percentage deviates from the policy target.
type Selection struct {
	Move      string
	Deviation float64
}

// Select picks the candidate whose win percentage is closest to the
// policy target.
//
// Candidates must be in engine order: the first one is the engine's own
// top choice and defines the reference for the MaxDropPercent filter.
// A later candidate only displaces the current pick on a strictly
// smaller deviation, so ties resolve to the engine's native ranking.
// With PassTerminates set, scanning stops right after "pass" has been
// considered -- nothing the engine ranked below passing is reachable.
//
// Errors when the candidate list is empty or the drop filter rejected
// every entry.
func Select(candidates []Candidate, policy Policy, log *logging.Logger) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("no candidates to select from")
	}

	topPercent := candidates[0].WinPercent
	var chosen *Candidate
	var chosenDev float64

	for i := range candidates {
		cand := &candidates[i]

		if topPercent-cand.WinPercent > policy.MaxDropPercent {
			log.Info("candidate drops too much, not considering",
				"move", cand.Move,
				"win_percent", cand.WinPercent,
				"top_percent", topPercent,
			)
			continue
		}

		deviation := cand.WinPercent - policy.TargetWinPercent
		if chosen == nil || math.Abs(deviation) < math.Abs(chosenDev) {
			chosen = cand
			chosenDev = deviation
			log.Debug("candidate looks more suitable",
				"move", cand.Move,
				"win_percent", cand.WinPercent,
			)
		}

		if cand.Move == "pass" && policy.PassTerminates {
			log.Info("found pass, stop considering moves")
			break
		}
	}

	if chosen == nil {
		return Selection{}, fmt.Errorf("every candidate exceeded max_drop_percent (%.2f)",
			policy.MaxDropPercent)
	}

	return Selection{Move: chosen.Move, Deviation: chosenDev}, nil
}
