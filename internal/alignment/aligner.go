package alignment

import "danmu/internal/titlematch"

const (
	maxShiftLimit    = 15
	minAcceptedScore = 0.3
	numberMatchBonus = 5.0
	movieCutPenalty  = 5.0
	kindMismatch     = 10.0
	kindMatchBonus   = 3.0
	specialParity    = 3.0
	consistencyBonus = 2.0
	consistencyRatio = 0.6
	consistencySim   = 0.33
	coveragePerPair  = 0.02
	coverageCap      = 0.2
	zeroDeltaPerPair = 0.25
	zeroDeltaCap     = 2.5
)

// ShiftScore is the evaluation of one candidate shift.
type ShiftScore struct {
	Shift      int
	Score      float64
	Pairs      int
	MeanSim    float64
	ZeroDeltas int
}

// FindOffset returns k such that secondary[i] aligns with primary[i+k], or 0
// when no shift scores above the acceptance threshold.
func FindOffset(primary, secondary []string) int {
	best, ok := bestShift(Explain(primary, secondary))
	if !ok {
		return 0
	}
	return best.Shift
}

func bestShift(scores []ShiftScore) (ShiftScore, bool) {
	var best ShiftScore
	found := false
	for _, candidate := range scores {
		if !found || candidate.Score > best.Score {
			best = candidate
			found = true
		}
	}
	if !found || best.Score <= minAcceptedScore {
		return ShiftScore{}, false
	}
	return best, true
}

// Explain evaluates every shift with at least one aligned pair, in the order
// FindOffset considers them: 0, 1, -1, 2, -2, ...
func Explain(primary, secondary []string) []ShiftScore {
	if len(primary) == 0 || len(secondary) == 0 {
		return nil
	}
	a := analyze(primary)
	b := analyze(secondary)
	minA, okA := minNumber(a)
	minB, okB := minNumber(b)
	sameBase := okA && okB && minA == minB

	limit := min(max(len(a), len(b)), maxShiftLimit)
	scores := make([]ShiftScore, 0, 2*limit+1)
	for step := 0; step <= limit; step++ {
		shifts := []int{step, -step}
		if step == 0 {
			shifts = shifts[:1]
		}
		for _, shift := range shifts {
			if score, ok := scoreShift(a, b, shift, sameBase); ok {
				scores = append(scores, score)
			}
		}
	}
	return scores
}

func scoreShift(primary, secondary []episode, shift int, sameBase bool) (ShiftScore, bool) {
	var total, simTotal float64
	var pairs, numbered, zero int
	deltas := map[int]int{}
	for i, sec := range secondary {
		j := i + shift
		if j < 0 || j >= len(primary) {
			continue
		}
		pri := primary[j]
		sim := titlematch.Similarity(pri.title, sec.title)
		score := sim
		if pri.hasNumber && sec.hasNumber {
			delta := sec.number - pri.number
			deltas[delta]++
			numbered++
			if delta == 0 {
				zero++
				if sameBase {
					score += numberMatchBonus
				}
			}
		}
		if pri.movieCut != sec.movieCut {
			score -= movieCutPenalty
		}
		if pri.kind != sec.kind {
			score -= kindMismatch
		} else if pri.kind != KindNone {
			score += kindMatchBonus
		}
		if pri.special == sec.special {
			score += specialParity
		}
		total += score
		simTotal += sim
		pairs++
	}
	if pairs == 0 {
		return ShiftScore{}, false
	}

	meanSim := simTotal / float64(pairs)
	result := total / float64(pairs)
	if numbered > 0 {
		modal := 0
		for _, count := range deltas {
			modal = max(modal, count)
		}
		if float64(modal)/float64(numbered) > consistencyRatio && meanSim > consistencySim {
			result += consistencyBonus
		}
	}
	result += min(coveragePerPair*float64(pairs), coverageCap)
	result += min(zeroDeltaPerPair*float64(zero), zeroDeltaCap)

	return ShiftScore{
		Shift:      shift,
		Score:      result,
		Pairs:      pairs,
		MeanSim:    meanSim,
		ZeroDeltas: zero,
	}, true
}
