package merge

import (
	"time"

	"danmu/internal/catalog"
	"danmu/internal/titlematch"
)

const (
	matchThreshold  = 0.6
	maxDateDistance = 365 * 24 * time.Hour
	closeDateWindow = 30 * 24 * time.Hour
	closeDateBonus  = 0.1
	sameYearBonus   = 0.05
)

// Candidate is the evaluation of one secondary entry against a primary.
type Candidate struct {
	Entry   *catalog.Entry
	Score   float64
	Skipped string
}

// FindSecondaryMatch returns the best scoring candidate for primary, or nil
// when none reaches the match threshold.
func FindSecondaryMatch(primary *catalog.Entry, candidates []*catalog.Entry) (*catalog.Entry, float64) {
	return bestCandidate(EvaluateCandidates(primary, candidates))
}

func bestCandidate(evaluated []Candidate) (*catalog.Entry, float64) {
	var (
		best      *catalog.Entry
		bestScore float64
	)
	for _, c := range evaluated {
		if c.Skipped != "" || c.Score < matchThreshold {
			continue
		}
		if best == nil || c.Score > bestScore {
			best = c.Entry
			bestScore = c.Score
		}
	}
	return best, bestScore
}

// Decision summarizes why c was or was not chosen when best won.
func (c Candidate) Decision(best *catalog.Entry) (result, reason string) {
	switch {
	case c.Skipped != "":
		return "skipped", c.Skipped
	case c.Score < matchThreshold:
		return "skipped", "below match threshold"
	case c.Entry != best:
		return "skipped", "outscored"
	default:
		return "accepted", "best score"
	}
}

// EvaluateCandidates scores every candidate, recording why skipped ones were
// rejected.
func EvaluateCandidates(primary *catalog.Entry, candidates []*catalog.Entry) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		out = append(out, evaluate(primary, candidate))
	}
	return out
}

func evaluate(primary, candidate *catalog.Entry) Candidate {
	result := Candidate{Entry: candidate}
	if titlematch.MediaTypeMismatch(primary.Title, candidate.Title, primary.TypeDescription, candidate.TypeDescription,
		episodeCount(primary), episodeCount(candidate)) {
		result.Skipped = "media type mismatch"
		return result
	}
	if titlematch.SeasonMismatch(primary.Title, candidate.Title, primary.TypeDescription, candidate.TypeDescription) &&
		!titlematch.SameSeason(primary.Title, candidate.Title, primary.TypeDescription, candidate.TypeDescription) {
		result.Skipped = "season mismatch"
		return result
	}
	distance, dated := dateDistance(primary.StartDate, candidate.StartDate)
	if dated && distance > maxDateDistance &&
		!titlematch.ExactSeason(primary.Title, candidate.Title, primary.TypeDescription, candidate.TypeDescription) {
		result.Skipped = "start dates too far apart"
		return result
	}

	score := max(
		titlematch.Similarity(primary.Title, candidate.Title),
		titlematch.Similarity(titlematch.StripParentheticals(primary.Title), titlematch.StripParentheticals(candidate.Title)),
	)
	if dated {
		switch {
		case distance <= closeDateWindow:
			score += closeDateBonus
		case primary.StartDate.Year() == candidate.StartDate.Year():
			score += sameYearBonus
		}
	}
	result.Score = score
	return result
}

func episodeCount(entry *catalog.Entry) int {
	if entry.EpisodeCount > 0 {
		return entry.EpisodeCount
	}
	return len(entry.Episodes)
}

func dateDistance(a, b time.Time) (time.Duration, bool) {
	if a.IsZero() || b.IsZero() {
		return 0, false
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d, true
}
