package titlematch

import "regexp"

// Media kinds returned by Classify.
const (
	MediaUnknown = ""
	MediaMovie   = "MOVIE"
	MediaTV      = "TV"
)

var tvTypePattern = regexp.MustCompile(`tv|电视|番剧|连续剧|剧集|动画|\bseries\b|\banime\b`)

// Classify returns MediaMovie or MediaTV when the title and type description
// point one way only, and MediaUnknown otherwise.
func Classify(title, typeDescription string) string {
	markers := ExtractSeasonMarkers(title, typeDescription)
	movie := markers.Has(MarkerMovie)
	tv := len(markers.Seasons()) > 0 || tvTypePattern.MatchString(prepare(typeDescription))
	switch {
	case movie && !tv:
		return MediaMovie
	case tv && !movie:
		return MediaTV
	default:
		return MediaUnknown
	}
}

// MediaTypeMismatch reports whether one side is clearly a movie and the other
// clearly a series. Known episode counts within five of each other override
// the classification, which keeps a single-entry movie cut matchable against
// a short series.
func MediaTypeMismatch(titleA, titleB, typeA, typeB string, countA, countB int) bool {
	kindA := Classify(titleA, typeA)
	kindB := Classify(titleB, typeB)
	if kindA == MediaUnknown || kindB == MediaUnknown || kindA == kindB {
		return false
	}
	if countA > 0 && countB > 0 && abs(countA-countB) <= 5 {
		return false
	}
	return true
}

// SeasonMismatch reports whether the marker sets of two titles rule out the
// same season. One side carrying markers while the other has none counts as
// a mismatch.
func SeasonMismatch(titleA, titleB, typeA, typeB string) bool {
	a := ExtractSeasonMarkers(titleA, typeA)
	b := ExtractSeasonMarkers(titleB, typeB)
	if len(a) == 0 && len(b) == 0 {
		return false
	}
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	seasonsA, seasonsB := a.Seasons(), b.Seasons()
	switch {
	case len(seasonsA) > 0 && len(seasonsB) > 0:
		return !seasonsA.Intersects(seasonsB)
	case len(seasonsA) > 0 || len(seasonsB) > 0:
		return true
	default:
		return !a.Types().Intersects(b.Types())
	}
}

// SameSeason reports whether both titles carry season numbers and share one.
func SameSeason(titleA, titleB, typeA, typeB string) bool {
	a := ExtractSeasonMarkers(titleA, typeA).Seasons()
	b := ExtractSeasonMarkers(titleB, typeB).Seasons()
	return len(a) > 0 && len(b) > 0 && a.Intersects(b)
}

// ExactSeason reports whether both titles carry the same non-empty set of
// season numbers.
func ExactSeason(titleA, titleB, typeA, typeB string) bool {
	a := ExtractSeasonMarkers(titleA, typeA).Seasons()
	b := ExtractSeasonMarkers(titleB, typeB).Seasons()
	return len(a) > 0 && a.Equal(b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
