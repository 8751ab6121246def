package alignment

import (
	"regexp"
	"strconv"

	"danmu/internal/textutil"
)

// Special episode kinds.
const (
	KindNone      = ""
	KindOpening   = "opening"
	KindEnding    = "ending"
	KindInterview = "interview"
	KindBloopers  = "bloopers"
)

var (
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`第\s*([0-9]+)\s*[话話集回期]`),
		regexp.MustCompile(`\b(?:ep|episode|e)\s*\.?\s*([0-9]+)\b`),
		regexp.MustCompile(`#\s*([0-9]+)`),
		regexp.MustCompile(`^\s*([0-9]{1,4})\b`),
		regexp.MustCompile(`\b([0-9]{1,3})\b`),
	}
	kindPatterns = []struct {
		kind    string
		pattern *regexp.Regexp
	}{
		{KindOpening, regexp.MustCompile(`\bnc\s*op\b|\bop\b|opening|片头`)},
		{KindEnding, regexp.MustCompile(`\bnc\s*ed\b|\bed\b|ending|片尾`)},
		{KindInterview, regexp.MustCompile(`interview|访谈|采访`)},
		{KindBloopers, regexp.MustCompile(`bloopers?|\bng\b|花絮`)},
	}
	specialPattern  = regexp.MustCompile(`特别篇|番外|总集篇|\bsp\b|\bova\b|\boad\b|special`)
	movieCutPattern = regexp.MustCompile(`剧场版|电影版|\bmovie\b`)
)

type episode struct {
	title     string
	number    int
	hasNumber bool
	kind      string
	special   bool
	movieCut  bool
}

func analyze(titles []string) []episode {
	out := make([]episode, len(titles))
	for i, title := range titles {
		folded := textutil.ToSimplified(textutil.Fold(title))
		ep := episode{title: title}
		ep.number, ep.hasNumber = episodeNumber(folded)
		ep.kind = specialKind(folded)
		ep.special = ep.kind != KindNone || specialPattern.MatchString(folded)
		ep.movieCut = movieCutPattern.MatchString(folded)
		out[i] = ep
	}
	return out
}

// EpisodeNumber extracts the episode number printed in a title.
func EpisodeNumber(title string) (int, bool) {
	return episodeNumber(textutil.Fold(title))
}

func episodeNumber(folded string) (int, bool) {
	for _, pattern := range numberPatterns {
		match := pattern.FindStringSubmatch(folded)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// SpecialKind classifies opening, ending, interview, and blooper episodes.
func SpecialKind(title string) string {
	return specialKind(textutil.ToSimplified(textutil.Fold(title)))
}

func specialKind(folded string) string {
	for _, candidate := range kindPatterns {
		if candidate.pattern.MatchString(folded) {
			return candidate.kind
		}
	}
	return KindNone
}

func minNumber(episodes []episode) (int, bool) {
	found := false
	lowest := 0
	for _, ep := range episodes {
		if !ep.hasNumber {
			continue
		}
		if !found || ep.number < lowest {
			lowest = ep.number
			found = true
		}
	}
	return lowest, found
}
