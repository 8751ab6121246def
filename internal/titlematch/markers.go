package titlematch

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"danmu/internal/textutil"
)

// Marker tokens.
const (
	MarkerMovie       = "MOVIE"
	MarkerOVA         = "OVA"
	MarkerSpecial     = "SP"
	MarkerSequel      = "SEQUEL"
	MarkerVariety     = "VARIETY"
	MarkerDocumentary = "DOCUMENTARY"
	MarkerFinal       = "SFINAL"
)

// Markers is a set of normalized season, part, and special tokens.
type Markers map[string]struct{}

func (m Markers) add(token string) {
	if token == "S1" {
		return
	}
	m[token] = struct{}{}
}

// Has reports whether token is present.
func (m Markers) Has(token string) bool {
	_, ok := m[token]
	return ok
}

// Seasons returns the season-number tokens (S<n> and SFINAL).
func (m Markers) Seasons() Markers {
	out := Markers{}
	for token := range m {
		if isSeasonToken(token) {
			out[token] = struct{}{}
		}
	}
	return out
}

// Types returns every token that is not a season number.
func (m Markers) Types() Markers {
	out := Markers{}
	for token := range m {
		if !isSeasonToken(token) {
			out[token] = struct{}{}
		}
	}
	return out
}

// Intersects reports whether the sets share a token.
func (m Markers) Intersects(other Markers) bool {
	for token := range m {
		if _, ok := other[token]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether both sets contain the same tokens.
func (m Markers) Equal(other Markers) bool {
	if len(m) != len(other) {
		return false
	}
	for token := range m {
		if _, ok := other[token]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the tokens in lexical order.
func (m Markers) Sorted() []string {
	out := make([]string, 0, len(m))
	for token := range m {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

func (m Markers) String() string {
	return "{" + strings.Join(m.Sorted(), ",") + "}"
}

func isSeasonToken(token string) bool {
	if token == MarkerFinal {
		return true
	}
	if len(token) < 2 || token[0] != 'S' {
		return false
	}
	_, err := strconv.Atoi(token[1:])
	return err == nil
}

const cjkDigits = "零一二三四五六七八九十"

var (
	cjkSeasonPattern     = regexp.MustCompile(`第\s*([0-9]+|[零一二三四五六七八九十]+)\s*(?:季|期|部(?:$|[^分]))`)
	seasonWordPattern    = regexp.MustCompile(`season\s*([0-9]+)`)
	ordinalSeasonPattern = regexp.MustCompile(`([0-9]+)\s*(?:st|nd|rd|th)\s*season`)
	seasonPartPattern    = regexp.MustCompile(`\bs([0-9]{1,2})\s*p([0-9]{1,2})\b`)
	shortSeasonPattern   = regexp.MustCompile(`\bs([0-9]{1,2})\b`)
	partPattern          = regexp.MustCompile(`\bpart\s*([0-9]+)\b|第\s*([0-9]+|[一二三四五六七八九十]+)\s*(?:部分|篇章)`)
	romanPattern         = regexp.MustCompile(`\b(ii|iii|iv|v)\b`)
	trailingPattern      = regexp.MustCompile(`\p{Han}\s*([2-9])$`)
	finalPattern         = regexp.MustCompile(`final\s*season|the\s*final|最终季|最终章|完结篇`)
	moviePattern         = regexp.MustCompile(`剧场版|电影版|\bthe\s*movie\b|\bmovie\b`)
	ovaPattern           = regexp.MustCompile(`\bova\b|\boad\b`)
	specialPattern       = regexp.MustCompile(`\bsp\b|\bspecials?\b|特别篇|番外`)
	sequelPattern        = regexp.MustCompile(`续篇|续集|\bsequel\b`)
	typeMoviePattern     = regexp.MustCompile(`电影|剧场版|\bmovie\b|\bfilm\b`)
	typeVarietyPattern   = regexp.MustCompile(`综艺|\bvariety\b`)
	typeDocPattern       = regexp.MustCompile(`纪录片|\bdocumentary\b`)
)

var romanSeasons = map[string]int{"ii": 2, "iii": 3, "iv": 4, "v": 5}

// ExtractSeasonMarkers derives the marker set for a title and its provider
// type description. Season one is implicit and never reported.
func ExtractSeasonMarkers(title, typeDescription string) Markers {
	markers := Markers{}
	text := prepare(title)

	for _, match := range seasonPartPattern.FindAllStringSubmatch(text, -1) {
		addNumbered(markers, "S", match[1])
		addNumbered(markers, "P", match[2])
	}
	for _, pattern := range []*regexp.Regexp{cjkSeasonPattern, seasonWordPattern, ordinalSeasonPattern, shortSeasonPattern} {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			addNumbered(markers, "S", match[1])
		}
	}
	for _, match := range partPattern.FindAllStringSubmatch(text, -1) {
		value := match[1]
		if value == "" {
			value = match[2]
		}
		addNumbered(markers, "P", value)
	}
	for _, match := range romanPattern.FindAllStringSubmatch(text, -1) {
		markers.add("S" + strconv.Itoa(romanSeasons[match[1]]))
	}
	if match := trailingPattern.FindStringSubmatch(text); match != nil && len(markers.Seasons()) == 0 {
		addNumbered(markers, "S", match[1])
	}
	if finalPattern.MatchString(text) {
		markers.add(MarkerFinal)
	}
	if moviePattern.MatchString(text) {
		markers.add(MarkerMovie)
	}
	if ovaPattern.MatchString(text) {
		markers.add(MarkerOVA)
	}
	if specialPattern.MatchString(text) {
		markers.add(MarkerSpecial)
	}
	if sequelPattern.MatchString(text) {
		markers.add(MarkerSequel)
	}

	kind := prepare(typeDescription)
	if kind != "" {
		if typeMoviePattern.MatchString(kind) {
			markers.add(MarkerMovie)
		}
		if typeVarietyPattern.MatchString(kind) {
			markers.add(MarkerVariety)
		}
		if typeDocPattern.MatchString(kind) {
			markers.add(MarkerDocumentary)
		}
	}
	return markers
}

func prepare(value string) string {
	return strings.TrimSpace(textutil.ToSimplified(textutil.Fold(value)))
}

func addNumbered(markers Markers, prefix, raw string) {
	n, ok := parseNumber(raw)
	if !ok || n <= 0 {
		return
	}
	markers.add(prefix + strconv.Itoa(n))
}

func parseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	return parseCJKNumber(raw)
}

// parseCJKNumber handles 一 through 九十九.
func parseCJKNumber(raw string) (int, bool) {
	runes := []rune(raw)
	digit := func(r rune) int {
		return strings.IndexRune(cjkDigits, r) / len("一")
	}
	for _, r := range runes {
		if !strings.ContainsRune(cjkDigits, r) {
			return 0, false
		}
	}
	switch len(runes) {
	case 1:
		return digit(runes[0]), true
	case 2:
		if runes[0] == '十' {
			return 10 + digit(runes[1]), true
		}
		if runes[1] == '十' {
			return digit(runes[0]) * 10, true
		}
	case 3:
		if runes[1] == '十' {
			return digit(runes[0])*10 + digit(runes[2]), true
		}
	}
	return 0, false
}
