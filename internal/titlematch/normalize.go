package titlematch

import (
	"regexp"
	"strings"
	"unicode"

	"danmu/internal/textutil"
)

var (
	bracketTagPattern    = regexp.MustCompile(`【[^】]*】`)
	regionOnlyPattern    = regexp.MustCompile(`\((?:仅限|僅限)[^)]*\)|\([^)]*(?:地区|地區)\)`)
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|【[^】]*】|《|》`)
)

// Normalize folds a title into the comparison form used by Similarity.
func Normalize(title string) string {
	folded := textutil.Fold(title)
	folded = bracketTagPattern.ReplaceAllString(folded, " ")
	folded = regionOnlyPattern.ReplaceAllString(folded, " ")
	folded = textutil.ToSimplified(folded)
	return collapse(folded)
}

// StripParentheticals removes parenthesized and bracketed annotations, which
// providers use inconsistently for dubbing, region, and edition notes.
func StripParentheticals(title string) string {
	folded := textutil.Fold(title)
	return strings.TrimSpace(parentheticalPattern.ReplaceAllString(folded, " "))
}

func collapse(value string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, value)
	return strings.Join(strings.Fields(mapped), " ")
}
