package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var lower = cases.Lower(language.Und)

// Fold converts full-width characters to their narrow forms, applies NFKC
// normalization, and lowercases the result. Invalid input is returned
// lowercased without the width fold.
func Fold(value string) string {
	if value == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(width.Fold, norm.NFKC), value)
	if err != nil {
		return strings.ToLower(value)
	}
	return lower.String(folded)
}
