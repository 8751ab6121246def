package titlematch

import (
	"strings"

	"danmu/internal/textutil"
)

// Similarity scores two titles in [0, 1]. Titles that fold to the same
// non-empty string score 1 even when normalization strips them bare, as with
// tag-only or punctuation-only titles. Equal normalized titles score 1;
// a title contained in the other scores between 0.8 and 1 depending on the
// length ratio. Otherwise the larger of the edit-distance score and the Dice
// coefficient is returned.
func Similarity(a, b string) float64 {
	if a != "" && textutil.Fold(a) == textutil.Fold(b) {
		return 1
	}
	return normalizedSimilarity(Normalize(a), Normalize(b))
}

func normalizedSimilarity(na, nb string) float64 {
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	la, lb := textutil.RuneLen(na), textutil.RuneLen(nb)
	shorter, longer := na, nb
	if la > lb {
		shorter, longer = nb, na
		la, lb = lb, la
	}
	if strings.Contains(longer, shorter) {
		return 0.8 + 0.2*float64(la)/float64(lb)
	}
	return max(textutil.EditSimilarity(na, nb), textutil.DiceCoefficient(na, nb))
}
