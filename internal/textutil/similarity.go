package textutil

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// EditSimilarity returns 1 - distance/maxLen over runes. Two empty strings
// are identical; one empty string scores 0.
func EditSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// DiceCoefficient compares the rune sets of a and b, ignoring spaces.
func DiceCoefficient(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func runeSet(value string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(value))
	for _, r := range value {
		if r == ' ' {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

// RuneLen reports the number of runes in value.
func RuneLen(value string) int {
	return utf8.RuneCountInString(value)
}
