package engine

import (
	"regexp"
	"strconv"
	"strings"
)

var yearSuffix = regexp.MustCompile(`^(.*?)\s*[(（]\s*((?:19|20)\d{2})\s*[)）]\s*$`)

// ParseKeyword splits an optional trailing "(YYYY)" year filter from a search
// keyword. year is 0 when absent.
func ParseKeyword(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	match := yearSuffix.FindStringSubmatch(raw)
	if match == nil {
		return raw, 0
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return raw, 0
	}
	return strings.TrimSpace(match[1]), year
}
