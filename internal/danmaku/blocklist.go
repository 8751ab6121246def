package danmaku

import (
	"regexp"
	"strings"
)

// ParseBlocklist splits a comma-separated blocklist. Entries wrapped in
// slashes are regular expressions and may contain commas; other entries,
// including ones with an unclosed leading slash, match literally. Invalid expressions are returned separately and skipped.
func ParseBlocklist(raw string) ([]*regexp.Regexp, []string) {
	var (
		patterns []*regexp.Regexp
		invalid  []string
	)
	for _, entry := range splitBlocklist(raw) {
		if isRegexEntry(entry) {
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				invalid = append(invalid, entry)
				continue
			}
			patterns = append(patterns, re)
			continue
		}
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(entry)))
	}
	return patterns, invalid
}

func splitBlocklist(raw string) []string {
	pieces := strings.Split(raw, ",")
	entries := make([]string, 0, len(pieces))
	for i := 0; i < len(pieces); i++ {
		entry := strings.TrimSpace(pieces[i])
		if strings.HasPrefix(entry, "/") && !isRegexEntry(entry) {
			// Rejoin a pattern split on its own commas; a slash that never
			// closes leaves the entry as a literal.
			joined := entry
			for j := i + 1; j < len(pieces); j++ {
				joined = strings.TrimRight(joined+","+pieces[j], " \t")
				if isRegexEntry(joined) {
					entry, i = joined, j
					break
				}
			}
		}
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}

func isRegexEntry(entry string) bool {
	return len(entry) >= 3 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/")
}

// Filter drops comments whose text matches any pattern.
func Filter(comments []Comment, patterns []*regexp.Regexp) []Comment {
	if len(patterns) == 0 {
		return comments
	}
	out := make([]Comment, 0, len(comments))
	for _, comment := range comments {
		if matchesAny(comment.M, patterns) {
			continue
		}
		out = append(out, comment)
	}
	return out
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
