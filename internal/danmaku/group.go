package danmaku

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
)

// GroupExact buckets comments by their exact two-decimal timestamp.
const GroupExact = -1

var repeatSuffix = regexp.MustCompile(`\s+x\s*\d+$`)

// Group merges comments with identical text inside the same time bucket.
// groupMinute 0 disables grouping, GroupExact buckets by timestamp, and n > 0
// buckets by n-minute windows. The repeat count is divided by the number of
// sources named in the first comment's render spec, so a merge of two streams
// does not double every count, and is appended as " x N" when above one.
func Group(comments []Comment, groupMinute int) []Comment {
	if len(comments) == 0 {
		return []Comment{}
	}
	if groupMinute == 0 {
		return comments
	}

	type group struct {
		first Comment
		base  string
		count int
	}
	var order []*group
	index := make(map[string]*group, len(comments))
	for _, comment := range comments {
		base := repeatSuffix.ReplaceAllString(comment.M, "")
		key := bucketKey(comment.T, groupMinute) + "\x00" + base
		if g, ok := index[key]; ok {
			g.count++
			continue
		}
		g := &group{first: comment, base: base, count: 1}
		index[key] = g
		order = append(order, g)
	}

	sources := SourceCount(comments[0].P)
	out := make([]Comment, 0, len(order))
	for _, g := range order {
		merged := g.first
		merged.M = g.base
		if display := DisplayCount(g.count, sources); display > 1 {
			merged.M = fmt.Sprintf("%s x %d", g.base, display)
		}
		out = append(out, merged)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].T < out[j].T })
	return out
}

// DisplayCount divides a duplicate count by the source multiplicity, rounding
// half away from zero and never going below one.
func DisplayCount(count, sources int) int {
	if sources <= 0 {
		sources = 1
	}
	return max(1, int(math.Round(float64(count)/float64(sources))))
}

func bucketKey(t float64, groupMinute int) string {
	if groupMinute == GroupExact {
		return strconv.FormatFloat(round2(t), 'f', 2, 64)
	}
	window := float64(groupMinute) * 60
	return strconv.FormatInt(int64(math.Floor(t/window)), 10)
}
