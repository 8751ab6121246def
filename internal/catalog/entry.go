package catalog

import (
	"hash/fnv"
	"strconv"
	"time"
)

const idMask = 1<<53 - 1

// EpisodeLink is one playable episode of an entry.
type EpisodeLink struct {
	EpisodeID   int64  `json:"episodeId"`
	DisplayName string `json:"episodeTitle"`
	Locator     string `json:"locator"`
	Label       string `json:"label,omitempty"`
}

// Entry is a catalog search result.
type Entry struct {
	ID              int64         `json:"animeId"`
	SecondaryID     string        `json:"bangumiId"`
	Title           string        `json:"animeTitle"`
	TypeDescription string        `json:"typeDescription"`
	ImageURL        string        `json:"imageUrl,omitempty"`
	StartDate       time.Time     `json:"startDate"`
	EpisodeCount    int           `json:"episodeCount"`
	Rating          float64       `json:"rating"`
	Source          string        `json:"source"`
	Episodes        []EpisodeLink `json:"episodes"`
	MergedFrom      []int64       `json:"mergedFrom,omitempty"`
}

// IsMerged reports whether the entry is a merge product.
func (e *Entry) IsMerged() bool {
	return len(e.MergedFrom) > 0
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Episodes = append([]EpisodeLink(nil), e.Episodes...)
	out.MergedFrom = append([]int64(nil), e.MergedFrom...)
	return &out
}

// EntryID derives the id of a provider result.
func EntryID(source, providerID string) int64 {
	return hashID(source, providerID)
}

// MergedID derives the id of a merge product from its components and the
// merge group salt.
func MergedID(primaryID int64, secondaryIDs []int64, salt string) int64 {
	parts := make([]string, 0, len(secondaryIDs)+2)
	parts = append(parts, strconv.FormatInt(primaryID, 10))
	for _, id := range secondaryIDs {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	parts = append(parts, salt)
	return hashID(parts...)
}

// EpisodeID derives the numeric handle of an episode locator.
func EpisodeID(locator string) int64 {
	return hashID("episode", locator)
}

func hashID(parts ...string) int64 {
	h := fnv.New64a()
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	id := int64(h.Sum64() & idMask)
	if id == 0 {
		id = 1
	}
	return id
}
