package api

import (
	"time"

	"danmu/internal/catalog"
	"danmu/internal/danmaku"
)

// Envelope is embedded in every response.
type Envelope struct {
	Success      bool   `json:"success"`
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Episode is the transport form of an episode link.
type Episode struct {
	EpisodeID    int64  `json:"episodeId"`
	EpisodeTitle string `json:"episodeTitle"`
	Locator      string `json:"locator"`
	Label        string `json:"label,omitempty"`
}

// Anime is the transport form of a catalog entry.
type Anime struct {
	AnimeID         int64     `json:"animeId"`
	BangumiID       string    `json:"bangumiId"`
	AnimeTitle      string    `json:"animeTitle"`
	TypeDescription string    `json:"typeDescription"`
	ImageURL        string    `json:"imageUrl"`
	StartDate       string    `json:"startDate,omitempty"`
	EpisodeCount    int       `json:"episodeCount"`
	Rating          float64   `json:"rating"`
	Source          string    `json:"source"`
	Merged          bool      `json:"merged"`
	Episodes        []Episode `json:"episodes,omitempty"`
}

// SearchResponse answers a search.
type SearchResponse struct {
	Envelope
	Animes []Anime `json:"animes"`
}

// BangumiResponse answers an episode listing.
type BangumiResponse struct {
	Envelope
	Bangumi Anime `json:"bangumi"`
}

// CommentResponse answers a comment request.
type CommentResponse struct {
	Count    int               `json:"count"`
	Comments []danmaku.Comment `json:"comments"`
}

// HealthResponse answers /healthz.
type HealthResponse struct {
	Status         string   `json:"status"`
	Providers      []string `json:"providers"`
	CatalogEntries int      `json:"catalogEntries"`
	CachedSearches int      `json:"cachedSearches"`
	CachedComments int      `json:"cachedComments"`
	PendingFetches int      `json:"pendingFetches"`
}

// FromEntry converts a catalog entry. Episodes are included only when
// withEpisodes is set.
func FromEntry(entry *catalog.Entry, withEpisodes bool) Anime {
	if entry == nil {
		return Anime{}
	}
	anime := Anime{
		AnimeID:         entry.ID,
		BangumiID:       entry.SecondaryID,
		AnimeTitle:      entry.Title,
		TypeDescription: entry.TypeDescription,
		ImageURL:        entry.ImageURL,
		EpisodeCount:    entry.EpisodeCount,
		Rating:          entry.Rating,
		Source:          entry.Source,
		Merged:          entry.IsMerged(),
	}
	if !entry.StartDate.IsZero() {
		anime.StartDate = entry.StartDate.UTC().Format(time.RFC3339)
	}
	if withEpisodes {
		anime.Episodes = make([]Episode, 0, len(entry.Episodes))
		for _, link := range entry.Episodes {
			anime.Episodes = append(anime.Episodes, Episode{
				EpisodeID:    link.EpisodeID,
				EpisodeTitle: link.DisplayName,
				Locator:      link.Locator,
				Label:        link.Label,
			})
		}
	}
	return anime
}

// FromEntries converts search results without their episodes.
func FromEntries(entries []*catalog.Entry) []Anime {
	out := make([]Anime, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry, false))
	}
	return out
}
