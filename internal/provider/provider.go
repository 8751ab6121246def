package provider

import (
	"context"
	"strings"
	"time"

	"danmu/internal/danmaku"
)

// RawResult is one catalog hit as reported by a provider.
type RawResult struct {
	ProviderID      string
	SecondaryID     string
	Title           string
	TypeDescription string
	ImageURL        string
	StartDate       time.Time
	EpisodeCount    int
	Rating          float64
}

// RawEpisode is one episode of a catalog hit, in provider order.
type RawEpisode struct {
	ID    string
	Title string
}

// RawComment is a provider-shaped comment record. Only the provider that
// produced it knows its concrete type.
type RawComment = any

// Segment is a time-bounded chunk of an episode's comments.
type Segment struct {
	EpisodeID string
	Index     int
	Start     time.Duration
	End       time.Duration
}

// Provider is the uniform contract of a danmaku source.
type Provider interface {
	Name() string
	Search(ctx context.Context, keyword string) ([]RawResult, error)
	GetEpisodes(ctx context.Context, id string) ([]RawEpisode, error)
	GetEpisodeDanmu(ctx context.Context, episodeID string) ([]RawComment, error)
	FormatComments(raw []RawComment) []danmaku.Raw
}

// SegmentedProvider is implemented by providers whose comments are fetched
// segment by segment.
type SegmentedProvider interface {
	Provider
	GetEpisodeDanmuSegments(ctx context.Context, episodeID string) ([]Segment, error)
	GetEpisodeSegmentDanmu(ctx context.Context, segment Segment) ([]RawComment, error)
}

// Abbreviator is implemented by providers with a short display tag for
// merged episode labels.
type Abbreviator interface {
	Abbreviation() string
}

// Abbreviation returns the label tag for p, falling back to its name.
func Abbreviation(p Provider) string {
	if p == nil {
		return ""
	}
	if a, ok := p.(Abbreviator); ok {
		if abbr := strings.TrimSpace(a.Abbreviation()); abbr != "" {
			return abbr
		}
	}
	return p.Name()
}
