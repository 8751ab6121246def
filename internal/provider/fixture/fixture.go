// Package fixture serves catalog results and comments from JSON documents on
// disk. It backs offline use and end-to-end tests.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"danmu/internal/danmaku"
	"danmu/internal/provider"
	"danmu/internal/services"
	"danmu/internal/titlematch"
)

// Name is the default source tag of this provider.
const Name = "fixture"

const searchThreshold = 0.6

// Document is the on-disk layout of one fixture file.
type Document struct {
	Results  []Result             `json:"results"`
	Comments map[string][]Comment `json:"comments"`
}

// Result is a catalog hit with its episodes inline.
type Result struct {
	ID              string    `json:"id"`
	SecondaryID     string    `json:"secondaryId"`
	Title           string    `json:"title"`
	TypeDescription string    `json:"typeDescription"`
	ImageURL        string    `json:"imageUrl"`
	StartDate       string    `json:"startDate"`
	Rating          float64   `json:"rating"`
	Episodes        []Episode `json:"episodes"`
}

// Episode is one fixture episode.
type Episode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Comment is the raw fixture comment record.
type Comment struct {
	CID   int64   `json:"cid"`
	Time  float64 `json:"time"`
	Mode  int     `json:"mode"`
	Color *int    `json:"color"`
	Text  string  `json:"text"`
}

// Provider serves fixture documents.
type Provider struct {
	name     string
	results  []Result
	byID     map[string]Result
	comments map[string][]Comment
}

var _ provider.Provider = (*Provider)(nil)

// Load reads every *.json document in dir, in name order.
func Load(name, dir string) (*Provider, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "fixture", "load", "directory required", nil)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fixture", "load", "list documents", err)
	}
	sort.Strings(paths)
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fixture", "load", "read "+path, err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fixture", "load", "decode "+path, err)
		}
		docs = append(docs, doc)
	}
	return New(name, docs...), nil
}

// New builds a provider from in-memory documents. Later documents override
// earlier ones on id collisions.
func New(name string, docs ...Document) *Provider {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Name
	}
	p := &Provider{
		name:     name,
		byID:     make(map[string]Result),
		comments: make(map[string][]Comment),
	}
	for _, doc := range docs {
		for _, result := range doc.Results {
			if _, exists := p.byID[result.ID]; !exists {
				p.results = append(p.results, result)
			} else {
				for i := range p.results {
					if p.results[i].ID == result.ID {
						p.results[i] = result
					}
				}
			}
			p.byID[result.ID] = result
		}
		for id, comments := range doc.Comments {
			p.comments[id] = comments
		}
	}
	return p
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return p.name }

// Search returns results whose title contains or closely resembles keyword.
func (p *Provider) Search(ctx context.Context, keyword string) ([]provider.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := titlematch.Normalize(keyword)
	if needle == "" {
		return nil, services.Wrap(services.ErrValidation, p.name, "search", "keyword must not be empty", nil)
	}
	var out []provider.RawResult
	for _, result := range p.results {
		title := titlematch.Normalize(result.Title)
		if !strings.Contains(title, needle) && titlematch.Similarity(result.Title, keyword) < searchThreshold {
			continue
		}
		out = append(out, provider.RawResult{
			ProviderID:      result.ID,
			SecondaryID:     result.SecondaryID,
			Title:           result.Title,
			TypeDescription: result.TypeDescription,
			ImageURL:        result.ImageURL,
			StartDate:       parseDate(result.StartDate),
			EpisodeCount:    len(result.Episodes),
			Rating:          result.Rating,
		})
	}
	return out, nil
}

// GetEpisodes returns the episodes of a result.
func (p *Provider) GetEpisodes(ctx context.Context, id string) ([]provider.RawEpisode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, ok := p.byID[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, p.name, "episodes", fmt.Sprintf("unknown id %q", id), nil)
	}
	out := make([]provider.RawEpisode, 0, len(result.Episodes))
	for _, ep := range result.Episodes {
		out = append(out, provider.RawEpisode{ID: ep.ID, Title: ep.Title})
	}
	return out, nil
}

// GetEpisodeDanmu returns the comments of an episode; unknown episodes have none.
func (p *Provider) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comments := p.comments[episodeID]
	out := make([]provider.RawComment, 0, len(comments))
	for _, comment := range comments {
		out = append(out, comment)
	}
	return out, nil
}

// FormatComments converts Comment records; a missing color means white.
func (p *Provider) FormatComments(raw []provider.RawComment) []danmaku.Raw {
	out := make([]danmaku.Raw, 0, len(raw))
	for _, item := range raw {
		comment, ok := item.(Comment)
		if !ok {
			continue
		}
		color := danmaku.White
		if comment.Color != nil {
			color = *comment.Color
		}
		mode := comment.Mode
		if mode == 0 {
			mode = danmaku.ModeScroll
		}
		out = append(out, danmaku.Raw{
			ID:    comment.CID,
			Time:  comment.Time,
			Mode:  mode,
			Color: color,
			Text:  comment.Text,
		})
	}
	return out
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
