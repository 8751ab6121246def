// Package dandan adapts a dandanplay-compatible JSON API to the provider
// contract.
package dandan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"danmu/internal/danmaku"
	"danmu/internal/provider"
	"danmu/internal/services"
)

// Name is the source tag of this provider.
const Name = "dandan"

// Anime is one search hit.
type Anime struct {
	AnimeID         int64   `json:"animeId"`
	BangumiID       string  `json:"bangumiId"`
	AnimeTitle      string  `json:"animeTitle"`
	Type            string  `json:"type"`
	TypeDescription string  `json:"typeDescription"`
	ImageURL        string  `json:"imageUrl"`
	StartDate       string  `json:"startDate"`
	EpisodeCount    int     `json:"episodeCount"`
	Rating          float64 `json:"rating"`
}

// Episode is one episode of a bangumi.
type Episode struct {
	EpisodeID    int64  `json:"episodeId"`
	EpisodeTitle string `json:"episodeTitle"`
}

// Comment is the raw comment record. P is "time,mode,color,user".
type Comment struct {
	CID int64  `json:"cid"`
	P   string `json:"p"`
	M   string `json:"m"`
}

type envelope struct {
	Success      *bool  `json:"success"`
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type searchResponse struct {
	envelope
	Animes []Anime `json:"animes"`
}

type bangumiResponse struct {
	envelope
	Bangumi struct {
		Episodes []Episode `json:"episodes"`
	} `json:"bangumi"`
}

type commentResponse struct {
	Count    int       `json:"count"`
	Comments []Comment `json:"comments"`
}

// Client provides access to a dandanplay-compatible API.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
}

var (
	_ provider.Provider    = (*Client)(nil)
	_ provider.Abbreviator = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCredentials sets the application credentials sent with each request.
func WithCredentials(appID, appSecret string) Option {
	return func(c *Client) {
		c.appID = strings.TrimSpace(appID)
		c.appSecret = strings.TrimSpace(appSecret)
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a dandanplay client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("dandan base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Abbreviation implements provider.Abbreviator.
func (c *Client) Abbreviation() string { return "弹" }

// Search queries the anime search endpoint.
func (c *Client) Search(ctx context.Context, keyword string) ([]provider.RawResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "search", "keyword must not be empty", nil)
	}
	params := url.Values{}
	params.Set("keyword", keyword)

	var payload searchResponse
	if err := c.get(ctx, "search", "/api/v2/search/anime", params, &payload); err != nil {
		return nil, err
	}
	if err := payload.check("search"); err != nil {
		return nil, err
	}

	results := make([]provider.RawResult, 0, len(payload.Animes))
	for _, anime := range payload.Animes {
		results = append(results, provider.RawResult{
			ProviderID:      strconv.FormatInt(anime.AnimeID, 10),
			SecondaryID:     anime.BangumiID,
			Title:           anime.AnimeTitle,
			TypeDescription: anime.TypeDescription,
			ImageURL:        anime.ImageURL,
			StartDate:       parseDate(anime.StartDate),
			EpisodeCount:    anime.EpisodeCount,
			Rating:          anime.Rating,
		})
	}
	return results, nil
}

// GetEpisodes lists the episodes of a bangumi.
func (c *Client) GetEpisodes(ctx context.Context, id string) ([]provider.RawEpisode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "episodes", "id must not be empty", nil)
	}
	var payload bangumiResponse
	if err := c.get(ctx, "episodes", "/api/v2/bangumi/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, err
	}
	if err := payload.check("episodes"); err != nil {
		return nil, err
	}
	episodes := make([]provider.RawEpisode, 0, len(payload.Bangumi.Episodes))
	for _, ep := range payload.Bangumi.Episodes {
		episodes = append(episodes, provider.RawEpisode{
			ID:    strconv.FormatInt(ep.EpisodeID, 10),
			Title: ep.EpisodeTitle,
		})
	}
	return episodes, nil
}

// GetEpisodeDanmu fetches every comment of an episode, related sources included.
func (c *Client) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "comments", "episode id must not be empty", nil)
	}
	params := url.Values{}
	params.Set("withRelated", "true")
	params.Set("chConvert", "0")

	var payload commentResponse
	if err := c.get(ctx, "comments", "/api/v2/comment/"+url.PathEscape(episodeID), params, &payload); err != nil {
		return nil, err
	}
	out := make([]provider.RawComment, 0, len(payload.Comments))
	for _, comment := range payload.Comments {
		out = append(out, comment)
	}
	return out, nil
}

// FormatComments converts Comment records; anything else is dropped.
func (c *Client) FormatComments(raw []provider.RawComment) []danmaku.Raw {
	out := make([]danmaku.Raw, 0, len(raw))
	for _, item := range raw {
		comment, ok := item.(Comment)
		if !ok {
			continue
		}
		fields := strings.Split(comment.P, ",")
		if len(fields) < 3 {
			continue
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}
		mode, _ := strconv.Atoi(strings.TrimSpace(fields[1]))
		color, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			color = danmaku.White
		}
		out = append(out, danmaku.Raw{
			ID:    comment.CID,
			Time:  t,
			Mode:  mode,
			Color: color,
			Text:  comment.M,
		})
	}
	return out
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, target any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, Name, operation, "parse url", err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appID != "" {
		req.Header.Set("X-AppId", c.appID)
		req.Header.Set("X-AppSecret", c.appSecret)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if services.IsCancellation(err) {
			return err
		}
		return services.Wrap(services.ErrProvider, Name, operation, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, Name, operation, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return services.Wrap(services.ErrProvider, Name, operation, fmt.Sprintf("upstream returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return services.Wrap(services.ErrProvider, Name, operation, "decode response", err)
	}
	return nil
}

func (e envelope) check(operation string) error {
	if e.Success != nil && !*e.Success {
		return services.Wrap(services.ErrProvider, Name, operation,
			fmt.Sprintf("upstream error %d: %s", e.ErrorCode, strings.TrimSpace(e.ErrorMessage)), nil)
	}
	return nil
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
