// Package bilibili adapts the bilibili bangumi search and its segmented
// protobuf comment feed to the provider contract.
package bilibili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"danmu/internal/danmaku"
	"danmu/internal/provider"
	"danmu/internal/services"
)

// Name is the source tag of this provider.
const Name = "bilibili"

// SegmentLength is the span of one comment segment.
const SegmentLength = 6 * time.Minute

var highlightTags = regexp.MustCompile(`<[^>]+>`)

type searchResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Result []struct {
			SeasonID       int64  `json:"season_id"`
			MediaID        int64  `json:"media_id"`
			Title          string `json:"title"`
			SeasonTypeName string `json:"season_type_name"`
			Cover          string `json:"cover"`
			PubTime        int64  `json:"pubtime"`
			EpSize         int    `json:"ep_size"`
			MediaScore     struct {
				Score float64 `json:"score"`
			} `json:"media_score"`
		} `json:"result"`
	} `json:"data"`
}

type seasonResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Episodes []struct {
			CID       int64  `json:"cid"`
			Title     string `json:"title"`
			LongTitle string `json:"long_title"`
		} `json:"episodes"`
	} `json:"result"`
}

// Client provides access to the bilibili web APIs.
type Client struct {
	baseURL    string
	commentURL string
	cookie     string
	httpClient *http.Client
}

var (
	_ provider.SegmentedProvider = (*Client)(nil)
	_ provider.Abbreviator       = (*Client)(nil)
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

// WithCookie sets the session cookie some endpoints require.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = strings.TrimSpace(cookie)
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

// New creates a bilibili client. commentURL points at the segment endpoint.
func New(baseURL, commentURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("bilibili base url required")
	}
	commentURL = strings.TrimSpace(commentURL)
	if commentURL == "" {
		return nil, errors.New("bilibili comment url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		commentURL: commentURL,
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
func (c *Client) Abbreviation() string { return "B" }

// Search queries the bangumi search endpoint.
func (c *Client) Search(ctx context.Context, keyword string) ([]provider.RawResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "search", "keyword must not be empty", nil)
	}
	params := url.Values{}
	params.Set("search_type", "media_bangumi")
	params.Set("keyword", keyword)

	body, err := c.fetch(ctx, "search", c.baseURL+"/x/web-interface/search/type", params)
	if err != nil {
		return nil, err
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrProvider, Name, "search", "decode response", err)
	}
	if payload.Code != 0 {
		return nil, services.Wrap(services.ErrProvider, Name, "search", fmt.Sprintf("upstream error %d: %s", payload.Code, payload.Message), nil)
	}

	results := make([]provider.RawResult, 0, len(payload.Data.Result))
	for _, item := range payload.Data.Result {
		var start time.Time
		if item.PubTime > 0 {
			start = time.Unix(item.PubTime, 0).UTC()
		}
		results = append(results, provider.RawResult{
			ProviderID:      strconv.FormatInt(item.SeasonID, 10),
			SecondaryID:     strconv.FormatInt(item.MediaID, 10),
			Title:           highlightTags.ReplaceAllString(item.Title, ""),
			TypeDescription: item.SeasonTypeName,
			ImageURL:        item.Cover,
			StartDate:       start,
			EpisodeCount:    item.EpSize,
			Rating:          item.MediaScore.Score,
		})
	}
	return results, nil
}

// GetEpisodes lists the episodes of a season. Episode ids are comment cids.
func (c *Client) GetEpisodes(ctx context.Context, id string) ([]provider.RawEpisode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "episodes", "id must not be empty", nil)
	}
	params := url.Values{}
	params.Set("season_id", id)
	body, err := c.fetch(ctx, "episodes", c.baseURL+"/pgc/view/web/season", params)
	if err != nil {
		return nil, err
	}
	var payload seasonResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrProvider, Name, "episodes", "decode response", err)
	}
	if payload.Code != 0 {
		return nil, services.Wrap(services.ErrProvider, Name, "episodes", fmt.Sprintf("upstream error %d: %s", payload.Code, payload.Message), nil)
	}
	episodes := make([]provider.RawEpisode, 0, len(payload.Result.Episodes))
	for _, ep := range payload.Result.Episodes {
		title := strings.TrimSpace(ep.Title)
		if _, err := strconv.Atoi(title); err == nil {
			title = "第" + title + "话"
		}
		if long := strings.TrimSpace(ep.LongTitle); long != "" {
			title = strings.TrimSpace(title + " " + long)
		}
		episodes = append(episodes, provider.RawEpisode{ID: strconv.FormatInt(ep.CID, 10), Title: title})
	}
	return episodes, nil
}

// GetEpisodeDanmuSegments reads the segment count from the comment view
// endpoint.
func (c *Client) GetEpisodeDanmuSegments(ctx context.Context, episodeID string) ([]provider.Segment, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "segments", "episode id must not be empty", nil)
	}
	params := url.Values{}
	params.Set("type", "1")
	params.Set("oid", episodeID)
	body, err := c.fetch(ctx, "segments", c.baseURL+"/x/v2/dm/web/view", params)
	if err != nil {
		return nil, err
	}
	total, err := DecodeSegmentTotal(body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, Name, "segments", "decode view", err)
	}
	if total <= 0 {
		total = 1
	}
	segments := make([]provider.Segment, 0, total)
	for i := range total {
		segments = append(segments, provider.Segment{
			EpisodeID: episodeID,
			Index:     i + 1,
			Start:     time.Duration(i) * SegmentLength,
			End:       time.Duration(i+1) * SegmentLength,
		})
	}
	return segments, nil
}

// GetEpisodeSegmentDanmu downloads and decodes one comment segment.
func (c *Client) GetEpisodeSegmentDanmu(ctx context.Context, segment provider.Segment) ([]provider.RawComment, error) {
	params := url.Values{}
	params.Set("type", "1")
	params.Set("oid", segment.EpisodeID)
	params.Set("segment_index", strconv.Itoa(segment.Index))
	body, err := c.fetch(ctx, "segment", c.commentURL, params)
	if err != nil {
		return nil, err
	}
	elems, err := DecodeSegment(body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, Name, "segment", "decode segment", err)
	}
	out := make([]provider.RawComment, 0, len(elems))
	for _, elem := range elems {
		out = append(out, elem)
	}
	return out, nil
}

// GetEpisodeDanmu fetches every segment sequentially.
func (c *Client) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	segments, err := c.GetEpisodeDanmuSegments(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	var out []provider.RawComment
	for _, segment := range segments {
		raw, err := c.GetEpisodeSegmentDanmu(ctx, segment)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
	}
	return out, nil
}

// FormatComments converts Elem records; anything else is dropped.
func (c *Client) FormatComments(raw []provider.RawComment) []danmaku.Raw {
	out := make([]danmaku.Raw, 0, len(raw))
	for _, item := range raw {
		elem, ok := item.(Elem)
		if !ok || strings.TrimSpace(elem.Content) == "" {
			continue
		}
		out = append(out, danmaku.Raw{
			ID:    elem.ID,
			Time:  float64(elem.ProgressMS) / 1000,
			Mode:  int(elem.Mode),
			Color: int(elem.Color),
			Text:  elem.Content,
		})
	}
	return out
}

func (c *Client) fetch(ctx context.Context, operation, rawURL string, params url.Values) ([]byte, error) {
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, Name, operation, "parse url", err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Referer", "https://www.bilibili.com/")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if services.IsCancellation(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrProvider, Name, operation, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrProvider, Name, operation, fmt.Sprintf("upstream returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, Name, operation, "read body", err)
	}
	return body, nil
}
