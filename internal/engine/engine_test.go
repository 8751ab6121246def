package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"danmu/internal/config"
	"danmu/internal/danmaku"
	"danmu/internal/engine"
	"danmu/internal/kvstore"
	"danmu/internal/locator"
	"danmu/internal/provider"
	"danmu/internal/provider/fixture"
	"danmu/internal/services"
)

type countingProvider struct {
	provider.Provider
	searches atomic.Int32
	fetches  atomic.Int32
}

func (c *countingProvider) Search(ctx context.Context, keyword string) ([]provider.RawResult, error) {
	c.searches.Add(1)
	return c.Provider.Search(ctx, keyword)
}

func (c *countingProvider) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	c.fetches.Add(1)
	return c.Provider.GetEpisodeDanmu(ctx, episodeID)
}

type failingProvider struct{ provider.Provider }

func (failingProvider) Name() string { return "broken" }

func (failingProvider) Search(context.Context, string) ([]provider.RawResult, error) {
	return nil, errors.New("upstream down")
}

type flakyProvider struct {
	provider.Provider
	down atomic.Bool
}

func (f *flakyProvider) GetEpisodeDanmu(ctx context.Context, episodeID string) ([]provider.RawComment, error) {
	if f.down.Load() {
		return nil, errors.New("upstream down")
	}
	return f.Provider.GetEpisodeDanmu(ctx, episodeID)
}

func white() *int {
	v := danmaku.White
	return &v
}

func alphaDoc() fixture.Document {
	return fixture.Document{
		Results: []fixture.Result{
			{ID: "a1", Title: "Show", TypeDescription: "TV动画", StartDate: "2020-04-01", Episodes: []fixture.Episode{
				{ID: "101", Title: "第1话 出发"},
				{ID: "102", Title: "第2话 相遇"},
				{ID: "103", Title: "第3话 黄昏"},
			}},
			{ID: "a2", Title: "Show", TypeDescription: "TV动画", StartDate: "2015-01-10", Episodes: []fixture.Episode{
				{ID: "901", Title: "第1话 旧作"},
			}},
		},
		Comments: map[string][]fixture.Comment{
			"101": {
				{CID: 1, Time: 10.0, Mode: 1, Color: white(), Text: "同步"},
				{CID: 2, Time: 3.0, Mode: 1, Color: white(), Text: "开场"},
			},
		},
	}
}

func betaDoc() fixture.Document {
	return fixture.Document{
		Results: []fixture.Result{
			{ID: "b1", Title: "Show", TypeDescription: "TV动画", StartDate: "2020-04-03", Episodes: []fixture.Episode{
				{ID: "200", Title: "特典映像A"},
				{ID: "201", Title: "第1话 出发"},
				{ID: "202", Title: "第2话 相遇"},
			}},
		},
		Comments: map[string][]fixture.Comment{
			"201": {
				{CID: 3, Time: 10.0, Mode: 1, Color: white(), Text: "同步"},
				{CID: 4, Time: 20.0, Mode: 1, Color: white(), Text: "结尾"},
			},
		},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Paths.DataDir = ""
	cfg.Paths.LogDir = ""
	cfg.Cache.Backend = "memory"
	cfg.Providers.Enabled = []string{"alpha", "beta"}
	cfg.Merge.Groups = "alpha&beta"
	cfg.Danmaku.GroupMinute = danmaku.GroupExact
	return &cfg
}

func newEngine(t *testing.T, cfg *config.Config, providers ...provider.Provider) *engine.Engine {
	t.Helper()
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	eng, err := engine.New(cfg, registry)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func TestSearchMergesAlignsAndDedupsComments(t *testing.T) {
	alpha := &countingProvider{Provider: fixture.New("alpha", alphaDoc())}
	beta := &countingProvider{Provider: fixture.New("beta", betaDoc())}
	eng := newEngine(t, testConfig(), alpha, beta)
	ctx := context.Background()

	results, err := eng.Search(ctx, "Show(2020)")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one merged entry, got %d: %+v", len(results), results)
	}
	merged := results[0]
	if !merged.IsMerged() || merged.Source != "alpha&beta" {
		t.Fatalf("expected merged alpha&beta entry, got %+v", merged)
	}
	if len(merged.Episodes) != 3 {
		t.Fatalf("expected 3 episode links, got %d", len(merged.Episodes))
	}
	wantLocators := []string{
		"alpha:101$$$beta:201",
		"alpha:102$$$beta:202",
		"alpha:103",
	}
	for i, link := range merged.Episodes {
		if link.Locator != wantLocators[i] {
			t.Fatalf("episode %d locator = %q, want %q", i, link.Locator, wantLocators[i])
		}
		if link.EpisodeID == 0 {
			t.Fatalf("episode %d has no handle", i)
		}
	}

	comments, err := eng.CommentsByEpisodeID(ctx, merged.Episodes[0].EpisodeID)
	if err != nil {
		t.Fatalf("CommentsByEpisodeID: %v", err)
	}
	wantText := []string{"开场", "同步", "结尾"}
	if len(comments) != len(wantText) {
		t.Fatalf("expected %d comments, got %+v", len(wantText), comments)
	}
	for i, comment := range comments {
		if comment.M != wantText[i] {
			t.Fatalf("comment %d = %q, want %q", i, comment.M, wantText[i])
		}
		if !strings.HasSuffix(comment.P, "[alpha&beta]") {
			t.Fatalf("comment %d render spec %q lacks merged tag", i, comment.P)
		}
		if i > 0 && comments[i-1].T > comment.T {
			t.Fatalf("comments not sorted: %+v", comments)
		}
	}

	fetches := alpha.fetches.Load() + beta.fetches.Load()
	if _, err := eng.CommentsByLocator(ctx, wantLocators[0]); err != nil {
		t.Fatalf("CommentsByLocator: %v", err)
	}
	if got := alpha.fetches.Load() + beta.fetches.Load(); got != fetches {
		t.Fatalf("expected cached comments, upstream fetches went %d -> %d", fetches, got)
	}

	if _, err := eng.Search(ctx, "show (2020)"); err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if alpha.searches.Load() != 1 {
		t.Fatalf("expected cached search, alpha searched %d times", alpha.searches.Load())
	}

	entry, err := eng.Episodes(ctx, merged.ID)
	if err != nil || entry.Title != "Show [alpha&beta]" {
		t.Fatalf("Episodes = %+v, %v", entry, err)
	}
	stats := eng.Stats()
	if stats.CatalogEntries != 1 || stats.CachedSearches != 1 || stats.CachedComments != 1 || stats.PendingFetches != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	eng.Purge()
	if _, err := eng.Episodes(ctx, merged.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected purge to drop catalog, got %v", err)
	}
}

func TestSearchWithoutYearKeepsAllAndIsolatesFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Merge.Groups = ""
	eng := newEngine(t, cfg, fixture.New("alpha", alphaDoc()), failingProvider{})

	results, err := eng.Search(context.Background(), "Show")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both alpha results despite broken provider, got %d", len(results))
	}
	for _, entry := range results {
		if entry.IsMerged() || entry.Source != "alpha" {
			t.Fatalf("unexpected entry %+v", entry)
		}
		for _, link := range entry.Episodes {
			if locator.IsCompound(link.Locator) || !strings.HasPrefix(link.Locator, "alpha:") {
				t.Fatalf("unexpected locator %q", link.Locator)
			}
		}
	}
}

func TestErrorsAreClassified(t *testing.T) {
	eng := newEngine(t, testConfig(), fixture.New("alpha", alphaDoc()))
	ctx := context.Background()
	if _, err := eng.Search(ctx, " (2020) "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := eng.Episodes(ctx, 42); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := eng.CommentsByEpisodeID(ctx, 42); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := eng.CommentsByLocator(ctx, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := eng.CommentsByLocator(ctx, "nosuch:1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown source, got %v", err)
	}
}

func TestCachePersistsThroughStore(t *testing.T) {
	store := kvstore.NewMemory()
	registry, err := provider.NewRegistry(fixture.New("alpha", alphaDoc()))
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	first, err := engine.New(cfg, registry, engine.WithStore(store))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.CommentsByLocator(context.Background(), "alpha:101"); err != nil {
		t.Fatalf("CommentsByLocator: %v", err)
	}
	if n, _ := store.Count(context.Background()); n != 1 {
		t.Fatalf("expected one persisted entry, got %d", n)
	}

	counting := &countingProvider{Provider: fixture.New("alpha", alphaDoc())}
	second := newEngineWithStore(t, cfg, store, counting)
	comments, err := second.CommentsByLocator(context.Background(), "alpha:101")
	if err != nil || len(comments) != 2 {
		t.Fatalf("expected persisted comments, got %v %v", comments, err)
	}
	if counting.fetches.Load() != 0 {
		t.Fatal("expected comments served from the persisted cache")
	}
}

func TestCacheExpiresWithClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	counting := &countingProvider{Provider: fixture.New("alpha", alphaDoc())}
	registry, _ := provider.NewRegistry(counting)
	eng, err := engine.New(testConfig(), registry, engine.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := eng.CommentsByLocator(ctx, "alpha:101"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(4 * time.Minute)
	if _, err := eng.CommentsByLocator(ctx, "alpha:101"); err != nil {
		t.Fatal(err)
	}
	if counting.fetches.Load() != 1 {
		t.Fatalf("expected cache hit inside TTL, got %d fetches", counting.fetches.Load())
	}
	now = now.Add(2 * time.Minute)
	if _, err := eng.CommentsByLocator(ctx, "alpha:101"); err != nil {
		t.Fatal(err)
	}
	if counting.fetches.Load() != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", counting.fetches.Load())
	}
}

func TestPartialCommentStreamIsNotCached(t *testing.T) {
	beta := &flakyProvider{Provider: fixture.New("beta", betaDoc())}
	beta.down.Store(true)
	counting := &countingProvider{Provider: fixture.New("alpha", alphaDoc())}
	eng := newEngine(t, testConfig(), counting, beta)
	ctx := context.Background()
	loc := locator.Append("alpha:101", "alpha", locator.Part{Source: "beta", ID: "201"})

	partial, err := eng.CommentsByLocator(ctx, loc)
	if err != nil || len(partial) != 2 {
		t.Fatalf("expected alpha comments only, got %v %v", partial, err)
	}
	beta.down.Store(false)
	full, err := eng.CommentsByLocator(ctx, loc)
	if err != nil {
		t.Fatalf("CommentsByLocator: %v", err)
	}
	if len(full) != 3 {
		t.Fatalf("expected recovered part merged in, got %d comments", len(full))
	}
	if counting.fetches.Load() != 2 {
		t.Fatalf("expected refetch after partial result, got %d fetches", counting.fetches.Load())
	}
	if _, err := eng.CommentsByLocator(ctx, loc); err != nil {
		t.Fatal(err)
	}
	if counting.fetches.Load() != 2 {
		t.Fatalf("expected complete stream served from cache, got %d fetches", counting.fetches.Load())
	}
}

func newEngineWithStore(t *testing.T, cfg *config.Config, store kvstore.Store, providers ...provider.Provider) *engine.Engine {
	t.Helper()
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(cfg, registry, engine.WithStore(store))
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestParseKeyword(t *testing.T) {
	tests := []struct {
		raw  string
		term string
		year int
	}{
		{"Show(2020)", "Show", 2020},
		{"Show (1999)", "Show", 1999},
		{"进击的巨人（2013）", "进击的巨人", 2013},
		{"Show", "Show", 0},
		{"Show (12345)", "Show (12345)", 0},
		{"  ", "", 0},
	}
	for _, tt := range tests {
		term, year := engine.ParseKeyword(tt.raw)
		if term != tt.term || year != tt.year {
			t.Errorf("ParseKeyword(%q) = %q, %d; want %q, %d", tt.raw, term, year, tt.term, tt.year)
		}
	}
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"results":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Providers.Enabled = []string{"dandan", "bilibili", "fixture"}
	cfg.Providers.Fixture.Dir = dir
	registry, err := engine.BuildRegistry(&cfg, nil)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	if got := registry.Names(); len(got) != 3 || got[2] != "fixture" {
		t.Fatalf("unexpected providers %v", got)
	}

	cfg.Providers.Enabled = []string{"nosuch"}
	if _, err := engine.BuildRegistry(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
