package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"danmu/internal/catalog"
	"danmu/internal/config"
	"danmu/internal/danmaku"
	"danmu/internal/kvstore"
	"danmu/internal/locator"
	"danmu/internal/logging"
	"danmu/internal/merge"
	"danmu/internal/provider"
	"danmu/internal/services"
	"danmu/internal/ttlcache"
)

const (
	searchCachePrefix  = "search:"
	commentCachePrefix = "comment:"
	defaultSearchLimit = 8
)

// Engine answers search, episode and comment requests.
type Engine struct {
	registry     *provider.Registry
	orchestrator *merge.Orchestrator
	catalog      *catalog.Store
	searches     *ttlcache.Cache[[]*catalog.Entry]
	comments     *ttlcache.Cache[[]danmaku.Comment]
	inflight     singleflight.Group
	groups       []config.MergeGroup
	searchLimit  int
	timeout      time.Duration
	logger       *slog.Logger
}

// Stats summarizes engine state.
type Stats struct {
	CatalogEntries int `json:"catalogEntries"`
	CachedSearches int `json:"cachedSearches"`
	CachedComments int `json:"cachedComments"`
	PendingFetches int `json:"pendingFetches"`
}

type settings struct {
	logger *slog.Logger
	store  kvstore.Store
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*settings)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithStore persists the search and comment caches in store.
func WithStore(store kvstore.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// New builds an engine over registry using cfg.
func New(cfg *config.Config, registry *provider.Registry, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "config required", nil)
	}
	if registry == nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "provider registry required", nil)
	}
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	logger := logging.NewComponentLogger(s.logger, "engine")

	groups, err := config.ParseMergeGroups(cfg.Merge.Groups)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "init", "merge groups", err)
	}

	normalizer := danmaku.NewNormalizer(danmaku.OptionsFromConfig(cfg.Danmaku), s.logger)
	orchestrator := merge.New(registry, normalizer,
		merge.WithLogger(s.logger),
		merge.WithSegmentConcurrency(cfg.Providers.SegmentConcurrency),
	)

	searchOpts := []ttlcache.Option[[]*catalog.Entry]{ttlcache.WithLogger[[]*catalog.Entry](s.logger)}
	commentOpts := []ttlcache.Option[[]danmaku.Comment]{ttlcache.WithLogger[[]danmaku.Comment](s.logger)}
	if s.store != nil {
		searchOpts = append(searchOpts, ttlcache.WithBackend[[]*catalog.Entry](s.store, searchCachePrefix))
		commentOpts = append(commentOpts, ttlcache.WithBackend[[]danmaku.Comment](s.store, commentCachePrefix))
	}
	if s.now != nil {
		searchOpts = append(searchOpts, ttlcache.WithClock[[]*catalog.Entry](s.now))
		commentOpts = append(commentOpts, ttlcache.WithClock[[]danmaku.Comment](s.now))
	}

	searchLimit := cfg.Providers.SearchConcurrency
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimit
	}
	var timeout time.Duration
	if requestTimeout := cfg.RequestTimeout(); requestTimeout > 0 {
		timeout = 3 * requestTimeout
	}

	return &Engine{
		registry:     registry,
		orchestrator: orchestrator,
		catalog:      catalog.NewStore(cfg.Cache.MaxCatalogEntries),
		searches:     ttlcache.New[[]*catalog.Entry](cfg.SearchTTL(), searchOpts...),
		comments:     ttlcache.New[[]danmaku.Comment](cfg.CommentTTL(), commentOpts...),
		groups:       groups,
		searchLimit:  searchLimit,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

// Providers lists the registered source tags.
func (e *Engine) Providers() []string {
	return e.registry.Names()
}

// Stats reports catalog and cache sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		CatalogEntries: e.catalog.Len(),
		CachedSearches: e.searches.Len(),
		CachedComments: e.comments.Len(),
		PendingFetches: e.orchestrator.Pending(),
	}
}

// Purge drops every cached search, comment stream and catalog entry.
func (e *Engine) Purge() {
	e.searches.Purge()
	e.comments.Purge()
	e.catalog.Clear()
}

// Search queries every provider for keyword, which may end in a "(YYYY)"
// year filter, merges the results and stores them in the catalog. Identical
// concurrent searches share one execution.
func (e *Engine) Search(ctx context.Context, keyword string) ([]*catalog.Entry, error) {
	term, year := ParseKeyword(keyword)
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "search", "keyword must not be empty", nil)
	}
	key := strings.ToLower(term)
	if year > 0 {
		key = fmt.Sprintf("%s|%d", key, year)
	}
	if cached, ok := e.searches.Get(key); ok {
		logging.WithContext(ctx, e.logger).Debug("search cache hit", logging.String("keyword", key))
		return e.catalog.Put(cached...), nil
	}

	ch := e.inflight.DoChan(key, func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		if e.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
			defer cancel()
		}
		entries, err := e.search(runCtx, term, year)
		if err != nil {
			return nil, err
		}
		stored := e.catalog.Put(entries...)
		e.searches.Set(key, stored)
		return stored, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		shared := result.Val.([]*catalog.Entry)
		out := make([]*catalog.Entry, len(shared))
		for i, entry := range shared {
			out[i] = entry.Clone()
		}
		return out, nil
	}
}

func (e *Engine) search(ctx context.Context, term string, year int) ([]*catalog.Entry, error) {
	ctx = services.WithSessionID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	providers := e.registry.Providers()
	results := make([][]*catalog.Entry, len(providers))
	var group errgroup.Group
	group.SetLimit(e.searchLimit)
	for i, p := range providers {
		group.Go(func() error {
			entries, err := e.searchProvider(ctx, p, term)
			if err != nil {
				e.logProviderFailure(logger, p.Name(), "search", err)
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []*catalog.Entry
	for _, batch := range results {
		for _, entry := range batch {
			if year > 0 && !entry.StartDate.IsZero() && entry.StartDate.Year() != year {
				continue
			}
			entries = append(entries, entry)
		}
	}
	entries = e.orchestrator.ApplyMergeLogic(ctx, entries, e.groups)
	logger.Info("search completed",
		logging.String("keyword", term),
		logging.Int("year", year),
		logging.Int("providers", len(providers)),
		logging.Int("results", len(entries)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return entries, nil
}

func (e *Engine) searchProvider(ctx context.Context, p provider.Provider, term string) ([]*catalog.Entry, error) {
	ctx = services.WithProvider(ctx, p.Name())
	raw, err := p.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, e.logger)
	source := strings.ToLower(p.Name())
	entries := make([]*catalog.Entry, 0, len(raw))
	ids := make([]string, 0, len(raw))
	for _, result := range raw {
		if err := locator.Validate(result.ProviderID); err != nil {
			logger.Debug("result skipped", logging.Error(err))
			continue
		}
		entries = append(entries, &catalog.Entry{
			ID:              catalog.EntryID(source, result.ProviderID),
			SecondaryID:     result.SecondaryID,
			Title:           result.Title,
			TypeDescription: result.TypeDescription,
			ImageURL:        result.ImageURL,
			StartDate:       result.StartDate,
			EpisodeCount:    result.EpisodeCount,
			Rating:          result.Rating,
			Source:          source,
		})
		ids = append(ids, result.ProviderID)
	}

	var group errgroup.Group
	group.SetLimit(e.searchLimit)
	for i, entry := range entries {
		providerID := ids[i]
		group.Go(func() error {
			episodes, err := p.GetEpisodes(ctx, providerID)
			if err != nil {
				e.logProviderFailure(logger, p.Name(), "episodes", err)
				return nil
			}
			entry.Episodes = episodeLinks(source, episodes)
			if entry.EpisodeCount == 0 {
				entry.EpisodeCount = len(entry.Episodes)
			}
			return nil
		})
	}
	_ = group.Wait()
	return entries, ctx.Err()
}

func episodeLinks(source string, episodes []provider.RawEpisode) []catalog.EpisodeLink {
	links := make([]catalog.EpisodeLink, 0, len(episodes))
	for _, ep := range episodes {
		if locator.Validate(ep.ID) != nil {
			continue
		}
		loc := locator.Format(locator.Part{Source: source, ID: ep.ID})
		links = append(links, catalog.EpisodeLink{
			EpisodeID:   catalog.EpisodeID(loc),
			DisplayName: ep.Title,
			Locator:     loc,
		})
	}
	return links
}

func (e *Engine) logProviderFailure(logger *slog.Logger, name, operation string, err error) {
	if services.IsCancellation(err) {
		logger.Debug("provider request cancelled",
			logging.String(logging.FieldProvider, name),
			logging.String("operation", operation),
		)
		return
	}
	logging.WarnWithContext(logger, "provider request failed", "provider_request_failed",
		logging.String(logging.FieldProvider, name),
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check provider availability and credentials"),
		logging.String(logging.FieldImpact, "results from this provider are missing"),
	)
}

// Episodes returns the catalog entry with id.
func (e *Engine) Episodes(_ context.Context, entryID int64) (*catalog.Entry, error) {
	entry, ok := e.catalog.Lookup(entryID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "engine", "episodes", fmt.Sprintf("unknown entry %d", entryID), nil)
	}
	return entry, nil
}

// CommentsByEpisodeID resolves a catalog episode handle and returns its comments.
func (e *Engine) CommentsByEpisodeID(ctx context.Context, episodeID int64) ([]danmaku.Comment, error) {
	link, _, ok := e.catalog.Episode(episodeID)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "engine", "comments", fmt.Sprintf("unknown episode %d", episodeID), nil)
	}
	return e.CommentsByLocator(ctx, link.Locator)
}

// CommentsByLocator returns the normalized comments of a simple or compound
// locator.
func (e *Engine) CommentsByLocator(ctx context.Context, loc string) ([]danmaku.Comment, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "comments", "locator must not be empty", nil)
	}
	if cached, ok := e.comments.Get(loc); ok {
		return cached, nil
	}
	fetched, err := e.orchestrator.FetchComments(ctx, loc)
	if err != nil {
		if !services.IsCancellation(err) {
			logging.WarnWithContext(logging.WithContext(ctx, e.logger), "comment fetch failed", "comment_fetch_failed",
				logging.String("locator", loc),
				logging.Error(err),
				logging.String(logging.FieldImpact, "no comments returned"),
			)
		}
		return nil, err
	}
	if fetched.Partial() {
		logging.WithContext(ctx, e.logger).Debug("partial comment stream not cached",
			logging.String("locator", loc),
			logging.Int("failed_parts", len(fetched.Failed)),
		)
		return fetched.Comments, nil
	}
	e.comments.Set(loc, fetched.Comments)
	return fetched.Comments, nil
}
