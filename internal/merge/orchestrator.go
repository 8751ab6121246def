package merge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"danmu/internal/alignment"
	"danmu/internal/catalog"
	"danmu/internal/config"
	"danmu/internal/danmaku"
	"danmu/internal/locator"
	"danmu/internal/logging"
	"danmu/internal/provider"
	"danmu/internal/taskcache"
)

var nonCanonicalPattern = regexp.MustCompile(`(?i)(^|[^a-z])(pv|cm|trailer|teaser|preview)\s*\d*([^a-z]|$)|预告|预览|特报|宣传片|先行`)

// Orchestrator drives catalog merges and compound comment fetches.
type Orchestrator struct {
	registry     *provider.Registry
	normalizer   *danmaku.Normalizer
	tasks        *taskcache.Cache[[]danmaku.Raw]
	segmentLimit int
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSegmentConcurrency bounds simultaneous segment downloads per episode.
func WithSegmentConcurrency(limit int) Option {
	return func(o *Orchestrator) {
		o.segmentLimit = limit
	}
}

// WithTaskCache shares an in-flight task cache with other callers.
func WithTaskCache(tasks *taskcache.Cache[[]danmaku.Raw]) Option {
	return func(o *Orchestrator) {
		if tasks != nil {
			o.tasks = tasks
		}
	}
}

// New builds an orchestrator over registry. normalizer may be nil, in which
// case comments are only converted.
func New(registry *provider.Registry, normalizer *danmaku.Normalizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:     registry,
		normalizer:   normalizer,
		tasks:        taskcache.New[[]danmaku.Raw](),
		segmentLimit: provider.DefaultSegmentConcurrency,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "merge")
	if o.normalizer == nil {
		o.normalizer = danmaku.NewNormalizer(danmaku.Options{}, o.logger)
	}
	return o
}

// Pending reports the number of in-flight provider fetches.
func (o *Orchestrator) Pending() int {
	return o.tasks.Pending()
}

// ApplyMergeLogic fuses entries according to groups. The input slice and its
// entries are not modified; the result holds the untouched entries followed by
// the merge products.
func (o *Orchestrator) ApplyMergeLogic(ctx context.Context, entries []*catalog.Entry, groups []config.MergeGroup) []*catalog.Entry {
	if len(groups) == 0 || len(entries) < 2 {
		return entries
	}
	logger := logging.WithContext(ctx, o.logger)

	var (
		merged     []*catalog.Entry
		emitted    = make(map[string]struct{})
		consumed   = make(map[int64]struct{})
		superseded = make(map[int64]struct{})
	)
	for _, group := range groups {
		for _, primary := range entries {
			if ctx.Err() != nil {
				break
			}
			if primary == nil || primary.Source != group.Primary || primary.IsMerged() {
				continue
			}
			if _, done := superseded[primary.ID]; done {
				continue
			}
			product, components, ok := o.mergeOne(logger, primary, entries, group)
			if !ok {
				continue
			}
			signature := contentSignature(components)
			if _, dup := emitted[signature]; dup {
				logger.Debug("duplicate merge discarded", logging.String("signature", signature))
				continue
			}
			emitted[signature] = struct{}{}
			superseded[primary.ID] = struct{}{}
			for _, id := range components[1:] {
				consumed[id] = struct{}{}
			}
			merged = append(merged, product)
			logger.Info("entries merged",
				logging.String("title", product.Title),
				logging.String("signature", signature),
				logging.Int64("merged_id", product.ID),
			)
		}
	}

	if len(merged) == 0 {
		return entries
	}
	out := make([]*catalog.Entry, 0, len(entries)+len(merged))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, ok := superseded[entry.ID]; ok {
			continue
		}
		if _, ok := consumed[entry.ID]; ok {
			continue
		}
		out = append(out, entry)
	}
	return append(out, merged...)
}

// mergeOne matches primary against every secondary source of group. It
// returns the merge product and the ordered component ids, primary first.
func (o *Orchestrator) mergeOne(logger *slog.Logger, primary *catalog.Entry, entries []*catalog.Entry, group config.MergeGroup) (*catalog.Entry, []int64, bool) {
	product := primary.Clone()
	components := []int64{primary.ID}
	sources := []string{primary.Source}

	for _, secondarySource := range group.Secondaries {
		candidates := make([]*catalog.Entry, 0)
		for _, entry := range entries {
			if entry != nil && entry.Source == secondarySource && !entry.IsMerged() {
				candidates = append(candidates, entry)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		evaluated := EvaluateCandidates(primary, candidates)
		match, score := bestCandidate(evaluated)
		for _, c := range evaluated {
			result, reason := c.Decision(match)
			attrs := append(logging.DecisionAttrs("merge_candidate", result, reason),
				logging.String("title", primary.Title),
				logging.String("candidate", c.Entry.Title),
				logging.String(logging.FieldProvider, secondarySource),
				logging.Float64("score", c.Score),
			)
			logger.Debug("merge candidate evaluated", logging.Args(attrs...)...)
		}
		if match == nil {
			logger.Debug("no secondary match",
				logging.String("title", primary.Title),
				logging.String(logging.FieldProvider, secondarySource),
			)
			continue
		}
		if len(match.Episodes) == 0 || len(product.Episodes) == 0 {
			logging.WarnWithContext(logger, "merge candidate skipped", "merge_candidate_skipped",
				logging.String("title", primary.Title),
				logging.String("candidate", match.Title),
				logging.String(logging.FieldProvider, secondarySource),
				logging.String(logging.FieldErrorHint, "candidate has no episode data"),
				logging.String(logging.FieldImpact, "entry returned unmerged for this source"),
			)
			continue
		}
		offset, attached := o.attach(logger, product, match, primary.Source, secondarySource)
		if attached == 0 {
			continue
		}
		components = append(components, match.ID)
		sources = append(sources, secondarySource)
		logger.Debug("secondary aligned",
			logging.String("title", primary.Title),
			logging.String("candidate", match.Title),
			logging.Float64("score", score),
			logging.Int("offset", offset),
			logging.Int("attached", attached),
		)
	}
	if len(components) < 2 {
		return nil, nil, false
	}

	tag := strings.Join(sources, "&")
	product.ID = catalog.MergedID(primary.ID, components[1:], group.String())
	product.Title = fmt.Sprintf("%s [%s]", primary.Title, tag)
	product.Source = tag
	product.MergedFrom = components
	return product, components, true
}

// attach aligns secondary's canonical episodes onto product's and appends the
// secondary locators. It returns the offset used and the number of links
// extended.
func (o *Orchestrator) attach(logger *slog.Logger, product, secondary *catalog.Entry, primarySource, secondarySource string) (int, int) {
	primaryIdx := canonicalIndices(product.Episodes)
	secondaryIdx := canonicalIndices(secondary.Episodes)
	if len(primaryIdx) == 0 || len(secondaryIdx) == 0 {
		return 0, 0
	}
	primaryTitles := titlesAt(product.Episodes, primaryIdx)
	secondaryTitles := titlesAt(secondary.Episodes, secondaryIdx)
	offset := alignment.FindOffset(primaryTitles, secondaryTitles)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		logger.Debug("alignment shifts scored",
			logging.String("candidate", secondary.Title),
			logging.String(logging.FieldProvider, secondarySource),
			logging.Int("offset", offset),
			logging.String("shifts", formatShifts(alignment.Explain(primaryTitles, secondaryTitles))),
		)
	}

	abbr := secondarySource
	if p, ok := o.registry.Get(secondarySource); ok {
		abbr = provider.Abbreviation(p)
	}
	attached := 0
	for j, si := range secondaryIdx {
		pi := j + offset
		if pi < 0 || pi >= len(primaryIdx) {
			continue
		}
		part := locator.ParsePart(secondary.Episodes[si].Locator)
		if part.Source == "" {
			part.Source = secondarySource
		}
		link := &product.Episodes[primaryIdx[pi]]
		link.Locator = locator.Append(link.Locator, primarySource, part)
		label := link.Label
		if label == "" {
			label = link.DisplayName
		}
		link.Label = "[" + abbr + "]" + label
		link.EpisodeID = 0
		attached++
	}
	return offset, attached
}

func formatShifts(scores []alignment.ShiftScore) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, fmt.Sprintf("%+d:%.2f/%d", s.Shift, s.Score, s.Pairs))
	}
	return strings.Join(parts, " ")
}

// IsCanonical reports whether an episode title names a regular episode rather
// than a trailer or preview.
func IsCanonical(title string) bool {
	return !nonCanonicalPattern.MatchString(title)
}

func canonicalIndices(links []catalog.EpisodeLink) []int {
	out := make([]int, 0, len(links))
	for i, link := range links {
		if IsCanonical(link.DisplayName) {
			out = append(out, i)
		}
	}
	return out
}

func titlesAt(links []catalog.EpisodeLink, indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = links[idx].DisplayName
	}
	return out
}

func contentSignature(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "|")
}
