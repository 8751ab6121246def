package merge

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"danmu/internal/danmaku"
	"danmu/internal/locator"
	"danmu/internal/logging"
	"danmu/internal/provider"
	"danmu/internal/services"
)

// CommentFetch is a merged comment stream together with the locator parts
// that failed to contribute to it.
type CommentFetch struct {
	Comments []danmaku.Comment
	Failed   []locator.Part
}

// Partial reports whether any part was missing from the stream.
func (f CommentFetch) Partial() bool { return len(f.Failed) > 0 }

// FetchMergedComments resolves loc, fetches every part concurrently and
// returns the normalized, time-ordered comment stream tagged with every
// participating source. A failed part contributes no comments; the call
// fails only when every part fails or ctx ends.
func (o *Orchestrator) FetchMergedComments(ctx context.Context, loc string) ([]danmaku.Comment, error) {
	fetched, err := o.FetchComments(ctx, loc)
	if err != nil {
		return nil, err
	}
	return fetched.Comments, nil
}

// FetchComments is FetchMergedComments, additionally reporting the parts
// that failed.
func (o *Orchestrator) FetchComments(ctx context.Context, loc string) (CommentFetch, error) {
	parts, err := locator.Parse(loc, "")
	if err != nil {
		return CommentFetch{}, services.Wrap(services.ErrValidation, "merge", "parse locator", loc, err)
	}
	raw, tag, failed, err := o.fetchParts(ctx, parts)
	if err != nil {
		return CommentFetch{}, err
	}
	return CommentFetch{Comments: o.normalizer.Normalize(raw, tag), Failed: failed}, nil
}

func (o *Orchestrator) fetchParts(ctx context.Context, parts []locator.Part) ([]danmaku.Raw, string, []locator.Part, error) {
	logger := logging.WithContext(ctx, o.logger)
	results := make([][]danmaku.Raw, len(parts))
	failures := make([]error, len(parts))

	var group errgroup.Group
	for i, part := range parts {
		group.Go(func() error {
			raw, err := o.fetchPart(ctx, part)
			if err != nil {
				if services.IsCancellation(err) && ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = err
				return nil
			}
			results[i] = raw
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Debug("comment fetch cancelled", logging.Error(err))
		return nil, "", nil, err
	}

	var (
		sources []string
		failed  []locator.Part
		lastErr error
		total   int
	)
	for i, part := range parts {
		if failures[i] != nil {
			failed = append(failed, part)
			lastErr = failures[i]
			logging.WarnWithContext(logger, "comment part failed", "comment_part_failed",
				logging.String(logging.FieldProvider, part.Source),
				logging.String("episode_id", part.ID),
				logging.Error(failures[i]),
				logging.String(logging.FieldImpact, "comments from this source are missing"),
			)
			continue
		}
		total += len(results[i])
		if !slices.Contains(sources, part.Source) {
			sources = append(sources, part.Source)
		}
	}
	if len(failed) == len(parts) {
		return nil, "", nil, lastErr
	}

	merged := make([]danmaku.Raw, 0, total)
	for _, raw := range results {
		merged = append(merged, raw...)
	}
	slices.SortStableFunc(merged, func(a, b danmaku.Raw) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return merged, strings.Join(sources, "&"), failed, nil
}

// fetchPart routes one provider episode through the shared task cache.
func (o *Orchestrator) fetchPart(ctx context.Context, part locator.Part) ([]danmaku.Raw, error) {
	p, ok := o.registry.Get(part.Source)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "merge", "fetch comments", fmt.Sprintf("unknown source %q", part.Source), nil)
	}
	ctx = services.WithProvider(ctx, p.Name())
	return o.tasks.Acquire(ctx, part.Key(), func(taskCtx context.Context) ([]danmaku.Raw, error) {
		return provider.FetchComments(taskCtx, p, part.ID, o.segmentLimit, o.logger)
	})
}
