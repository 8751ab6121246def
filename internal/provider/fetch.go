package provider

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"danmu/internal/danmaku"
	"danmu/internal/logging"
	"danmu/internal/services"
)

// DefaultSegmentConcurrency bounds simultaneous segment downloads when the
// caller passes no limit.
const DefaultSegmentConcurrency = 6

// FetchComments downloads and formats every comment of an episode. Segmented
// providers are fetched at most limit segments at a time; a failed segment is
// logged and skipped unless every segment fails.
func FetchComments(ctx context.Context, p Provider, episodeID string, limit int, logger *slog.Logger) ([]danmaku.Raw, error) {
	segmented, ok := p.(SegmentedProvider)
	if !ok {
		raw, err := p.GetEpisodeDanmu(ctx, episodeID)
		if err != nil {
			return nil, err
		}
		return p.FormatComments(raw), nil
	}

	segments, err := segmented.GetEpisodeDanmuSegments(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return []danmaku.Raw{}, nil
	}
	if limit <= 0 {
		limit = DefaultSegmentConcurrency
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	results := make([][]RawComment, len(segments))
	failures := make([]error, len(segments))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, segment := range segments {
		group.Go(func() error {
			raw, err := segmented.GetEpisodeSegmentDanmu(groupCtx, segment)
			if err != nil {
				if services.IsCancellation(err) {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = raw
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var (
		all     []RawComment
		failed  int
		lastErr error
	)
	for i, segment := range segments {
		if failures[i] != nil {
			failed++
			lastErr = failures[i]
			logging.WarnWithContext(logger, "segment fetch failed", "segment_fetch_failed",
				logging.String(logging.FieldProvider, p.Name()),
				logging.String("episode_id", episodeID),
				logging.Int("segment", segment.Index),
				logging.Error(failures[i]),
				logging.String(logging.FieldImpact, "comments from this segment are missing"),
			)
			continue
		}
		all = append(all, results[i]...)
	}
	if failed == len(segments) {
		return nil, services.Wrap(services.ErrProvider, p.Name(), "fetch segments", "every segment failed", lastErr)
	}
	return p.FormatComments(all), nil
}
