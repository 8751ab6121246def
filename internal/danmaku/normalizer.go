package danmaku

import (
	"log/slog"
	"math/rand/v2"
	"regexp"

	"danmu/internal/config"
	"danmu/internal/logging"
)

// Options configures a Normalizer.
type Options struct {
	BlockedWords string
	GroupMinute  int
	Limit        int // ceiling in thousands of comments, 0 keeps everything
	Cosmetic     Cosmetic
}

// OptionsFromConfig maps the [danmaku] section onto Options.
func OptionsFromConfig(cfg config.Danmaku) Options {
	return Options{
		BlockedWords: cfg.BlockedWords,
		GroupMinute:  cfg.GroupMinute,
		Limit:        cfg.Limit,
		Cosmetic: Cosmetic{
			ConvertTopBottomToScroll: cfg.ConvertTopBottomToScroll,
			ColorMode:                cfg.ColorMode,
			Script:                   cfg.Script,
			Intn:                     rand.IntN,
		},
	}
}

// Normalizer runs the conversion pipeline with options bound at construction.
type Normalizer struct {
	opts     Options
	patterns []*regexp.Regexp
}

// NewNormalizer compiles the blocklist once. Invalid expressions are logged
// and ignored.
func NewNormalizer(opts Options, logger *slog.Logger) *Normalizer {
	logger = logging.NewComponentLogger(logger, "danmaku")
	patterns, invalid := ParseBlocklist(opts.BlockedWords)
	for _, entry := range invalid {
		logging.WarnWithContext(logger, "ignoring invalid blocklist pattern", "blocklist_pattern_invalid",
			logging.String("pattern", entry),
			logging.String(logging.FieldErrorHint, "fix the expression in danmaku.blocked_words"),
			logging.String(logging.FieldImpact, "comments matching this pattern are not filtered"),
		)
	}
	return &Normalizer{opts: opts, patterns: patterns}
}

// Normalize converts raw records tagged with sourceTag and runs the full
// pipeline.
func (n *Normalizer) Normalize(raw []Raw, sourceTag string) []Comment {
	return n.NormalizeComments(Convert(raw, sourceTag))
}

// NormalizeComments runs the pipeline on comments that are already converted.
func (n *Normalizer) NormalizeComments(comments []Comment) []Comment {
	if len(comments) == 0 {
		return []Comment{}
	}
	comments = Filter(comments, n.patterns)
	comments = Group(comments, n.opts.GroupMinute)
	comments = LimitByCount(comments, n.opts.Limit)
	return n.opts.Cosmetic.Apply(comments)
}
