package danmaku

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Render modes.
const (
	ModeScroll = 1
	ModeBottom = 4
	ModeTop    = 5
)

// White is the default comment color.
const White = 0xFFFFFF

// Raw is the provider-neutral shape adapters produce from their own records.
type Raw struct {
	ID    int64
	Time  float64
	Mode  int
	Color int
	Text  string
}

// Comment is a normalized comment.
type Comment struct {
	CID int64   `json:"cid"`
	P   string  `json:"p"`
	M   string  `json:"m"`
	T   float64 `json:"t"`
}

// RenderSpec is the decoded form of Comment.P.
type RenderSpec struct {
	Time  float64
	Mode  int
	Color int
	Tags  []string
}

// String renders the spec in its wire form.
func (s RenderSpec) String() string {
	return fmt.Sprintf("%.2f,%d,%d,[%s]", s.Time, s.Mode, s.Color, strings.Join(s.Tags, "&"))
}

// ParseRenderSpec decodes "time,mode,color,[a&b]". The source tag is optional.
func ParseRenderSpec(p string) (RenderSpec, error) {
	fields := strings.SplitN(p, ",", 4)
	if len(fields) < 3 {
		return RenderSpec{}, fmt.Errorf("render spec %q: expected at least 3 fields", p)
	}
	var spec RenderSpec
	var err error
	if spec.Time, err = strconv.ParseFloat(strings.TrimSpace(fields[0]), 64); err != nil {
		return RenderSpec{}, fmt.Errorf("render spec %q: time: %w", p, err)
	}
	if spec.Mode, err = strconv.Atoi(strings.TrimSpace(fields[1])); err != nil {
		return RenderSpec{}, fmt.Errorf("render spec %q: mode: %w", p, err)
	}
	if spec.Color, err = strconv.Atoi(strings.TrimSpace(fields[2])); err != nil {
		return RenderSpec{}, fmt.Errorf("render spec %q: color: %w", p, err)
	}
	if len(fields) == 4 {
		spec.Tags = parseTags(fields[3])
	}
	return spec, nil
}

// SourceCount returns how many sources the render spec's tag names, at least 1.
func SourceCount(p string) int {
	idx := strings.LastIndex(p, "[")
	if idx < 0 || !strings.HasSuffix(p, "]") {
		return 1
	}
	return max(1, len(parseTags(p[idx:])))
}

func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, "&") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Convert turns raw records into comments tagged with sourceTag.
func Convert(raw []Raw, sourceTag string) []Comment {
	out := make([]Comment, 0, len(raw))
	tags := parseTags(sourceTag)
	for _, record := range raw {
		if math.IsNaN(record.Time) || math.IsInf(record.Time, 0) {
			continue
		}
		spec := RenderSpec{
			Time:  round2(math.Max(record.Time, 0)),
			Mode:  normalizeMode(record.Mode),
			Color: normalizeColor(record.Color),
			Tags:  tags,
		}
		out = append(out, Comment{
			CID: record.ID,
			P:   spec.String(),
			M:   record.Text,
			T:   spec.Time,
		})
	}
	return out
}

func normalizeMode(mode int) int {
	switch mode {
	case ModeBottom, ModeTop:
		return mode
	default:
		return ModeScroll
	}
}

func normalizeColor(color int) int {
	if color < 0 {
		return White
	}
	return color & 0xFFFFFF
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
