package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// maxValueRunes bounds a rendered attribute value; comment text and compound
// locators are cut with an ellipsis.
const maxValueRunes = 120

// consoleHandler writes one line per record:
//
//	2026-01-02 15:04:05.000 WARN  engine[dandan #1a2b3c4d]: provider search failed key=value
//
// The component, provider and session attributes become the bracketed scope
// instead of trailing key=value pairs.
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Leveler
	addSource bool
	group     string
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clip(h.attrs)
	for _, attr := range attrs {
		clone.attrs = appendQualified(clone.attrs, h.group, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = qualify(h.group, name)
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := slices.Clip(h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendQualified(attrs, h.group, attr)
		return true
	})

	var component, provider, session string
	rest := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		switch attr.Key {
		case FieldComponent:
			if component == "" {
				component = attr.Value.String()
			}
		case FieldProvider:
			if provider == "" {
				provider = attr.Value.String()
			}
		case FieldSession:
			if session == "" {
				session = attr.Value.String()
			}
		default:
			rest = append(rest, attr)
		}
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var b strings.Builder
	b.WriteString(timestamp.Format("2006-01-02 15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", levelLabel(record.Level))
	if scope := scopeLabel(component, provider, session); scope != "" {
		b.WriteString(scope)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, attr := range rest {
		b.WriteByte(' ')
		b.WriteString(attr.Key)
		b.WriteByte('=')
		b.WriteString(consoleValue(attr.Value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func appendQualified(dst []slog.Attr, group string, attr slog.Attr) []slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner = qualify(group, attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = appendQualified(dst, inner, member)
		}
		return dst
	}
	attr.Key = qualify(group, attr.Key)
	return append(dst, attr)
}

func qualify(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

func scopeLabel(component, provider, session string) string {
	var tags []string
	if provider != "" {
		tags = append(tags, provider)
	}
	if session != "" {
		if len(session) > 8 {
			session = session[:8]
		}
		tags = append(tags, "#"+session)
	}
	if len(tags) == 0 {
		return component
	}
	return component + "[" + strings.Join(tags, " ") + "]"
}

func consoleValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Millisecond {
			d = d.Round(time.Millisecond)
		}
		s = d.String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		s = strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if utf8.RuneCountInString(s) > maxValueRunes {
		s = string([]rune(s)[:maxValueRunes]) + "…"
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
