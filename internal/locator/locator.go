package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Delimiter separates the parts of a compound locator. Provider ids must
// never contain it.
const Delimiter = "$$$"

var sourceTagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ErrEmpty is returned when a locator has no usable parts.
var ErrEmpty = errors.New("empty locator")

// Part is one provider reference inside a locator.
type Part struct {
	Source string
	ID     string
}

// String renders the part as "source:id", or the bare id when Source is empty.
func (p Part) String() string {
	if p.Source == "" {
		return p.ID
	}
	return p.Source + ":" + p.ID
}

// Key is the in-flight deduplication key for the part.
func (p Part) Key() string {
	return p.Source + ":" + p.ID
}

// IsCompound reports whether loc names more than one provider episode.
func IsCompound(loc string) bool {
	return strings.Contains(loc, Delimiter)
}

// ParsePart splits "source:id". Ids may themselves contain colons or be URLs,
// so a prefix only counts as a source tag when it looks like one and the rest
// does not start with "//".
func ParsePart(raw string) Part {
	raw = strings.TrimSpace(raw)
	idx := strings.Index(raw, ":")
	if idx <= 0 {
		return Part{ID: raw}
	}
	tag, rest := raw[:idx], raw[idx+1:]
	if !sourceTagPattern.MatchString(tag) || strings.HasPrefix(rest, "//") {
		return Part{ID: raw}
	}
	return Part{Source: strings.ToLower(tag), ID: rest}
}

// Parse splits a simple or compound locator into its parts. Parts without a
// source tag inherit defaultSource.
func Parse(loc, defaultSource string) ([]Part, error) {
	if strings.TrimSpace(loc) == "" {
		return nil, ErrEmpty
	}
	raw := strings.Split(loc, Delimiter)
	parts := make([]Part, 0, len(raw))
	for _, chunk := range raw {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		part := ParsePart(chunk)
		if part.Source == "" {
			part.Source = defaultSource
		}
		if part.Source == "" {
			return nil, fmt.Errorf("locator part %q has no source", chunk)
		}
		if part.ID == "" {
			return nil, fmt.Errorf("locator part %q has no id", chunk)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, ErrEmpty
	}
	return parts, nil
}

// Format joins parts into a locator.
func Format(parts ...Part) string {
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		rendered = append(rendered, part.String())
	}
	return strings.Join(rendered, Delimiter)
}

// Append adds part to loc. When loc is a bare id it is first namespaced with
// primarySource so the result stays decodable.
func Append(loc, primarySource string, part Part) string {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return part.String()
	}
	if !IsCompound(loc) {
		head := ParsePart(loc)
		if head.Source == "" && primarySource != "" {
			loc = Part{Source: primarySource, ID: head.ID}.String()
		}
	}
	return loc + Delimiter + part.String()
}

// Sources returns the source tags of a locator in order, with duplicates
// removed.
func Sources(loc, defaultSource string) []string {
	parts, err := Parse(loc, defaultSource)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if _, ok := seen[part.Source]; ok {
			continue
		}
		seen[part.Source] = struct{}{}
		out = append(out, part.Source)
	}
	return out
}

// Validate rejects ids that would corrupt a compound locator.
func Validate(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("provider id is empty")
	}
	if strings.Contains(id, Delimiter) {
		return fmt.Errorf("provider id %q contains reserved delimiter %q", id, Delimiter)
	}
	return nil
}
