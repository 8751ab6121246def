package config

import (
	"fmt"
	"strings"
)

// MergeGroup names a primary provider and the secondaries whose results may be
// fused into it. Groups are parsed once and treated as immutable.
type MergeGroup struct {
	Primary     string
	Secondaries []string
}

// Sources returns the primary followed by the secondaries.
func (g MergeGroup) Sources() []string {
	out := make([]string, 0, len(g.Secondaries)+1)
	out = append(out, g.Primary)
	return append(out, g.Secondaries...)
}

// String renders the group in its configuration form.
func (g MergeGroup) String() string {
	return strings.Join(g.Sources(), "&")
}

// ParseMergeGroups parses "primary&sec1&sec2,primary2&sec1". Groups may be
// separated by ',' or ';'. Groups naming fewer than two distinct sources are
// ignored; a secondary repeated within one group is kept once.
func ParseMergeGroups(raw string) ([]MergeGroup, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	chunks := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	groups := make([]MergeGroup, 0, len(chunks))
	for _, chunk := range chunks {
		parts := strings.Split(chunk, "&")
		var group MergeGroup
		seen := make(map[string]struct{}, len(parts))
		for _, part := range parts {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if strings.ContainsAny(name, " :$") {
				return nil, fmt.Errorf("invalid source name %q", name)
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if group.Primary == "" {
				group.Primary = name
				continue
			}
			group.Secondaries = append(group.Secondaries, name)
		}
		if group.Primary == "" || len(group.Secondaries) == 0 {
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// MergeGroups returns the parsed merge.groups value. Load has already
// validated it, so parse errors yield no groups.
func (c *Config) MergeGroups() []MergeGroup {
	groups, err := ParseMergeGroups(c.Merge.Groups)
	if err != nil {
		return nil
	}
	return groups
}
