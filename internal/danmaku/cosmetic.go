package danmaku

import (
	"danmu/internal/textutil"
)

// Color modes.
const (
	ColorDefault = "default"
	ColorWhite   = "white"
	ColorRandom  = "color"
)

// Script conversion targets.
const (
	ScriptNone        = "none"
	ScriptSimplified  = "simplified"
	ScriptTraditional = "traditional"
)

var palette = []int{
	0xFE0302,
	0xFF7204,
	0xFFAA02,
	0xFFD302,
	0xFFFF00,
	0xA0EE00,
	0x00CD00,
	0x019899,
	0x4266BE,
	0x89D5FF,
	0xCC0273,
}

// Cosmetic holds the presentation rewrites applied after sampling.
type Cosmetic struct {
	ConvertTopBottomToScroll bool
	ColorMode                string
	Script                   string

	// Intn returns a value in [0, n). Nil disables palette randomization.
	Intn func(n int) int
}

// Apply returns rewritten copies of comments.
func (c Cosmetic) Apply(comments []Comment) []Comment {
	rewriteSpec := c.ConvertTopBottomToScroll || c.ColorMode == ColorWhite || (c.ColorMode == ColorRandom && c.Intn != nil)
	convertScript := c.Script == ScriptSimplified || c.Script == ScriptTraditional
	if len(comments) == 0 || (!rewriteSpec && !convertScript) {
		return comments
	}
	comments = append([]Comment(nil), comments...)
	for i := range comments {
		if rewriteSpec {
			comments[i].P = c.rewrite(comments[i].P)
		}
		switch c.Script {
		case ScriptSimplified:
			comments[i].M = textutil.ToSimplified(comments[i].M)
		case ScriptTraditional:
			comments[i].M = textutil.ToTraditional(comments[i].M)
		}
	}
	return comments
}

func (c Cosmetic) rewrite(p string) string {
	spec, err := ParseRenderSpec(p)
	if err != nil {
		return p
	}
	if c.ConvertTopBottomToScroll && (spec.Mode == ModeTop || spec.Mode == ModeBottom) {
		spec.Mode = ModeScroll
	}
	switch c.ColorMode {
	case ColorWhite:
		spec.Color = White
	case ColorRandom:
		if spec.Color == White && c.Intn != nil {
			spec.Color = palette[c.Intn(len(palette))]
		}
	}
	return spec.String()
}
