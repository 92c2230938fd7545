// FILE: logmonitor/src/internal/filter/highlight.go
package filter

import (
	"fmt"

	"logmonitor/src/internal/core"
)

// Color is an RGB triple
type Color struct {
	R, G, B uint8
}

// Hex renders the color as #rrggbb
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Highlight colors the messages its conditions match. Either color may be unset.
type Highlight struct {
	Foreground *Color
	Background *Color
	Juncture   Juncture
	Conditions []Condition
}

// Applies reports whether the highlight predicate matches msg
func (h *Highlight) Applies(msg *core.LogMessage) bool {
	return Applies(msg, h.Conditions, h.Juncture)
}

// HighlightSet is a named, ordered list of highlights
type HighlightSet struct {
	Name       string
	Highlights []Highlight
}

// Match returns the first highlight whose predicate matches msg
func (s *HighlightSet) Match(msg *core.LogMessage) (*Highlight, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Highlights {
		if s.Highlights[i].Applies(msg) {
			return &s.Highlights[i], true
		}
	}
	return nil, false
}

// Foreground returns the text color of the first matching highlight.
// A first match without a foreground yields no color; later highlights are not consulted.
func (s *HighlightSet) Foreground(msg *core.LogMessage) (Color, bool) {
	h, ok := s.Match(msg)
	if !ok || h.Foreground == nil {
		return Color{}, false
	}
	return *h.Foreground, true
}

// Background returns the fill color of the first matching highlight
func (s *HighlightSet) Background(msg *core.LogMessage) (Color, bool) {
	h, ok := s.Match(msg)
	if !ok || h.Background == nil {
		return Color{}, false
	}
	return *h.Background, true
}
