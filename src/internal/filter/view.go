// FILE: logmonitor/src/internal/filter/view.go
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"logmonitor/src/internal/core"
)

// View decides which rows a consumer sees and how they are colored.
// A row is visible when its severity is enabled, the quick search matches
// channel, module or message, and the custom filter (if any) applies.
type View struct {
	severityMask uint32
	search       *regexp.Regexp
	filter       *Filter
	highlights   *HighlightSet
}

// allSeverities also shows severities no producer is expected to send
const allSeverities = ^uint32(0)

// maskBits is the number of severities the mask can address
const maskBits = 32

// NewView shows every severity with no search or filter
func NewView() *View {
	return &View{severityMask: allSeverities}
}

// SetSeverityVisible shows or hides one severity
func (v *View) SetSeverityVisible(sev core.Severity, visible bool) {
	if sev >= maskBits {
		return
	}
	if visible {
		v.severityMask |= 1 << sev
	} else {
		v.severityMask &^= 1 << sev
	}
}

// SeverityVisible reports whether sev is shown. Severities beyond the mask
// are shown only while nothing is hidden.
func (v *View) SeverityVisible(sev core.Severity) bool {
	if sev >= maskBits {
		return v.severityMask == allSeverities
	}
	return v.severityMask&(1<<sev) != 0
}

// SetSearch installs a quick search pattern; empty clears it
func (v *View) SetSearch(pattern string) error {
	if pattern == "" {
		v.search = nil
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}
	v.search = re
	return nil
}

// SetFilter installs a custom filter; nil clears it
func (v *View) SetFilter(f *Filter) {
	v.filter = f
}

// SetHighlights installs the highlight set used for colors
func (v *View) SetHighlights(s *HighlightSet) {
	v.highlights = s
}

// Accepts reports whether msg is visible
func (v *View) Accepts(msg *core.LogMessage) bool {
	if !v.SeverityVisible(msg.Severity) {
		return false
	}
	if v.search != nil &&
		!v.search.MatchString(msg.Channel) &&
		!v.search.MatchString(msg.Module) &&
		!v.search.MatchString(msg.Message) {
		return false
	}
	if v.filter != nil && !v.filter.Applies(msg) {
		return false
	}
	return true
}

// Colors returns the highlight colors for msg
func (v *View) Colors(msg *core.LogMessage) (fg, bg *Color) {
	if c, ok := v.highlights.Foreground(msg); ok {
		fg = &c
	}
	if c, ok := v.highlights.Background(msg); ok {
		bg = &c
	}
	return fg, bg
}

// ViewOptions names the rules a consumer asked for
type ViewOptions struct {
	Filter     string
	Highlights string
	// Visible severities; empty shows all
	Severities []string
	Search     string
}

// BuildView resolves opts against repo. Named rules must exist.
func BuildView(repo *Repository, opts ViewOptions) (*View, error) {
	v := NewView()

	if len(opts.Severities) > 0 {
		v.severityMask = 0
		for _, name := range opts.Severities {
			sev, err := core.ParseSeverity(strings.TrimSpace(name))
			if err != nil {
				return nil, err
			}
			v.SetSeverityVisible(sev, true)
		}
	}

	if err := v.SetSearch(opts.Search); err != nil {
		return nil, err
	}

	if opts.Filter != "" {
		if repo == nil {
			return nil, fmt.Errorf("%w: filter %q", ErrNotFound, opts.Filter)
		}
		f, ok := repo.Filter(opts.Filter)
		if !ok {
			return nil, fmt.Errorf("%w: filter %q", ErrNotFound, opts.Filter)
		}
		v.SetFilter(f)
	}

	if opts.Highlights != "" {
		if repo == nil {
			return nil, fmt.Errorf("%w: highlight set %q", ErrNotFound, opts.Highlights)
		}
		s, ok := repo.HighlightSet(opts.Highlights)
		if !ok {
			return nil, fmt.Errorf("%w: highlight set %q", ErrNotFound, opts.Highlights)
		}
		v.SetHighlights(s)
	}

	return v, nil
}
