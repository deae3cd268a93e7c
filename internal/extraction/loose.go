package extraction

import (
	"regexp"
	"strings"
)

// LooseExtractor recognizes fields in raw user messages using phrase cues
// and keyword-gated generic captures.
type LooseExtractor struct {
	source LibrarySource
}

// NewLooseExtractor returns an extractor reading rules from source.
// A nil source uses DefaultLibrary.
func NewLooseExtractor(source LibrarySource) *LooseExtractor {
	if source == nil {
		source = DefaultLibrary()
	}
	return &LooseExtractor{source: source}
}

// Extract implements TextFieldExtractor.
func (e *LooseExtractor) Extract(text string) []TaskUpdate {
	var out []TaskUpdate
	for _, r := range e.source.Current().rules {
		if m := r.matchLoose(text); m.OK {
			out = append(out, m.Update)
		}
	}
	return out
}

var _ TextFieldExtractor = (*LooseExtractor)(nil)

func (c *compiledRules) matchLoose(text string) Match {
	if c.HexScan {
		if !c.triggered(text) {
			return NoMatch
		}
		colors, ok := ColorsFrom(text)
		if !ok {
			return NoMatch
		}
		return Matched(newBrandingUpdate(colors))
	}

	// Positional patterns run ungated; their cue words are the gate.
	for _, re := range c.patterns {
		if detail, ok := firstCapture(re, text); ok {
			return Matched(newUpdate(c.Kind, detail))
		}
	}

	if c.generic != nil && c.triggered(text) {
		if detail, ok := firstCapture(c.generic, text); ok {
			return Matched(newUpdate(c.Kind, detail))
		}
	}

	return NoMatch
}

// firstCapture returns the first non-empty cleaned group-1 capture of re.
func firstCapture(re *regexp.Regexp, text string) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		if d := cleanDetail(m[1]); d != "" {
			return d, true
		}
	}
	return "", false
}

// cleanDetail trims whitespace, wrapping quotes or emphasis, and trailing
// sentence punctuation from a captured phrase.
func cleanDetail(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'*`+"`")
	s = strings.TrimRight(s, ".,;:!? \t")
	return strings.TrimSpace(s)
}
