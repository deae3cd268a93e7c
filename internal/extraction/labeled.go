package extraction

import (
	"regexp"
	"strings"
)

// nextLabelRE finds a following **Label:** or **Label**: on the same line.
var nextLabelRE = regexp.MustCompile(`\*\*[^*\n]+?(?::\*\*|\*\*[ \t]*:)`)

// LabeledExtractor recognizes fields in assistant replies that echo
// labeled summary lines such as "**Timeline:** March 15-17".
type LabeledExtractor struct {
	source LibrarySource
}

// NewLabeledExtractor returns an extractor reading labels from source.
// A nil source uses DefaultLibrary.
func NewLabeledExtractor(source LibrarySource) *LabeledExtractor {
	if source == nil {
		source = DefaultLibrary()
	}
	return &LabeledExtractor{source: source}
}

// Extract implements TextFieldExtractor.
func (e *LabeledExtractor) Extract(text string) []TaskUpdate {
	var out []TaskUpdate
	for _, r := range e.source.Current().rules {
		if m := r.matchLabeled(text); m.OK {
			out = append(out, m.Update)
		}
	}
	return out
}

var _ TextFieldExtractor = (*LabeledExtractor)(nil)

// matchLabeled tries each label spelling in order. The first one that yields
// a usable value wins.
func (c *compiledRules) matchLabeled(text string) Match {
	for _, re := range c.labels {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			value := labelValue(m[1])
			if value == "" {
				continue
			}

			if c.HexScan {
				colors, ok := ColorsFrom(value)
				if !ok {
					continue
				}
				return Matched(newBrandingUpdate(colors))
			}
			return Matched(newUpdate(c.Kind, value))
		}
	}
	return NoMatch
}

// labelValue cuts a raw label value at the next inline label and strips
// surrounding emphasis.
func labelValue(raw string) string {
	if loc := nextLabelRE.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "*")
	return strings.TrimSpace(raw)
}
