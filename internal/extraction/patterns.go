package extraction

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// KindRules is the pattern data for one field kind.
type KindRules struct {
	Kind FieldKind `yaml:"kind" json:"kind"`

	// Triggers gate keyword-based matching. Case-insensitive substring test.
	Triggers []string `yaml:"triggers" json:"triggers"`

	// Patterns are positional phrase regexes tried in order, most specific
	// first. Capture group 1 is the detail.
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`

	// Generic enables the "<trigger>: <rest of sentence>" fallback capture.
	Generic bool `yaml:"generic" json:"generic"`

	// Labels are the names looked for in structured replies, in order.
	Labels []string `yaml:"labels" json:"labels"`

	// HexScan extracts #RRGGBB tokens instead of a text detail.
	HexScan bool `yaml:"hex_scan,omitempty" json:"hex_scan,omitempty"`
}

// Library is a compiled, immutable set of KindRules in canonical kind order.
type Library struct {
	rules []*compiledRules
}

type compiledRules struct {
	KindRules
	patterns []*regexp.Regexp
	generic  *regexp.Regexp
	labels   []*regexp.Regexp
}

// LibrarySource yields the library an extractor should use right now.
type LibrarySource interface {
	Current() *Library
}

// Current returns l itself so a fixed library is its own source.
func (l *Library) Current() *Library {
	return l
}

var _ LibrarySource = (*Library)(nil)

// NewLibrary compiles rules. Every kind must have a destination and appear
// at most once.
func NewLibrary(rules []KindRules) (*Library, error) {
	seen := make(map[FieldKind]bool, len(rules))
	compiled := make([]*compiledRules, 0, len(rules))

	for _, r := range rules {
		if _, ok := destinations[r.Kind]; !ok {
			return nil, fmt.Errorf("kind %q has no destination task", r.Kind)
		}
		if seen[r.Kind] {
			return nil, fmt.Errorf("kind %q defined more than once", r.Kind)
		}
		seen[r.Kind] = true

		c, err := compileRules(r)
		if err != nil {
			return nil, fmt.Errorf("kind %q: %w", r.Kind, err)
		}
		compiled = append(compiled, c)
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Kind.rank() < compiled[j].Kind.rank()
	})

	return &Library{rules: compiled}, nil
}

// Rules returns a copy of the source rules in canonical order.
func (l *Library) Rules() []KindRules {
	out := make([]KindRules, 0, len(l.rules))
	for _, r := range l.rules {
		out = append(out, r.KindRules)
	}
	return out
}

// Kinds lists the kinds this library can extract.
func (l *Library) Kinds() []FieldKind {
	out := make([]FieldKind, 0, len(l.rules))
	for _, r := range l.rules {
		out = append(out, r.Kind)
	}
	return out
}

func compileRules(r KindRules) (*compiledRules, error) {
	if r.HexScan && r.Kind != KindBranding {
		return nil, fmt.Errorf("hex_scan is only valid for %s, not %s", KindBranding, r.Kind)
	}
	c := &compiledRules{KindRules: r}

	for _, p := range r.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("pattern %q has no capture group", p)
		}
		c.patterns = append(c.patterns, re)
	}

	if r.Generic {
		if len(r.Triggers) == 0 {
			return nil, fmt.Errorf("generic capture needs at least one trigger")
		}
		c.generic = regexp.MustCompile(genericPattern(r.Triggers))
	}

	for _, name := range r.Labels {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c.labels = append(c.labels, labelPatterns(name)...)
	}

	return c, nil
}

// genericPattern matches "<trigger> <delimiter> <rest of sentence>".
func genericPattern(triggers []string) string {
	alts := make([]string, 0, len(triggers))
	for _, t := range triggers {
		alts = append(alts, regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(t))))
	}
	// Longest first so "dates" wins over "date".
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })

	return `(?i)\b(?:` + strings.Join(alts, "|") + `)\b\s*(?::|=|\bis\b|\bare\b|\bwill be\b)\s*([^.!?\n]+)`
}

// labelPatterns returns the four label spellings for name, tried in order:
// **Name:**, **Name**:, Name:, Name :.
func labelPatterns(name string) []*regexp.Regexp {
	n := regexp.QuoteMeta(name)
	return []*regexp.Regexp{
		regexp.MustCompile(`(?im)\*\*` + n + `:\*\*[ \t]*(.*)$`),
		regexp.MustCompile(`(?im)\*\*` + n + `\*\*[ \t]*:[ \t]*(.*)$`),
		regexp.MustCompile(`(?im)(?:^|[^\w*])` + n + `:[ \t]*(.*)$`),
		regexp.MustCompile(`(?im)(?:^|[^\w*])` + n + `[ \t]+:[ \t]*(.*)$`),
	}
}

// triggered reports whether any trigger keyword appears in text.
func (c *compiledRules) triggered(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range c.Triggers {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Date fragments shared by the timeline patterns.
const (
	monthRE    = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	// monthCapRE requires a capital first letter so the verb "may" is not a date.
	monthCapRE = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
	dayRE      = `\d{1,2}(?:st|nd|rd|th)?`
	yearRE     = `(?:,?\s*\d{4})?`
	rangeRE    = `\s*(?:-|–|to|through|until)\s*`
)

// stopRE ends a lazily captured location phrase.
const stopRE = `(?:\s+(?:from|on|between|starting|during|for|with)\b|[.!?\n]|$)`

// DefaultRules returns the built-in pattern data.
func DefaultRules() []KindRules {
	return []KindRules{
		{
			Kind:     KindTimeline,
			Triggers: []string{"timeline", "date", "dates", "schedule", "deadline"},
			Patterns: []string{
				// March 15-17, 2024 / March 30 to April 2
				`(?i)\b(` + monthRE + `\.?\s+` + dayRE + rangeRE + `(?:` + monthRE + `\.?\s+)?` + dayRE + yearRE + `)`,
				// 15-17 March 2024
				`(?i)\b(` + dayRE + rangeRE + dayRE + `\s+` + monthRE + yearRE + `)`,
				// on March 15, 2024
				`(?i)\b(?:on|from|starting|beginning|by)\s+(` + monthRE + `\.?\s+` + dayRE + yearRE + `)`,
				// 3/15/2024 or 3/15-3/17
				`\b(\d{1,2}/\d{1,2}(?:/\d{2,4})?(?:` + rangeRE + `\d{1,2}/\d{1,2}(?:/\d{2,4})?)?)`,
				// in March 2024
				`(?i)\b(?:in|during|around)\s+(` + monthRE + `\s+\d{4})`,
				// March 15
				`\b(` + monthCapRE + `\.?\s+` + dayRE + yearRE + `)`,
			},
			Generic: true,
			Labels:  []string{"Timeline", "Dates", "Date", "Event Date"},
		},
		{
			Kind:     KindLocation,
			Triggers: []string{"location", "venue", "where", "place", "address"},
			Patterns: []string{
				// hosting it in San Francisco Convention Center
				`(?i)\b(?:hosting|hosted|holding|held|having|host)\s+(?:it|this|the\s+(?:event|hackathon))?\s*(?:at|in)\s+(.+?)` + stopRE,
				// at the Moscone Center
				`\b(?:at|in)\s+(?:the\s+)?((?:[A-Z][\w'&.-]*\s+){0,5}(?:Center|Centre|Hall|Arena|Hotel|Campus|University|College|Stadium|Building|Park|Library|Auditorium|Pavilion|Museum))\b`,
				// venue is the Grand Hall
				`(?i)\b(?:venue|location|place)\s+(?:is|will be)\s+(?:at\s+|in\s+)?(.+?)(?:[.!?\n]|$)`,
				// located at 1 Main St
				`(?i)\blocated\s+(?:at|in)\s+(.+?)` + stopRE,
			},
			Generic: true,
			Labels:  []string{"Location", "Venue"},
		},
		{
			Kind:     KindTheme,
			Triggers: []string{"theme", "topic", "focus", "track"},
			Generic:  true,
			Labels:   []string{"Theme", "Topic"},
		},
		{
			Kind:     KindSize,
			Triggers: []string{"size", "participants", "attendees", "people", "headcount", "capacity"},
			Generic:  true,
			Labels:   []string{"Size", "Participants", "Attendees", "Expected Attendance"},
		},
		{
			Kind:     KindBranding,
			Triggers: []string{"brand", "color", "colour", "palette", "hex"},
			HexScan:  true,
			Labels:   []string{"Branding", "Brand Colors", "Colors", "Color Palette"},
		},
	}
}

var defaultLibrary = sync.OnceValue(func() *Library {
	lib, err := NewLibrary(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("extraction: default rules: %v", err))
	}
	return lib
})

// DefaultLibrary returns the shared compiled built-in library.
func DefaultLibrary() *Library {
	return defaultLibrary()
}
