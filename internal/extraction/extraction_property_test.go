package extraction

import (
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// phrases mixes neutral filler with cues for every kind.
var phrases = []string{
	"thanks",
	"sounds great",
	"we are excited",
	"from March 15-17, 2024",
	"on April 2",
	"hosting it in Austin",
	"at the Moscone Center",
	"venue: Pier 48",
	"theme: climate tech",
	"the topic is health",
	"size: 300 people",
	"participants are students",
	"brand colors #112233 and #445566",
	"palette #ABCDEF",
	"**Timeline:** May 1-2",
	"**Branding:** #010203",
}

// neutralWords contain no trigger keyword and no positional cue.
var neutralWords = []string{
	"thanks", "sounds", "great", "pizza", "really", "cool", "ok", "super", "love", "this", "idea", "nice",
}

func drawText(rt *rapid.T, pool []string, sep string) string {
	parts := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 8).Draw(rt, "parts")
	return strings.Join(parts, sep)
}

// TestProperty_NoTriggerNoUpdate verifies that gated kinds never fire without
// one of their trigger keywords.
func TestProperty_NoTriggerNoUpdate(t *testing.T) {
	lib := DefaultLibrary()
	ext := NewLooseExtractor(lib)

	gated := map[FieldKind][]string{}
	for _, r := range lib.Rules() {
		if len(r.Patterns) == 0 {
			gated[r.Kind] = r.Triggers
		}
	}

	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-z0-9 #:.,A-F]{0,60}`).Draw(rt, "text")
		lower := strings.ToLower(text)

		for _, u := range ext.Extract(text) {
			triggers, ok := gated[u.Kind]
			if !ok {
				continue
			}
			hit := false
			for _, trig := range triggers {
				if strings.Contains(lower, trig) {
					hit = true
					break
				}
			}
			if !hit {
				rt.Fatalf("kind %s extracted from %q without a trigger", u.Kind, text)
			}
		}
	})
}

// TestProperty_NeutralTextYieldsNothing verifies both extractors stay silent
// on text with no cues at all.
func TestProperty_NeutralTextYieldsNothing(t *testing.T) {
	loose := NewLooseExtractor(nil)
	labeled := NewLabeledExtractor(nil)

	rapid.Check(t, func(rt *rapid.T) {
		text := drawText(rt, neutralWords, " ")
		if got := loose.Extract(text); len(got) != 0 {
			rt.Fatalf("loose extracted %v from %q", got, text)
		}
		if got := labeled.Extract(text); len(got) != 0 {
			rt.Fatalf("labeled extracted %v from %q", got, text)
		}
	})
}

// TestProperty_TimelineLabelRoundTrip verifies a labeled timeline value is
// returned trimmed and unchanged.
func TestProperty_TimelineLabelRoundTrip(t *testing.T) {
	ext := NewLabeledExtractor(nil)

	rapid.Check(t, func(rt *rapid.T) {
		preamble := rapid.StringMatching(`[a-z ]{0,20}`).Draw(rt, "preamble")
		value := rapid.StringMatching(`[ ]{0,3}[A-Za-z0-9][A-Za-z0-9 ,-]{0,30}`).Draw(rt, "value")
		label := rapid.SampledFrom([]string{"**Timeline:** ", "**Timeline**: ", "Timeline: ", "Timeline : "}).Draw(rt, "label")

		got := ext.Extract(preamble + "\n" + label + value + "\n")

		var timeline []TaskUpdate
		for _, u := range got {
			if u.Kind == KindTimeline {
				timeline = append(timeline, u)
			}
		}
		if len(timeline) != 1 {
			rt.Fatalf("want exactly one timeline update, got %v", got)
		}
		if timeline[0].Detail != strings.TrimSpace(value) {
			rt.Fatalf("detail = %q, want %q", timeline[0].Detail, strings.TrimSpace(value))
		}
	})
}

// TestProperty_BrandingTakesFirstTwoColors verifies the two-color rule inside
// a branding label.
func TestProperty_BrandingTakesFirstTwoColors(t *testing.T) {
	ext := NewLabeledExtractor(nil)
	hex := rapid.StringMatching(`#[0-9A-F]{6}`)
	filler := rapid.StringMatching(`[a-z ,]{0,10}`)

	rapid.Check(t, func(rt *rapid.T) {
		c1 := hex.Draw(rt, "c1")
		c2 := hex.Draw(rt, "c2")
		c3 := hex.Draw(rt, "c3")
		if strings.EqualFold(c1, c2) {
			return
		}

		text := "**Branding:** " + filler.Draw(rt, "a") + " " + c1 + " " + filler.Draw(rt, "b") + " " + c2 + " " + c3

		got := ext.Extract(text)
		if len(got) != 1 || got[0].Colors == nil {
			rt.Fatalf("want one branding update, got %v", got)
		}
		if got[0].Colors.Primary != c1 || got[0].Colors.Secondary != c2 {
			rt.Fatalf("colors = %+v, want %s/%s", *got[0].Colors, c1, c2)
		}
	})
}

// TestProperty_BrandingSingleColorFallback verifies the fallback secondary.
func TestProperty_BrandingSingleColorFallback(t *testing.T) {
	ext := NewLabeledExtractor(nil)

	rapid.Check(t, func(rt *rapid.T) {
		c := rapid.StringMatching(`#[0-9a-fA-F]{6}`).Draw(rt, "color")
		got := ext.Extract("**Branding:** main " + c + " only")
		if len(got) != 1 || got[0].Colors == nil {
			rt.Fatalf("want one branding update, got %v", got)
		}
		if got[0].Colors.Secondary != FallbackSecondaryColor {
			rt.Fatalf("secondary = %q, want %q", got[0].Colors.Secondary, FallbackSecondaryColor)
		}
	})
}

// TestProperty_ExtractIsIdempotent verifies repeated runs agree and never
// emit a kind twice or out of order.
func TestProperty_ExtractIsIdempotent(t *testing.T) {
	extractors := map[string]TextFieldExtractor{
		"loose":   NewLooseExtractor(nil),
		"labeled": NewLabeledExtractor(nil),
	}

	rapid.Check(t, func(rt *rapid.T) {
		text := drawText(rt, phrases, rapid.SampledFrom([]string{". ", "\n", ", "}).Draw(rt, "sep"))

		for name, ext := range extractors {
			first := ext.Extract(text)
			second := ext.Extract(text)
			if !reflect.DeepEqual(first, second) {
				rt.Fatalf("%s: runs differ on %q: %v vs %v", name, text, first, second)
			}

			last := -1
			seen := map[FieldKind]bool{}
			for _, u := range first {
				if seen[u.Kind] {
					rt.Fatalf("%s: kind %s emitted twice for %q", name, u.Kind, text)
				}
				seen[u.Kind] = true
				if r := u.Kind.rank(); r <= last {
					rt.Fatalf("%s: kind %s out of order for %q", name, u.Kind, text)
				} else {
					last = r
				}
				if u.Detail == "" {
					rt.Fatalf("%s: empty detail for %s in %q", name, u.Kind, text)
				}
			}
		}
	})
}
