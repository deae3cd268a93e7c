package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindsOf(updates []TaskUpdate) []FieldKind {
	out := make([]FieldKind, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.Kind)
	}
	return out
}

func find(updates []TaskUpdate, kind FieldKind) (TaskUpdate, bool) {
	for _, u := range updates {
		if u.Kind == kind {
			return u, true
		}
	}
	return TaskUpdate{}, false
}

func TestDestinationTable(t *testing.T) {
	tests := []struct {
		kind  FieldKind
		phase string
		task  string
	}{
		{KindTimeline, "1", "1-1"},
		{KindTheme, "1", "1-2"},
		{KindLocation, "1", "1-3"},
		{KindSize, "1", "1-4"},
		{KindBranding, "1", "1-5"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d, ok := DestinationFor(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.phase, d.PhaseID)
			assert.Equal(t, tt.task, d.TaskID)
		})
	}

	_, ok := DestinationFor(KindNone)
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindTimeline, ParseKind("Timeline"))
	assert.Equal(t, KindBranding, ParseKind(" branding "))
	assert.Equal(t, KindNone, ParseKind("budget"))
	assert.Equal(t, KindNone, ParseKind(""))
}

func TestLooseExtractor_Extract(t *testing.T) {
	ext := NewLooseExtractor(nil)

	tests := []struct {
		name      string
		input     string
		wantKinds []FieldKind
		want      map[FieldKind]string
	}{
		{
			name:      "venue and date range in one sentence",
			input:     "We're hosting it in San Francisco Convention Center from March 15-17, 2024",
			wantKinds: []FieldKind{KindTimeline, KindLocation},
			want: map[FieldKind]string{
				KindTimeline: "March 15-17, 2024",
				KindLocation: "San Francisco Convention Center",
			},
		},
		{
			name:  "no trigger keywords",
			input: "Thanks, sounds great!",
		},
		{
			name:      "generic theme capture",
			input:     "The theme: retro gaming. We expect a lot of people.",
			wantKinds: []FieldKind{KindTheme},
			want:      map[FieldKind]string{KindTheme: "retro gaming"},
		},
		{
			name:      "size needs a delimiter after the keyword",
			input:     "Our headcount is 250 hackers",
			wantKinds: []FieldKind{KindSize},
			want:      map[FieldKind]string{KindSize: "250 hackers"},
		},
		{
			name:      "location generic fallback",
			input:     "Venue: Grand Ballroom",
			wantKinds: []FieldKind{KindLocation},
			want:      map[FieldKind]string{KindLocation: "Grand Ballroom"},
		},
		{
			name:      "venue noun after preposition",
			input:     "It will be at the Moscone Center on Friday",
			wantKinds: []FieldKind{KindLocation},
			want:      map[FieldKind]string{KindLocation: "Moscone Center"},
		},
		{
			name:      "numeric date range",
			input:     "Save the dates 3/15-3/17",
			wantKinds: []FieldKind{KindTimeline},
			want:      map[FieldKind]string{KindTimeline: "3/15-3/17"},
		},
		{
			name:      "first matching date wins",
			input:     "Either March 1-2 or April 5-6 works",
			wantKinds: []FieldKind{KindTimeline},
			want:      map[FieldKind]string{KindTimeline: "March 1-2"},
		},
		{
			name:      "branding with two colors",
			input:     "Our brand colors are #FF5733 and #33FF57",
			wantKinds: []FieldKind{KindBranding},
			want:      map[FieldKind]string{KindBranding: "Primary: #FF5733, Secondary: #33FF57"},
		},
		{
			name:  "hex without branding trigger",
			input: "use #FF5733",
		},
		{
			name:  "branding trigger without hex",
			input: "we love the color blue",
		},
		{
			name:  "of is not a delimiter",
			input: "Let's keep track of the budget.",
		},
		{
			name:  "lowercase may is a verb",
			input: "I may 3 times ask this",
		},
		{
			name:      "capitalised month without range",
			input:     "Kickoff is May 3rd",
			wantKinds: []FieldKind{KindTimeline},
			want:      map[FieldKind]string{KindTimeline: "May 3rd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ext.Extract(tt.input)
			if len(tt.wantKinds) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.wantKinds, kindsOf(got))
			for kind, detail := range tt.want {
				u, ok := find(got, kind)
				require.True(t, ok, "missing %s", kind)
				assert.Equal(t, detail, u.Detail)
			}
		})
	}
}

func TestLooseExtractor_BrandingColors(t *testing.T) {
	ext := NewLooseExtractor(nil)

	t.Run("single color falls back", func(t *testing.T) {
		got := ext.Extract("brand color #123456")
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Colors)
		assert.Equal(t, "#123456", got[0].Colors.Primary)
		assert.Equal(t, FallbackSecondaryColor, got[0].Colors.Secondary)
		assert.Equal(t, "1", got[0].PhaseID)
		assert.Equal(t, "1-5", got[0].TaskID)
	})

	t.Run("repeated color counts once", func(t *testing.T) {
		got := ext.Extract("palette: #abcdef, #ABCDEF, #000000")
		require.Len(t, got, 1)
		assert.Equal(t, Colors{Primary: "#abcdef", Secondary: "#000000"}, *got[0].Colors)
	})

	t.Run("eight digit hex is ignored", func(t *testing.T) {
		got := ext.Extract("brand color #11223344")
		assert.Empty(t, got)
	})
}

func TestLabeledExtractor_Extract(t *testing.T) {
	ext := NewLabeledExtractor(nil)

	t.Run("theme and size", func(t *testing.T) {
		got := ext.Extract("**Theme:** Generative AI\n**Size:** 400 participants")
		require.Equal(t, []FieldKind{KindTheme, KindSize}, kindsOf(got))

		assert.Equal(t, "Generative AI", got[0].Detail)
		assert.Equal(t, "1", got[0].PhaseID)
		assert.Equal(t, "1-2", got[0].TaskID)

		assert.Equal(t, "400 participants", got[1].Detail)
		assert.Equal(t, "1", got[1].PhaseID)
		assert.Equal(t, "1-4", got[1].TaskID)
	})

	t.Run("branding two colors", func(t *testing.T) {
		got := ext.Extract("**Branding:** Primary #1A2B3C, Secondary #4D5E6F")
		require.Len(t, got, 1)
		assert.Equal(t, KindBranding, got[0].Kind)
		assert.Equal(t, Colors{Primary: "#1A2B3C", Secondary: "#4D5E6F"}, *got[0].Colors)
		assert.Equal(t, "Primary: #1A2B3C, Secondary: #4D5E6F", got[0].Detail)
	})

	t.Run("branding one color", func(t *testing.T) {
		got := ext.Extract("**Branding:** Use #ABCDEF as the main color")
		require.Len(t, got, 1)
		assert.Equal(t, Colors{Primary: "#ABCDEF", Secondary: "#10B981"}, *got[0].Colors)
	})

	t.Run("branding scan stays inside the label span", func(t *testing.T) {
		got := ext.Extract("**Branding:** #111111\nAccent elsewhere #222222")
		require.Len(t, got, 1)
		assert.Equal(t, "#111111", got[0].Colors.Primary)
		assert.Equal(t, FallbackSecondaryColor, got[0].Colors.Secondary)
	})

	t.Run("branding label without colors", func(t *testing.T) {
		assert.Empty(t, ext.Extract("**Branding:** blue and gold"))
	})

	t.Run("never falls back to loose patterns", func(t *testing.T) {
		assert.Empty(t, ext.Extract("We're hosting it in Austin from March 3-4, 2025."))
	})

	t.Run("value stops at next inline label", func(t *testing.T) {
		got := ext.Extract("**Theme:** AI for Good **Size:** 200")
		require.Equal(t, []FieldKind{KindTheme, KindSize}, kindsOf(got))
		assert.Equal(t, "AI for Good", got[0].Detail)
		assert.Equal(t, "200", got[1].Detail)
	})

	t.Run("first label occurrence wins", func(t *testing.T) {
		got := ext.Extract("**Timeline:** A\n**Timeline:** B")
		require.Len(t, got, 1)
		assert.Equal(t, "A", got[0].Detail)
	})
}

func TestLabeledExtractor_LabelVariants(t *testing.T) {
	ext := NewLabeledExtractor(nil)

	tests := []struct {
		name  string
		input string
	}{
		{"bold with inner colon", "**Timeline:** June 5-6"},
		{"bold with outer colon", "**Timeline**: June 5-6"},
		{"plain colon", "Timeline: June 5-6"},
		{"spaced colon", "Timeline : June 5-6"},
		{"list item", "- **Timeline:** June 5-6"},
		{"lowercase label", "timeline: June 5-6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ext.Extract("Here is the summary.\n" + tt.input + "\nLet me know!")
			require.Len(t, got, 1)
			assert.Equal(t, KindTimeline, got[0].Kind)
			assert.Equal(t, "June 5-6", got[0].Detail)
		})
	}
}

func TestSortUpdates(t *testing.T) {
	updates := []TaskUpdate{
		{Kind: KindBranding},
		{Kind: KindTimeline},
		{Kind: KindSize},
		{Kind: KindLocation},
	}
	SortUpdates(updates)
	assert.Equal(t, []FieldKind{KindTimeline, KindLocation, KindSize, KindBranding}, kindsOf(updates))
}

func TestHexColors(t *testing.T) {
	assert.Nil(t, HexColors("no colors"))
	assert.Equal(t, []string{"#AABBCC", "#112233"}, HexColors("#AABBCC then #112233 then #aabbcc"))
	assert.True(t, IsHexColor("#10B981"))
	assert.False(t, IsHexColor("#10B98"))
	assert.False(t, IsHexColor("10B981"))
}
