package extraction

import "strings"

// FieldKind identifies which board field an extracted fact fills.
type FieldKind string

const (
	KindTimeline FieldKind = "timeline"
	KindLocation FieldKind = "location"
	KindTheme    FieldKind = "theme"
	KindSize     FieldKind = "size"
	KindBranding FieldKind = "branding"
	KindNone     FieldKind = "none"
)

// FallbackSecondaryColor fills the secondary slot when only one color is found.
const FallbackSecondaryColor = "#10B981"

// Destination names the board task a kind writes to.
type Destination struct {
	PhaseID string `json:"phase_id"`
	TaskID  string `json:"task_id"`
}

// destinations is the fixed kind -> task table. Both extractors use it.
var destinations = map[FieldKind]Destination{
	KindTimeline: {PhaseID: "1", TaskID: "1-1"},
	KindTheme:    {PhaseID: "1", TaskID: "1-2"},
	KindLocation: {PhaseID: "1", TaskID: "1-3"},
	KindSize:     {PhaseID: "1", TaskID: "1-4"},
	KindBranding: {PhaseID: "1", TaskID: "1-5"},
}

// kindOrder is the canonical output order.
var kindOrder = []FieldKind{
	KindTimeline,
	KindLocation,
	KindTheme,
	KindSize,
	KindBranding,
}

// Kinds returns every extractable kind in canonical order.
func Kinds() []FieldKind {
	out := make([]FieldKind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// DestinationFor returns the board task for kind.
func DestinationFor(kind FieldKind) (Destination, bool) {
	d, ok := destinations[kind]
	return d, ok
}

// ParseKind maps a case-insensitive name onto a FieldKind. Unknown names
// return KindNone.
func ParseKind(s string) FieldKind {
	k := FieldKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := destinations[k]; ok {
		return k
	}
	return KindNone
}

// Label is the display name used in confirmations and summaries.
func (k FieldKind) Label() string {
	switch k {
	case KindTimeline:
		return "Timeline"
	case KindLocation:
		return "Location"
	case KindTheme:
		return "Theme"
	case KindSize:
		return "Size"
	case KindBranding:
		return "Branding"
	default:
		return "None"
	}
}

// rank is the position of k in canonical order, or len(kindOrder) if absent.
func (k FieldKind) rank() int {
	for i, o := range kindOrder {
		if o == k {
			return i
		}
	}
	return len(kindOrder)
}
