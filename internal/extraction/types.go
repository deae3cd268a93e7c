package extraction

import (
	"fmt"
	"sort"
)

// Colors is a branding color pair. Each value is "#" followed by six hex digits.
type Colors struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
}

// String renders the pair the way branding details are stored.
func (c Colors) String() string {
	return fmt.Sprintf("Primary: %s, Secondary: %s", c.Primary, c.Secondary)
}

// TaskUpdate is one extracted fact bound for a board task.
type TaskUpdate struct {
	Kind    FieldKind `json:"kind"`
	Detail  string    `json:"detail"`
	PhaseID string    `json:"phase_id"`
	TaskID  string    `json:"task_id"`

	// Colors is set only for KindBranding.
	Colors *Colors `json:"colors,omitempty"`
}

// newUpdate binds detail to the destination for kind.
func newUpdate(kind FieldKind, detail string) TaskUpdate {
	d := destinations[kind]
	return TaskUpdate{
		Kind:    kind,
		Detail:  detail,
		PhaseID: d.PhaseID,
		TaskID:  d.TaskID,
	}
}

// newBrandingUpdate builds a branding update whose detail mirrors the pair.
func newBrandingUpdate(c Colors) TaskUpdate {
	u := newUpdate(KindBranding, c.String())
	u.Colors = &c
	return u
}

// Match is the result of running one kind's rules over a text. A miss is
// not an error.
type Match struct {
	Update TaskUpdate
	OK     bool
}

// NoMatch is the zero Match.
var NoMatch = Match{}

// Matched wraps u as a successful Match.
func Matched(u TaskUpdate) Match {
	return Match{Update: u, OK: true}
}

// TextFieldExtractor pulls task updates out of a piece of text.
type TextFieldExtractor interface {
	// Extract returns at most one update per kind, in canonical kind order.
	Extract(text string) []TaskUpdate
}

// SortUpdates orders updates by canonical kind order. Stable for equal kinds.
func SortUpdates(updates []TaskUpdate) {
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Kind.rank() < updates[j].Kind.rank()
	})
}
