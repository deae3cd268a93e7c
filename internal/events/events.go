// Package events publishes board changes so other processes (and the SSE
// endpoint) can follow the board live.
//
// Events are published on
//
//	<prefix>.board.<phase_id>.<task_id>
//
// Phase-wide events use "phase" as the task token.
package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

// ErrClosed is returned by a closed bus.
var ErrClosed = errors.New("event bus closed")

// Type names what happened.
type Type string

const (
	TaskUpdated   Type = "task.updated"
	TaskToggled   Type = "task.toggled"
	PhaseToggled  Type = "phase.toggled"
	PhaseReset    Type = "phase.reset"
	TurnCompleted Type = "turn.completed"
)

// phaseToken stands in for the task id on phase-wide subjects.
const phaseToken = "phase"

// BoardEvent is the published payload.
type BoardEvent struct {
	ID        string             `json:"id"`
	Type      Type               `json:"type"`
	PhaseID   string             `json:"phase_id"`
	TaskID    string             `json:"task_id,omitempty"`
	TaskName  string             `json:"task_name,omitempty"`
	Detail    string             `json:"detail,omitempty"`
	Colors    *extraction.Colors `json:"colors,omitempty"`
	Source    string             `json:"source,omitempty"`
	Status    string             `json:"status,omitempty"`
	Completed *bool              `json:"completed,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	At        time.Time          `json:"at"`
}

// Publisher sends board events.
type Publisher interface {
	Publish(ctx context.Context, ev BoardEvent) error
}

// Handler receives events from a subscription.
type Handler func(BoardEvent)

// Bus publishes events and delivers them to subscribers.
type Bus interface {
	Publisher

	// Subscribe delivers every board event to h until the returned cancel
	// func is called.
	Subscribe(h Handler) (cancel func(), err error)

	Close() error
}

// Subject returns the subject ev is published on.
func Subject(prefix string, ev BoardEvent) string {
	task := ev.TaskID
	if task == "" {
		task = phaseToken
	}
	return strings.Join([]string{prefix, "board", token(ev.PhaseID), token(task)}, ".")
}

// token keeps ids from introducing extra subject levels or wildcards.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

func stamp(ev BoardEvent) BoardEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}

// Nop discards events.
type Nop struct{}

var _ Publisher = Nop{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, BoardEvent) error { return nil }
