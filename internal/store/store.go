// Package store persists a record of every task update the board accepts.
//
// Records are insert-only; the only delete is ClearPhase, used when a board
// phase is reset.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Record mirrors one applied task update.
type Record struct {
	ID        string             `json:"id"`
	PhaseID   string             `json:"phase_id"`
	TaskID    string             `json:"task_id"`
	TaskName  string             `json:"task_name"`
	Details   string             `json:"details"`
	Colors    *extraction.Colors `json:"colors,omitempty"`
	Source    string             `json:"source"`
	Status    string             `json:"status"`
	Completed *bool              `json:"completed,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store is the task update record store.
type Store interface {
	// SaveTaskUpdate inserts rec. ID and CreatedAt are filled in when empty.
	SaveTaskUpdate(ctx context.Context, rec Record) error

	// ClearPhase deletes every record for phaseID.
	ClearPhase(ctx context.Context, phaseID string) error

	// ListTaskUpdates returns the records for phaseID oldest first.
	// An empty phaseID lists everything.
	ListTaskUpdates(ctx context.Context, phaseID string) ([]Record, error)

	Close() error
}
