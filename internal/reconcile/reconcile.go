// Package reconcile turns extracted task updates into board mutations and
// persisted records.
//
// Board state is authoritative. Persistence mirrors it sequentially, in the
// order updates were applied, and its failures are logged rather than
// returned; the board is never rolled back.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/store"
)

// Board is the subset of the task board the reconciler mutates.
type Board interface {
	UpdateTask(phaseID, taskID string, patch board.TaskPatch) error
	AddTaskDetails(phaseID, taskID, details string) error
	TaskName(taskID string) string
	Task(phaseID, taskID string) (board.Task, error)
}

// Recorder persists task update records.
type Recorder interface {
	SaveTaskUpdate(ctx context.Context, rec store.Record) error
}

var (
	_ Board    = (*board.Board)(nil)
	_ Recorder = (store.Store)(nil)
)

// Result describes one Apply pass.
type Result struct {
	// Applied holds the updates that reached the board, in order.
	Applied []extraction.TaskUpdate `json:"applied"`

	// Confirmations has one line per applied update.
	Confirmations []string `json:"confirmations"`

	// PersistFailures counts records the store rejected.
	PersistFailures int `json:"persist_failures,omitempty"`
}

// Reconciler applies updates to a board and mirrors them to a recorder.
type Reconciler struct {
	board    Board
	recorder Recorder
	logger   *logging.Logger
}

// New returns a Reconciler. A nil recorder disables persistence.
func New(b Board, rec Recorder, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{board: b, recorder: rec, logger: logger}
}

// Merge combines reply-derived and user-derived updates. At most one update
// per kind survives, primary wins, and the result is in canonical order.
func Merge(primary, secondary []extraction.TaskUpdate) []extraction.TaskUpdate {
	seen := make(map[extraction.FieldKind]bool, len(primary)+len(secondary))
	out := make([]extraction.TaskUpdate, 0, len(primary)+len(secondary))
	for _, list := range [][]extraction.TaskUpdate{primary, secondary} {
		for _, u := range list {
			if u.Kind == extraction.KindNone || seen[u.Kind] {
				continue
			}
			seen[u.Kind] = true
			out = append(out, u)
		}
	}
	extraction.SortUpdates(out)
	return out
}

// Apply mutates the board for each update in order, then persists the
// applied ones in the same order. Updates whose destination does not exist
// are logged and skipped.
func (r *Reconciler) Apply(ctx context.Context, updates []extraction.TaskUpdate) Result {
	res := Result{
		Applied:       make([]extraction.TaskUpdate, 0, len(updates)),
		Confirmations: make([]string, 0, len(updates)),
	}
	records := make([]store.Record, 0, len(updates))

	for _, u := range updates {
		rec, err := r.apply(u)
		if err != nil {
			r.logger.Warn(ctx, "task update not applied",
				zap.String("kind", string(u.Kind)),
				zap.String("phase_id", u.PhaseID),
				zap.String("task_id", u.TaskID),
				zap.Error(err))
			continue
		}
		res.Applied = append(res.Applied, u)
		res.Confirmations = append(res.Confirmations, Confirmation(u))
		records = append(records, rec)
	}

	for _, rec := range records {
		if !r.persist(ctx, rec) {
			res.PersistFailures++
		}
	}
	return res
}

func (r *Reconciler) apply(u extraction.TaskUpdate) (store.Record, error) {
	rec := store.Record{
		PhaseID:  u.PhaseID,
		TaskID:   u.TaskID,
		TaskName: r.board.TaskName(u.TaskID),
		Details:  u.Detail,
		Source:   string(board.SourceChatbot),
	}

	if u.Kind == extraction.KindBranding {
		src := board.SourceChatbot
		patch := board.TaskPatch{Details: &u.Detail, Source: &src}
		if u.Colors != nil {
			c := *u.Colors
			patch.Colors = &c
			rec.Colors = &c
		} else {
			patch.ClearColors = true
		}
		return rec, r.board.UpdateTask(u.PhaseID, u.TaskID, patch)
	}

	if err := r.board.AddTaskDetails(u.PhaseID, u.TaskID, u.Detail); err != nil {
		return rec, err
	}
	done := true
	rec.Completed = &done
	rec.Status = string(board.StatusDone)
	return rec, nil
}

func (r *Reconciler) persist(ctx context.Context, rec store.Record) bool {
	if r.recorder == nil {
		return true
	}
	if err := r.recorder.SaveTaskUpdate(ctx, rec); err != nil {
		r.logger.Error(ctx, "failed to persist task update",
			zap.String("phase_id", rec.PhaseID),
			zap.String("task_id", rec.TaskID),
			zap.Error(err))
		return false
	}
	return true
}

// Confirmation renders the chat line for an applied update.
func Confirmation(u extraction.TaskUpdate) string {
	if u.Kind == extraction.KindBranding && u.Colors != nil {
		return fmt.Sprintf("Updated %s: %s", u.Kind.Label(), u.Colors.String())
	}
	return fmt.Sprintf("Updated %s: %q", u.Kind.Label(), u.Detail)
}

// ApplyManual records a user edit. Non-empty details mark the task as
// manually detailed; empty details remove the detail and reopen the task.
func (r *Reconciler) ApplyManual(ctx context.Context, phaseID, taskID, details string) (board.Task, error) {
	var patch board.TaskPatch
	rec := store.Record{
		PhaseID:  phaseID,
		TaskID:   taskID,
		TaskName: r.board.TaskName(taskID),
		Details:  details,
	}

	if details != "" {
		src := board.SourceManual
		patch = board.TaskPatch{Details: &details, Source: &src}
		rec.Source = string(board.SourceManual)
	} else {
		src := board.SourceNone
		open := false
		pending := board.StatusPending
		patch = board.TaskPatch{
			Details:     &details,
			Source:      &src,
			Completed:   &open,
			Status:      &pending,
			ClearColors: true,
		}
		rec.Completed = &open
		rec.Status = string(board.StatusPending)
	}

	if err := r.board.UpdateTask(phaseID, taskID, patch); err != nil {
		return board.Task{}, err
	}
	r.persist(ctx, rec)
	return r.board.Task(phaseID, taskID)
}
