package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/events"
)

// EditTask applies a manual detail edit. Empty details clear the task.
func (s *Service) EditTask(ctx context.Context, phaseID, taskID, details string) (board.Task, error) {
	task, err := s.reconciler.ApplyManual(ctx, phaseID, taskID, details)
	if err != nil {
		return board.Task{}, err
	}
	s.publish(ctx, taskEvent(events.TaskUpdated, phaseID, task))
	return task, nil
}

// ToggleTask flips a task's completion.
func (s *Service) ToggleTask(ctx context.Context, phaseID, taskID string) (board.Task, error) {
	task, err := s.board.ToggleTask(phaseID, taskID)
	if err != nil {
		return board.Task{}, err
	}
	s.publish(ctx, taskEvent(events.TaskToggled, phaseID, task))
	return task, nil
}

// TogglePhase flips whether a phase is expanded.
func (s *Service) TogglePhase(ctx context.Context, phaseID string) (bool, error) {
	open, err := s.board.TogglePhase(phaseID)
	if err != nil {
		return false, err
	}
	s.publish(ctx, events.BoardEvent{
		Type:    events.PhaseToggled,
		PhaseID: phaseID,
		Detail:  fmt.Sprintf("open=%t", open),
	})
	return open, nil
}

// ClearBoard resets the planning phase and deletes its persisted records.
// A store failure is returned after the board has been reset.
func (s *Service) ClearBoard(ctx context.Context) error {
	if err := s.board.ResetPhase(board.PlanningPhaseID); err != nil {
		return err
	}
	s.publish(ctx, events.BoardEvent{Type: events.PhaseReset, PhaseID: board.PlanningPhaseID})

	if s.store == nil {
		return nil
	}
	if err := s.store.ClearPhase(ctx, board.PlanningPhaseID); err != nil {
		s.logger.Error(ctx, "failed to clear persisted task updates", zap.Error(err))
		return fmt.Errorf("clear persisted updates: %w", err)
	}
	return nil
}

func taskEvent(typ events.Type, phaseID string, t board.Task) events.BoardEvent {
	completed := t.Completed
	return events.BoardEvent{
		Type:      typ,
		PhaseID:   phaseID,
		TaskID:    t.ID,
		TaskName:  t.Name,
		Detail:    t.Details,
		Colors:    t.Colors,
		Source:    string(t.Source),
		Status:    string(t.Status),
		Completed: &completed,
	}
}
