// Package board holds the phased planning task board.
//
// The board is the only owner of task state. Callers mutate it through
// UpdateTask, AddTaskDetails and the toggle methods; reads return deep
// copies so callers never alias internal slices.
package board

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

var (
	// ErrPhaseNotFound indicates no phase has the requested id.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrTaskNotFound indicates the phase has no task with the requested id.
	ErrTaskNotFound = errors.New("task not found")
)

// Status is a task's workflow status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Source records who last wrote a task's details.
type Source string

const (
	SourceNone    Source = ""
	SourceChatbot Source = "chatbot"
	SourceManual  Source = "manual"
)

// DetailState is the per-task detail lifecycle:
// empty -> has-detail(manual) <-> has-detail(chatbot) -> empty.
type DetailState string

const (
	DetailEmpty   DetailState = "empty"
	DetailManual  DetailState = "has-detail(manual)"
	DetailChatbot DetailState = "has-detail(chatbot)"
)

// Task is one board item.
type Task struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Completed bool               `json:"completed"`
	Status    Status             `json:"status"`
	Details   string             `json:"details,omitempty"`
	Source    Source             `json:"source,omitempty"`
	Colors    *extraction.Colors `json:"colors,omitempty"`
}

// DetailState derives the task's position in the detail lifecycle.
func (t Task) DetailState() DetailState {
	switch {
	case t.Details == "":
		return DetailEmpty
	case t.Source == SourceManual:
		return DetailManual
	default:
		return DetailChatbot
	}
}

func (t Task) clone() Task {
	if t.Colors != nil {
		c := *t.Colors
		t.Colors = &c
	}
	return t
}

// Phase is an ordered group of tasks.
type Phase struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	IsOpen bool   `json:"is_open"`
	Tasks  []Task `json:"tasks"`
}

func (p Phase) clone() Phase {
	tasks := make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		tasks[i] = t.clone()
	}
	p.Tasks = tasks
	return p
}

// Progress summarizes completion for one phase.
type Progress struct {
	PhaseID   string `json:"phase_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Completed *bool
	Status    *Status
	Details   *string
	Source    *Source
	Colors    *extraction.Colors

	// ClearColors removes the color pair. Ignored when Colors is set.
	ClearColors bool
}

// Board is a concurrency-safe task board.
type Board struct {
	mu       sync.RWMutex
	phases   []Phase
	defaults []Phase
}

// New creates a board from phases. A nil slice uses DefaultPhases.
func New(phases []Phase) *Board {
	if phases == nil {
		phases = DefaultPhases()
	}
	defaults := make([]Phase, len(phases))
	current := make([]Phase, len(phases))
	for i, p := range phases {
		defaults[i] = p.clone()
		current[i] = p.clone()
	}
	return &Board{phases: current, defaults: defaults}
}

// Phases returns a deep copy of every phase.
func (b *Board) Phases() []Phase {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Phase, len(b.phases))
	for i, p := range b.phases {
		out[i] = p.clone()
	}
	return out
}

// Phase returns a copy of one phase.
func (b *Board) Phase(phaseID string) (Phase, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, err := b.findPhase(phaseID)
	if err != nil {
		return Phase{}, err
	}
	return p.clone(), nil
}

// Task returns a copy of one task.
func (b *Board) Task(phaseID, taskID string) (Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.findTask(phaseID, taskID)
	if err != nil {
		return Task{}, err
	}
	return t.clone(), nil
}

// TaskName resolves a task name by id across all phases. Unknown ids
// return "".
func (b *Board) TaskName(taskID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, p := range b.phases {
		for _, t := range p.Tasks {
			if t.ID == taskID {
				return t.Name
			}
		}
	}
	return ""
}

// UpdateTask applies patch to one task.
func (b *Board) UpdateTask(phaseID, taskID string, patch TaskPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.findTask(phaseID, taskID)
	if err != nil {
		return err
	}

	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Details != nil {
		t.Details = *patch.Details
	}
	if patch.Source != nil {
		t.Source = *patch.Source
	}
	switch {
	case patch.Colors != nil:
		c := *patch.Colors
		t.Colors = &c
	case patch.ClearColors:
		t.Colors = nil
	}
	return nil
}

// AddTaskDetails records chatbot-supplied details and closes the task.
func (b *Board) AddTaskDetails(phaseID, taskID, details string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.findTask(phaseID, taskID)
	if err != nil {
		return err
	}
	t.Details = details
	t.Completed = true
	t.Status = StatusDone
	t.Source = SourceChatbot
	return nil
}

// TogglePhase flips whether a phase is expanded.
func (b *Board) TogglePhase(phaseID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.findPhase(phaseID)
	if err != nil {
		return false, err
	}
	p.IsOpen = !p.IsOpen
	return p.IsOpen, nil
}

// ToggleTask flips completion; status follows as done or pending.
func (b *Board) ToggleTask(phaseID, taskID string) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.findTask(phaseID, taskID)
	if err != nil {
		return Task{}, err
	}
	t.Completed = !t.Completed
	if t.Completed {
		t.Status = StatusDone
	} else {
		t.Status = StatusPending
	}
	return t.clone(), nil
}

// Progress reports completed/total for one phase.
func (b *Board) Progress(phaseID string) (Progress, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, err := b.findPhase(phaseID)
	if err != nil {
		return Progress{}, err
	}
	return progressOf(p), nil
}

// AllProgress reports progress for every phase, in board order.
func (b *Board) AllProgress() []Progress {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Progress, 0, len(b.phases))
	for i := range b.phases {
		out = append(out, progressOf(&b.phases[i]))
	}
	return out
}

// ResetPhase restores a phase's tasks to the state the board was built with.
// Open/closed state is kept.
func (b *Board) ResetPhase(phaseID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.findPhase(phaseID)
	if err != nil {
		return err
	}
	for _, d := range b.defaults {
		if d.ID == phaseID {
			p.Tasks = d.clone().Tasks
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no defaults", ErrPhaseNotFound, phaseID)
}

func progressOf(p *Phase) Progress {
	pr := Progress{PhaseID: p.ID, Total: len(p.Tasks)}
	for _, t := range p.Tasks {
		if t.Completed {
			pr.Completed++
		}
	}
	if pr.Total > 0 {
		pr.Percent = pr.Completed * 100 / pr.Total
	}
	return pr
}

// findPhase returns a pointer into b.phases. Caller holds the lock.
func (b *Board) findPhase(phaseID string) (*Phase, error) {
	for i := range b.phases {
		if b.phases[i].ID == phaseID {
			return &b.phases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPhaseNotFound, phaseID)
}

// findTask returns a pointer into the phase's task slice. Caller holds the lock.
func (b *Board) findTask(phaseID, taskID string) (*Task, error) {
	p, err := b.findPhase(phaseID)
	if err != nil {
		return nil, err
	}
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return &p.Tasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrTaskNotFound, phaseID, taskID)
}
