package http

import (
	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResetRequest is the request body for POST /api/v1/chat/reset.
type ChatResetRequest struct {
	SessionID string `json:"session_id"`
}

// ExtractRequest is the request body for POST /api/v1/extract.
// Mode is "reply" (labeled) or "user" (loose).
type ExtractRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// ExtractResponse lists the updates found.
type ExtractResponse struct {
	Mode    string                  `json:"mode"`
	Updates []extraction.TaskUpdate `json:"updates"`
}

// BoardResponse is the response body for GET /api/v1/board.
type BoardResponse struct {
	Phases   []board.Phase    `json:"phases"`
	Progress []board.Progress `json:"progress"`
}

// TogglePhaseResponse reports a phase's new open state.
type TogglePhaseResponse struct {
	PhaseID string `json:"phase_id"`
	IsOpen  bool   `json:"is_open"`
}

// EditTaskRequest is the request body for the manual details edit.
type EditTaskRequest struct {
	Details string `json:"details"`
}
