package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
	"github.com/fyrsmithlabs/planboard/internal/export"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/voice"
)

// httpError maps domain errors to status codes. Unknown errors pass
// through and render as 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, board.ErrPhaseNotFound), errors.Is(err, board.ErrTaskNotFound),
		errors.Is(err, conversation.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, conversation.ErrInvalidSessionID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	turn, err := s.deps.Chat.Send(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, turn)
}

func (s *Server) handleChatReset(c echo.Context) error {
	var req ChatResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id field is required")
	}
	if err := s.deps.Chat.Reset(req.SessionID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleExtract runs an extractor without touching the board.
func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var ext extraction.TextFieldExtractor
	switch req.Mode {
	case "", "reply":
		req.Mode = "reply"
		ext = s.labeled
	case "user":
		ext = s.loose
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be reply or user")
	}
	return c.JSON(http.StatusOK, ExtractResponse{Mode: req.Mode, Updates: ext.Extract(req.Text)})
}

func (s *Server) handleBoard(c echo.Context) error {
	b := s.deps.Chat.Board()
	return c.JSON(http.StatusOK, BoardResponse{Phases: b.Phases(), Progress: b.AllProgress()})
}

func (s *Server) handleBoardReset(c echo.Context) error {
	if err := s.deps.Chat.ClearBoard(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return s.handleBoard(c)
}

func (s *Server) handleTogglePhase(c echo.Context) error {
	phaseID := c.Param("phase")
	open, err := s.deps.Chat.TogglePhase(c.Request().Context(), phaseID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, TogglePhaseResponse{PhaseID: phaseID, IsOpen: open})
}

func (s *Server) handleToggleTask(c echo.Context) error {
	task, err := s.deps.Chat.ToggleTask(c.Request().Context(), c.Param("phase"), c.Param("task"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleEditTask(c echo.Context) error {
	var req EditTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	task, err := s.deps.Chat.EditTask(c.Request().Context(), c.Param("phase"), c.Param("task"), strings.TrimSpace(req.Details))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleExport(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc := export.Build(s.deps.Chat.Board(), c.QueryParam("title"), time.Now())
	var buf bytes.Buffer
	if err := export.Write(&buf, doc, format); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleCall(c echo.Context) error {
	if s.deps.Calls == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice calling is disabled")
	}
	target, err := voice.ParseTarget(c.Param("target"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, s.deps.Calls.Call(c.Request().Context(), target))
}

func (s *Server) handleEndCall(c echo.Context) error {
	if s.deps.Calls == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "voice calling is disabled")
	}
	st, err := s.deps.Calls.EndCall(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleCallStatus(c echo.Context) error {
	if s.deps.Calls == nil {
		return c.JSON(http.StatusOK, voice.Status{State: voice.StateIdle})
	}
	return c.JSON(http.StatusOK, s.deps.Calls.Status())
}
