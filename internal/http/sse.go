package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/events"
)

// handleEvents streams board events as Server-Sent Events.
//
//	GET /api/v1/board/events
//
//	event: task.updated
//	data: {"id":"...","type":"task.updated","phase_id":"1","task_id":"1-1",...}
//
// An optional ?phase= filter limits the stream to one phase.
func (s *Server) handleEvents(c echo.Context) error {
	if s.deps.Bus == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "board events are disabled")
	}
	phase := c.QueryParam("phase")

	ch := make(chan events.BoardEvent, 16)
	cancel, err := s.deps.Bus.Subscribe(func(ev events.BoardEvent) {
		if phase != "" && ev.PhaseID != phase {
			return
		}
		select {
		case ch <- ev:
		default:
			// Slow client; drop rather than block publishers.
		}
	})
	if err != nil {
		return err
	}
	defer cancel()

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn(ctx, "failed to encode board event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\n", ev.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			w.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			w.Flush()

		case <-ctx.Done():
			return nil
		}
	}
}
