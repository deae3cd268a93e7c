// Package http serves the planboard REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/events"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/telemetry"
	"github.com/fyrsmithlabs/planboard/internal/voice"
)

// Caller places and ends outbound calls.
type Caller interface {
	Call(ctx context.Context, target voice.Target) voice.Status
	EndCall(ctx context.Context) (voice.Status, error)
	Status() voice.Status
}

var _ Caller = (*voice.Client)(nil)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Prometheus exposes /metrics from Gatherer.
	Prometheus bool
	Gatherer   prometheus.Gatherer

	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

// Deps are the services behind the API. Chat is required.
type Deps struct {
	Chat      *chat.Service
	Calls     Caller
	Bus       events.Bus
	Library   extraction.LibrarySource
	Store     Pinger
	Telemetry *telemetry.Telemetry
	Version   string
}

// Server provides the planboard HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	labeled *extraction.LabeledExtractor
	loose   *extraction.LooseExtractor
	logger  *logging.Logger
	config  *Config
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *logging.Logger, cfg *Config) (*Server, error) {
	if deps.Chat == nil {
		return nil, errors.New("chat service cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9090}
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 30 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Library == nil {
		deps.Library = extraction.DefaultLibrary()
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(NewHTTPMetrics(deps.Telemetry.Meter(httpInstrumentationName), logger).MetricsMiddleware())

	s := &Server{
		echo:    e,
		deps:    deps,
		labeled: extraction.NewLabeledExtractor(deps.Library),
		loose:   extraction.NewLooseExtractor(deps.Library),
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

// requestLogger puts the request id on the context and logs each request.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), rid)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.config.Prometheus {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat", s.handleChat)
	v1.POST("/chat/reset", s.handleChatReset)
	v1.POST("/extract", s.handleExtract)

	v1.GET("/board", s.handleBoard)
	v1.POST("/board/reset", s.handleBoardReset)
	v1.GET("/board/export", s.handleExport)
	v1.GET("/board/events", s.handleEvents)
	v1.POST("/board/phases/:phase/toggle", s.handleTogglePhase)
	v1.POST("/board/phases/:phase/tasks/:task/toggle", s.handleToggleTask)
	v1.PUT("/board/phases/:phase/tasks/:task/details", s.handleEditTask)

	v1.POST("/calls/end", s.handleEndCall)
	v1.GET("/calls/status", s.handleCallStatus)
	v1.POST("/calls/:target", s.handleCall)
}

// handleHealth reports overall and per-dependency health.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.deps.Version, Services: map[string]string{}}

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(c.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Services["store"] = "error: " + err.Error()
		} else {
			resp.Services["store"] = "ok"
		}
	}
	if s.deps.Telemetry != nil {
		h := s.deps.Telemetry.Health()
		switch {
		case !s.deps.Telemetry.IsEnabled():
			resp.Services["telemetry"] = "disabled"
		case h.Degraded || !h.Healthy:
			resp.Status = "degraded"
			resp.Services["telemetry"] = "degraded: " + h.Reason
		default:
			resp.Services["telemetry"] = "ok"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}
