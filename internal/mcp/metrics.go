package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
	"github.com/fyrsmithlabs/planboard/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/planboard/internal/mcp"

// Metrics holds tool invocation instruments.
type Metrics struct {
	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics creates tool instruments on meter. Instruments that fail to
// register are logged and skipped.
func NewMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	m := &Metrics{}
	ctx := context.Background()
	var err error

	m.invocations, err = meter.Int64Counter(
		"planboard.mcp.tool.invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"planboard.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"planboard.mcp.tool.errors_total",
		metric.WithDescription("Total number of MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create errors counter", zap.Error(err))
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"planboard.mcp.tool.active_requests",
		metric.WithDescription("Number of currently active MCP tool requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create active requests gauge", zap.Error(err))
	}
	return m
}

// track marks a tool call active and returns the func that records it.
func (m *Metrics) track(ctx context.Context, tool string) func(error) {
	attrs := []attribute.KeyValue{attribute.String("tool", tool)}
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	start := time.Now()

	return func(err error) {
		if m.activeRequests != nil {
			m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
		}
		if m.invocations != nil {
			m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		}
		if err != nil && m.errors != nil {
			m.errors.Add(ctx, 1, metric.WithAttributes(
				append(attrs, attribute.String("reason", categorizeError(err)))...,
			))
		}
	}
}

func categorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, board.ErrPhaseNotFound), errors.Is(err, board.ErrTaskNotFound),
		errors.Is(err, conversation.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, conversation.ErrInvalidSessionID):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "required"):
		return "validation_error"
	case strings.Contains(msg, "store") || strings.Contains(msg, "persist"):
		return "storage_error"
	default:
		return "internal_error"
	}
}
