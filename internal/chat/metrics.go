package chat

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/planboard/internal/chat"

// turnMetrics holds chat turn instruments. Nil instruments are skipped.
type turnMetrics struct {
	turns     metric.Int64Counter
	duration  metric.Float64Histogram
	extracted metric.Int64Counter
	applied   metric.Int64Counter
}

func newTurnMetrics(meter metric.Meter, logger *logging.Logger) *turnMetrics {
	m := &turnMetrics{}
	ctx := context.Background()
	var err error

	m.turns, err = meter.Int64Counter(
		"planboard.chat.turns_total",
		metric.WithDescription("Chat turns labeled by result (ok, failed)."),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create turns counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"planboard.chat.turn_duration_seconds",
		metric.WithDescription("Chat turn duration in seconds, completion call included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create turn duration histogram", zap.Error(err))
	}

	m.extracted, err = meter.Int64Counter(
		"planboard.extraction.updates_total",
		metric.WithDescription("Task updates extracted, labeled by kind and origin (reply, user)."),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create extraction counter", zap.Error(err))
	}

	m.applied, err = meter.Int64Counter(
		"planboard.reconcile.applied_total",
		metric.WithDescription("Task updates applied to the board, labeled by kind."),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create applied counter", zap.Error(err))
	}
	return m
}

func (m *turnMetrics) recordTurn(ctx context.Context, result string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	if m.turns != nil {
		m.turns.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

func (m *turnMetrics) recordExtracted(ctx context.Context, origin string, updates []extraction.TaskUpdate) {
	if m.extracted == nil {
		return
	}
	for _, u := range updates {
		m.extracted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(u.Kind)),
			attribute.String("origin", origin),
		))
	}
}

func (m *turnMetrics) recordApplied(ctx context.Context, updates []extraction.TaskUpdate) {
	if m.applied == nil {
		return
	}
	for _, u := range updates {
		m.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(u.Kind))))
	}
}
