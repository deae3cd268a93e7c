package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts store calls.
	// Labels: op (save, clear, list), result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planboard",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of task update store operations",
		},
		[]string{"op", "result"},
	)

	// OperationDuration tracks store call latency.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planboard",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of task update store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Instrumented records Prometheus metrics around another Store.
type Instrumented struct {
	next Store
}

var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps next.
func NewInstrumented(next Store) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time, err error) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(op, result).Inc()
}

func (s *Instrumented) SaveTaskUpdate(ctx context.Context, rec Record) (err error) {
	defer func(start time.Time) { observe("save", start, err) }(time.Now())
	return s.next.SaveTaskUpdate(ctx, rec)
}

func (s *Instrumented) ClearPhase(ctx context.Context, phaseID string) (err error) {
	defer func(start time.Time) { observe("clear", start, err) }(time.Now())
	return s.next.ClearPhase(ctx, phaseID)
}

func (s *Instrumented) ListTaskUpdates(ctx context.Context, phaseID string) (recs []Record, err error) {
	defer func(start time.Time) { observe("list", start, err) }(time.Now())
	return s.next.ListTaskUpdates(ctx, phaseID)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
