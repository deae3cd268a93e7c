// Package chat runs conversation turns: it calls the completion model,
// extracts task updates from the reply and the user's message, and applies
// them to the board.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/completion"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
	"github.com/fyrsmithlabs/planboard/internal/events"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/reconcile"
	"github.com/fyrsmithlabs/planboard/internal/store"
	"github.com/fyrsmithlabs/planboard/internal/telemetry"
)

// ErrEmptyMessage rejects blank user input.
var ErrEmptyMessage = errors.New("message is empty")

// Turn is the outcome of one Send.
type Turn struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`

	// Failed is set when the completion call failed; Reply then holds the
	// user-facing error text and nothing was extracted.
	Failed bool `json:"failed,omitempty"`

	Updates       []extraction.TaskUpdate `json:"updates"`
	Confirmations []string                `json:"confirmations"`
}

// Options wires a Service. Completion and Board are required.
type Options struct {
	Sessions   *conversation.Manager
	Completion completion.Client
	Library    extraction.LibrarySource
	Board      *board.Board
	Store      store.Store
	Events     events.Publisher
	Telemetry  *telemetry.Telemetry
	Logger     *logging.Logger

	// ScanUserText also runs the loose extractor over the user's message.
	ScanUserText bool
}

// Service runs chat turns against one board.
type Service struct {
	sessions   *conversation.Manager
	completion completion.Client
	labeled    *extraction.LabeledExtractor
	loose      *extraction.LooseExtractor
	board      *board.Board
	store      store.Store
	reconciler *reconcile.Reconciler
	events     events.Publisher
	tracer     trace.Tracer
	metrics    *turnMetrics
	logger     *logging.Logger
	scanUser   bool
}

// NewService builds a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Completion == nil {
		return nil, errors.New("chat: completion client is required")
	}
	if opts.Board == nil {
		return nil, errors.New("chat: board is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = conversation.NewManager(0)
	}
	if opts.Library == nil {
		opts.Library = extraction.DefaultLibrary()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	logger := opts.Logger.Named("chat")

	var rec reconcile.Recorder
	if opts.Store != nil {
		rec = opts.Store
	}

	return &Service{
		sessions:   opts.Sessions,
		completion: opts.Completion,
		labeled:    extraction.NewLabeledExtractor(opts.Library),
		loose:      extraction.NewLooseExtractor(opts.Library),
		board:      opts.Board,
		store:      opts.Store,
		reconciler: reconcile.New(opts.Board, rec, logger),
		events:     opts.Events,
		tracer:     opts.Telemetry.Tracer(instrumentationName),
		metrics:    newTurnMetrics(opts.Telemetry.Meter(instrumentationName), logger),
		logger:     logger,
		scanUser:   opts.ScanUserText,
	}, nil
}

// Sessions returns the session manager.
func (s *Service) Sessions() *conversation.Manager { return s.sessions }

// Board returns the board the service mutates.
func (s *Service) Board() *board.Board { return s.board }

// Send runs one turn. An empty sessionID starts a new session. Completion
// failures are not returned as errors; the Turn is marked Failed instead.
// Turns within one session run one at a time.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	sess, err := s.sessions.GetOrCreate(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := sess.TurnLock()
	defer unlock()

	start := time.Now()
	turn := &Turn{ID: uuid.NewString(), SessionID: sess.ID()}
	ctx = logging.WithSessionID(ctx, turn.SessionID)
	ctx = logging.WithTurnID(ctx, turn.ID)

	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("session.id", turn.SessionID),
		attribute.String("turn.id", turn.ID),
	))
	defer span.End()

	sess.AppendUser(text)
	reply, err := s.completion.Complete(ctx, sess.History())
	if err != nil {
		s.logger.Error(ctx, "completion failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.metrics.recordTurn(ctx, "failed", start)

		turn.Reply = completion.UserMessage(err)
		turn.Failed = true
		turn.Updates = []extraction.TaskUpdate{}
		turn.Confirmations = []string{}
		return turn, nil
	}
	sess.AppendModel(reply)
	turn.Reply = reply

	primary := s.labeled.Extract(reply)
	s.metrics.recordExtracted(ctx, "reply", primary)
	var secondary []extraction.TaskUpdate
	if s.scanUser {
		secondary = s.loose.Extract(text)
		s.metrics.recordExtracted(ctx, "user", secondary)
	}

	res := s.reconciler.Apply(ctx, reconcile.Merge(primary, secondary))
	turn.Updates = res.Applied
	turn.Confirmations = res.Confirmations
	s.metrics.recordApplied(ctx, res.Applied)

	for _, u := range res.Applied {
		s.publish(ctx, s.updateEvent(u, turn.SessionID))
	}
	s.publish(ctx, events.BoardEvent{
		Type:      events.TurnCompleted,
		PhaseID:   board.PlanningPhaseID,
		SessionID: turn.SessionID,
		Detail:    fmt.Sprintf("%d updates", len(res.Applied)),
	})

	span.SetAttributes(
		attribute.Int("updates.applied", len(res.Applied)),
		attribute.Int("updates.persist_failures", res.PersistFailures),
	)
	s.metrics.recordTurn(ctx, "ok", start)
	s.logger.Info(ctx, "chat turn completed",
		zap.Int("updates", len(res.Applied)),
		zap.Duration("duration", time.Since(start)))
	return turn, nil
}

// Reset restores a session's history to the seed.
func (s *Service) Reset(sessionID string) error {
	return s.sessions.Reset(sessionID)
}

func (s *Service) updateEvent(u extraction.TaskUpdate, sessionID string) events.BoardEvent {
	ev := events.BoardEvent{
		Type:      events.TaskUpdated,
		PhaseID:   u.PhaseID,
		TaskID:    u.TaskID,
		TaskName:  s.board.TaskName(u.TaskID),
		Detail:    u.Detail,
		Colors:    u.Colors,
		Source:    string(board.SourceChatbot),
		SessionID: sessionID,
	}
	if u.Kind != extraction.KindBranding {
		done := true
		ev.Completed = &done
		ev.Status = string(board.StatusDone)
	}
	return ev
}

// publish is best-effort.
func (s *Service) publish(ctx context.Context, ev events.BoardEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "failed to publish board event",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}
