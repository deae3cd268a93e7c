package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/logging"
)

// NATSBus publishes events to a NATS server.
type NATSBus struct {
	nc     *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

var _ Bus = (*NATSBus)(nil)

// Connect dials url and returns a bus that owns the connection.
func Connect(url, prefix string, logger *logging.Logger) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("planboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	b := NewNATSBus(nc, prefix, logger)
	b.owned = true
	return b, nil
}

// NewNATSBus wraps an existing connection. Close leaves nc open.
func NewNATSBus(nc *nats.Conn, prefix string, logger *logging.Logger) *NATSBus {
	if prefix == "" {
		prefix = "planboard"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NATSBus{nc: nc, prefix: prefix, logger: logger}
}

// Publish implements Publisher.
func (b *NATSBus) Publish(ctx context.Context, ev BoardEvent) error {
	if b.nc.IsClosed() {
		return ErrClosed
	}
	ev = stamp(ev)
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal board event: %w", err)
	}

	subject := Subject(b.prefix, ev)
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	b.logger.Debug(ctx, "board event published",
		zap.String("subject", subject),
		zap.String("type", string(ev.Type)))
	return nil
}

// Subscribe implements Bus. Undecodable messages are logged and skipped.
func (b *NATSBus) Subscribe(h Handler) (func(), error) {
	subject := b.prefix + ".board.>"
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev BoardEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn(context.Background(), "dropping undecodable board event",
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		h(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains and closes the connection when the bus owns it.
func (b *NATSBus) Close() error {
	if !b.owned {
		return nil
	}
	return b.nc.Drain()
}
