package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "planboard.board.1.1-3", Subject("planboard", BoardEvent{PhaseID: "1", TaskID: "1-3"}))
	assert.Equal(t, "pb.board.2.phase", Subject("pb", BoardEvent{PhaseID: "2"}))
	assert.Equal(t, "pb.board._.a_b_c", Subject("pb", BoardEvent{TaskID: "a.b*c"}))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), BoardEvent{}))
}

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	var got []BoardEvent
	cancel, err := bus.Subscribe(func(ev BoardEvent) { got = append(got, ev) })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, BoardEvent{Type: TaskUpdated, PhaseID: "1", TaskID: "1-1"}))
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].At.IsZero())

	cancel()
	cancel()
	require.NoError(t, bus.Publish(ctx, BoardEvent{Type: TaskUpdated}))
	assert.Len(t, got, 1)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(ctx, BoardEvent{}), ErrClosed)
	_, err = bus.Subscribe(func(BoardEvent) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLocalBus_HandlerMayUnsubscribe(t *testing.T) {
	bus := NewLocalBus()
	var cancel func()
	calls := 0
	cancel, err := bus.Subscribe(func(BoardEvent) {
		calls++
		cancel()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), BoardEvent{}))
	require.NoError(t, bus.Publish(context.Background(), BoardEvent{}))
	assert.Equal(t, 1, calls)
}

func TestNATSBus_PublishSubject(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	msgs := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe("planboard.board.>", msgs)
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()
	require.NoError(t, nc.Flush())

	bus := NewNATSBus(nc, "", nil)
	done := true
	require.NoError(t, bus.Publish(context.Background(), BoardEvent{
		Type:      TaskUpdated,
		PhaseID:   "1",
		TaskID:    "1-5",
		TaskName:  "Branding",
		Detail:    "Primary: #3B82F6, Secondary: #10B981",
		Colors:    &extraction.Colors{Primary: "#3B82F6", Secondary: "#10B981"},
		Completed: &done,
	}))

	select {
	case msg := <-msgs:
		assert.Equal(t, "planboard.board.1.1-5", msg.Subject)
		var ev BoardEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, TaskUpdated, ev.Type)
		assert.Equal(t, "#3B82F6", ev.Colors.Primary)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}

	// The bus does not own nc.
	require.NoError(t, bus.Close())
	assert.False(t, nc.IsClosed())
}

func TestNATSBus_Subscribe(t *testing.T) {
	server := startTestNATSServer(t)

	bus, err := Connect(server.ClientURL(), "hack", nil)
	require.NoError(t, err)

	received := make(chan BoardEvent, 4)
	cancel, err := bus.Subscribe(func(ev BoardEvent) { received <- ev })
	require.NoError(t, err)
	defer cancel()

	// A foreign publisher on the same subject tree.
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	require.NoError(t, nc.Publish("hack.board.1.1-1", []byte("not json")))

	require.NoError(t, bus.Publish(context.Background(), BoardEvent{Type: PhaseReset, PhaseID: "1"}))

	select {
	case ev := <-received:
		assert.Equal(t, PhaseReset, ev.Type)
		assert.Equal(t, "1", ev.PhaseID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, bus.Close())
	require.Eventually(t, func() bool { return bus.nc.IsClosed() }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, bus.Publish(context.Background(), BoardEvent{}), ErrClosed)
}
