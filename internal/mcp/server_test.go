package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/completion"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/store"
	"github.com/fyrsmithlabs/planboard/internal/telemetry"
)

const plannerReply = "Great choice!\n**Timeline:** May 1-2\n**Branding:** #112233 and #445566"

type harness struct {
	server  *Server
	session *mcp.ClientSession
	board   *board.Board
	store   *store.MemoryStore
	tel     *telemetry.TestTelemetry
}

func newHarness(t *testing.T, reply string) *harness {
	t.Helper()
	h := &harness{
		board: board.New(nil),
		store: store.NewMemoryStore(),
		tel:   telemetry.NewTestTelemetry(),
	}

	svc, err := chat.NewService(chat.Options{
		Sessions:   conversation.NewManager(0),
		Completion: completion.NewStatic(reply),
		Board:      h.board,
		Store:      h.store,
		Telemetry:  h.tel.Telemetry,
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Telemetry = h.tel.Telemetry
	h.server, err = NewServer(cfg, svc, nil)
	require.NoError(t, err)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := h.server.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "planboard-test", Version: "v0.0.1"}, nil)
	h.session, err = client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.session.Close() })
	return h
}

func (h *harness) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	return res
}

// decode re-marshals structured content into out.
func decode(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is text")
	return tc.Text
}

func TestNewServer_RequiresChat(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	h := newHarness(t, "")

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"extract_task_updates", "board_status", "chat_send", "chat_reset",
		"edit_task", "toggle_task", "clear_board",
	}, names)
}

func TestExtractTaskUpdates(t *testing.T) {
	h := newHarness(t, "")

	t.Run("reply mode by default", func(t *testing.T) {
		res := h.call(t, "extract_task_updates", map[string]any{"text": "**Theme:** Climate tech"})
		require.False(t, res.IsError)

		var out extractOutput
		decode(t, res, &out)
		assert.Equal(t, "reply", out.Mode)
		require.Len(t, out.Updates, 1)
		assert.Equal(t, extraction.KindTheme, out.Updates[0].Kind)
		assert.Equal(t, "Climate tech", out.Updates[0].Detail)
		assert.Contains(t, text(t, res), "Found 1 task update(s)")
	})

	t.Run("user mode", func(t *testing.T) {
		res := h.call(t, "extract_task_updates", map[string]any{
			"text": "Venue: Grand Ballroom",
			"mode": "user",
		})
		require.False(t, res.IsError)

		var out extractOutput
		decode(t, res, &out)
		require.Len(t, out.Updates, 1)
		assert.Equal(t, extraction.KindLocation, out.Updates[0].Kind)
		assert.Equal(t, "Grand Ballroom", out.Updates[0].Detail)
	})

	t.Run("nothing found", func(t *testing.T) {
		res := h.call(t, "extract_task_updates", map[string]any{"text": "thanks"})
		require.False(t, res.IsError)
		assert.Equal(t, "No task updates found.", text(t, res))
	})

	t.Run("bad mode", func(t *testing.T) {
		res := h.call(t, "extract_task_updates", map[string]any{"text": "x", "mode": "both"})
		assert.True(t, res.IsError)
	})

	// Extraction never touches the board.
	task, err := h.board.Task("1", "1-2")
	require.NoError(t, err)
	assert.Empty(t, task.Details)
}

func TestChatSend_UpdatesBoard(t *testing.T) {
	h := newHarness(t, plannerReply)

	res := h.call(t, "chat_send", map[string]any{"message": "Let's plan"})
	require.False(t, res.IsError)

	var turn chat.Turn
	decode(t, res, &turn)
	assert.NotEmpty(t, turn.SessionID)
	assert.Equal(t, plannerReply, turn.Reply)
	assert.Equal(t, []string{
		`Updated Timeline: "May 1-2"`,
		"Updated Branding: Primary: #112233, Secondary: #445566",
	}, turn.Confirmations)
	assert.Contains(t, text(t, res), `Updated Timeline: "May 1-2"`)

	timeline, err := h.board.Task("1", "1-1")
	require.NoError(t, err)
	assert.Equal(t, "May 1-2", timeline.Details)

	records, err := h.store.ListTaskUpdates(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	res = h.call(t, "chat_reset", map[string]any{"session_id": turn.SessionID})
	require.False(t, res.IsError)
	sess, err := h.server.chat.Sessions().Get(turn.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.History(), len(conversation.Seed()), "seed remains")
}

func TestChatSend_Errors(t *testing.T) {
	h := newHarness(t, "")

	res := h.call(t, "chat_send", map[string]any{"message": "   "})
	assert.True(t, res.IsError)

	res = h.call(t, "chat_reset", map[string]any{"session_id": "missing"})
	assert.True(t, res.IsError)
}

func TestBoardStatus(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.board.AddTaskDetails("1", "1-3", "Austin"))

	res := h.call(t, "board_status", map[string]any{})
	require.False(t, res.IsError)

	var out boardStatusOutput
	decode(t, res, &out)
	assert.Len(t, out.Phases, 3)
	require.Len(t, out.Progress, 3)
	assert.Equal(t, 1, out.Progress[0].Completed)
	assert.Contains(t, text(t, res), "[x] 1-3 Location: Austin")

	res = h.call(t, "board_status", map[string]any{"phase_id": "2"})
	require.False(t, res.IsError)
	decode(t, res, &out)
	require.Len(t, out.Phases, 1)
	assert.Equal(t, "Phase 2: Preparation", out.Phases[0].Title)

	res = h.call(t, "board_status", map[string]any{"phase_id": "9"})
	assert.True(t, res.IsError)
}

func TestBoardEditTools(t *testing.T) {
	h := newHarness(t, "")

	res := h.call(t, "edit_task", map[string]any{"phase_id": "1", "task_id": "1-4", "details": "120 hackers"})
	require.False(t, res.IsError)
	var out taskOutput
	decode(t, res, &out)
	assert.Equal(t, board.SourceManual, out.Task.Source)

	res = h.call(t, "toggle_task", map[string]any{"phase_id": "2", "task_id": "2-1"})
	require.False(t, res.IsError)
	decode(t, res, &out)
	assert.True(t, out.Task.Completed)

	res = h.call(t, "toggle_task", map[string]any{"phase_id": "2", "task_id": "1-1"})
	assert.True(t, res.IsError)

	res = h.call(t, "clear_board", map[string]any{})
	require.False(t, res.IsError)
	size, err := h.board.Task("1", "1-4")
	require.NoError(t, err)
	assert.Empty(t, size.Details)

	records, err := h.store.ListTaskUpdates(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMetrics_RecordsInvocations(t *testing.T) {
	h := newHarness(t, "")

	h.call(t, "board_status", map[string]any{})
	h.call(t, "board_status", map[string]any{"phase_id": "9"})

	rm := h.tel.Collect(t)
	inv, ok := telemetry.Metric(rm, "planboard.mcp.tool.invocations_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), telemetry.SumValue(inv, attribute.String("tool", "board_status")))

	errs, ok := telemetry.Metric(rm, "planboard.mcp.tool.errors_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), telemetry.SumValue(errs,
		attribute.String("tool", "board_status"),
		attribute.String("reason", "not_found"),
	))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{board.ErrTaskNotFound, "not_found"},
		{conversation.ErrSessionNotFound, "not_found"},
		{chat.ErrEmptyMessage, "validation_error"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New(`invalid mode "x"`), "validation_error"},
		{errors.New("persist: store closed"), "storage_error"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeError(tt.err), "%v", tt.err)
	}
}
