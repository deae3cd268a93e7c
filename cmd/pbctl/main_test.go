package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/completion"
	"github.com/fyrsmithlabs/planboard/internal/config"
	phttp "github.com/fyrsmithlabs/planboard/internal/http"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/store"
	"github.com/fyrsmithlabs/planboard/internal/voice"
)

const assistantReply = "Love it!\n**Timeline:** May 1-2\n**Location:** Austin"

type testEnv struct {
	url   string
	board *board.Board
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := board.New(nil)
	svc, err := chat.NewService(chat.Options{
		Completion: completion.NewStatic(assistantReply),
		Board:      b,
		Store:      store.NewMemoryStore(),
	})
	require.NoError(t, err)

	srv, err := phttp.NewServer(phttp.Deps{
		Chat:    svc,
		Calls:   voice.New(config.VoiceConfig{}, logging.NewNop()),
		Version: "test",
	}, logging.NewNop(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{url: ts.URL, board: b}
}

// run executes pbctl with args against env and returns stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--server", e.url}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Version: test")
}

func TestChat_OneShot(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "chat", "let's", "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "[session ")
	assert.Contains(t, out, "Love it!")
	assert.Contains(t, out, `* Updated Timeline: "May 1-2"`)
	assert.Contains(t, out, `* Updated Location: "Austin"`)

	task, err := env.board.Task("1", "1-3")
	require.NoError(t, err)
	assert.Equal(t, "Austin", task.Details)
}

func TestChat_JSON(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "--json", "chat", "hi")
	require.NoError(t, err)

	var turn chat.Turn
	require.NoError(t, json.Unmarshal([]byte(out), &turn))
	assert.NotEmpty(t, turn.SessionID)
	assert.Len(t, turn.Updates, 2)
}

func TestChat_Interactive(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "first\n\n/reset\nsecond\n/quit\nignored\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "[session "), "session shown once")
	assert.Equal(t, 2, strings.Count(out, "Love it!"))
	assert.Contains(t, out, "Conversation reset.")
}

func TestChat_ResetUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "chat", "reset", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestBoard(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "board")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase 1: Planning  0/5 (0%)")
	assert.Contains(t, out, "[ ] 2-4  Make Devpost")

	out, err = env.run(t, "", "board", "edit", "1", "1-4", "200", "hackers")
	require.NoError(t, err)
	assert.Contains(t, out, "1-4  Size: 200 hackers (manual)")

	out, err = env.run(t, "", "board", "toggle", "2", "2-1")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] 2-1")

	out, err = env.run(t, "", "board", "toggle", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Phase 3 is now open")

	_, err = env.run(t, "", "board", "toggle", "9", "9-9")
	assert.Error(t, err)

	out, err = env.run(t, "", "board", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Planning phase cleared")
	size, err := env.board.Task("1", "1-4")
	require.NoError(t, err)
	assert.Empty(t, size.Details)
}

func TestBoardExport(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.board.AddTaskDetails("1", "1-2", "Climate tech"))

	out, err := env.run(t, "", "board", "export", "--title", "Spring Hack")
	require.NoError(t, err)
	assert.Contains(t, out, "Spring Hack")
	assert.Contains(t, out, "Climate tech")

	out, err = env.run(t, "", "board", "export", "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	_, err = env.run(t, "", "board", "export", "--format", "pdf")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "**Theme:** Climate tech\n", "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "1-2")
	assert.Contains(t, out, "Climate tech")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Venue: Grand Ballroom"), 0o600))
	out, err = env.run(t, "", "extract", "--mode", "user", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Grand Ballroom")

	out, err = env.run(t, "thanks", "extract")
	require.NoError(t, err)
	assert.Contains(t, out, "No task updates found")

	_, err = env.run(t, "   ", "extract")
	assert.Error(t, err)

	_, err = env.run(t, "x", "extract", "--mode", "both")
	assert.Error(t, err)

	// The board is never touched.
	task, err := env.board.Task("1", "1-2")
	require.NoError(t, err)
	assert.Empty(t, task.Details)
}

func TestCall(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "call", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Call status: idle")

	out, err = env.run(t, "", "call", "venue")
	require.Error(t, err)
	assert.Contains(t, out, "Call status: error")

	_, err = env.run(t, "", "call", "pizzeria")
	assert.Error(t, err)
}

func TestServerUnreachable(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--server", "http://127.0.0.1:1", "--timeout", "1s", "health"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}
