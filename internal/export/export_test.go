package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

func sampleBoard(t *testing.T) *board.Board {
	t.Helper()
	b := board.New(nil)
	require.NoError(t, b.AddTaskDetails("1", "1-1", "March 15-17, 2024"))
	colors := extraction.Colors{Primary: "#1A2B3C", Secondary: "#4D5E6F"}
	details := colors.String()
	manual := board.SourceManual
	require.NoError(t, b.UpdateTask("1", "1-5", board.TaskPatch{Details: &details, Colors: &colors, Source: &manual}))
	_, err := b.ToggleTask("2", "2-1")
	require.NoError(t, err)
	return b
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuild(t *testing.T) {
	doc := Build(sampleBoard(t), "", fixedNow)

	assert.Equal(t, "Event Plan", doc.Title)
	require.Len(t, doc.Phases, 3)
	assert.Equal(t, 1, doc.Phases[0].Progress.Completed)
	assert.Equal(t, 5, doc.Phases[0].Progress.Total)
	assert.Equal(t, board.Progress{PhaseID: "all", Completed: 2, Total: 12, Percent: 16}, doc.Overall)
}

func TestWrite_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(sampleBoard(t), "Spring Hack", fixedNow), FormatMarkdown))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Spring Hack\n"))
	assert.Contains(t, out, "Generated 2024-03-01 12:00 UTC. Overall progress: 2/12 (16%).")
	assert.Contains(t, out, "## Phase 1: Planning (1/5)\n\n- [x] Timeline: March 15-17, 2024\n- [ ] Theme\n")
	assert.Contains(t, out, "- [ ] Branding: Primary: #1A2B3C, Secondary: #4D5E6F `#1A2B3C` `#4D5E6F` _(edited)_")
	assert.Contains(t, out, "- [x] Make website")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(sampleBoard(t), "Spring Hack", fixedNow), FormatJSON))

	var got struct {
		Title  string `json:"title"`
		Phases []struct {
			ID       string `json:"id"`
			Tasks    []board.Task
			Progress board.Progress `json:"progress"`
		} `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Spring Hack", got.Title)
	require.Len(t, got.Phases, 3)
	assert.Equal(t, "1", got.Phases[0].ID)
	assert.Equal(t, "March 15-17, 2024", got.Phases[0].Tasks[0].Details)
	assert.Equal(t, 1, got.Phases[1].Progress.Completed)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "Markdown": FormatMarkdown, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Contains(t, FormatJSON.ContentType(), "application/json")
	assert.Contains(t, FormatMarkdown.ContentType(), "text/markdown")
	assert.Error(t, Write(&bytes.Buffer{}, Document{}, Format("pdf")))
}
