package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
)

type extractInput struct {
	Text string `json:"text" jsonschema:"Text to scan for event details"`
	Mode string `json:"mode,omitempty" jsonschema:"reply (labeled fields, default) or user (loose phrasing)"`
}

type extractOutput struct {
	Mode    string                  `json:"mode" jsonschema:"Extractor that ran"`
	Updates []extraction.TaskUpdate `json:"updates" jsonschema:"Task updates in canonical kind order"`
}

type boardStatusInput struct {
	PhaseID string `json:"phase_id,omitempty" jsonschema:"Limit the result to one phase"`
}

type boardStatusOutput struct {
	Phases   []board.Phase    `json:"phases" jsonschema:"Phases with their tasks"`
	Progress []board.Progress `json:"progress" jsonschema:"Completion per phase"`
}

type chatSendInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation to continue (empty starts a new one)"`
	Message   string `json:"message" jsonschema:"User message"`
}

type chatResetInput struct {
	SessionID string `json:"session_id" jsonschema:"Conversation to reset"`
}

type chatResetOutput struct {
	SessionID string `json:"session_id" jsonschema:"Conversation that was reset"`
}

type editTaskInput struct {
	PhaseID string `json:"phase_id" jsonschema:"Phase id (e.g. 1)"`
	TaskID  string `json:"task_id" jsonschema:"Task id (e.g. 1-2)"`
	Details string `json:"details,omitempty" jsonschema:"New details (empty clears the task)"`
}

type toggleTaskInput struct {
	PhaseID string `json:"phase_id" jsonschema:"Phase id (e.g. 2)"`
	TaskID  string `json:"task_id" jsonschema:"Task id (e.g. 2-1)"`
}

type taskOutput struct {
	PhaseID string     `json:"phase_id" jsonschema:"Phase the task belongs to"`
	Task    board.Task `json:"task" jsonschema:"Task after the change"`
}

type clearBoardInput struct{}

type clearBoardOutput struct {
	PhaseID string `json:"phase_id" jsonschema:"Phase that was reset"`
}

func (s *Server) registerTools() {
	// extract_task_updates
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "extract_task_updates",
		Description: "Extract hackathon planning details (timeline, theme, location, size, branding) from text without changing the board.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args extractInput) (result *mcp.CallToolResult, out extractOutput, err error) {
		done := s.metrics.track(ctx, "extract_task_updates")
		defer func() { done(err) }()

		var ext extraction.TextFieldExtractor
		switch args.Mode {
		case "", "reply":
			out.Mode = "reply"
			ext = s.labeled
		case "user":
			out.Mode = "user"
			ext = s.loose
		default:
			return nil, extractOutput{}, fmt.Errorf("invalid mode %q: must be reply or user", args.Mode)
		}

		out.Updates = ext.Extract(args.Text)
		if out.Updates == nil {
			out.Updates = []extraction.TaskUpdate{}
		}
		return textResult(describeUpdates(out.Updates)), out, nil
	})

	// board_status
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "board_status",
		Description: "Show the planning board: phases, tasks with their details and completion progress.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args boardStatusInput) (result *mcp.CallToolResult, out boardStatusOutput, err error) {
		done := s.metrics.track(ctx, "board_status")
		defer func() { done(err) }()

		b := s.chat.Board()
		if args.PhaseID == "" {
			out.Phases = b.Phases()
			out.Progress = b.AllProgress()
		} else {
			p, err := b.Phase(args.PhaseID)
			if err != nil {
				return nil, boardStatusOutput{}, err
			}
			pr, err := b.Progress(args.PhaseID)
			if err != nil {
				return nil, boardStatusOutput{}, err
			}
			out.Phases = []board.Phase{p}
			out.Progress = []board.Progress{pr}
		}
		return textResult(describeBoard(out.Phases, out.Progress)), out, nil
	})

	// chat_send
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chat_send",
		Description: "Send a message to the planning assistant. Details named in the reply are written to the board.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args chatSendInput) (result *mcp.CallToolResult, out chat.Turn, err error) {
		done := s.metrics.track(ctx, "chat_send")
		defer func() { done(err) }()

		turn, err := s.chat.Send(ctx, args.SessionID, args.Message)
		if err != nil {
			return nil, chat.Turn{}, err
		}

		text := turn.Reply
		if len(turn.Confirmations) > 0 {
			text += "\n\n" + strings.Join(turn.Confirmations, "\n")
		}
		if turn.Failed {
			s.logger.Warn(ctx, "chat turn failed", zap.String("session_id", turn.SessionID))
		}
		return textResult(text), *turn, nil
	})

	// chat_reset
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "chat_reset",
		Description: "Clear a conversation's history back to the assistant greeting. The board is not changed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args chatResetInput) (result *mcp.CallToolResult, out chatResetOutput, err error) {
		done := s.metrics.track(ctx, "chat_reset")
		defer func() { done(err) }()

		if err := s.chat.Reset(args.SessionID); err != nil {
			return nil, chatResetOutput{}, err
		}
		out.SessionID = args.SessionID
		return textResult("Conversation " + args.SessionID + " reset."), out, nil
	})

	// edit_task
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "edit_task",
		Description: "Set a task's details by hand. Empty details clear the task back to pending.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args editTaskInput) (result *mcp.CallToolResult, out taskOutput, err error) {
		done := s.metrics.track(ctx, "edit_task")
		defer func() { done(err) }()

		task, err := s.chat.EditTask(ctx, args.PhaseID, args.TaskID, args.Details)
		if err != nil {
			return nil, taskOutput{}, err
		}
		out = taskOutput{PhaseID: args.PhaseID, Task: task}
		return textResult(describeTask(task)), out, nil
	})

	// toggle_task
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_task",
		Description: "Flip a task between done and pending.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args toggleTaskInput) (result *mcp.CallToolResult, out taskOutput, err error) {
		done := s.metrics.track(ctx, "toggle_task")
		defer func() { done(err) }()

		task, err := s.chat.ToggleTask(ctx, args.PhaseID, args.TaskID)
		if err != nil {
			return nil, taskOutput{}, err
		}
		out = taskOutput{PhaseID: args.PhaseID, Task: task}
		return textResult(describeTask(task)), out, nil
	})

	// clear_board
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_board",
		Description: "Reset the planning phase tasks and delete their stored updates.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args clearBoardInput) (result *mcp.CallToolResult, out clearBoardOutput, err error) {
		done := s.metrics.track(ctx, "clear_board")
		defer func() { done(err) }()

		if err := s.chat.ClearBoard(ctx); err != nil {
			return nil, clearBoardOutput{}, err
		}
		out.PhaseID = board.PlanningPhaseID
		return textResult("Planning phase cleared."), out, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func describeUpdates(updates []extraction.TaskUpdate) string {
	if len(updates) == 0 {
		return "No task updates found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d task update(s):", len(updates))
	for _, u := range updates {
		fmt.Fprintf(&sb, "\n- %s (%s/%s): %s", u.Kind.Label(), u.PhaseID, u.TaskID, u.Detail)
	}
	return sb.String()
}

func describeBoard(phases []board.Phase, progress []board.Progress) string {
	var sb strings.Builder
	for i, p := range phases {
		if i > 0 {
			sb.WriteString("\n")
		}
		pr := progress[i]
		fmt.Fprintf(&sb, "%s (%d/%d, %d%%)\n", p.Title, pr.Completed, pr.Total, pr.Percent)
		for _, t := range p.Tasks {
			sb.WriteString("  ")
			sb.WriteString(describeTask(t))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func describeTask(t board.Task) string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %s %s", mark, t.ID, t.Name)
	if t.Details != "" {
		line += ": " + t.Details
	}
	return line
}
