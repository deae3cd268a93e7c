package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/planboard/internal/board"
	phttp "github.com/fyrsmithlabs/planboard/internal/http"
)

func newBoardCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the planning board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp phttp.BoardResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/board", nil, &resp); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printBoard(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the planning phase and its stored updates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/board/reset", nil, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Planning phase cleared")
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle <phase> [task]",
			Short: "Toggle a task's completion, or a phase's open state",
			Long: `Toggle a task between done and pending. With only a phase id, toggle
whether the phase is expanded.

Examples:
  pbctl board toggle 2 2-1
  pbctl board toggle 3`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := opts.client()
				phase := url.PathEscape(args[0])
				if len(args) == 1 {
					var resp phttp.TogglePhaseResponse
					if err := c.do(cmd.Context(), http.MethodPost, "/api/v1/board/phases/"+phase+"/toggle", nil, &resp); err != nil {
						return err
					}
					state := "closed"
					if resp.IsOpen {
						state = "open"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Phase %s is now %s\n", resp.PhaseID, state)
					return nil
				}

				var task board.Task
				path := "/api/v1/board/phases/" + phase + "/tasks/" + url.PathEscape(args[1]) + "/toggle"
				if err := c.do(cmd.Context(), http.MethodPost, path, nil, &task); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), taskLine(task))
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit <phase> <task> [details...]",
			Short: "Set a task's details by hand (no details clears it)",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var task board.Task
				path := "/api/v1/board/phases/" + url.PathEscape(args[0]) + "/tasks/" + url.PathEscape(args[1]) + "/details"
				req := phttp.EditTaskRequest{Details: strings.Join(args[2:], " ")}
				if err := opts.client().do(cmd.Context(), http.MethodPut, path, req, &task); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), taskLine(task))
				return nil
			},
		},
		newExportCmd(opts),
	)
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var format, title string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the board as Markdown or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("format", format)
			if title != "" {
				q.Set("title", title)
			}
			data, _, err := opts.client().raw(cmd.Context(), http.MethodGet, "/api/v1/board/export?"+q.Encode(), nil)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "export format (markdown or json)")
	cmd.Flags().StringVar(&title, "title", "", "document title")
	return cmd
}

func printBoard(w io.Writer, resp phttp.BoardResponse) {
	for i, p := range resp.Phases {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if i < len(resp.Progress) {
			pr := resp.Progress[i]
			fmt.Fprintf(w, "%s  %d/%d (%d%%)\n", p.Title, pr.Completed, pr.Total, pr.Percent)
		} else {
			fmt.Fprintln(w, p.Title)
		}
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "  %s\n", taskLine(t))
		}
	}
}

func taskLine(t board.Task) string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %-4s %s", mark, t.ID, t.Name)
	if t.Details != "" {
		line += ": " + t.Details
	}
	if t.Source == board.SourceManual {
		line += " (manual)"
	}
	return line
}
