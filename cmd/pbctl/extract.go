package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	phttp "github.com/fyrsmithlabs/planboard/internal/http"
)

func newExtractCmd(opts *options) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Show the task updates found in text without changing the board",
		Long: `Run an extractor over text from a file or stdin and print the updates it
finds. The board is not modified.

Modes:
  reply  labeled fields such as "**Timeline:** May 1-2" (default)
  user   loose phrasing such as "we're hosting it in Austin"

Examples:
  echo "**Theme:** Climate tech" | pbctl extract
  pbctl extract --mode user notes.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
			} else {
				content, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read file %s: %w", args[0], err)
				}
			}
			if strings.TrimSpace(string(content)) == "" {
				return fmt.Errorf("no text to extract from")
			}

			var resp phttp.ExtractResponse
			req := phttp.ExtractRequest{Text: string(content), Mode: mode}
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/extract", req, &resp); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Updates) == 0 {
				fmt.Fprintln(out, "No task updates found")
				return nil
			}
			for _, u := range resp.Updates {
				fmt.Fprintf(out, "%-4s %-9s %s\n", u.TaskID, u.Kind.Label(), u.Detail)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "reply", "extractor to run (reply or user)")
	return cmd
}
