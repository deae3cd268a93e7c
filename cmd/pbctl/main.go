// Package main implements pbctl, a CLI for the planboard HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	phttp "github.com/fyrsmithlabs/planboard/internal/http"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	serverURL string
	timeout   time.Duration
	jsonOut   bool
}

func (o *options) client() *apiClient {
	return newAPIClient(o.serverURL, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pbctl",
		Short: "CLI for the planboard HTTP API",
		Long: `pbctl talks to a running planboard server. It can chat with the planning
assistant, inspect and edit the board, and place venue or restaurant calls.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", "http://localhost:9090", "planboard server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print raw JSON responses")

	root.AddCommand(
		newChatCmd(opts),
		newBoardCmd(opts),
		newExtractCmd(opts),
		newCallCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check planboard server health",
		Long: `Check the health status of the planboard HTTP server.

Examples:
  # Check health
  pbctl health

  # Check health on a different server
  pbctl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp phttp.HealthResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", resp.Status)
			if resp.Version != "" {
				fmt.Fprintf(out, "Version: %s\n", resp.Version)
			}
			names := make([]string, 0, len(resp.Services))
			for name := range resp.Services {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %s: %s\n", name, resp.Services[name])
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
