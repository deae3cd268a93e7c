package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/planboard/internal/voice"
)

func newCallCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <venue|restaurant>",
		Short: "Place an outbound call to the venue or the restaurant",
		Long: `Ask the planboard server to start an outbound voice call.

Examples:
  pbctl call venue
  pbctl call status
  pbctl call end`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(voice.TargetVenue), string(voice.TargetRestaurant)},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := voice.ParseTarget(args[0])
			if err != nil {
				return err
			}
			return callRequest(cmd, opts, http.MethodPost, "/api/v1/calls/"+string(target))
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "end",
			Short: "End the active call",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return callRequest(cmd, opts, http.MethodPost, "/api/v1/calls/end")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current call state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return callRequest(cmd, opts, http.MethodGet, "/api/v1/calls/status")
			},
		},
	)
	return cmd
}

func callRequest(cmd *cobra.Command, opts *options, method, path string) error {
	var st voice.Status
	if err := opts.client().do(cmd.Context(), method, path, nil, &st); err != nil {
		return err
	}
	if opts.jsonOut {
		return printJSON(cmd.OutOrStdout(), st)
	}
	printStatus(cmd.OutOrStdout(), st)
	if st.State == voice.StateError {
		return fmt.Errorf("call failed: %s", st.Error)
	}
	return nil
}

func printStatus(w io.Writer, st voice.Status) {
	fmt.Fprintf(w, "Call status: %s\n", st.State)
	if st.Target != "" {
		fmt.Fprintf(w, "Target: %s\n", st.Target)
	}
	if st.ID != "" {
		fmt.Fprintf(w, "Call ID: %s\n", st.ID)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", st.Error)
	}
}
