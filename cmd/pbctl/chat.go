package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/planboard/internal/chat"
	phttp "github.com/fyrsmithlabs/planboard/internal/http"
)

func newChatCmd(opts *options) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the planning assistant",
		Long: `Send a message to the planning assistant. Details the assistant confirms
are written to the board.

With no message, pbctl starts an interactive session reading one message per
line. Type /reset to clear the conversation and /quit to leave.

Examples:
  # One message, new conversation
  pbctl chat "We're hosting it in Austin on May 1-2"

  # Continue a conversation
  pbctl chat --session 3f2a... "Around 200 people"

  # Interactive
  pbctl chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if len(args) > 0 {
				turn, err := sendMessage(cmd.Context(), c, sessionID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), turn)
				}
				printTurn(cmd.OutOrStdout(), turn, true)
				return nil
			}
			return chatLoop(cmd.Context(), c, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "conversation id to continue")

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <session-id>",
		Short: "Clear a conversation's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resetSession(cmd.Context(), opts.client(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s reset\n", args[0])
			return nil
		},
	})
	return cmd
}

func sendMessage(ctx context.Context, c *apiClient, sessionID, message string) (*chat.Turn, error) {
	var turn chat.Turn
	req := phttp.ChatRequest{SessionID: sessionID, Message: message}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat", req, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func resetSession(ctx context.Context, c *apiClient, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/chat/reset", phttp.ChatResetRequest{SessionID: sessionID}, nil)
}

func chatLoop(ctx context.Context, c *apiClient, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			if sessionID != "" {
				if err := resetSession(ctx, c, sessionID); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				} else {
					fmt.Fprintln(out, "Conversation reset.")
				}
			}
		default:
			turn, err := sendMessage(ctx, c, sessionID, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			printTurn(out, turn, sessionID == "")
			sessionID = turn.SessionID
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func printTurn(w io.Writer, turn *chat.Turn, showSession bool) {
	if showSession {
		fmt.Fprintf(w, "[session %s]\n", turn.SessionID)
	}
	fmt.Fprintln(w, turn.Reply)
	for _, c := range turn.Confirmations {
		fmt.Fprintf(w, "  * %s\n", c)
	}
}
