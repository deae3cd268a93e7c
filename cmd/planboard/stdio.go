package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/planboard/internal/config"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/mcp"
)

// runStdio serves the board over MCP on stdin/stdout. Logs go to stderr since
// stdout carries the protocol.
func runStdio(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, logging.SinkStderr)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:      "planboard",
		Version:   version,
		Logger:    a.logger,
		Telemetry: a.telemetry,
	}, a.chat, a.library)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "planboard %s MCP stdio mode started\n", version)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}
