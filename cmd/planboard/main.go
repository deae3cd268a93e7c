// Planboard is the hackathon planning assistant daemon.
//
// It serves the chat and board HTTP API, or with --mcp the same board over an
// MCP stdio transport for agent clients.
//
// Configuration is read from ~/.config/planboard/config.yaml and PLANBOARD_*
// environment variables. See internal/config for the keys.
//
// Usage:
//
//	# Start the HTTP API
//	planboard
//
//	# Serve MCP on stdio
//	planboard --mcp
//
//	# Use a different config file
//	planboard --config /etc/planboard/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/planboard/internal/board"
	"github.com/fyrsmithlabs/planboard/internal/chat"
	"github.com/fyrsmithlabs/planboard/internal/completion"
	"github.com/fyrsmithlabs/planboard/internal/config"
	"github.com/fyrsmithlabs/planboard/internal/conversation"
	"github.com/fyrsmithlabs/planboard/internal/events"
	"github.com/fyrsmithlabs/planboard/internal/extraction"
	"github.com/fyrsmithlabs/planboard/internal/http"
	"github.com/fyrsmithlabs/planboard/internal/logging"
	"github.com/fyrsmithlabs/planboard/internal/store"
	"github.com/fyrsmithlabs/planboard/internal/telemetry"
	"github.com/fyrsmithlabs/planboard/internal/voice"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/planboard/config.yaml)")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  planboard [--config path] [--mcp]   Start the planboard daemon\n")
			fmt.Fprintf(os.Stderr, "  planboard version                   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *mcpMode {
		err = runStdio(ctx, cfg)
	} else {
		err = run(ctx, cfg)
	}
	if err != nil {
		log.Fatalf("planboard: %v", err)
	}
}

func printVersion() {
	fmt.Printf("planboard by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run serves the HTTP API until ctx is cancelled, then shuts down within the
// configured timeout.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, logging.SinkStdout)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := a.httpServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// app holds every long-lived dependency. Close releases them in reverse
// order of construction.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	store     store.Store
	pinger    http.Pinger
	bus       events.Bus
	watcher   *extraction.Watcher
	library   extraction.LibrarySource
	chat      *chat.Service
	voice     *voice.Client
}

func newApp(ctx context.Context, cfg *config.Config, sink string) (*app, error) {
	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := loggingConfig(cfg, sink)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info(ctx, "planboard initialized",
		zap.String("version", version),
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("events_nats", cfg.Events.Enabled),
		zap.Bool("library_watch", a.watcher != nil))
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	var err error
	cfg := a.cfg

	if a.store, a.pinger, err = openStore(cfg.Store); err != nil {
		return err
	}
	if a.bus, err = openBus(cfg.Events, a.logger); err != nil {
		return err
	}
	if a.library, a.watcher, err = openLibrary(ctx, cfg.Extraction, a.logger); err != nil {
		return err
	}

	client, err := completion.New(cfg.Completion)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	a.chat, err = chat.NewService(chat.Options{
		Sessions:     conversation.NewManager(cfg.Conversation.MaxMessages),
		Completion:   client,
		Library:      a.library,
		Board:        board.New(nil),
		Store:        a.store,
		Events:       a.bus,
		Telemetry:    a.telemetry,
		Logger:       a.logger,
		ScanUserText: cfg.Extraction.UserText,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	a.voice = voice.New(cfg.Voice, a.logger)
	return nil
}

func (a *app) httpServer(cfg *config.Config) (*http.Server, error) {
	return http.NewServer(http.Deps{
		Chat:      a.chat,
		Calls:     a.voice,
		Bus:       a.bus,
		Library:   a.library,
		Store:     a.pinger,
		Telemetry: a.telemetry,
		Version:   version,
	}, a.logger, &http.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Prometheus: cfg.Observability.Prometheus,
	})
}

// Close releases resources. Safe on a partially built app.
func (a *app) Close() {
	ctx := context.Background()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn(ctx, "failed to close event bus", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn(ctx, "failed to close store", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	obs := cfg.Observability
	tc.Enabled = obs.EnableTelemetry
	tc.ServiceName = obs.ServiceName
	tc.ServiceVersion = version
	tc.Endpoint = obs.Endpoint
	tc.Insecure = obs.Insecure
	tc.SampleRate = obs.SampleRate
	switch obs.Protocol {
	case "http", telemetry.ProtocolHTTP:
		tc.Protocol = telemetry.ProtocolHTTP
	default:
		tc.Protocol = telemetry.ProtocolGRPC
	}
	return tc
}

func loggingConfig(cfg *config.Config, sink string) (*logging.Config, error) {
	lc, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OTEL)
	if err != nil {
		return nil, err
	}
	lc.Console = sink
	if cfg.Observability.ServiceName != "" {
		lc.Service = cfg.Observability.ServiceName
	}
	return lc, lc.Validate()
}

// openStore returns the record store and, when the backend supports it, a
// pinger for health checks.
func openStore(cfg config.StoreConfig) (store.Store, http.Pinger, error) {
	switch cfg.Driver {
	case "memory":
		m := store.NewMemoryStore()
		return store.NewInstrumented(m), m, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
		return store.NewInstrumented(s), s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openBus(cfg config.EventsConfig, logger *logging.Logger) (events.Bus, error) {
	if !cfg.Enabled {
		return events.NewLocalBus(), nil
	}
	bus, err := events.Connect(cfg.URL, cfg.SubjectPrefix, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus: %w", err)
	}
	logger.Info(context.Background(), "connected to NATS", zap.String("url", cfg.URL))
	return bus, nil
}

// openLibrary loads the pattern library. Without a path the built-in library
// is used; with watch enabled the file is reloaded on change.
func openLibrary(ctx context.Context, cfg config.ExtractionConfig, logger *logging.Logger) (extraction.LibrarySource, *extraction.Watcher, error) {
	if cfg.LibraryPath == "" {
		return extraction.DefaultLibrary(), nil, nil
	}
	if !cfg.Watch {
		lib, err := extraction.LoadLibrary(cfg.LibraryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load pattern library: %w", err)
		}
		return lib, nil, nil
	}

	w, err := extraction.NewWatcher(cfg.LibraryPath, logger.Named("library").Underlying())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pattern library: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, nil, fmt.Errorf("failed to watch pattern library: %w", err)
	}
	return w, w, nil
}
