// Package config loads planboard configuration.
//
// Values come from three layers, highest precedence first: PLANBOARD_*
// environment variables, the YAML config file, and the defaults in Default.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete planboard configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
	Completion    CompletionConfig    `koanf:"completion"`
	Conversation  ConversationConfig  `koanf:"conversation"`
	Extraction    ExtractionConfig    `koanf:"extraction"`
	Store         StoreConfig         `koanf:"store"`
	Events        EventsConfig        `koanf:"events"`
	Voice         VoiceConfig         `koanf:"voice"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig configures OpenTelemetry export and the Prometheus
// scrape endpoint.
type ObservabilityConfig struct {
	EnableTelemetry bool    `koanf:"enable_telemetry"`
	ServiceName     string  `koanf:"service_name"`
	Endpoint        string  `koanf:"endpoint"`
	Protocol        string  `koanf:"protocol"`
	Insecure        bool    `koanf:"insecure"`
	SampleRate      float64 `koanf:"sample_rate"`
	Prometheus      bool    `koanf:"prometheus"`
}

// LoggingConfig is the subset of logging settings exposed in the file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTEL   bool   `koanf:"otel"`
}

// CompletionConfig selects and configures the text-completion provider.
type CompletionConfig struct {
	Provider   string   `koanf:"provider"`
	APIKey     Secret   `koanf:"api_key"`
	Model      string   `koanf:"model"`
	BaseURL    string   `koanf:"base_url"`
	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`

	// RequestsPerMinute and Burst feed the client-side rate limiter.
	RequestsPerMinute float64 `koanf:"requests_per_minute"`
	Burst             int     `koanf:"burst"`

	// StaticReply is returned by the "static" provider.
	StaticReply string `koanf:"static_reply"`
}

// ConversationConfig bounds session history.
type ConversationConfig struct {
	// MaxMessages caps stored messages per session, seed excluded. 0 is unbounded.
	MaxMessages int `koanf:"max_messages"`
}

// ExtractionConfig configures the pattern library and which texts are scanned.
type ExtractionConfig struct {
	LibraryPath string `koanf:"library_path"`
	Watch       bool   `koanf:"watch"`
	UserText    bool   `koanf:"user_text"`
}

// StoreConfig selects the task update record store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// EventsConfig configures board event publishing.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// VoiceConfig configures the outbound call provider.
type VoiceConfig struct {
	APIKey     Secret     `koanf:"api_key"`
	BaseURL    string     `koanf:"base_url"`
	Timeout    Duration   `koanf:"timeout"`
	Venue      CallTarget `koanf:"venue"`
	Restaurant CallTarget `koanf:"restaurant"`
}

// CallTarget is one outbound call destination and the assistant that
// handles it.
type CallTarget struct {
	AssistantID   string `koanf:"assistant_id"`
	PhoneNumberID string `koanf:"phone_number_id"`
	Customer      string `koanf:"customer_number"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9090,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Observability: ObservabilityConfig{
			ServiceName: "planboard",
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			SampleRate:  1.0,
			Prometheus:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Completion: CompletionConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-flash",
			Timeout:           Duration(60 * time.Second),
			MaxRetries:        3,
			RequestsPerMinute: 50,
			Burst:             5,
		},
		Extraction: ExtractionConfig{
			UserText: true,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "~/.local/share/planboard/planboard.db",
		},
		Events: EventsConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "planboard",
		},
		Voice: VoiceConfig{
			BaseURL: "https://api.vapi.ai",
			Timeout: Duration(30 * time.Second),
		},
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if r := c.Observability.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %v", r)
	}

	switch c.Completion.Provider {
	case "gemini", "openai":
		if c.Completion.Model == "" {
			return fmt.Errorf("completion model required for provider %q", c.Completion.Provider)
		}
	case "static":
	default:
		return fmt.Errorf("unknown completion provider %q (want gemini, openai or static)", c.Completion.Provider)
	}
	if c.Completion.MaxRetries < 0 {
		return fmt.Errorf("completion max_retries must be >= 0, got %d", c.Completion.MaxRetries)
	}
	if c.Completion.RequestsPerMinute <= 0 {
		return errors.New("completion requests_per_minute must be positive")
	}

	if c.Conversation.MaxMessages < 0 {
		return fmt.Errorf("conversation max_messages must be >= 0, got %d", c.Conversation.MaxMessages)
	}

	if c.Extraction.Watch && c.Extraction.LibraryPath == "" {
		return errors.New("extraction watch requires library_path")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store path required for sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite or memory)", c.Store.Driver)
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return errors.New("events url required when events are enabled")
	}
	return nil
}
