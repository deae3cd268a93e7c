package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/planboard/internal/config"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Console = SinkStderr

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))

	logger.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_NoOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Console = SinkNone

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one output")

	// OTEL requested but no provider supplied.
	cfg.OTEL = true
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "xml" }},
		{"sink", func(c *Config) { c.Console = "file" }},
		{"tick", func(c *Config) { c.Sampling.Tick = 0 }},
		{"negative sampling", func(c *Config) { c.Sampling.Initial = -1 }},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings("trace", "Console", false)
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromSettings("loud", "", false)
	assert.Error(t, err)
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"trace": TraceLevel,
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := LevelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := LevelFromString("bogus")
	assert.Error(t, err)
	assert.Equal(t, zapcore.InfoLevel, got)
}

func TestLogger_Methods(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "trace message")
	tl.Debug(ctx, "debug message")
	tl.Info(ctx, "info message", zap.String("k", "v"))
	tl.Warn(ctx, "warn message")
	tl.Error(ctx, "error message")

	tl.AssertLogged(t, TraceLevel, "trace message")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug message")
	tl.AssertLogged(t, zapcore.InfoLevel, "info message")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn message")
	tl.AssertLogged(t, zapcore.ErrorLevel, "error message")
	tl.AssertField(t, "info message", "k", "v")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "error message")

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	defer span.End()
	ctx = WithSessionID(ctx, "sess_1")
	ctx = WithRequestID(ctx, "req-2")
	ctx = WithTurnID(ctx, "turn3")

	tl.Named("chat").With(zap.String("component", "chat")).Info(ctx, "turn completed")

	entries := tl.FilterMessage("turn completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, true, fields["trace_sampled"])
	assert.Equal(t, "sess_1", fields["session.id"])
	assert.Equal(t, "req-2", fields["request.id"])
	assert.Equal(t, "turn3", fields["turn.id"])
	assert.Equal(t, "chat", fields["component"])
	assert.Equal(t, "chat", entries[0].LoggerName)
}

func TestContext_InvalidIDsDropped(t *testing.T) {
	ctx := WithSessionID(context.Background(), "has space")
	assert.Equal(t, "", SessionIDFromContext(ctx))

	ctx = WithRequestID(ctx, string(make([]byte, 200)))
	assert.Equal(t, "", RequestIDFromContext(ctx))

	assert.Empty(t, ContextFields(context.Background()))
	assert.True(t, ValidID("abc-123_X"))
	assert.False(t, ValidID(""))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "via context")
	tl.AssertLogged(t, zapcore.InfoLevel, "via context")
}

func TestSampledCore(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled:    true,
		Tick:       time.Minute,
		Initial:    2,
		Thereafter: 0,
	})
	l := &Logger{zap: zap.New(sampled), level: zap.NewAtomicLevel()}
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		l.Info(ctx, "repeated")
		l.Error(ctx, "failure")
	}

	assert.Equal(t, 2, observed.FilterMessage("repeated").Len())
	assert.Equal(t, 20, observed.FilterMessage("failure").Len(), "errors are never sampled")

	assert.Same(t, core, newSampledCore(core, SamplingConfig{}))
}

func encodeWith(t *testing.T, fields ...zap.Field) map[string]any {
	t.Helper()
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	zap.New(core).Info("user said api_key=abc123", fields...)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRedactingEncoder(t *testing.T) {
	out := encodeWith(t,
		zap.String("api_key", "AIzaSyD-example-key-value-000000"),
		zap.String("message", "our key is AIzaSyD-example-key-value-000000 ok"),
		zap.String("header", "Bearer abc.def.ghi"),
		zap.String("detail", "March 15-17"),
		zap.Any("Authorization", map[string]string{"x": "y"}),
	)

	assert.Equal(t, "[REDACTED]", out["api_key"])
	assert.Equal(t, "our key is [REDACTED] ok", out["message"])
	assert.Equal(t, "[REDACTED]", out["header"])
	assert.Equal(t, "March 15-17", out["detail"])
	assert.Equal(t, "[REDACTED]", out["Authorization"])
	assert.Equal(t, "user said [REDACTED]", out["msg"])
	assert.Equal(t, "info", out["level"])
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.InfoLevel))
	z.With(zap.String("token", "t0k3n")).Info("hello")

	assert.NotContains(t, buf.String(), "t0k3n")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{})
	require.NoError(t, err)

	var buf bytes.Buffer
	zap.New(zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.InfoLevel)).
		Info("m", zap.String("password", "plain"))
	assert.Contains(t, buf.String(), "plain")
}

func TestSecretFields(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "configured",
		Secret("completion_key", config.Secret("AIza-123456")),
		RedactedString("vapi_key", "abc"),
	)
	tl.AssertField(t, "configured", "completion_key", "[REDACTED:11]")
	tl.AssertField(t, "configured", "vapi_key", "[REDACTED:3]")
}

func TestEncodeLevel_Trace(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(newEncoder("json"), zapcore.AddSync(&buf), TraceLevel)
	zap.New(core).Log(TraceLevel, "deep")
	assert.Contains(t, buf.String(), `"level":"trace"`)
}
