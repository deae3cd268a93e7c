package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger backed by an in-memory observer. Every level,
// including trace, is recorded.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), level: zap.NewAtomicLevelAt(TraceLevel)},
		observed: observed,
	}
}

func (t *TestLogger) All() []observer.LoggedEntry { return t.observed.All() }

// FilterMessage narrows to entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

func (t *TestLogger) Reset() { t.observed.TakeAll() }

// count returns how many entries at level mention msg.
func (t *TestLogger) count(level zapcore.Level, msg string) int {
	n := 0
	for _, e := range t.observed.FilterLevelExact(level).All() {
		if strings.Contains(e.Message, msg) {
			n++
		}
	}
	return n
}

func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if t.count(level, msg) == 0 {
		tb.Errorf("no %v entry mentions %q (%d entries recorded)", level, msg, t.observed.Len())
	}
}

func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := t.count(level, msg); n > 0 {
		tb.Errorf("%d unexpected %v entries mention %q", n, level, msg)
	}
}

// AssertField checks that some entry mentioning msg carries key=want.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.FilterMessage(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && got == want {
			return
		}
	}
	tb.Errorf("no entry mentioning %q has %s=%v", msg, key, want)
}
