package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry down to TraceLevel in memory.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// FilterMessage returns the entries whose message contains snippet.
func (t *TestLogger) FilterMessage(snippet string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(snippet)
}

func (t *TestLogger) matches(level zapcore.Level, snippet string) int {
	n := 0
	for _, e := range t.observed.FilterLevelExact(level).All() {
		if strings.Contains(e.Message, snippet) {
			n++
		}
	}
	return n
}

// AssertLogged fails tb unless an entry at level mentions snippet.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if t.matches(level, snippet) == 0 {
		tb.Errorf("no %v entry containing %q; recorded: %+v", level, snippet, t.observed.All())
	}
}

// AssertNotLogged fails tb if any entry at level mentions snippet.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, snippet string) {
	tb.Helper()
	if n := t.matches(level, snippet); n > 0 {
		tb.Errorf("found %d %v entries containing %q", n, level, snippet)
	}
}

// AssertField fails tb unless an entry mentioning snippet carries key=want.
func (t *TestLogger) AssertField(tb testing.TB, snippet, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.FilterMessage(snippet).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("no entry containing %q with %s=%v", snippet, key, want)
}
