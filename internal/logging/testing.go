package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry, trace level included, for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates an observing logger.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

func (t *TestLogger) find(level zapcore.Level, substr string) bool {
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// AssertLogged fails unless an entry at level contains substr.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if !t.find(level, substr) {
		tb.Errorf("no %v entry containing %q; have %d entries", level, substr, len(t.observed.All()))
	}
}

// AssertNotLogged fails if an entry at level contains substr.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, substr string) {
	tb.Helper()
	if t.find(level, substr) {
		tb.Errorf("unexpected %v entry containing %q", level, substr)
	}
}

// AssertField fails unless an entry with message msg carries key=expected.
// Integer fields compare equal to any Go integer of the same value.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		got, ok := e.ContextMap()[key]
		if ok && fieldEqual(got, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found on %q", key, expected, msg)
}

func fieldEqual(got, expected any) bool {
	if reflect.DeepEqual(got, expected) {
		return true
	}
	g, e := reflect.ValueOf(got), reflect.ValueOf(expected)
	if g.CanInt() && e.CanInt() {
		return g.Int() == e.Int()
	}
	return false
}

var (
	secretKeys = []string{"password", "secret", "token", "api_key", "authorization", "credential", "private_key"}

	secretValues = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bearer\s+\S+`),
		regexp.MustCompile(`(?i)api[_-]?key[=:]\s*\S+`),
		regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	}
)

// Leaks lists the sensitive fields and values found in the recorded entries.
func (t *TestLogger) Leaks() []string {
	var leaks []string
	for _, e := range t.observed.All() {
		for _, re := range secretValues {
			if re.MatchString(e.Message) {
				leaks = append(leaks, "message: "+e.Message)
			}
		}
		for _, f := range e.Context {
			if f.Type != zapcore.StringType || f.String == "" {
				continue
			}
			key := strings.ToLower(f.Key)
			for _, k := range secretKeys {
				if strings.Contains(key, k) && !strings.Contains(f.String, "[REDACTED") {
					leaks = append(leaks, f.Key+"="+f.String)
				}
			}
			for _, re := range secretValues {
				if re.MatchString(f.String) {
					leaks = append(leaks, f.Key+"="+f.String)
				}
			}
		}
	}
	return leaks
}

// AssertNoSecrets fails if any recorded entry leaks a secret.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	for _, leak := range t.Leaks() {
		tb.Errorf("secret in log: %s", leak)
	}
}

// AssertTraceCorrelation fails unless an entry with message msg has a trace_id.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, e := range t.observed.FilterMessage(msg).All() {
		if _, ok := e.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("entry %q has no trace_id", msg)
}
