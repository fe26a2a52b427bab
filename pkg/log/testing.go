package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// captureSink is the buffer shared by a TestLogger and its children.
// Cross-validation folds log from several goroutines, so writes are locked.
type captureSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *captureSink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(line)
	s.buf.WriteByte('\n')
}

func (s *captureSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *captureSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
}

// TestLogger captures records as JSON lines in memory for assertions.
type TestLogger struct {
	sink   *captureSink
	level  *Level
	fields map[string]any
}

// NewTestLogger creates a TestLogger that keeps records at or above level.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	est := l0learn.NewEstimator(l0learn.WithLogger(logger))
//	...
//	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFit))
func NewTestLogger(level Level) *TestLogger {
	lvl := level
	return &TestLogger{
		sink:   &captureSink{},
		level:  &lvl,
		fields: map[string]any{},
	}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }

func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.write(LevelError, msg, fields)
}

// With implements Logger.With. Children share the parent's buffer and level.
func (t *TestLogger) With(fields ...any) Logger {
	child := &TestLogger{sink: t.sink, level: t.level, fields: make(map[string]any, len(t.fields))}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	addPairs(child.fields, fields)
	return child
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return *t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if *t.level > level {
		return
	}
	entry := map[string]any{
		"level":   level.String(),
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	addPairs(entry, fields)

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"marshal_error":%q}`, level.String(), msg, err.Error()))
	}
	t.sink.write(line)
}

func addPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Output returns everything captured so far.
func (t *TestLogger) Output() string {
	return t.sink.String()
}

// Entries parses the captured JSON lines.
func (t *TestLogger) Entries() ([]map[string]any, error) {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(t.sink.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.sink.String(), message)
}

// ContainsField reports whether any record has key set to value.
// Values are compared after a JSON round trip, so numbers compare as float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	want := normalize(value)
	for _, entry := range entries {
		if got, ok := entry[key]; ok && got == want {
			return true
		}
	}
	return false
}

// CountMessage returns how many records carry exactly this message.
func (t *TestLogger) CountMessage(message string) int {
	entries, err := t.Entries()
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry["message"] == message {
			n++
		}
	}
	return n
}

// Clear drops all captured records.
func (t *TestLogger) Clear() {
	t.sink.reset()
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// TestLoggerProvider hands out TestLoggers sharing one capture buffer.
// Install it with SetProvider to observe package-level loggers.
type TestLoggerProvider struct {
	root *TestLogger
}

// NewTestLoggerProvider creates a provider whose loggers capture at level.
func NewTestLoggerProvider(level Level) *TestLoggerProvider {
	return &TestLoggerProvider{root: NewTestLogger(level)}
}

func (p *TestLoggerProvider) GetLogger() Logger {
	return p.root
}

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.root.With("logger", name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	*p.root.level = level
}

// Root returns the logger holding the shared buffer.
func (p *TestLoggerProvider) Root() *TestLogger {
	return p.root
}
