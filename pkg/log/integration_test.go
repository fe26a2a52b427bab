package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologProviderWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug)

	logger := p.GetLoggerWithName("path").With(ComponentKey, "path")
	logger.Debug("grid point solved", Lambda0Key, 0.5, NnzKey, 3)
	logger.Info("path finished", PointsKey, 7)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "grid point solved", lines[0]["message"])
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "path", lines[0]["logger"])
	assert.Equal(t, "path", lines[0][ComponentKey])
	assert.Equal(t, 0.5, lines[0][Lambda0Key])
	assert.Equal(t, 3.0, lines[0][NnzKey])
	assert.Equal(t, 7.0, lines[1][PointsKey])
}

func TestZerologProviderLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn)
	logger := p.GetLogger()

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))

	p.SetLevel(LevelDebug)
	p.GetLogger().Debug("now shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "now shown", lines[1]["message"])
}

func TestZerologErrorAttachesStack(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug)

	err := errors.NewValueError("Fit", "y contains NaN")
	p.GetLogger().Error("fit failed", err, OperationKey, OperationFit)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "l0learn: Fit: y contains NaN", lines[0][ErrAttrKey])
	assert.Equal(t, OperationFit, lines[0][OperationKey])
	assert.NotEmpty(t, lines[0][StacktraceAttrKey])
}

func TestRouteWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelDebug)
	RouteWarnings(p)
	defer errors.SetZerologWarnFunc(nil)

	w := errors.NewConvergenceWarning("CD", 50, "lambda0=0.2")
	errors.Warn(w)

	assert.Equal(t, 1, strings.Count(buf.String(), `"message":`), buf.String())
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "ConvergenceWarning", lines[0]["type"])
	assert.Equal(t, 50.0, lines[0]["iterations"])
	assert.Equal(t, "lambda0=0.2", lines[0]["detail"])
	assert.Equal(t, w.Error(), lines[0]["message"])
}

func TestSetProviderRedirectsPackageLoggers(t *testing.T) {
	providerMu.RLock()
	prev := provider
	providerMu.RUnlock()
	defer SetProvider(prev)

	tp := NewTestLoggerProvider(LevelInfo)
	SetProvider(tp)

	GetLoggerWithName("cv").Info("fold done", FoldKey, 2)
	GetLogger().Debug("filtered")

	root := tp.Root()
	assert.True(t, root.ContainsField("logger", "cv"))
	assert.True(t, root.ContainsField(FoldKey, 2))
	assert.False(t, root.ContainsMessage("filtered"))
}

func TestTestLoggerWithAndClear(t *testing.T) {
	logger := NewTestLogger(LevelDebug)
	child := logger.With(OperationKey, OperationCrossValidate)
	child.Info("fold started", FoldKey, 0)
	logger.Warn("parent record")

	entries, err := logger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, OperationCrossValidate, entries[0][OperationKey])
	_, inherited := entries[1][OperationKey]
	assert.False(t, inherited)

	logger.Clear()
	assert.Empty(t, logger.Output())
}

func TestTestLoggerConcurrentWrites(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(fold int) {
			defer wg.Done()
			logger.With(FoldKey, fold).Info("fold finished")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, logger.CountMessage("fold finished"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}
