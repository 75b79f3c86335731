package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)

		out = append(out, rec)
	}

	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := Make(&buf, WithLevel(LevelDebug), WithTimeLayout("none"))

	logger.Trace("hidden")
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	recs := records(t, &buf)
	require.Len(t, recs, 4)

	var levels []any
	for _, rec := range recs {
		levels = append(levels, rec["level"])
		assert.NotContains(t, rec, "time")
	}

	assert.Equal(t, []any{"DEBUG", "INFO", "WARN", "ERROR"}, levels)
}

func TestLogger_TraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithLevel(LevelTrace)).TraceContext(context.Background(), "deep")

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "TRACE", recs[0]["level"])
	assert.Equal(t, "deep", recs[0]["msg"])
}

func TestLogger_Caller(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithCaller(true)).Info("where")

	recs := records(t, &buf)
	require.Len(t, recs, 1)

	src, ok := recs[0]["source"].(map[string]any)
	require.True(t, ok, "source attribute")
	assert.Contains(t, src["file"], "log_test.go")
}

func TestLogger_WrapAndWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := Make(&buf)
	wrapped := base.Wrap(WithLevel(LevelWarn))

	assert.Equal(t, DefaultLevel, base.Level())
	assert.Equal(t, LevelWarn, wrapped.Level())

	tagged := base.With(slog.String("component", "cache"))
	tagged.Info("stored", slog.Int("entries", 3))

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "cache", recs[0]["component"])
	assert.InDelta(t, 3, recs[0]["entries"], 0)
}

func TestLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var plain, console bytes.Buffer

	Make(&plain, WithFormat(FormatText), WithPretty(false), WithTimeLayout("")).
		Info("hello", slog.String("user", "ada"))

	Make(&console, WithFormat(FormatText), WithTimeLayout("")).
		With(slog.String("app", "x")).
		WithGroup("req").
		Info("hello world", slog.String("user", "ada lovelace"))

	assert.Equal(t, "level=INFO msg=hello user=ada\n", plain.String())
	assert.Equal(t, "INFO hello world app=x req.user=\"ada lovelace\"\n", console.String())
}

func TestLogger_ZeroValue(t *testing.T) {
	t.Parallel()

	var logger Logger

	assert.NotPanics(t, func() {
		logger.Trace("x")
		logger.ErrorContext(context.Background(), "x")
		_ = logger.With(slog.String("k", "v"))
	})

	assert.Equal(t, DefaultLevel, logger.Level())
	assert.Equal(t, DefaultFormat, logger.Format())

	var buf bytes.Buffer

	logger.Wrap(WithOutput(&buf)).Info("revived")
	assert.Contains(t, buf.String(), "revived")
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()

	var buf safeBuffer

	logger := Make(&buf)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			logger.With(slog.Int("worker", i)).Info("tick")
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, strings.Count(buf.String(), "\n"))
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func BenchmarkLogger_Filtered(b *testing.B) {
	var buf bytes.Buffer

	logger := Make(&buf)

	for b.Loop() {
		logger.Trace("skipped", slog.Int("n", 1))
	}
}
