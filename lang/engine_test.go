package lang

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/tagtmpl/log"
)

func TestEngine_HostOverride(t *testing.T) {
	t.Parallel()

	ns := MustNamespace(map[string]any{"upper": "shadow", "name": "ada"})

	out, err := New().Render(context.Background(), "{upper(name)}", ns)
	require.NoError(t, err)
	assert.Equal(t, "ADA", out, "built-ins win by default")

	out, err = New(WithHostOverride(true)).Render(context.Background(), "{upper(name)}", ns)
	require.NoError(t, err)
	assert.Equal(t, "shadow", out)
}

func TestEngine_WithoutBuiltins(t *testing.T) {
	t.Parallel()

	ns := MustNamespace(map[string]any{"name": "ada"})

	out, err := New().Render(context.Background(), "{upper(name)}|{name}", ns, WithoutBuiltins())
	require.NoError(t, err)
	assert.Equal(t, "|ada", out)
}

func TestEngine_WithBuiltins(t *testing.T) {
	t.Parallel()

	shout := Builtin{
		Name: "shout", MinArgs: 1, MaxArgs: 1,
		Signature: "shout(text)",
		Summary:   "text followed by an exclamation mark",
		Func: func(_ context.Context, args []Value) (any, error) {
			return args[0].String() + "!", nil
		},
	}

	replaced := Builtin{
		Name: "upper", MinArgs: 1, MaxArgs: 1,
		Func: func(context.Context, []Value) (any, error) { return "UP", nil },
	}

	e := New(WithBuiltins(shout, replaced))

	out, err := e.Render(context.Background(), `{shout("hi")} {upper("x")}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi! UP", out)

	names := make([]string, 0, len(e.Builtins()))
	for _, b := range e.Builtins() {
		names = append(names, b.Name)
	}

	assert.Contains(t, names, "shout")
	assert.Len(t, names, len(Builtins())+1)

	// The default catalogue is unaffected.
	out, err = New().Render(context.Background(), `{upper("x")}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "X", out)
}

func TestEngine_ParseUsesCache(t *testing.T) {
	t.Parallel()

	e := New(WithCacheCapacity(2))

	_, err := e.Render(context.Background(), "{a}", nil)
	require.NoError(t, err)
	assert.True(t, e.Cache().Contains("{a}"))

	tmpl, err := e.Parse(context.Background(), "{b}")
	require.NoError(t, err)
	assert.Equal(t, Template{call("b")}, tmpl)

	_, err = e.Parse(context.Background(), "{c}")
	require.NoError(t, err)

	assert.Equal(t, 2, e.Cache().Len())
	assert.False(t, e.Cache().Contains("{a}"))
}

func TestEngine_ParseErrorIsTerminal(t *testing.T) {
	t.Parallel()

	out, err := New().Render(context.Background(), "ok {foo(", nil)
	require.ErrorIs(t, err, ErrParse)
	assert.Empty(t, out)
	assert.Equal(t, OutcomeParse, Outcome(err))
}

func TestEngine_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := New(WithMetrics(m))

	_, _ = e.Render(context.Background(), "{add(1)}", nil)
	_, _ = e.Render(context.Background(), "{add(1)}", nil)
	_, _ = e.Render(context.Background(), "{bad(", nil)

	assert.InDelta(t, 2, testutil.ToFloat64(m.renders.WithLabelValues(OutcomeOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.renders.WithLabelValues(OutcomeParse)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheHits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheMisses), 0)

	count, err := testutil.GatherAndCount(reg, "tagtmpl_render_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_TraceLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := log.Make(&buf,
		log.WithLevel(log.LevelTrace),
		log.WithFormat(log.FormatJSON),
		log.WithPretty(false),
	)

	e := New(WithLogger(logger))

	_, err := e.Render(context.Background(), "{a}", nil)
	require.NoError(t, err)

	_, err = e.Render(context.Background(), "{a}", nil)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `"msg":"parse complete"`)
	assert.Contains(t, output, `"msg":"cache miss"`)
	assert.Contains(t, output, `"msg":"cache hit"`)
	assert.Contains(t, output, `"msg":"render complete"`)
	assert.Contains(t, output, `"level":"TRACE"`)
}

func TestEngine_ConcurrentRenders(t *testing.T) {
	t.Parallel()

	e := New(WithCacheCapacity(4))

	var wg sync.WaitGroup

	for i := range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			n := strconv.Itoa(i % 8)
			ns := MustNamespace(map[string]any{"n": n})

			out, err := e.Render(context.Background(), "{concat(n, \"-"+n+"\")}", ns)
			assert.NoError(t, err)
			assert.Equal(t, n+"-"+n, out)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, e.Cache().Len(), 4)
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeUnsafe, Outcome(&UnsafeValueError{}))
	assert.Equal(t, OutcomeUnsafe, Outcome(&UnsafeReturnValueError{}))
	assert.Equal(t, OutcomeCanceled, Outcome(context.Canceled))
	assert.Equal(t, OutcomeCallable, Outcome(ErrCallable.Wrap(assert.AnError)))
}

func TestEngine_OverrideBuiltinsPerCall(t *testing.T) {
	t.Parallel()

	ns := MustNamespace(map[string]any{"lower": "mine"})
	e := New(WithHostOverride(true))

	out, err := e.Render(context.Background(), `{lower("X")}`, ns, OverrideBuiltins(false))
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	out, err = New().Render(context.Background(), `{lower("X")}`, ns, OverrideBuiltins(true))
	require.NoError(t, err)
	assert.Equal(t, "mine", out)
}
