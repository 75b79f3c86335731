package lang

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, text string, data map[string]any, opts ...Option) (string, error) {
	t.Helper()

	ns, err := NewNamespace(data)
	require.NoError(t, err)

	return New(opts...).Render(context.Background(), text, ns)
}

func TestRender_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		data map[string]any
		want string
	}{
		{"upper", "Hello {upper(name)}!", map[string]any{"name": "ada"}, "Hello ADA!"},
		{"add", "{add(1,2,3)}", nil, "6"},
		{"if eq", `{if(eq(role,"admin"),"yes","no")}`, map[string]any{"role": "admin"}, "yes"},
		{"if eq false", `{if(eq(role,"admin"),"yes","no")}`, map[string]any{"role": "user"}, "no"},
		{"cases", `{cases(2,"a","b","c")}`, nil, "b"},
		{"concatArr", `{concatArr(items,",")}`, map[string]any{"items": []string{"x", "y", "z"}}, "x,y,z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := render(t, tt.text, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_UnsafeReturnValue(t *testing.T) {
	t.Parallel()

	type native struct{ Field string }

	leaky := Builtin{
		Name: "leak", MinArgs: 0, MaxArgs: 0,
		Func: func(context.Context, []Value) (any, error) {
			return native{"secret"}, nil
		},
	}

	out, err := render(t, "before {leak()} after", nil, WithBuiltins(leaky))
	require.Error(t, err)
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrUnsafeReturnValue)

	var ue *UnsafeReturnValueError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "leak", ue.Identifier)
	assert.Equal(t, "lang.native", ue.Type)
	assert.Equal(t, `unsafe return value: "leak" returned lang.native`, ue.Error())
}

func TestRender_UnsafeNestedReturnValue(t *testing.T) {
	t.Parallel()

	ch := make(chan int)

	ns := MustNamespace(map[string]any{
		"rows": Callable(func(context.Context, []Value) (any, error) {
			return []any{"ok", map[string]any{"c": ch}}, nil
		}),
	})

	_, err := RenderTemplate(context.Background(), Template{call("rows")}, ns)
	require.Error(t, err)

	var ue *UnsafeReturnValueError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "rows", ue.Identifier)
	assert.Equal(t, "chan int", ue.Type)
}

func TestRender_RoundTripWithoutExpressions(t *testing.T) {
	t.Parallel()

	ns := MustNamespace(map[string]any{"a": 1, "name": "x"})

	for _, text := range []string{"", "plain", "with spaces\nand lines", "ünïcödé ✓", "a}b", "\xffab\xfe"} {
		got, err := New().Render(context.Background(), text, ns)
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestRender_InvalidUTF8(t *testing.T) {
	t.Parallel()

	ns := MustNamespace(map[string]any{"name": "x"})

	tests := []struct {
		text string
		want string
	}{
		{`{concat("\xff")}`, "\xff"},
		{"\xfe{name}\xff", "\xfex\xff"},
		{`a\` + "\xff" + `b`, "a\xffb"},
		{"{ceil(-0.5)}", "0"},
		{"{mul(-1, 0)}", "0"},
	}

	for _, tt := range tests {
		got, err := New().Render(context.Background(), tt.text, ns)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestRender_AbsentAndBareValues(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"n":     2.5,
		"ok":    true,
		"list":  []any{"a", 1},
		"obj":   map[string]any{"k": "v"},
		"empty": nil,
	}

	got, err := render(t, "[{missing}][{empty}][{n}][{ok}][{list}][{obj}][{missing(1)}]", data)
	require.NoError(t, err)
	assert.Equal(t, "[][][2.5][true][a,1][{k:v}][]", got)
}

func TestRender_ArgumentOrder(t *testing.T) {
	t.Parallel()

	var calls []string

	record := func(name string) Callable {
		return func(_ context.Context, args []Value) (any, error) {
			calls = append(calls, name)

			return name, nil
		}
	}

	ns := MustNamespace(map[string]any{
		"f": record("f"),
		"g": record("g"),
		"h": record("h"),
		"k": record("k"),
	})

	tmpl, err := Parse("{f(g(h()), k())}{h()}")
	require.NoError(t, err)

	_, err = RenderTemplate(context.Background(), tmpl, ns)
	require.NoError(t, err)
	assert.Equal(t, []string{"h", "g", "k", "f", "h"}, calls)
}

func TestRender_ArgumentsPassThrough(t *testing.T) {
	t.Parallel()

	var got []Value

	ns := MustNamespace(map[string]any{
		"inspect": Callable(func(_ context.Context, args []Value) (any, error) {
			got = args

			return nil, nil
		}),
		"name": "ada",
	})

	tmpl, err := Parse(`{inspect("s", -2, name, missing)}`)
	require.NoError(t, err)

	out, err := RenderTemplate(context.Background(), tmpl, ns)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []Value{Text("s"), Number(-2), Text("ada"), Absent{}}, got)
}

func TestRender_CallableError(t *testing.T) {
	t.Parallel()

	boom := errors.New("lookup failed")

	ns := MustNamespace(map[string]any{
		"fetch": Callable(func(context.Context, []Value) (any, error) {
			return nil, boom
		}),
	})

	tmpl, err := Parse("x{fetch()}y")
	require.NoError(t, err)

	out, err := RenderTemplate(context.Background(), tmpl, ns)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrCallable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "callable failed: lookup failed", err.Error())
}

func TestRender_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	var after int

	ns := MustNamespace(map[string]any{
		"f": Callable(func(context.Context, []Value) (any, error) {
			return "f", nil
		}),
		"stop": Callable(func(context.Context, []Value) (any, error) {
			cancel()

			return "stopped", nil
		}),
		"next": Callable(func(context.Context, []Value) (any, error) {
			after++

			return "next", nil
		}),
	})

	tmpl, err := Parse("{f(stop(), next())}{next()}")
	require.NoError(t, err)

	out, err := RenderTemplate(ctx, tmpl, ns)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
	assert.Zero(t, after)
}

func TestRender_CallableObservesCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	ns := MustNamespace(map[string]any{
		"wait": Callable(func(ctx context.Context, _ []Value) (any, error) {
			cancel()
			<-ctx.Done()

			return nil, ctx.Err()
		}),
	})

	_, err := New().Render(ctx, "{wait()}", ns)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCallable)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	ns := New().Namespace(MustNamespace(map[string]any{"items": []any{1, 2, 3}}))

	v, err := Evaluate(context.Background(), call("concatArr", call("items"), StringArg("+")), ns)
	require.NoError(t, err)
	assert.Equal(t, Text("1+2+3"), v)

	v, err = Evaluate(context.Background(), nil, ns)
	require.NoError(t, err)
	assert.Equal(t, Value(Absent{}), v)
}

func TestRender_Determinism(t *testing.T) {
	t.Parallel()

	e := New()
	ns := MustNamespace(map[string]any{"id": "12345"})
	text := `{rand(1, 1000, id)}-{uuid(id)}-{rand(5, 1, "fixed")}`

	first, err := e.Render(context.Background(), text, ns)
	require.NoError(t, err)

	for range 5 {
		again, err := e.Render(context.Background(), text, ns)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	uncached, err := New(WithCacheCapacity(1)).Render(context.Background(), text, ns)
	require.NoError(t, err)
	assert.Equal(t, first, uncached)
	assert.Len(t, strings.Split(first, "-"), 7)
}
