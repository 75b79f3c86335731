package lang

import (
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_Render(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"name":    "ada lovelace",
		"zero":    0,
		"blank":   "  ",
		"items":   []string{"x", "y", "z"},
		"nums":    []any{"10", 2, "x"},
		"user":    map[string]any{"id": 42, "tag": "ada#0001"},
		"users":   []any{map[string]any{"id": 1}, map[string]any{"id": 2}, "bad"},
		"nested":  []any{[]any{map[string]any{"id": 3}}},
		"mention": "<@!123456789012345678>",
	}

	tests := []struct {
		text string
		want string
	}{
		// Conditionals
		{`{if(1, "a", "b")}`, "a"},
		{`{if(zero, "a", "b")}`, "b"},
		{`{if("", "a", "b")}`, "b"},
		{`{if(missing, "a", "b")}`, "b"},
		{`{if(name, "a")}`, "a"},
		{`{if(zero, "a")}`, ""},
		{`{and()}`, "true"},
		{`{and(1, "x", name)}`, "true"},
		{`{and(1, zero)}`, "false"},
		{`{or()}`, "false"},
		{`{or(zero, "", "y")}`, "true"},
		{`{not(zero)}`, "true"},
		{`{not(name)}`, "false"},
		{`{isBlank(blank)}`, "true"},
		{`{isBlank(missing)}`, "true"},
		{`{isBlank(name)}`, "false"},

		// Comparison
		{`{eq()}`, "true"},
		{`{eq(1)}`, "true"},
		{`{eq(1, 1, 1)}`, "true"},
		{`{eq(1, "1")}`, "false"},
		{`{eq("a", "a", "b")}`, "false"},
		{`{eq(missing, nothing)}`, "true"},
		{`{eq(items, items)}`, "false"},
		{`{gt(2, 1)}`, "true"},
		{`{gt("10", 9)}`, "true"},
		{`{gt("10", "9")}`, "false"},
		{`{gte(2, 2)}`, "true"},
		{`{lt("a", "b")}`, "true"},
		{`{lte(3, 2)}`, "false"},
		{`{lt("x", 1)}`, "false"},
		{`{gt(missing, 1)}`, "false"},

		// Strings
		{`{concat("a", 1, missing, true)}`, "a1true"},
		{`{concat()}`, ""},
		{`{concatArr(items)}`, "xyz"},
		{`{concatArr(items, " | ")}`, "x | y | z"},
		{`{concatArr(name, ",")}`, ""},
		{`{slice("hello", 1, 3)}`, "el"},
		{`{slice("hello", 2)}`, "llo"},
		{`{slice("hello", -3)}`, "llo"},
		{`{slice("hello", 1, -1)}`, "ell"},
		{`{slice("hello", 4, 2)}`, ""},
		{`{slice("hello", "x")}`, ""},
		{`{slice("hello", 1, "x")}`, ""},
		{`{slice("hello")}`, ""},
		{`{slice(1, 0, 1)}`, ""},
		{`{slice("héllo", 1, 2)}`, "é"},
		{`{lower("ABC")}`, "abc"},
		{`{upper(name)}`, "ADA LOVELACE"},
		{`{upper(5)}`, "5"},
		{`{upperFirst(name)}`, "Ada lovelace"},
		{`{ucfirst("éa")}`, "Éa"},
		{`{upperFirst("")}`, ""},
		{`{strlen("héllo")}`, "5"},
		{`{strlen(5)}`, "0"},
		{`{trim_text(name, 3)}`, "ada..."},
		{`{trim_text(name, 50)}`, "ada lovelace"},
		{`{trim_text(5, 1)}`, ""},
		{`{get_snowflake(mention)}`, "123456789012345678"},
		{`{get_snowflake(5)}`, ""},
		{`{prepend("b:c", ":", "a")}`, "a:b:c"},

		// Numbers
		{`{round(2.5)}`, "3"},
		{`{round(-2.5)}`, "-2"},
		{`{round(1.2345, 2)}`, "1.23"},
		{`{round("2.5", 1)}`, "2.5"},
		{`{round(3, 2)}`, "3.00"},
		{`{round("x")}`, "0"},
		{`{round(2.4, "x")}`, "2"},
		{`{floor(2.7)}`, "2"},
		{`{floor(-2.1)}`, "-3"},
		{`{ceil(2.1)}`, "3"},
		{`{ceil("x")}`, "0"},
		{`{add()}`, "0"},
		{`{add(1, "2", "x", missing, 3.5)}`, "6.5"},
		{`{sub(10, 3, "x", 2)}`, "5"},
		{`{sub("x", 10, 3)}`, "7"},
		{`{mul(2, 3, 4)}`, "24"},
		{`{div(100, 0, 5, 2)}`, "10"},
		{`{div(0, 5)}`, "0"},
		{`{exp(2, 3, 2)}`, "64"},
		{`{add(nums)}`, "0"},

		// Selection
		{`{cases(1, "a", "b", "c")}`, "a"},
		{`{cases(3, "a", "b", "c")}`, "c"},
		{`{cases(4, "a", "b", "c")}`, "a"},
		{`{cases(5, "a", "b", "c")}`, "b"},
		{`{cases(0, "a", "b", "c")}`, "a"},
		{`{cases(-7, "a", "b", "c")}`, "a"},
		{`{cases("2", "a", "b")}`, "b"},
		{`{cases(1)}`, ""},
		{`{cases("x", "a")}`, ""},
		{`{choose()}`, ""},
		{`{choose("only")}`, "only"},
		{`{rand(5, 5)}`, "5"},
		{`{rand("x", 5)}`, "0"},
		{`{rand(1, "x")}`, "0"},
		{`{rand(1)}`, "1"},

		// Lookup
		{`{map(user, "id")}`, "42"},
		{`{map(user, "missing")}`, ""},
		{`{map(users, "id")}`, "1,2,"},
		{`{map(nested, "id")}`, "3"},
		{`{map(name, "id")}`, ""},
		{`{concatArr(map(users, "id"), "+")}`, "1+2+"},
	}

	e := New()
	ns := MustNamespace(data)

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			got, err := e.Render(context.Background(), tt.text, ns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltins_RandRange(t *testing.T) {
	t.Parallel()

	e := New()

	for i := range 200 {
		for _, text := range []string{
			"{rand(3, 7)}",
			"{rand(7, 3)}",
			`{rand(3, 7, "` + strconv.Itoa(i) + `")}`,
		} {
			out, err := e.Render(context.Background(), text, nil)
			require.NoError(t, err)

			n, err := strconv.Atoi(out)
			require.NoError(t, err, out)
			assert.GreaterOrEqual(t, n, 3)
			assert.LessOrEqual(t, n, 7)
		}
	}
}

func TestBuiltins_SeededDrawsAreRepeatable(t *testing.T) {
	t.Parallel()

	e := New()
	seen := make(map[string]struct{})

	for seed := range 20 {
		text := `{rand(1, 1000000, "` + strconv.Itoa(seed) + `")}`

		first, err := e.Render(context.Background(), text, nil)
		require.NoError(t, err)

		second, err := e.Render(context.Background(), text, nil)
		require.NoError(t, err)

		assert.Equal(t, first, second)

		seen[first] = struct{}{}
	}

	assert.Greater(t, len(seen), 1, "different seeds should draw different values")
}

func TestBuiltins_UUID(t *testing.T) {
	t.Parallel()

	v4 := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	e := New()

	random, err := e.Render(context.Background(), "{uuid()}", nil)
	require.NoError(t, err)
	assert.Regexp(t, v4, random)

	seeded, err := e.Render(context.Background(), `{uuid("abc")}`, nil)
	require.NoError(t, err)
	assert.Regexp(t, v4, seeded)

	again, err := e.Render(context.Background(), `{uuid("abc")}`, nil)
	require.NoError(t, err)
	assert.Equal(t, seeded, again)

	other, err := e.Render(context.Background(), `{uuid("abd")}`, nil)
	require.NoError(t, err)
	assert.NotEqual(t, seeded, other)
}

func TestBuiltins_Choose(t *testing.T) {
	t.Parallel()

	e := New()

	for range 50 {
		out, err := e.Render(context.Background(), `{choose("a", "b", "c")}`, nil)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b", "c"}, out)
	}
}

func TestBuiltins_Catalogue(t *testing.T) {
	t.Parallel()

	defs := Builtins()
	require.NotEmpty(t, defs)

	required := []string{
		"if", "and", "or", "not", "eq", "gt", "gte", "lt", "lte",
		"concat", "concatArr", "slice", "lower", "upper", "upperFirst",
		"strlen", "get_snowflake", "round", "floor", "ceil",
		"add", "sub", "mul", "div", "exp", "cases", "choose", "rand", "map",
	}

	byName := make(map[string]Builtin, len(defs))
	for i, b := range defs {
		byName[b.Name] = b

		assert.NotEmpty(t, b.Signature, b.Name)
		assert.NotEmpty(t, b.Summary, b.Name)
		assert.NotNil(t, b.Func, b.Name)

		if i > 0 {
			assert.Less(t, defs[i-1].Name, b.Name, "catalogue is sorted")
		}
	}

	for _, name := range required {
		assert.Contains(t, byName, name)
	}

	assert.Equal(t, "3", byName["if"].Arity())
	assert.Equal(t, "1..2", byName["round"].Arity())
	assert.Equal(t, "0+", byName["add"].Arity())
	assert.True(t, byName["concat"].Variadic())
}

func TestBuiltins_ArityAdaptation(t *testing.T) {
	t.Parallel()

	var got []Value

	b := Builtin{
		Name: "probe", MinArgs: 2, MaxArgs: 3,
		Func: func(_ context.Context, args []Value) (any, error) {
			got = args

			return nil, nil
		},
	}

	fn := b.callable()

	_, err := fn(context.Background(), []Value{Text("a")})
	require.NoError(t, err)
	assert.Equal(t, []Value{Text("a"), Absent{}}, got)

	_, err = fn(context.Background(), []Value{Number(1), Number(2), Number(3), Number(4)})
	require.NoError(t, err)
	assert.Equal(t, []Value{Number(1), Number(2), Number(3)}, got)
}
