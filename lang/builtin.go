package lang

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
)

// Builtin documents a function registered into every render namespace.
type Builtin struct {
	Name      string
	MinArgs   int
	MaxArgs   int // -1 when variadic
	Signature string
	Summary   string
	Func      Callable
}

// Variadic reports whether the builtin accepts any number of trailing
// arguments.
func (b Builtin) Variadic() bool { return b.MaxArgs < 0 }

// Arity describes the accepted argument count, e.g. "2", "1..3", "1+".
func (b Builtin) Arity() string {
	switch {
	case b.Variadic():
		return strconv.Itoa(b.MinArgs) + "+"

	case b.MinArgs == b.MaxArgs:
		return strconv.Itoa(b.MinArgs)

	default:
		return strconv.Itoa(b.MinArgs) + ".." + strconv.Itoa(b.MaxArgs)
	}
}

// callable returns Func adapted to the declared arity: missing arguments
// are passed as [Absent] and surplus arguments are dropped.
func (b Builtin) callable() Callable {
	fn := b.Func
	if fn == nil {
		return nil
	}

	minArgs, maxArgs := b.MinArgs, b.MaxArgs

	return func(ctx context.Context, args []Value) (any, error) {
		if maxArgs >= 0 && len(args) > maxArgs {
			args = args[:maxArgs]
		}

		for len(args) < minArgs {
			args = append(slices.Clip(args), Absent{})
		}

		return fn(ctx, args)
	}
}

// pure adapts a total function over values to the [Callable] protocol.
func pure(fn func(args []Value) Value) Callable {
	return func(_ context.Context, args []Value) (any, error) {
		return fn(args), nil
	}
}

// Builtins returns the default built-in catalogue sorted by name.
func Builtins() []Builtin {
	return slices.Clone(builtinTable())
}

// builtinTable is the default catalogue, built once.
var builtinTable = sync.OnceValue(func() []Builtin {
	table := []Builtin{
		// -------------------------------------------------------------------
		// Conditionals
		// -------------------------------------------------------------------
		{
			Name: "if", MinArgs: 3, MaxArgs: 3,
			Signature: "if(cond, then, else)",
			Summary:   "then if cond is truthy, otherwise else",
			Func:      pure(builtinIf),
		},
		{
			Name: "and", MinArgs: 0, MaxArgs: -1,
			Signature: "and(...values)",
			Summary:   "true if every value is truthy",
			Func:      pure(builtinAnd),
		},
		{
			Name: "or", MinArgs: 0, MaxArgs: -1,
			Signature: "or(...values)",
			Summary:   "true if any value is truthy",
			Func:      pure(builtinOr),
		},
		{
			Name: "not", MinArgs: 1, MaxArgs: 1,
			Signature: "not(value)",
			Summary:   "negated truthiness of value",
			Func:      pure(builtinNot),
		},
		{
			Name: "isBlank", MinArgs: 1, MaxArgs: 1,
			Signature: "isBlank(value)",
			Summary:   "true if value is absent, whitespace, or an empty list",
			Func:      pure(builtinIsBlank),
		},

		// -------------------------------------------------------------------
		// Comparison
		// -------------------------------------------------------------------
		{
			Name: "eq", MinArgs: 0, MaxArgs: -1,
			Signature: "eq(...values)",
			Summary:   "true if consecutive values are strictly equal",
			Func:      pure(builtinEq),
		},
		{
			Name: "gt", MinArgs: 2, MaxArgs: 2,
			Signature: "gt(a, b)",
			Summary:   "a > b, numeric or lexicographic",
			Func:      pure(comparison(func(c int) bool { return c > 0 })),
		},
		{
			Name: "gte", MinArgs: 2, MaxArgs: 2,
			Signature: "gte(a, b)",
			Summary:   "a >= b, numeric or lexicographic",
			Func:      pure(comparison(func(c int) bool { return c >= 0 })),
		},
		{
			Name: "lt", MinArgs: 2, MaxArgs: 2,
			Signature: "lt(a, b)",
			Summary:   "a < b, numeric or lexicographic",
			Func:      pure(comparison(func(c int) bool { return c < 0 })),
		},
		{
			Name: "lte", MinArgs: 2, MaxArgs: 2,
			Signature: "lte(a, b)",
			Summary:   "a <= b, numeric or lexicographic",
			Func:      pure(comparison(func(c int) bool { return c <= 0 })),
		},

		// -------------------------------------------------------------------
		// Strings
		// -------------------------------------------------------------------
		{
			Name: "concat", MinArgs: 0, MaxArgs: -1,
			Signature: "concat(...values)",
			Summary:   "string forms of values joined without separator",
			Func:      pure(builtinConcat),
		},
		{
			Name: "concatArr", MinArgs: 1, MaxArgs: 2,
			Signature: "concatArr(list, sep?)",
			Summary:   "elements of list joined by sep",
			Func:      pure(builtinConcatArr),
		},
		{
			Name: "slice", MinArgs: 2, MaxArgs: 3,
			Signature: "slice(text, start, end?)",
			Summary:   "code points of text from start up to end; negative counts from the end",
			Func:      pure(builtinSlice),
		},
		{
			Name: "lower", MinArgs: 1, MaxArgs: 1,
			Signature: "lower(text)",
			Summary:   "text in lower case",
			Func:      pure(textFunc(toLower)),
		},
		{
			Name: "upper", MinArgs: 1, MaxArgs: 1,
			Signature: "upper(text)",
			Summary:   "text in upper case",
			Func:      pure(textFunc(toUpper)),
		},
		{
			Name: "upperFirst", MinArgs: 1, MaxArgs: 1,
			Signature: "upperFirst(text)",
			Summary:   "text with its first character in upper case",
			Func:      pure(textFunc(upperFirst)),
		},
		{
			Name: "ucfirst", MinArgs: 1, MaxArgs: 1,
			Signature: "ucfirst(text)",
			Summary:   "alias of upperFirst",
			Func:      pure(textFunc(upperFirst)),
		},
		{
			Name: "strlen", MinArgs: 1, MaxArgs: 1,
			Signature: "strlen(text)",
			Summary:   "number of code points in text",
			Func:      pure(builtinStrlen),
		},
		{
			Name: "trim_text", MinArgs: 2, MaxArgs: 2,
			Signature: "trim_text(text, max)",
			Summary:   "text cut to max code points with a \"...\" suffix",
			Func:      pure(builtinTrimText),
		},
		{
			Name: "get_snowflake", MinArgs: 1, MaxArgs: 1,
			Signature: "get_snowflake(text)",
			Summary:   "text with every non-digit removed",
			Func:      pure(builtinSnowflake),
		},
		{
			Name: "prepend", MinArgs: 2, MaxArgs: -1,
			Signature: "prepend(list, sep, ...items)",
			Summary:   "items prefixed onto a sep-delimited list, without duplicates",
			Func:      pure(builtinPrepend),
		},

		// -------------------------------------------------------------------
		// Numbers
		// -------------------------------------------------------------------
		{
			Name: "round", MinArgs: 1, MaxArgs: 2,
			Signature: "round(n, places?)",
			Summary:   "n rounded to places decimal digits",
			Func:      pure(builtinRound),
		},
		{
			Name: "floor", MinArgs: 1, MaxArgs: 1,
			Signature: "floor(n)",
			Summary:   "largest integer not greater than n",
			Func:      pure(numberFunc(floor)),
		},
		{
			Name: "ceil", MinArgs: 1, MaxArgs: 1,
			Signature: "ceil(n)",
			Summary:   "smallest integer not less than n",
			Func:      pure(numberFunc(ceil)),
		},
		{
			Name: "add", MinArgs: 0, MaxArgs: -1,
			Signature: "add(...n)",
			Summary:   "sum of the numeric arguments",
			Func:      pure(reducer(add)),
		},
		{
			Name: "sub", MinArgs: 0, MaxArgs: -1,
			Signature: "sub(...n)",
			Summary:   "first numeric argument minus the rest",
			Func:      pure(reducer(sub)),
		},
		{
			Name: "mul", MinArgs: 0, MaxArgs: -1,
			Signature: "mul(...n)",
			Summary:   "product of the numeric arguments",
			Func:      pure(reducer(mul)),
		},
		{
			Name: "div", MinArgs: 0, MaxArgs: -1,
			Signature: "div(...n)",
			Summary:   "first numeric argument divided by the rest, skipping zeros",
			Func:      pure(reducer(div)),
		},
		{
			Name: "exp", MinArgs: 0, MaxArgs: -1,
			Signature: "exp(...n)",
			Summary:   "first numeric argument raised to the rest in turn",
			Func:      pure(reducer(pow)),
		},

		// -------------------------------------------------------------------
		// Selection and randomness
		// -------------------------------------------------------------------
		{
			Name: "cases", MinArgs: 1, MaxArgs: -1,
			Signature: "cases(position, ...values)",
			Summary:   "value at 1-based position, wrapping past the end",
			Func:      pure(builtinCases),
		},
		{
			Name: "choose", MinArgs: 0, MaxArgs: -1,
			Signature: "choose(...values)",
			Summary:   "one of values picked uniformly at random",
			Func:      pure(builtinChoose),
		},
		{
			Name: "rand", MinArgs: 1, MaxArgs: 3,
			Signature: "rand(from, to?, seed?)",
			Summary:   "random integer between from and to; repeatable with a seed",
			Func:      pure(builtinRand),
		},
		{
			Name: "uuid", MinArgs: 0, MaxArgs: 1,
			Signature: "uuid(seed?)",
			Summary:   "random version 4 UUID; repeatable with a seed",
			Func:      pure(builtinUUID),
		},

		// -------------------------------------------------------------------
		// Lookup
		// -------------------------------------------------------------------
		{
			Name: "map", MinArgs: 2, MaxArgs: 2,
			Signature: "map(object, key)",
			Summary:   "field key of object, or of each element of a list",
			Func:      pure(builtinMap),
		},
	}

	slices.SortFunc(table, func(a, b Builtin) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return table
})

// catalogue merges extra definitions over base by name and returns the
// result sorted by name.
func catalogue(base []Builtin, extra ...Builtin) []Builtin {
	byName := make(map[string]Builtin, len(base)+len(extra))

	for _, b := range base {
		byName[b.Name] = b
	}

	for _, b := range extra {
		byName[b.Name] = b
	}

	out := make([]Builtin, 0, len(byName))
	for _, name := range sortedKeys(byName) {
		out = append(out, byName[name])
	}

	return out
}

// builtinNamespace binds each definition to its name.
func builtinNamespace(defs []Builtin) *Namespace {
	entries := make(map[string]Value, len(defs))

	for _, b := range defs {
		if fn := b.callable(); fn != nil {
			entries[b.Name] = fn
		}
	}

	return &Namespace{entries: entries}
}
