package lang

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/mung"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Every function here is total: out-of-domain input yields a fallback
// value, never an error.

// ---------------------------------------------------------------------------
// Coercion
// ---------------------------------------------------------------------------

// number interprets v as a number. Text must hold a complete numeric
// literal; other kinds are not numbers.
func number(v Value) (float64, bool) {
	switch v := v.(type) {
	case Number:
		f := float64(v)

		return f, !math.IsNaN(f)

	case Text:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return 0, false
		}

		f, err := strconv.ParseFloat(s, 64)

		return f, err == nil && !math.IsNaN(f)

	default:
		return 0, false
	}
}

// maxExactInt is the largest magnitude at which every integer is exactly
// representable as a float64.
const maxExactInt = 1 << 53

// integer interprets v as a finite number truncated toward zero.
func integer(v Value) (int, bool) {
	f, ok := number(v)
	if !ok || math.IsInf(f, 0) {
		return 0, false
	}

	return int(math.Trunc(min(max(f, -maxExactInt), maxExactInt))), true
}

func present(v Value) bool {
	return v != nil && v.Kind() != KindAbsent
}

// ---------------------------------------------------------------------------
// Conditionals
// ---------------------------------------------------------------------------

func builtinIf(args []Value) Value {
	if Truthy(args[0]) {
		return args[1]
	}

	return args[2]
}

func builtinAnd(args []Value) Value {
	for _, a := range args {
		if !Truthy(a) {
			return Bool(false)
		}
	}

	return Bool(true)
}

func builtinOr(args []Value) Value {
	for _, a := range args {
		if Truthy(a) {
			return Bool(true)
		}
	}

	return Bool(false)
}

func builtinNot(args []Value) Value { return Bool(!Truthy(args[0])) }

func builtinIsBlank(args []Value) Value {
	switch v := args[0].(type) {
	case nil, Absent:
		return Bool(true)

	case Text:
		return Bool(strings.TrimSpace(string(v)) == "")

	case Sequence:
		return Bool(len(v) == 0)

	case *Namespace:
		return Bool(v.Len() == 0)

	default:
		return Bool(false)
	}
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

func builtinEq(args []Value) Value {
	for i := 1; i < len(args); i++ {
		if !strictEqual(args[i-1], args[i]) {
			return Bool(false)
		}
	}

	return Bool(true)
}

// strictEqual compares scalars by kind and value. Containers and
// callables are never equal.
func strictEqual(a, b Value) bool {
	switch a := a.(type) {
	case nil, Absent:
		return !present(b)

	case Bool:
		bv, ok := b.(Bool)

		return ok && a == bv

	case Number:
		bv, ok := b.(Number)

		return ok && a == bv

	case Text:
		bv, ok := b.(Text)

		return ok && a == bv

	default:
		return false
	}
}

// compare orders two texts lexicographically and anything else
// numerically. ok is false when the values are not comparable.
func compare(a, b Value) (c int, ok bool) {
	at, aText := a.(Text)
	bt, bText := b.(Text)

	if aText && bText {
		return strings.Compare(string(at), string(bt)), true
	}

	af, aok := number(a)
	bf, bok := number(b)

	if !aok || !bok {
		return 0, false
	}

	return cmp.Compare(af, bf), true
}

func comparison(test func(c int) bool) func(args []Value) Value {
	return func(args []Value) Value {
		c, ok := compare(args[0], args[1])

		return Bool(ok && test(c))
	}
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

func builtinConcat(args []Value) Value {
	var b strings.Builder

	for _, a := range args {
		b.WriteString(stringify(a))
	}

	return Text(b.String())
}

func builtinConcatArr(args []Value) Value {
	seq, ok := args[0].(Sequence)
	if !ok {
		return Text("")
	}

	sep := ""
	if len(args) > 1 {
		sep = stringify(args[1])
	}

	parts := make([]string, len(seq))
	for i, v := range seq {
		parts[i] = stringify(v)
	}

	return Text(strings.Join(parts, sep))
}

func builtinSlice(args []Value) Value {
	s, ok := args[0].(Text)
	if !ok {
		return Text("")
	}

	runes := []rune(string(s))

	start, ok := integer(args[1])
	if !ok {
		return Text("")
	}

	end := len(runes)

	if len(args) > 2 && present(args[2]) {
		if end, ok = integer(args[2]); !ok {
			return Text("")
		}
	}

	start, end = sliceIndex(start, len(runes)), sliceIndex(end, len(runes))
	if start >= end {
		return Text("")
	}

	return Text(string(runes[start:end]))
}

// sliceIndex clamps i into [0, n], counting negative i from the end.
func sliceIndex(i, n int) int {
	if i < 0 {
		return max(n+i, 0)
	}

	return min(i, n)
}

// textFunc applies fn to text and returns any other value unchanged.
func textFunc(fn func(string) string) func(args []Value) Value {
	return func(args []Value) Value {
		s, ok := args[0].(Text)
		if !ok {
			return args[0]
		}

		return Text(fn(string(s)))
	}
}

func toLower(s string) string { return strings.ToLower(s) }

func toUpper(s string) string { return strings.ToUpper(s) }

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

func builtinStrlen(args []Value) Value {
	s, ok := args[0].(Text)
	if !ok {
		return Number(0)
	}

	return Number(utf8.RuneCountInString(string(s)))
}

func builtinTrimText(args []Value) Value {
	s, ok := args[0].(Text)
	if !ok {
		return Text("")
	}

	n, ok := integer(args[1])
	if !ok || n < 0 {
		return s
	}

	runes := []rune(string(s))
	if len(runes) <= n {
		return s
	}

	return Text(string(runes[:n]) + "...")
}

func builtinSnowflake(args []Value) Value {
	s, ok := args[0].(Text)
	if !ok {
		return Text("")
	}

	return Text(strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, string(s)))
}

func builtinPrepend(args []Value) Value {
	sep := stringify(args[1])
	if sep == "" {
		sep = string(os.PathListSeparator)
	}

	items := make([]string, 0, len(args)-2)
	for _, a := range args[2:] {
		items = append(items, stringify(a))
	}

	return Text(mung.Make(
		mung.WithSubjectItems(stringify(args[0])),
		mung.WithDelim(sep),
		mung.WithPrefixItems(items...),
	).String())
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// maxPlaces bounds the decimal digits accepted by round.
const maxPlaces = 100

func builtinRound(args []Value) Value {
	n, ok := number(args[0])
	if !ok {
		return Number(0)
	}

	places := 0
	if len(args) > 1 && present(args[1]) {
		if p, ok := integer(args[1]); ok {
			places = min(max(p, 0), maxPlaces)
		}
	}

	if places == 0 {
		return Number(roundHalfUp(n))
	}

	return Text(strconv.FormatFloat(n, 'f', places, 64))
}

// roundHalfUp rounds to the nearest integer with ties toward positive
// infinity.
func roundHalfUp(f float64) float64 {
	if math.IsInf(f, 0) {
		return f
	}

	return math.Floor(f + 0.5)
}

// numberFunc applies fn to a numeric argument, yielding 0 otherwise.
func numberFunc(fn func(float64) float64) func(args []Value) Value {
	return func(args []Value) Value {
		n, ok := number(args[0])
		if !ok {
			return Number(0)
		}

		return Number(fn(n))
	}
}

func floor(f float64) float64 { return math.Floor(f) }

func ceil(f float64) float64 { return math.Ceil(f) }

// reducer folds the numeric arguments left to right starting from the
// first of them. step reports false to skip an operand. Non-numeric
// arguments are skipped; with no numeric argument the result is 0.
func reducer(step func(acc, n float64) (float64, bool)) func(args []Value) Value {
	return func(args []Value) Value {
		var (
			acc     float64
			started bool
		)

		for _, a := range args {
			n, ok := number(a)
			if !ok {
				continue
			}

			if !started {
				acc, started = n, true

				continue
			}

			if next, ok := step(acc, n); ok {
				acc = next
			}
		}

		return Number(acc)
	}
}

func add(acc, n float64) (float64, bool) { return acc + n, true }

func sub(acc, n float64) (float64, bool) { return acc - n, true }

func mul(acc, n float64) (float64, bool) { return acc * n, true }

func div(acc, n float64) (float64, bool) {
	if n == 0 {
		return acc, false
	}

	return acc / n, true
}

func pow(acc, n float64) (float64, bool) { return math.Pow(acc, n), true }

// ---------------------------------------------------------------------------
// Selection and randomness
// ---------------------------------------------------------------------------

func builtinCases(args []Value) Value {
	return pick(args[0], args[1:])
}

// pick returns the value at a 1-based position, wrapping past the end.
func pick(position Value, values []Value) Value {
	if len(values) == 0 {
		return Text("")
	}

	pos, ok := integer(position)
	if !ok {
		return Text("")
	}

	i := max((pos-1)%len(values), 0)

	return values[i]
}

func builtinChoose(args []Value) Value {
	if len(args) == 0 {
		return Text("")
	}

	return pick(Number(rand.IntN(len(args))+1), args)
}

func builtinRand(args []Value) Value {
	from, ok := number(args[0])
	if !ok {
		return Number(0)
	}

	to := from

	if len(args) > 1 && present(args[1]) {
		if to, ok = number(args[1]); !ok {
			return Number(0)
		}
	} else {
		from = 1
	}

	if to > from {
		from, to = to, from
	}

	var r float64

	if len(args) > 2 && present(args[2]) {
		r = seeded(args[2]).Float64()
	} else {
		r = rand.Float64()
	}

	return Number(roundHalfUp(r*(to-from) + from))
}

func builtinUUID(args []Value) Value {
	if len(args) > 0 && present(args[0]) {
		rng := seeded(args[0])

		var buf [16]byte

		binary.LittleEndian.PutUint64(buf[:8], rng.Uint64())
		binary.LittleEndian.PutUint64(buf[8:], rng.Uint64())

		id, err := uuid.NewRandomFromReader(bytes.NewReader(buf[:]))
		if err != nil {
			return Text("")
		}

		return Text(id.String())
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return Text("")
	}

	return Text(id.String())
}

// seeded returns a generator determined by the string form of seed.
func seeded(seed Value) *rand.Rand {
	h := xxh3.HashString128(stringify(seed))

	return rand.New(rand.NewPCG(h.Hi, h.Lo))
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func builtinMap(args []Value) Value {
	key := stringify(args[1])

	switch args[0].(type) {
	case *Namespace, Sequence:
		return mapField(args[0], key, 0)

	default:
		return Text("")
	}
}

// mapField resolves key in a namespace, or in each element of a sequence.
func mapField(v Value, key string, depth int) Value {
	if depth > DefaultMaxDepth {
		return Absent{}
	}

	switch v := v.(type) {
	case *Namespace:
		return v.Lookup(key)

	case Sequence:
		out := make(Sequence, len(v))
		for i, elem := range v {
			out[i] = mapField(elem, key, depth+1)
		}

		return out

	default:
		return Absent{}
	}
}
