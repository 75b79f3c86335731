package lang

import (
	"context"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant of a [Value].
type Kind int

const (
	// KindAbsent is the absence of a value.
	KindAbsent Kind = iota

	// KindBool is a boolean.
	KindBool

	// KindNumber is a 64-bit floating point number.
	KindNumber

	// KindText is a string.
	KindText

	// KindCallable is a function invocable from a template.
	KindCallable

	// KindSequence is an ordered list of values.
	KindSequence

	// KindNamespace is a nested name-to-value mapping.
	KindNamespace
)

// String returns a string representation of the value kind.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "Absent"

	case KindBool:
		return "Bool"

	case KindNumber:
		return "Number"

	case KindText:
		return "Text"

	case KindCallable:
		return "Callable"

	case KindSequence:
		return "Sequence"

	case KindNamespace:
		return "Namespace"

	default:
		return "Unknown"
	}
}

// Value is a member of the closed set of values a template may observe.
// The set is sealed: only the types declared in this package implement it.
type Value interface {
	Kind() Kind
	String() string

	sealed()
}

// Absent is the absence of a value. It stringifies to the empty string.
type Absent struct{}

// Bool is a boolean value.
type Bool bool

// Number is a numeric value.
type Number float64

// Text is a string value.
type Text string

// Callable is a function invocable from a template. Arguments are already
// evaluated; the returned value is validated before it is observed by the
// template, and ctx is canceled when the render call is abandoned.
type Callable func(ctx context.Context, args []Value) (any, error)

// Sequence is an ordered list of values.
type Sequence []Value

func (Absent) Kind() Kind   { return KindAbsent }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (Text) Kind() Kind     { return KindText }
func (Callable) Kind() Kind { return KindCallable }
func (Sequence) Kind() Kind { return KindSequence }

func (Absent) sealed()   {}
func (Bool) sealed()     {}
func (Number) sealed()   {}
func (Text) sealed()     {}
func (Callable) sealed() {}
func (Sequence) sealed() {}

func (Absent) String() string { return "" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (n Number) String() string {
	f := float64(n)

	switch {
	case math.IsNaN(f):
		return "NaN"

	case math.IsInf(f, 1):
		return "Infinity"

	case math.IsInf(f, -1):
		return "-Infinity"

	case f == 0:
		return "0" // also -0
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (t Text) String() string { return string(t) }

func (Callable) String() string { return "" }

func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = stringify(v)
	}

	return strings.Join(parts, ",")
}

// stringify returns the canonical textual form of v, treating a nil
// interface as absent.
func stringify(v Value) string {
	if v == nil {
		return ""
	}

	return v.String()
}

// Truthy reports whether v counts as true in a conditional.
// Absent, false, zero, NaN, and the empty string are falsy; everything else
// is truthy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil, Absent:
		return false

	case Bool:
		return bool(v)

	case Number:
		f := float64(v)

		return f != 0 && !math.IsNaN(f)

	case Text:
		return v != ""

	case Callable:
		return v != nil

	case Sequence:
		return true

	case *Namespace:
		return v != nil

	default:
		return false
	}
}

// DefaultMaxDepth bounds the nesting of host data accepted by
// [NewNamespace] and of values returned from callables.
const DefaultMaxDepth = 100

// FromHost converts a host value into a [Value].
//
// Accepted host values are nil, booleans, all integer and floating point
// kinds, strings, [Value] variants, functions with the [Callable]
// signature, slices and arrays of accepted values, and maps keyed by string
// whose values are accepted. Anything else fails with [*UnsafeValueError].
func FromHost(v any) (Value, error) {
	return fromHost("", v, 0, DefaultMaxDepth)
}

func fromHost(key string, v any, depth, maxDepth int) (Value, error) {
	if depth > maxDepth {
		return nil, &UnsafeValueError{Key: key, Type: "exceeds maximum depth"}
	}

	switch v := v.(type) {
	case nil:
		return Absent{}, nil

	case Absent:
		return v, nil

	case Bool:
		return v, nil

	case Number:
		return v, nil

	case Text:
		return v, nil

	case Callable:
		if v == nil {
			return Absent{}, nil
		}

		return v, nil

	case func(context.Context, []Value) (any, error):
		if v == nil {
			return Absent{}, nil
		}

		return Callable(v), nil

	case *Namespace:
		if v == nil {
			return Absent{}, nil
		}

		// Already validated at construction.
		return v, nil

	case Sequence:
		return sequenceFromValues(key, v, depth, maxDepth)

	case []Value:
		return sequenceFromValues(key, v, depth, maxDepth)

	case bool:
		return Bool(v), nil

	case string:
		return Text(v), nil

	case float64:
		return Number(v), nil

	case int:
		return Number(v), nil

	case int64:
		return Number(v), nil

	case []any:
		seq := make(Sequence, len(v))

		for i, elem := range v {
			val, err := fromHost(childKey(key, strconv.Itoa(i)), elem, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}

			seq[i] = val
		}

		return seq, nil

	case map[string]any:
		ns, err := namespaceFromMap(key, v, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}

		return ns, nil
	}

	return fromReflect(key, reflect.ValueOf(v), depth, maxDepth)
}

func sequenceFromValues(
	key string,
	vals []Value,
	depth, maxDepth int,
) (Value, error) {
	seq := make(Sequence, len(vals))

	for i, elem := range vals {
		val, err := fromHost(childKey(key, strconv.Itoa(i)), elem, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}

		seq[i] = val
	}

	return seq, nil
}

// fromReflect handles the remaining scalar kinds and generic containers.
func fromReflect(key string, rv reflect.Value, depth, maxDepth int) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil

	case reflect.String:
		return Text(rv.String()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return Number(rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Absent{}, nil
		}

		seq := make(Sequence, rv.Len())

		for i := range rv.Len() {
			val, err := fromHost(childKey(key, strconv.Itoa(i)), rv.Index(i).Interface(), depth+1, maxDepth)
			if err != nil {
				return nil, err
			}

			seq[i] = val
		}

		return seq, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}

		if rv.IsNil() {
			return Absent{}, nil
		}

		m := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}

		return namespaceFromMap(key, m, depth+1, maxDepth)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Absent{}, nil
		}
	}

	return nil, &UnsafeValueError{Key: key, Type: typeName(rv)}
}

func childKey(parent, key string) string {
	if parent == "" {
		return key
	}

	return parent + "." + key
}

func typeName(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	return rv.Type().String()
}

// hostTypeName returns the Go type name of an arbitrary host value.
func hostTypeName(v any) string {
	if v == nil {
		return "nil"
	}

	return reflect.TypeOf(v).String()
}

// ToHost converts v into plain Go values: nil, bool, float64, string,
// []any, map[string]any. Callables become nil.
func ToHost(v Value) any {
	switch v := v.(type) {
	case Bool:
		return bool(v)

	case Number:
		return float64(v)

	case Text:
		return string(v)

	case Sequence:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = ToHost(elem)
		}

		return out

	case *Namespace:
		if v == nil {
			return nil
		}

		out := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			elem, _ := v.Get(k)
			out[k] = ToHost(elem)
		}

		return out

	default:
		return nil
	}
}

func sortedKeys[T any](m map[string]T) []string {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
