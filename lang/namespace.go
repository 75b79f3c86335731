package lang

import (
	"iter"
	"strconv"
	"strings"
)

// Namespace is a validated, immutable mapping from name to [Value].
// It is the evaluation context of a render call and may be shared read-only
// across concurrent renders.
type Namespace struct {
	entries map[string]Value
}

// NewNamespace validates host data and returns it as a Namespace.
// Every value must be representable as a [Value]; otherwise construction
// fails with [*UnsafeValueError] and nothing is stored.
func NewNamespace(data map[string]any) (*Namespace, error) {
	return namespaceFromMap("", data, 0, DefaultMaxDepth)
}

// MustNamespace is like [NewNamespace] but panics on error. It is intended
// for fixed tables known to be safe.
func MustNamespace(data map[string]any) *Namespace {
	ns, err := NewNamespace(data)
	if err != nil {
		panic(err)
	}

	return ns
}

func namespaceFromMap(
	key string,
	data map[string]any,
	depth, maxDepth int,
) (*Namespace, error) {
	if depth > maxDepth {
		return nil, &UnsafeValueError{Key: key, Type: "exceeds maximum depth"}
	}

	// Visit keys in order so the reported key is deterministic.
	entries := make(map[string]Value, len(data))

	for _, name := range sortedKeys(data) {
		val, err := fromHost(childKey(key, name), data[name], depth, maxDepth)
		if err != nil {
			return nil, err
		}

		entries[name] = val
	}

	return &Namespace{entries: entries}, nil
}

// Kind implements [Value].
func (*Namespace) Kind() Kind { return KindNamespace }

func (*Namespace) sealed() {}

// String renders the namespace as "{key:value,...}" with sorted keys.
func (ns *Namespace) String() string {
	if ns == nil {
		return ""
	}

	var b strings.Builder

	b.WriteByte('{')

	for i, key := range ns.Keys() {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(key)
		b.WriteByte(':')
		b.WriteString(stringify(ns.entries[key]))
	}

	b.WriteByte('}')

	return b.String()
}

// Len returns the number of entries.
func (ns *Namespace) Len() int {
	if ns == nil {
		return 0
	}

	return len(ns.entries)
}

// Get returns the value stored under name.
func (ns *Namespace) Get(name string) (Value, bool) {
	if ns == nil {
		return nil, false
	}

	v, ok := ns.entries[name]

	return v, ok
}

// Keys returns the entry names in sorted order.
func (ns *Namespace) Keys() []string {
	if ns == nil {
		return nil
	}

	return sortedKeys(ns.entries)
}

// All returns an iterator over all entries in sorted key order.
func (ns *Namespace) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, key := range ns.Keys() {
			if !yield(key, ns.entries[key]) {
				return
			}
		}
	}
}

// Lookup resolves a dotted path such as "user.roles.0" by descending into
// nested namespaces and indexing sequences with decimal keys. A path that
// does not resolve yields [Absent].
func (ns *Namespace) Lookup(path string) Value {
	var cur Value = ns

	for seg := range strings.SplitSeq(path, ".") {
		switch v := cur.(type) {
		case *Namespace:
			next, ok := v.Get(seg)
			if !ok {
				return Absent{}
			}

			cur = next

		case Sequence:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return Absent{}
			}

			cur = v[i]

		default:
			return Absent{}
		}
	}

	if cur == nil {
		return Absent{}
	}

	return cur
}

// Merge returns a new namespace holding the entries of base and overlay.
// On a key collision the overlay entry wins only if override is set;
// otherwise base is kept. Neither input is modified.
func Merge(base, overlay *Namespace, override bool) *Namespace {
	entries := make(map[string]Value, base.Len()+overlay.Len())

	if base != nil {
		for k, v := range base.entries {
			entries[k] = v
		}
	}

	if overlay != nil {
		for k, v := range overlay.entries {
			if _, exists := entries[k]; exists && !override {
				continue
			}

			entries[k] = v
		}
	}

	return &Namespace{entries: entries}
}
