package repl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/tagtmpl/lang"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		decl   string
		name   string
		params []string
	}{
		{"rand(from, to?, seed?)", "rand", []string{"from", "to?", "seed?"}},
		{"prepend(list, sep, ...items)", "prepend", []string{"list", "sep", "...items"}},
		{"uuid()", "uuid", nil},
		{"uuid", "uuid", nil},
		{" not( value ) ", "not", []string{"value"}},
	}

	for _, tt := range tests {
		sig := parseSignature(tt.decl)

		assert.Equal(t, tt.name, sig.name, tt.decl)
		assert.Equal(t, tt.params, sig.params, tt.decl)
	}
}

func TestActiveParam(t *testing.T) {
	round := parseSignature("round(n, places?)")
	assert.Equal(t, 0, round.activeParam(0))
	assert.Equal(t, 1, round.activeParam(1))
	assert.Equal(t, -1, round.activeParam(2))

	prepend := parseSignature("prepend(list, sep, ...items)")
	assert.Equal(t, 1, prepend.activeParam(1))
	assert.Equal(t, 2, prepend.activeParam(2))
	assert.Equal(t, 2, prepend.activeParam(7))
}

func TestSignatures_Lookup(t *testing.T) {
	sigs := newSignatures(lang.Builtins())

	host := lang.MustNamespace(map[string]any{
		"greet": map[string]any{
			"hello": lang.Callable(func(context.Context, []lang.Value) (any, error) {
				return "hi", nil
			}),
		},
		"name": "ada",
	})
	scope := lang.New().Namespace(host)

	sig, ok := sigs.lookup("round", scope)
	require.True(t, ok)
	assert.Equal(t, []string{"n", "places?"}, sig.params)
	assert.NotEmpty(t, sig.summary)

	sig, ok = sigs.lookup("greet.hello", scope)
	require.True(t, ok)
	assert.Equal(t, []string{"...args"}, sig.params)

	_, ok = sigs.lookup("name", scope)
	assert.False(t, ok)

	_, ok = sigs.lookup("round", lang.New().Namespace(host, lang.WithoutBuiltins()))
	assert.False(t, ok)
}

func TestRenderSignatureHint(t *testing.T) {
	hint := renderSignatureHint(parseSignature("rand(from, to?, seed?)"), 1)

	assert.Contains(t, hint, "rand")
	assert.Contains(t, hint, "from")
	assert.Contains(t, hint, "to?")
	assert.Contains(t, hint, "seed?")
}

func BenchmarkAnalyzeAndLookup(b *testing.B) {
	sigs := newSignatures(lang.Builtins())
	scope := lang.New().Namespace(lang.MustNamespace(nil))
	input := `Dear {upperFirst(name)}, your total is {round(mul(price, 1.2), 2)}.`

	for b.Loop() {
		info := analyze(input, len(input)-4)
		if c, ok := info.innermost(); ok {
			sigs.lookup(c.name, scope)
		}
	}
}
