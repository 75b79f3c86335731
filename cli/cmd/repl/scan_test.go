package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name  string
		input string
		state scanState
		word  string
		calls []call
	}{
		{
			name:  "literal",
			input: "Hello there",
			state: inLiteral,
		},
		{
			name:  "root identifier",
			input: "Hello {us",
			state: inIdentifier,
			word:  "us",
		},
		{
			name:  "leading space",
			input: "{ us",
			state: inIdentifier,
			word:  "us",
		},
		{
			name:  "argument identifier",
			input: "{upper(na",
			state: inIdentifier,
			word:  "na",
			calls: []call{{name: "upper"}},
		},
		{
			name:  "between arguments",
			input: "{rand(1, ",
			state: inArgs,
			calls: []call{{name: "rand", argIndex: 1}},
		},
		{
			name:  "number",
			input: "{rand(1, -6",
			state: inNumber,
			calls: []call{{name: "rand", argIndex: 1}},
		},
		{
			name:  "comma inside quotes",
			input: `{concat("a, b`,
			state: inQuote,
			calls: []call{{name: "concat"}},
		},
		{
			name:  "escaped quote",
			input: `{concat("a\", `,
			state: inQuote,
			calls: []call{{name: "concat"}},
		},
		{
			name:  "nested call closed",
			input: "{if(eq(a, b), ",
			state: inArgs,
			calls: []call{{name: "if", argIndex: 1}},
		},
		{
			name:  "inside nested call",
			input: "{if(eq(a, ",
			state: inArgs,
			calls: []call{{name: "if"}, {name: "eq", argIndex: 1}},
		},
		{
			name:  "root call closed",
			input: "{upper(name)",
			state: inClosed,
		},
		{
			name:  "after injection",
			input: "{upper(name)} and ",
			state: inLiteral,
		},
		{
			name:  "escaped brace",
			input: `\{user`,
			state: inLiteral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := analyze(tt.input, len(tt.input))

			assert.Equal(t, tt.state, info.state)
			assert.Equal(t, tt.word, info.word(tt.input))
			assert.Equal(t, tt.calls, info.calls)
		})
	}
}

func TestAnalyze_WordExtendsPastCursor(t *testing.T) {
	input := "{user.name} tail"
	info := analyze(input, len("{user.na"))

	assert.Equal(t, inIdentifier, info.state)
	assert.Equal(t, "user.name", info.word(input))
	assert.Equal(t, 1, info.wordStart)
	assert.Equal(t, len("{user.name"), info.wordEnd)
}

func TestAnalyze_CursorClamped(t *testing.T) {
	assert.Equal(t, inLiteral, analyze("{x", -4).state)
	assert.Equal(t, "x", analyze("{x", 99).word("{x"))
}

func TestInnermost(t *testing.T) {
	_, ok := analyze("{x", 2).innermost()
	assert.False(t, ok)

	c, ok := analyze("{a(b(", 5).innermost()
	assert.True(t, ok)
	assert.Equal(t, "b", c.name)
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		word, parent, leaf string
	}{
		{"", "", ""},
		{"user", "", "user"},
		{"user.", "user", ""},
		{"user.ro", "user", "ro"},
		{"user.roles.0", "user.roles", "0"},
	}

	for _, tt := range tests {
		parent, leaf := parentPath(tt.word)

		assert.Equal(t, tt.parent, parent, tt.word)
		assert.Equal(t, tt.leaf, leaf, tt.word)
	}
}
