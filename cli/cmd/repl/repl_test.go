package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStatusLine(t *testing.T) {
	m := testModel(t, testData())
	assert.Contains(t, m.statusLine(), "Type a template")

	m = typeInto(m, "Hi {user.name}!")
	assert.Contains(t, m.statusLine(), "Hi ada!")

	m = typeInto(m, "{round(1, ")
	assert.Contains(t, m.statusLine(), "places?")

	m = typeInto(m, "{user.")
	assert.Contains(t, m.statusLine(), "roles")

	m = typeInto(m, "{")
	assert.Contains(t, m.statusLine(), "…")

	m = m.switchToMode(modeCtrl)
	m = typeInto(m, "")
	assert.Contains(t, m.statusLine(), "funcs")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "abc", firstLine("abc", 10))
	assert.Equal(t, "abc…", firstLine("abc\ndef", 10))
	assert.Equal(t, "abcde…", firstLine("abcdefgh", 6))
}

func TestSubmit(t *testing.T) {
	m := typeInto(testModel(t, testData()), "Hi {user.name}")

	m, cmd := m.submit()
	require.NotNil(t, cmd)

	assert.Empty(t, m.input.Value())
	assert.Empty(t, m.preview)
	assert.Equal(t, 1, m.history.Len())
	assert.Equal(t, 1, m.engine.Cache().Len())
}

func TestCommands(t *testing.T) {
	m := testModel(t, testData()).switchToMode(modeCtrl)

	m = typeInto(m, "list")
	m, _ = m.submit()
	assert.False(t, m.quitting)

	assert.Contains(t, m.listHost(), "user")
	assert.Contains(t, m.listHost(), "{ 2 keys }")
	assert.Contains(t, m.listFuncs([]string{"upp"}), "upperFirst")
	assert.NotContains(t, m.listFuncs([]string{"upp"}), "round")

	m = typeInto(m, "quit")
	m, _ = m.submit()
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestHistoryNavigation(t *testing.T) {
	m := testModel(t, testData())
	require.NoError(t, m.history.Add("{user.name}", modeEval))
	require.NoError(t, m.history.Add("list", modeCtrl))
	require.NoError(t, m.history.Add("{count}", modeEval))
	m.historyIdx = m.history.Len()

	m = m.historyStep(-1, false)
	assert.Equal(t, "{count}", m.input.Value())

	m = m.historyStep(-1, false)
	assert.Equal(t, modeCtrl, m.mode)
	assert.Equal(t, "list", m.input.Value())

	m = m.historyStep(-1, true)
	assert.Equal(t, "list", m.input.Value(), "no older command entry")

	m = m.historyStep(1, false)
	m = m.historyStep(1, false)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, m.history.Len(), m.historyIdx)
}

func TestHistoryCtrl_Restores(t *testing.T) {
	m := testModel(t, testData())
	require.NoError(t, m.history.Add("help", modeCtrl))
	m.historyIdx = m.history.Len()

	m = typeInto(m, "{draft")

	m = m.historyCtrl(-1)
	assert.Equal(t, modeCtrl, m.mode)
	assert.Equal(t, "help", m.input.Value())

	m = m.historyCtrl(-1)
	assert.Equal(t, modeEval, m.mode)
	assert.Equal(t, "{draft", m.input.Value())
	assert.False(t, m.altNavActive)
}

func TestHandleKey(t *testing.T) {
	m := testModel(t, testData())

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("{user.")})
	assert.Equal(t, []string{"name", "roles"}, matchStrings(m.matches))

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "{user.name", m.input.Value())

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "{user.", m.input.Value())
	assert.False(t, m.tabActive)

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeCtrl, m.mode)

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeEval, m.mode)
	assert.Equal(t, "{user.", m.input.Value())

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Empty(t, m.input.Value())

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.True(t, m.quitting)
}
