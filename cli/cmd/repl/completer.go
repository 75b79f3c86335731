package repl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/tagtmpl/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "list", "funcs", "edit", "cache", "clear", "quit",
}

// childCandidates returns the names that complete a path below parent in
// scope. The empty parent lists the top-level names. Sequences offer their
// indices. Any other value has no children.
func childCandidates(scope *lang.Namespace, parent string) []string {
	if parent == "" {
		return scope.Keys()
	}

	switch v := scope.Lookup(parent).(type) {
	case *lang.Namespace:
		return v.Keys()

	case lang.Sequence:
		idx := make([]string, len(v))
		for i := range v {
			idx[i] = strconv.Itoa(i)
		}

		return idx

	default:
		return nil
	}
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor together with the byte bounds that a completion replaces. An empty
// word at the top level yields no matches so the hint line stays visible;
// an empty word after a dot lists every child.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	if m.mode == modeCtrl {
		word := strings.TrimSpace(input)
		if word == "" || strings.ContainsAny(word, " \t") {
			return nil, nil, 0, 0
		}

		wordStart = strings.Index(input, word)

		return fuzzy.Find(word, ctrlCommands), ctrlCommands,
			wordStart, wordStart + len(word)
	}

	info := analyze(input, cursor)
	if info.state != inIdentifier {
		return nil, nil, cursor, cursor
	}

	parent, leaf := parentPath(info.word(input))

	wordStart, wordEnd = info.wordStart, info.wordEnd
	if parent != "" {
		wordStart += len(parent) + 1
	}

	candidates = childCandidates(m.scope, parent)
	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if leaf == "" {
		if parent == "" {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(leaf, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit within width. The selected candidate (when tabbing) uses the selected
// style.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	parent := ""
	if m.mode == modeEval {
		info := analyze(m.input.Value(), m.input.Position())
		parent, _ = parentPath(info.word(m.input.Value()))
	}

	var b strings.Builder

	used := 0

	for i, match := range m.matches {
		selected := m.tabActive && i == m.suggIdx
		callable := m.mode == modeEval && m.isCallable(parent, match.Str)
		rendered := renderCandidate(match, selected, callable)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > m.width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

func (m model) isCallable(parent, name string) bool {
	path := name
	if parent != "" {
		path = parent + "." + name
	}

	return m.scope.Lookup(path).Kind() == lang.KindCallable
}

// renderCandidate renders a single candidate with its matched characters
// highlighted. Functions get a "()" suffix that is not part of the
// completion.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if callable {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

const maxPreview = 40

// formatPreview summarizes a host value for the list command.
func formatPreview(v lang.Value) string {
	var s string

	switch v := v.(type) {
	case *lang.Namespace:
		return fmt.Sprintf("{ %d keys }", v.Len())

	case lang.Sequence:
		return fmt.Sprintf("[ %d items ]", len(v))

	case lang.Callable:
		return "func"

	case lang.Text:
		s = strconv.Quote(string(v))

	default:
		s = v.String()
	}

	if len(s) > maxPreview {
		return s[:maxPreview-3] + "..."
	}

	return s
}
