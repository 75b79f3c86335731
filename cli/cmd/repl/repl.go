package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

// editDataMsg is sent when host data editing completes successfully.
type editDataMsg struct {
	data map[string]any
	host *lang.Namespace
}

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit invalid data.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails for another reason.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

// previewTimeout bounds the live render shown beneath the input line.
const previewTimeout = 100 * time.Millisecond

const helpMessage = `
: Commands (press Esc to toggle mode):

  help     Print this message
  list     List host values
  funcs    List built-in functions
  edit     Edit host values in $EDITOR
  cache    Show template cache usage
  clear    Clear screen
  quit     Exit REPL

Usage:
  Type a template and press Enter to render it, e.g. Hello {upper(name)}
  The line below the input previews the render as you type
  Completions appear inside {...}; Tab / Shift-Tab cycle candidates
  Press Space to accept the current candidate
  Up/Down walk history (mode switches automatically)
  Shift+Up/Shift+Down walk history of the current mode only
  Alt+Up/Alt+Down walk command history
  Press Ctrl+C on an empty line or Ctrl+D to exit
`

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

func echo(mode inputMode, input string) string {
	if mode == modeCtrl {
		return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
	}

	return promptStyle.Render(evalPrompt) + inputStyle.Render(input)
}

// Session is what the REPL renders against.
type Session struct {
	Engine *lang.Engine
	Data   map[string]any // host values, editable with the edit command

	// Options apply to every render, e.g. [lang.WithoutBuiltins].
	Options []lang.RenderOption

	// HistoryPath is the history file. Empty keeps history in memory.
	HistoryPath string

	Logger log.Logger
}

// Run starts an interactive session and blocks until the user quits.
func Run(ctx context.Context, s Session) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if s.Data == nil {
		s.Data = map[string]any{}
	}

	host, err := lang.NewNamespace(s.Data)
	if err != nil {
		return err
	}

	history := NewHistory(s.HistoryPath)
	if err := history.Load(); err != nil {
		s.Logger.WarnContext(ctx, "could not load history",
			slog.String("path", s.HistoryPath),
			slog.Any("error", err),
		)
	}

	s.Logger.TraceContext(ctx, "repl start",
		slog.Int("host_keys", host.Len()),
		slog.Int("history", history.Len()),
	)

	p := tea.NewProgram(newModel(ctx, s, host, history), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

// model is the Bubble Tea model for the REPL.
type model struct {
	ctx     context.Context
	engine  *lang.Engine
	options []lang.RenderOption
	logger  log.Logger

	data  map[string]any
	host  *lang.Namespace
	scope *lang.Namespace // host merged with built-ins, as a render sees it
	sigs  signatures

	input      textinput.Model
	history    *History
	historyIdx int
	preview    string

	matches      fuzzy.Matches
	candidates   []string
	wordStart    int // byte bounds replaced by a completion
	wordEnd      int
	suggIdx      int // selected candidate
	tabActive    bool
	preTabText   string
	preTabCursor int

	// Alt+Up/Down navigation restores this state when it runs off either
	// end of the command history.
	altNavActive bool
	altNavMode   inputMode
	altNavText   string
	altNavCursor int

	width    int
	quitting bool
	mode     inputMode

	// Input of the inactive mode.
	evalText   string
	evalCursor int
	ctrlText   string
	ctrlCursor int
}

func newModel(
	ctx context.Context,
	s Session,
	host *lang.Namespace,
	history *History,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	m := model{
		ctx:        ctx,
		engine:     s.Engine,
		options:    s.Options,
		logger:     s.Logger,
		data:       s.Data,
		sigs:       newSignatures(s.Engine.Builtins()),
		input:      ti,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeEval,
	}

	m.setHost(s.Data, host)

	return m
}

func (m *model) setHost(data map[string]any, host *lang.Namespace) {
	m.data = data
	m.host = host
	m.scope = m.engine.Namespace(host, m.options...)
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(evalPrompt) - 2

		return m, nil

	case editDataMsg:
		m.setHost(msg.data, msg.host)
		m.refresh(false)

		m.logger.TraceContext(m.ctx, "repl edit complete",
			slog.Int("host_keys", m.host.Len()),
		)

		return m, tea.Println(resultStyle.Render("host values updated"))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	return b.String()
}

// statusLine is the line beneath the input: a history position, a hint,
// a signature, completion candidates, or the live preview, in that order
// of precedence.
func (m model) statusLine() string {
	input := m.input.Value()

	if m.historyIdx < m.history.Len() {
		return hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		if m.mode == modeEval {
			return hintStyle.Render("Type a template or press Esc for commands")
		}

		return hintStyle.Render(
			"Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)")
	}

	if len(m.matches) > 0 && (m.tabActive || m.mode == modeCtrl) {
		return m.renderCandidateBar()
	}

	if m.mode == modeEval {
		info := analyze(input, m.input.Position())
		if c, ok := info.innermost(); ok && info.state != inIdentifier {
			if sig, ok := m.sigs.lookup(c.name, m.scope); ok {
				return renderSignatureHint(sig, c.argIndex)
			}
		}
	}

	if len(m.matches) > 0 {
		return m.renderCandidateBar()
	}

	return m.preview
}

// renderPreview renders input without the engine cache so that partial
// templates typed along the way do not evict real entries.
func (m model) renderPreview(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	t, err := lang.Parse(input)
	if err != nil {
		return hintStyle.Render("… " + err.Error())
	}

	ctx, cancel := context.WithTimeout(m.ctx, previewTimeout)
	defer cancel()

	out, err := lang.RenderTemplate(ctx, t, m.scope)
	if err != nil {
		return errorStyle.Render("✗ " + err.Error())
	}

	return hintStyle.Render("= ") + resultStyle.Render(firstLine(out, m.width-2))
}

// firstLine returns the first line of s, cut to width runes.
func firstLine(s string, width int) string {
	s, _, cut := strings.Cut(s, "\n")

	if r := []rune(s); width > 1 && len(r) > width {
		return string(r[:width-1]) + "…"
	}

	if cut {
		return s + "…"
	}

	return s
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctx, "repl keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		m.refresh(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.submit()
		}

		m.tabActive = false
		m.refresh(true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			m.refresh(false)

			return m, nil
		}

		m.altNavActive = false

		return m.toggleMode(), nil

	case tea.KeyRunes:
		// Space accepts the candidate being cycled.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		m.refresh(true)

		return m, cmd
	}

	// Deletions and cursor movement never auto-complete.
	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(false)

	return m, cmd
}

// cycle moves the candidate selection by step, starting a cycle if none is
// active. A lone candidate is completed and confirmed at once.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		m.replaceWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n

	default:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	m.replaceWord(m.matches[m.suggIdx].Str)

	return m
}

// replaceWord substitutes text for the completion bounds and moves the
// cursor behind it.
func (m *model) replaceWord(text string) {
	input := m.input.Value()
	cursor := m.wordStart + len(text)

	m.input.SetValue(input[:m.wordStart] + text + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refresh recomputes completions and the preview for the current input.
// With autoConfirm set, a word that already equals its only candidate is
// accepted. Deletions and cursor movement pass false so editing never
// completes unexpectedly.
func (m *model) refresh(autoConfirm bool) {
	if !m.tabActive {
		m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()
		m.suggIdx = -1
	}

	if m.mode == modeEval {
		m.preview = m.renderPreview(m.input.Value())
	} else {
		m.preview = ""
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if only := m.matches[0].Str; m.input.Value()[m.wordStart:m.wordEnd] == only {
		m.replaceWord(only)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) submit() (model, tea.Cmd) {
	input := m.input.Value()
	if strings.TrimSpace(input) == "" {
		return m, nil
	}

	mode := m.mode

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")
	m.preview = ""
	m.matches = nil

	if err := m.history.Add(input, mode); err != nil {
		m.logger.DebugContext(m.ctx, "history not saved", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if mode == modeCtrl {
		return m.command(strings.TrimSpace(input))
	}

	return m, tea.Sequence(tea.Println(echo(modeEval, input)), m.render(input))
}

// render renders input through the engine and prints the result.
func (m model) render(input string) tea.Cmd {
	out, err := m.engine.Render(m.ctx, input, m.host, m.options...)

	m.logger.TraceContext(m.ctx, "repl render",
		slog.String("outcome", lang.Outcome(err)),
	)

	if err == nil {
		return tea.Println(resultStyle.Render(out))
	}

	var pe *lang.ParseError
	if errors.As(err, &pe) {
		return tea.Println(errorStyle.Render("error: "+pe.Error()) + "\n" +
			hintStyle.Render(strings.TrimSuffix(pe.Snippet(), "\n")))
	}

	return tea.Println(errorStyle.Render("error: " + err.Error()))
}

func (m model) command(input string) (model, tea.Cmd) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	m.logger.TraceContext(m.ctx, "repl command",
		slog.String("command", name),
		slog.Any("args", args),
	)

	echoCmd := tea.Println(echo(modeCtrl, input))

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage))

	case "l", "list":
		return m, tea.Sequence(echoCmd, tea.Println(m.listHost()))

	case "f", "funcs":
		return m, tea.Sequence(echoCmd, tea.Println(m.listFuncs(args)))

	case "cache":
		c := m.engine.Cache()

		return m, tea.Sequence(echoCmd, tea.Println(
			hintStyle.Render(fmt.Sprintf("%d/%d templates cached", c.Len(), c.Cap()))))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echoCmd, m.edit())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + name + " (try 'help')"))
	}
}

func (m model) edit() tea.Cmd {
	cmd := &editDataCommand{ctx: m.ctx, data: m.data, logger: m.logger}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}

		case err != nil:
			return editErrorMsg{err: err}

		case cmd.newHost == nil:
			return editCancelledMsg{}

		default:
			return editDataMsg{data: cmd.newData, host: cmd.newHost}
		}
	})
}

func (m model) listHost() string {
	if m.host.Len() == 0 {
		return hintStyle.Render("  (no host values)")
	}

	var b strings.Builder

	for name, v := range m.host.All() {
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(formatPreview(v)))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// listFuncs prints the signature hint of every built-in whose name
// contains one of filters, or of all built-ins.
func (m model) listFuncs(filters []string) string {
	var b strings.Builder

	for _, def := range m.engine.Builtins() {
		if len(filters) > 0 && !containsAny(def.Name, filters) {
			continue
		}

		b.WriteString("  " + renderSignatureHint(m.sigs[def.Name], -1) + "\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// show puts entry i of the history into the input, switching mode to match.
func (m model) show(i int) model {
	entry, err := m.history.Entry(i)
	if err != nil {
		return m
	}

	if m.mode != entry.Mode {
		m = m.switchToMode(entry.Mode)
	}

	m.historyIdx = i
	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	m.refresh(false)

	return m
}

// historyStep moves through history by dir (-1 older, 1 newer). With
// sameMode set, entries of the other mode are skipped. Stepping past the
// newest entry clears the input.
func (m model) historyStep(dir int, sameMode bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		entry, err := m.history.Entry(i)
		if err != nil {
			break
		}

		if !sameMode || entry.Mode == m.mode {
			return m.show(i)
		}
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		m.refresh(false)
	}

	return m
}

// historyCtrl walks the command history from any mode. Running off either
// end restores the mode and input that were active before.
func (m model) historyCtrl(dir int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavMode = m.mode
		m.altNavText = m.input.Value()
		m.altNavCursor = m.input.Position()

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		if entry, err := m.history.Entry(i); err == nil && entry.Mode == modeCtrl {
			return m.show(i)
		}
	}

	m.altNavActive = false

	if m.altNavMode != m.mode {
		m = m.switchToMode(m.altNavMode)
	}

	m.input.SetValue(m.altNavText)
	m.input.SetCursor(m.altNavCursor)
	m.historyIdx = m.history.Len()
	m.refresh(false)

	return m
}

func (m model) toggleMode() model {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode stashes the input of the current mode and restores the
// input last seen in mode.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	m.refresh(false)

	return m
}
