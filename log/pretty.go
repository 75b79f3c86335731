package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// consoleHandler writes one styled line per record:
//
//	15:04:05 INFO render complete output_length=12 elapsed=41µs
//
// Styling follows the color profile detected for the output writer, so
// redirected output is plain text.
type consoleHandler struct {
	opts   slog.HandlerOptions
	styles consoleStyles
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	prefix string
}

type consoleStyles struct {
	time, key, value, message lipgloss.Style
	level                     map[string]lipgloss.Style
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	r := lipgloss.NewRenderer(w)

	return &consoleHandler{
		opts: *opts,
		styles: consoleStyles{
			time:    r.NewStyle().Faint(true),
			key:     r.NewStyle().Foreground(lipgloss.Color("8")),
			value:   r.NewStyle().Foreground(lipgloss.Color("6")),
			message: r.NewStyle().Bold(true),
			level: map[string]lipgloss.Style{
				"TRACE": r.NewStyle().Foreground(lipgloss.Color("5")),
				"DEBUG": r.NewStyle().Foreground(lipgloss.Color("4")),
				"INFO":  r.NewStyle().Foreground(lipgloss.Color("2")),
				"WARN":  r.NewStyle().Foreground(lipgloss.Color("3")),
				"ERROR": r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			},
		},
		mu: &sync.Mutex{},
		w:  w,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}

	return level >= threshold
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		if a := h.replace(slog.Time(slog.TimeKey, r.Time)); !a.Equal(slog.Attr{}) {
			buf.WriteString(h.styles.time.Render(a.Value.String()))
			buf.WriteByte(' ')
		}
	}

	level := h.replace(slog.Any(slog.LevelKey, r.Level)).Value.String()
	style, ok := h.styles.level[level]

	if !ok {
		style = h.styles.value
	}

	buf.WriteString(style.Render(level))
	buf.WriteByte(' ')

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			h.writeAttr(&buf, "", slog.String(slog.SourceKey, src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	buf.WriteString(h.styles.message.Render(r.Message))

	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.prefix, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)

	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}

	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."

	return &clone
}

func (h *consoleHandler) replace(a slog.Attr) slog.Attr {
	if h.opts.ReplaceAttr == nil {
		return a
	}

	return h.opts.ReplaceAttr(nil, a)
}

func (h *consoleHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			h.writeAttr(buf, prefix+a.Key+".", member)
		}

		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.styles.key.Render(prefix + a.Key))
	buf.WriteByte('=')

	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}

	buf.WriteString(h.styles.value.Render(value))
}
