package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

// Scope selects which names a render sees besides the host values.
type Scope struct {
	NoBuiltins   bool `help:"Render against host values only."`
	HostOverride bool `help:"Let host values shadow built-ins of the same name."`
}

// Options returns the render options the flags select.
func (s Scope) Options() []lang.RenderOption {
	opts := []lang.RenderOption{lang.OverrideBuiltins(s.HostOverride)}
	if s.NoBuiltins {
		opts = append(opts, lang.WithoutBuiltins())
	}

	return opts
}

// Render renders one template and prints the result.
type Render struct {
	HostData `embed:""`
	Scope    `embed:""`

	Template string `arg:"" help:"Template text; omit to read it from --file" optional:""`
	File     string `       help:"Read the template from FILE ('-' for stdin)" placeholder:"FILE" short:"f"`

	NoNewline bool `help:"Do not print a trailing newline." short:"n"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	text, err := r.text()
	if err != nil {
		return err
	}

	ns, err := r.Namespace(ctx)
	if err != nil {
		return err
	}

	out, err := engineFrom(ctx).Render(ctx, text, ns, r.Options()...)
	if err != nil {
		reportParseError(os.Stderr, r.sourceName(), err)

		return err
	}

	log.TraceContext(ctx, "rendered",
		slog.String("source", r.sourceName()),
		slog.Int("length", len(out)),
	)

	if r.NoNewline {
		_, err = fmt.Fprint(os.Stdout, out)
	} else {
		_, err = fmt.Fprintln(os.Stdout, out)
	}

	return err
}

func (r *Render) text() (string, error) {
	if r.File == "" {
		if r.Template == "" {
			return "", ErrNoTemplate
		}

		return r.Template, nil
	}

	raw, err := readFile(r.File)
	if err != nil {
		return "", ErrReadSource.With(slog.String("file", r.File)).Wrap(err)
	}

	// A single trailing line break belongs to the file, not the template.
	text := strings.TrimSuffix(string(raw), "\n")

	return strings.TrimSuffix(text, "\r"), nil
}

func (r *Render) sourceName() string {
	switch r.File {
	case "":
		return "<arg>"
	case stdinSource:
		return "<stdin>"
	default:
		return r.File
	}
}
