package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

// Lint parses templates without rendering them.
//
// Every non-empty line of every input is one template. Each failure is
// reported as "file:line:col: message" followed by a caret snippet.
type Lint struct {
	Files []string `arg:"" help:"Template files, one template per line ('-' for stdin)" optional:""`
	Quiet bool     `help:"Print only the summary."                                        short:"q"`
	Tree  bool     `help:"Print the parsed outline of each valid template."`
}

// Run executes the lint command.
func (l *Lint) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	srcs, err := openSources(l.Files)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	var out io.Writer = os.Stdout
	if l.Quiet {
		out = io.Discard
	}

	var tree io.Writer
	if l.Tree {
		tree = out
	}

	engine := engineFrom(ctx)

	var checked, failed int

	for _, src := range srcs {
		c, f, err := lintSource(ctx, engine, out, tree, src)
		if err != nil {
			return ErrReadSource.With(slog.String("file", src.name)).Wrap(err)
		}

		checked += c
		failed += f
	}

	log.DebugContext(ctx, "lint complete",
		slog.Int("templates", checked),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		return ErrLintFailed.With(
			slog.Int("templates", checked),
			slog.Int("failed", failed),
		)
	}

	return nil
}

func lintSource(
	ctx context.Context,
	engine *lang.Engine,
	out, tree io.Writer,
	src source,
) (checked, failed int, err error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for n := 1; scanner.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return checked, failed, err
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		checked++

		tmpl, perr := engine.Parse(ctx, line)
		if perr != nil {
			failed++

			writeLintError(out, src.name, n, perr)

			continue
		}

		if tree != nil {
			fmt.Fprintf(tree, "%s:%d:\n", src.name, n)
			tmpl.Print(tree)
		}
	}

	return checked, failed, scanner.Err()
}

func writeLintError(w io.Writer, name string, line int, err error) {
	var pe *lang.ParseError
	if !errors.As(err, &pe) {
		fmt.Fprintf(w, "%s:%d: %v\n", name, line, err)

		return
	}

	_, col := pe.Position()
	fmt.Fprintf(w, "%s:%d:%d: %v\n%s", name, line, col, pe, pe.Snippet())
}

// reportParseError prints the caret snippet of a parse error to w, prefixed
// with its location. Other errors are left to the caller.
func reportParseError(w io.Writer, name string, err error) {
	var pe *lang.ParseError
	if !errors.As(err, &pe) {
		return
	}

	line, col := pe.Position()
	fmt.Fprintf(w, "%s:%d:%d: %v\n%s", name, line, col, pe, pe.Snippet())
}
