package repl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

const defaultEditor = "vi"

// editDataCommand implements [tea.ExecCommand] for the host data
// edit-decode-retry loop. It dumps the data as YAML to a temp file, opens
// the user's editor, and decodes the result. On a decode error the user is
// asked whether to edit again; declining exits the REPL.
type editDataCommand struct {
	ctx    context.Context
	data   map[string]any
	logger log.Logger

	// Set by Run when the edit produced valid data.
	newData map[string]any
	newHost *lang.Namespace

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *editDataCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *editDataCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editDataCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the loop. It returns [ErrEditDeclined] if the user refuses
// to fix invalid content, and nil with no new data if the file was cleared.
func (c *editDataCommand) Run() error {
	content, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("encode host data: %w", err)
	}

	f, err := os.CreateTemp("", "tagtmpl-data-*.yaml")
	if err != nil {
		return err
	}

	path := f.Name()
	defer os.Remove(path)

	if err := f.Close(); err != nil {
		return err
	}

	for {
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return err
		}

		if err := runEditor(c.ctx, c.stdin, c.stdout, c.stderr, path); err != nil {
			return err
		}

		content, err = os.ReadFile(path)
		if err != nil {
			return err
		}

		if len(bytes.TrimSpace(content)) == 0 {
			return nil
		}

		data, host, derr := decodeHost(content)

		c.logger.TraceContext(c.ctx, "editor decode attempt",
			slog.Int("length", len(content)),
			slog.Bool("success", derr == nil),
		)

		if derr == nil {
			c.newData, c.newHost = data, host

			return nil
		}

		fmt.Fprintf(c.stderr, "\nInvalid host data: %s\n", derr)
		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		if !confirm(c.stdin) {
			return ErrEditDeclined
		}
	}
}

// decodeHost decodes a YAML mapping and converts it to a namespace.
func decodeHost(content []byte) (map[string]any, *lang.Namespace, error) {
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, nil, err
	}

	if data == nil {
		data = map[string]any{}
	}

	host, err := lang.NewNamespace(data)
	if err != nil {
		return nil, nil, err
	}

	return data, host, nil
}

// confirm reads one answer from r. Anything but "n" or "no" is a yes.
func confirm(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "n", "no":
		return false
	default:
		return true
	}
}

// runEditor opens path in $EDITOR and waits for it to exit.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout, stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
