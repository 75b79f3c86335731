package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/tagtmpl/lang"
)

// Funcs lists the built-in function catalogue.
type Funcs struct {
	Format string `default:"text" enum:"text,json,yaml" help:"Output format (${enum})." short:"o"`
	Filter string `arg:""         help:"Only list functions whose name contains FILTER." optional:""`
}

// funcInfo is the serialized form of one catalogue entry.
type funcInfo struct {
	Name      string `json:"name"      yaml:"name"`
	Signature string `json:"signature" yaml:"signature"`
	Arity     string `json:"arity"     yaml:"arity"`
	Summary   string `json:"summary"   yaml:"summary"`
}

// Run executes the funcs command.
func (f *Funcs) Run(ctx context.Context) error {
	infos := f.catalogue(engineFrom(ctx).Builtins())

	return writeFuncs(os.Stdout, f.Format, infos)
}

func (f *Funcs) catalogue(defs []lang.Builtin) []funcInfo {
	infos := make([]funcInfo, 0, len(defs))

	for _, b := range defs {
		if f.Filter != "" && !strings.Contains(b.Name, f.Filter) {
			continue
		}

		infos = append(infos, funcInfo{
			Name:      b.Name,
			Signature: b.Signature,
			Arity:     b.Arity(),
			Summary:   b.Summary,
		})
	}

	return infos
}

func writeFuncs(w io.Writer, format string, infos []funcInfo) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(infos); err != nil {
			return ErrEncode.Wrap(err)
		}

		return nil

	case "yaml":
		out, err := yaml.Marshal(infos)
		if err != nil {
			return ErrEncode.Wrap(err)
		}

		_, err = w.Write(out)

		return err

	default:
		_, err := io.WriteString(w, renderFuncs(w, infos))

		return err
	}
}

// renderFuncs lays the catalogue out as two aligned columns. Styling
// follows the color profile of w.
func renderFuncs(w io.Writer, infos []funcInfo) string {
	r := lipgloss.NewRenderer(w)
	sig := r.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	summary := r.NewStyle().Foreground(lipgloss.Color("8"))

	width := 0
	for _, info := range infos {
		width = max(width, lipgloss.Width(info.Signature))
	}

	column := sig.Width(width + 2)

	var b strings.Builder

	for _, info := range infos {
		fmt.Fprintf(&b, "%s%s\n",
			column.Render(info.Signature),
			summary.Render(info.Summary),
		)
	}

	return b.String()
}
