package cmd

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

// HostData collects the host values a template is rendered against.
//
// Data files are YAML documents (JSON is accepted as a subset) whose top
// level is a mapping. Later files replace keys of earlier ones, and --var
// values replace both.
type HostData struct {
	Data []string `help:"YAML or JSON file of host values; repeatable, later files win" placeholder:"FILE" short:"d"`
	Var  []string `help:"Host value given as name=expression; repeatable"                placeholder:"NAME=EXPR" short:"v"`
}

// Namespace loads every data file and variable and validates the result.
func (h HostData) Namespace(ctx context.Context) (*lang.Namespace, error) {
	data, err := h.values(ctx)
	if err != nil {
		return nil, err
	}

	return lang.NewNamespace(data)
}

func (h HostData) values(ctx context.Context) (map[string]any, error) {
	data := make(map[string]any)

	for _, name := range h.Data {
		raw, err := readFile(name)
		if err != nil {
			return nil, ErrReadData.With(slog.String("file", name)).Wrap(err)
		}

		doc, err := decodeData(raw)
		if err != nil {
			return nil, ErrDecodeData.With(slog.String("file", name)).Wrap(err)
		}

		log.DebugContext(ctx, "host data loaded",
			slog.String("file", name),
			slog.Int("keys", len(doc)),
		)

		maps.Copy(data, doc)
	}

	for _, v := range h.Var {
		name, value, err := evalVar(v)
		if err != nil {
			return nil, err
		}

		data[name] = value
	}

	return data, nil
}

// decodeData decodes one document. An empty document has no values.
func decodeData(raw []byte) (map[string]any, error) {
	var doc map[string]any

	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	if doc == nil {
		doc = map[string]any{}
	}

	return doc, nil
}

// evalVar splits name=expression and evaluates the expression without any
// environment, so only literals, operators and expr's pure builtins apply.
func evalVar(spec string) (string, any, error) {
	name, src, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)

	if !ok || name == "" {
		return "", nil, ErrVarSyntax.With(slog.String("var", spec))
	}

	value, err := expr.Eval(src, nil)
	if err != nil {
		return "", nil, ErrVarEval.
			With(slog.String("name", name), slog.String("expression", src)).
			Wrap(err)
	}

	return name, value, nil
}
