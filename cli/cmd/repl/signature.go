package repl

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/tagtmpl/lang"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// signature is the parsed form of a catalogue signature such as
// "rand(from, to?, seed?)".
type signature struct {
	name    string
	params  []string
	summary string
}

// parseSignature splits a declared signature into its name and parameters.
// A signature without parentheses has no parameters.
func parseSignature(decl string) signature {
	open := strings.IndexByte(decl, '(')
	if open < 0 {
		return signature{name: strings.TrimSpace(decl)}
	}

	sig := signature{name: strings.TrimSpace(decl[:open])}

	inner := decl[open+1:]
	if end := strings.LastIndexByte(inner, ')'); end >= 0 {
		inner = inner[:end]
	}

	for p := range strings.SplitSeq(inner, ",") {
		if p = strings.TrimSpace(p); p != "" {
			sig.params = append(sig.params, p)
		}
	}

	return sig
}

// signatures indexes a catalogue by function name.
type signatures map[string]signature

func newSignatures(defs []lang.Builtin) signatures {
	idx := make(signatures, len(defs))

	for _, b := range defs {
		sig := parseSignature(b.Signature)
		sig.name = b.Name
		sig.summary = b.Summary
		idx[b.Name] = sig
	}

	return idx
}

// lookup resolves the signature of name. Host functions have no declared
// parameters, so they are shown with a variadic placeholder.
func (s signatures) lookup(name string, scope *lang.Namespace) (signature, bool) {
	if sig, ok := s[name]; ok {
		if v, found := scope.Get(name); !found || v.Kind() == lang.KindCallable {
			return sig, true
		}
	}

	if scope.Lookup(name).Kind() == lang.KindCallable {
		return signature{name: name, params: []string{"...args"}}, true
	}

	return signature{}, false
}

// isVariadic reports whether param absorbs every remaining argument.
func isVariadic(param string) bool { return strings.HasPrefix(param, "...") }

// activeParam returns the index of the parameter that receives argument
// argIndex, or -1 when the call already has more arguments than parameters.
func (s signature) activeParam(argIndex int) int {
	for i, p := range s.params {
		if i == argIndex || (isVariadic(p) && argIndex >= i) {
			return i
		}
	}

	return -1
}

// renderSignatureHint renders sig with the parameter receiving argIndex
// highlighted, followed by the summary when there is one.
func renderSignatureHint(sig signature, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(sig.name))
	b.WriteString(signatureStyle.Render("("))

	active := sig.activeParam(argIndex)

	for i, param := range sig.params {
		if i > 0 {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		if i == active {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	if sig.summary != "" {
		b.WriteString(signatureStyle.Render("  " + sig.summary))
	}

	return b.String()
}
