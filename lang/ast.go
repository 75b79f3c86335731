package lang

import (
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Template is a parsed template: an ordered sequence of literal text and
// expression segments. A Template is immutable once produced and may be
// shared across goroutines.
type Template []Segment

// Segment is an element of a [Template], either [Literal] or [*Expr].
type Segment interface {
	segment()
}

// Literal is a run of template text emitted verbatim.
type Literal string

// Expr is one {...} injection or a nested function call.
//
// Identifier is resolved as a dotted path in the render namespace. If it
// resolves to a [Callable], Args are evaluated in order and passed to it.
type Expr struct {
	Identifier string
	Args       []Arg
}

// Arg is a function-call argument: [StringArg], [NumberArg], or [*Expr].
type Arg interface {
	arg()
}

// StringArg is a quoted string literal argument.
type StringArg string

// NumberArg is a numeric literal argument.
type NumberArg float64

func (Literal) segment() {}
func (*Expr) segment()   {}

func (StringArg) arg() {}
func (NumberArg) arg() {}
func (*Expr) arg()     {}

// Exprs returns the expression segments of the template in order.
func (t Template) Exprs() []*Expr {
	var out []*Expr

	for _, seg := range t {
		if e, ok := seg.(*Expr); ok {
			out = append(out, e)
		}
	}

	return out
}

// Identifiers returns every identifier referenced by the template,
// including those of nested calls, in order of first appearance.
func (t Template) Identifiers() []string {
	seen := make(map[string]struct{})

	var out []string

	var walk func(e *Expr)

	walk = func(e *Expr) {
		if _, ok := seen[e.Identifier]; !ok {
			seen[e.Identifier] = struct{}{}
			out = append(out, e.Identifier)
		}

		for _, a := range e.Args {
			if child, ok := a.(*Expr); ok {
				walk(child)
			}
		}
	}

	for _, e := range t.Exprs() {
		walk(e)
	}

	return out
}

// String reconstructs template source equivalent to t.
func (t Template) String() string {
	var b strings.Builder

	for _, seg := range t {
		switch seg := seg.(type) {
		case Literal:
			b.WriteString(escapeLiteral(string(seg)))

		case *Expr:
			b.WriteByte('{')
			b.WriteString(seg.String())
			b.WriteByte('}')
		}
	}

	return b.String()
}

// String renders the expression in template syntax without braces.
func (e *Expr) String() string {
	return e.format(false)
}

func (e *Expr) format(nested bool) string {
	var b strings.Builder

	if nested {
		b.WriteString(escapeArgIdentifier(e.Identifier))
	} else {
		b.WriteString(escapeIdentifier(e.Identifier))
	}

	if len(e.Args) == 0 {
		return b.String()
	}

	b.WriteByte('(')

	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}

		switch a := a.(type) {
		case StringArg:
			b.WriteByte('"')
			b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(string(a)))
			b.WriteByte('"')

		case NumberArg:
			b.WriteString(strconv.FormatFloat(float64(a), 'f', -1, 64))

		case *Expr:
			b.WriteString(a.format(true))
		}
	}

	b.WriteByte(')')

	return b.String()
}

func escapeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, `{`, `\{`).Replace(s)
}

func escapeIdentifier(s string) string {
	return strings.NewReplacer(
		`\`, `\\`, `(`, `\(`, `)`, `\)`, `,`, `\,`, `}`, `\}`,
	).Replace(s)
}

// escapeArgIdentifier escapes an identifier in argument position, where a
// leading quote, digit, or minus sign would start a literal instead.
func escapeArgIdentifier(s string) string {
	r, _ := utf8.DecodeRuneInString(s)

	switch {
	case s == "":
		return `\ `

	case r == '"' || r == '-' || unicode.IsDigit(r):
		return `\` + escapeIdentifier(s)

	default:
		return escapeIdentifier(s)
	}
}

// Print writes an indented outline of the template to w.
func (t Template) Print(w io.Writer) {
	put := writer(w)

	for _, seg := range t {
		switch seg := seg.(type) {
		case Literal:
			put("\n", "Literal", strconv.Quote(string(seg)))

		case *Expr:
			seg.print(put, 0)
		}
	}
}

func (e *Expr) print(put func(eol string, item ...string), indent int) {
	prefix := strings.Repeat("  ", indent)
	put("\n", prefix+"Expr", e.Identifier)

	for _, a := range e.Args {
		switch a := a.(type) {
		case StringArg:
			put("\n", prefix+"  String", strconv.Quote(string(a)))

		case NumberArg:
			put("\n", prefix+"  Number", strconv.FormatFloat(float64(a), 'f', -1, 64))

		case *Expr:
			a.print(put, indent+1)
		}
	}
}

func writer(w io.Writer) func(eol string, item ...string) {
	return func(eol string, item ...string) {
		_, err := io.WriteString(w, strings.Join(item, ": ")+eol)
		if err != nil {
			panic(err)
		}
	}
}
