package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrParse             = NewError("template parse error")
	ErrUnsafeValue       = NewError("unsafe value")
	ErrUnsafeReturnValue = NewError("unsafe return value")
	ErrCallable          = NewError("callable failed")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error was derived from.
// Errors produced by Wrap and With share the sentinel's message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.err == nil && len(t.attrs) == 0 && t.msg != "" && t.msg == e.msg
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// ParseErrorKind classifies a template syntax error.
type ParseErrorKind int

const (
	// UnexpectedChar is a character that is invalid in the current state.
	UnexpectedChar ParseErrorKind = iota

	// InvalidNumericArgument is a numeric argument that is not a finite
	// number.
	InvalidNumericArgument

	// UnclosedFunction is an injection that ends while a nested call is
	// still open.
	UnclosedFunction

	// UnterminatedExpression is input that ends inside an injection.
	UnterminatedExpression

	// UnterminatedQuote is input that ends inside a quoted argument.
	UnterminatedQuote
)

// String returns a string representation of the parse error kind.
func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedChar:
		return "unexpected character"

	case InvalidNumericArgument:
		return "invalid numeric argument"

	case UnclosedFunction:
		return "unclosed function"

	case UnterminatedExpression:
		return "unterminated expression"

	case UnterminatedQuote:
		return "unterminated quote"

	default:
		return "unknown"
	}
}

// ParseError describes malformed template syntax.
type ParseError struct {
	Kind   ParseErrorKind
	Pos    int    // 0-based rune offset of the offending character
	Char   rune   // offending character, 0 at end of input
	Text   string // offending argument text (InvalidNumericArgument)
	Source string // the template being parsed
}

func newParseError(kind ParseErrorKind, pos int, ch rune) *ParseError {
	return &ParseError{Kind: kind, Pos: pos, Char: ch}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var buf strings.Builder

	buf.WriteString(e.Kind.String())

	switch {
	case e.Text != "":
		buf.WriteString(" ")
		buf.WriteString(strconv.Quote(e.Text))

	case e.Char != 0:
		buf.WriteString(" ")
		buf.WriteString(strconv.QuoteRune(e.Char))
	}

	buf.WriteString(" at position ")
	buf.WriteString(strconv.Itoa(e.Pos))

	return buf.String()
}

// Unwrap allows errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error { return ErrParse }

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	line, col := e.Position()

	attrs := []slog.Attr{
		slog.String("error", ErrParse.msg),
		slog.String("kind", e.Kind.String()),
		slog.Int("pos", e.Pos),
		slog.Int("line", line),
		slog.Int("column", col),
	}

	if e.Char != 0 {
		attrs = append(attrs, slog.String("char", string(e.Char)))
	}

	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}

	return slog.GroupValue(attrs...)
}

// Position converts Pos into a 1-based line and column within Source.
func (e *ParseError) Position() (line, col int) {
	line, col = 1, 1

	for i, r := range []rune(e.Source) {
		if i >= e.Pos {
			break
		}

		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

// Snippet renders the offending source line with a caret under the error
// position. It returns an empty string when Source is unset.
func (e *ParseError) Snippet() string {
	if e.Source == "" {
		return ""
	}

	line, col := e.Position()
	lines := strings.Split(e.Source, "\n")

	if line > len(lines) {
		return ""
	}

	var src strings.Builder

	src.WriteString("  ")
	src.WriteString(strconv.Itoa(line))
	src.WriteString(" | ")
	src.WriteString(lines[line-1])
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(strconv.Itoa(line))+5)
	padding += strings.Repeat(" ", col-1)

	src.WriteString(padding + "^\n")

	return src.String()
}

// UnsafeValueError reports a host value outside the safe value universe.
type UnsafeValueError struct {
	Key  string // path of the offending entry, e.g. "user.roles.2"
	Type string // observed Go type
}

// Error implements the error interface.
func (e *UnsafeValueError) Error() string {
	return ErrUnsafeValue.msg + ": key " + strconv.Quote(e.Key) +
		" has type " + e.Type
}

// Unwrap allows errors.Is(err, ErrUnsafeValue).
func (e *UnsafeValueError) Unwrap() error { return ErrUnsafeValue }

// LogValue implements slog.LogValuer.
func (e *UnsafeValueError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", ErrUnsafeValue.msg),
		slog.String("key", e.Key),
		slog.String("type", e.Type),
	)
}

// UnsafeReturnValueError reports a callable whose result is not a safe value.
type UnsafeReturnValueError struct {
	Identifier string
	Type       string
}

// Error implements the error interface.
func (e *UnsafeReturnValueError) Error() string {
	return ErrUnsafeReturnValue.msg + ": " + strconv.Quote(e.Identifier) +
		" returned " + e.Type
}

// Unwrap allows errors.Is(err, ErrUnsafeReturnValue).
func (e *UnsafeReturnValueError) Unwrap() error { return ErrUnsafeReturnValue }

// LogValue implements slog.LogValuer.
func (e *UnsafeReturnValueError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", ErrUnsafeReturnValue.msg),
		slog.String("identifier", e.Identifier),
		slog.String("type", e.Type),
	)
}
