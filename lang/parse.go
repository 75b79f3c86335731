package lang

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse converts template text into a [Template].
//
// Text outside braces is literal; a backslash escapes the following
// character. Each {...} injection holds either a variable path or a
// function call whose arguments are quoted strings, numbers, or further
// expressions:
//
//	Hello {upper(user.name)}, you rolled {rand(1, 6, "seed")}!
//
// Malformed input fails with a [*ParseError] that records the offending
// position.
func Parse(text string) (Template, error) {
	p := &parser{src: text}

	t, err := p.run()
	if err != nil {
		err.Source = text

		return nil, err
	}

	return t, nil
}

// parseState is the state of the parser's character-level state machine.
type parseState int

const (
	stateLiteral    parseState = iota // text outside braces
	stateIdentifier                   // identifier of the innermost open node
	stateArgs                         // argument list of the innermost node
	stateQuote                        // inside a quoted string argument
	stateCallClosed                   // outermost call closed, awaiting '}'
)

// argKind records which form the pending argument has committed to.
type argKind int

const (
	argNone   argKind = iota // nothing pending
	argNumber                // numeric literal
	argString                // quoted string
	argExpr                  // nested expression, currently open
	argDone                  // nested call closed, awaiting ',' or ')'
)

// frame is an in-progress node. Frames form a stack from the outermost
// node of the current injection to the innermost open one.
type frame struct {
	expr   *Expr
	ident  strings.Builder
	inArgs bool
	kind   argKind
	arg    strings.Builder
	argPos int
}

// closeIdent finalizes the identifier once the identifier state ends.
func (f *frame) closeIdent() {
	f.expr.Identifier = strings.TrimSpace(f.ident.String())
}

type parser struct {
	src    string
	raw    string // source bytes of the current character
	state  parseState
	escape bool
	text   strings.Builder
	stack  []*frame
	out    Template
}

func (p *parser) top() *frame { return p.stack[len(p.stack)-1] }

func (p *parser) run() (Template, *ParseError) {
	// Positions count characters; an invalid byte counts as one and is
	// copied through unchanged.
	i := 0

	for off := 0; off < len(p.src); i++ {
		c, size := utf8.DecodeRuneInString(p.src[off:])
		p.raw = p.src[off : off+size]
		off += size

		var err *ParseError

		switch p.state {
		case stateLiteral:
			p.literal(c)

		case stateIdentifier:
			err = p.identifier(i, c)

		case stateArgs:
			err = p.args(i, c)

		case stateQuote:
			p.quote(c)

		case stateCallClosed:
			err = p.callClosed(i, c)
		}

		if err != nil {
			return nil, err
		}
	}

	switch p.state {
	case stateLiteral:
		if p.escape {
			p.text.WriteRune('\\')
		}

		p.flushText()

		return p.out, nil

	case stateQuote:
		return nil, newParseError(UnterminatedQuote, i, 0)

	default:
		return nil, newParseError(UnterminatedExpression, i, 0)
	}
}

func (p *parser) literal(c rune) {
	switch {
	case p.escape:
		p.text.WriteString(p.raw)
		p.escape = false

	case c == '\\':
		p.escape = true

	case c == '{':
		p.flushText()
		p.push()

	default:
		p.text.WriteString(p.raw)
	}
}

func (p *parser) identifier(i int, c rune) *ParseError {
	f := p.top()

	if p.escape {
		f.ident.WriteString(p.raw)
		p.escape = false

		return nil
	}

	switch c {
	case '\\':
		p.escape = true

	case '(':
		f.closeIdent()
		f.inArgs = true
		p.state = stateArgs

	case ',':
		// A bare variable ends here and the parent continues with its next
		// argument.
		if len(p.stack) == 1 {
			return newParseError(UnexpectedChar, i, c)
		}

		f.closeIdent()
		p.returnToParent()

	case ')':
		// A bare variable as the last argument: this parenthesis closes the
		// parent call as well.
		if len(p.stack) == 1 {
			return newParseError(UnexpectedChar, i, c)
		}

		f.closeIdent()
		p.returnToParent()

		return p.closeCall()

	case '}':
		if len(p.stack) > 1 {
			return newParseError(UnclosedFunction, i, c)
		}

		f.closeIdent()
		p.emit()

	default:
		f.ident.WriteString(p.raw)
	}

	return nil
}

func (p *parser) args(i int, c rune) *ParseError {
	f := p.top()

	switch {
	case c == ')':
		return p.closeCall()

	case c == ',':
		return p.dumpArg(f)

	case c == '}':
		return newParseError(UnclosedFunction, i, c)

	case unicode.IsSpace(c):
		return nil
	}

	switch f.kind {
	case argNumber:
		if c == '"' || c == '(' {
			return newParseError(UnexpectedChar, i, c)
		}

		f.arg.WriteString(p.raw)

	case argString, argDone, argExpr:
		return newParseError(UnexpectedChar, i, c)

	case argNone:
		switch {
		case c == '"':
			f.kind = argString
			f.argPos = i
			p.state = stateQuote

		case c == '-' || unicode.IsDigit(c):
			f.kind = argNumber
			f.argPos = i
			f.arg.WriteString(p.raw)

		case c == '(':
			return newParseError(UnexpectedChar, i, c)

		default:
			f.kind = argExpr
			f.argPos = i

			child := p.push()
			if c == '\\' {
				p.escape = true
			} else {
				child.ident.WriteString(p.raw)
			}
		}
	}

	return nil
}

func (p *parser) quote(c rune) {
	f := p.top()

	switch {
	case p.escape:
		f.arg.WriteString(p.raw)
		p.escape = false

	case c == '\\':
		p.escape = true

	case c == '"':
		// The argument stays a string; only ',' or ')' may follow.
		p.state = stateArgs

	default:
		f.arg.WriteString(p.raw)
	}
}

func (p *parser) callClosed(i int, c rune) *ParseError {
	switch {
	case c == '}':
		p.emit()

	case unicode.IsSpace(c):

	default:
		return newParseError(UnexpectedChar, i, c)
	}

	return nil
}

// push opens a new node, nested in the current one if any.
func (p *parser) push() *frame {
	f := &frame{expr: &Expr{}}
	p.stack = append(p.stack, f)
	p.state = stateIdentifier

	return f
}

// returnToParent pops the innermost node and appends it to the parent's
// arguments. The parent remains in its argument list.
func (p *parser) returnToParent() {
	child := p.top()
	p.stack = p.stack[:len(p.stack)-1]

	parent := p.top()
	parent.expr.Args = append(parent.expr.Args, child.expr)
	parent.kind = argNone
	p.state = stateArgs
}

// closeCall completes the argument list of the innermost node. The
// outermost node waits for '}'; a nested one becomes a finished argument
// of its parent.
func (p *parser) closeCall() *ParseError {
	f := p.top()

	if err := p.dumpArg(f); err != nil {
		return err
	}

	if len(p.stack) == 1 {
		p.state = stateCallClosed

		return nil
	}

	p.returnToParent()
	p.top().kind = argDone

	return nil
}

// dumpArg appends the pending literal argument, if any, to f.
func (p *parser) dumpArg(f *frame) *ParseError {
	switch f.kind {
	case argNumber:
		text := f.arg.String()

		n, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			pe := newParseError(InvalidNumericArgument, f.argPos, 0)
			pe.Text = text

			return pe
		}

		f.expr.Args = append(f.expr.Args, NumberArg(n))

	case argString:
		f.expr.Args = append(f.expr.Args, StringArg(f.arg.String()))
	}

	f.kind = argNone
	f.arg.Reset()

	return nil
}

// emit appends the finished outermost node to the output.
func (p *parser) emit() {
	p.out = append(p.out, p.stack[0].expr)
	p.stack = p.stack[:0]
	p.state = stateLiteral
}

func (p *parser) flushText() {
	if p.text.Len() == 0 {
		return
	}

	p.out = append(p.out, Literal(p.text.String()))
	p.text.Reset()
}
