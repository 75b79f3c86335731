package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// scanState is the lexical position of the cursor within a template.
type scanState int

const (
	inLiteral    scanState = iota // outside any expression
	inIdentifier                  // typing a function or value name
	inArgs                        // between arguments of a call
	inNumber                      // typing a numeric argument
	inQuote                       // inside a string argument
	inClosed                      // root call closed, awaiting '}'
)

// call is an open function call enclosing the cursor.
type call struct {
	name     string
	argIndex int
}

// cursorInfo describes what the cursor sits on.
type cursorInfo struct {
	state scanState
	calls []call // innermost last

	// Byte bounds of the identifier under the cursor when state is
	// inIdentifier. The end extends past the cursor to the end of the word.
	wordStart, wordEnd int
}

// word returns the identifier under the cursor.
func (c cursorInfo) word(input string) string {
	if c.state != inIdentifier {
		return ""
	}

	return input[c.wordStart:c.wordEnd]
}

// innermost returns the call whose argument list holds the cursor.
func (c cursorInfo) innermost() (call, bool) {
	if len(c.calls) == 0 {
		return call{}, false
	}

	return c.calls[len(c.calls)-1], true
}

// analyze scans input up to cursor (a byte offset) and reports where the
// cursor is. It mirrors the template grammar but never fails: malformed
// input simply leaves the scan in its last state.
func analyze(input string, cursor int) cursorInfo {
	cursor = min(max(cursor, 0), len(input))

	var (
		info    cursorInfo
		escaped bool
		ident   strings.Builder
	)

	// nested reports whether the current identifier is a call argument
	// rather than the root of an expression.
	nested := false

	closeIdent := func() string {
		name := ident.String()
		ident.Reset()

		return name
	}

	for i, r := range input[:cursor] {
		if escaped {
			escaped = false

			if info.state == inIdentifier {
				ident.WriteRune(r)
			}

			continue
		}

		switch info.state {
		case inLiteral:
			switch r {
			case '\\':
				escaped = true
			case '{':
				info = cursorInfo{state: inIdentifier, wordStart: i + 1}
				nested = false
			}

		case inIdentifier:
			switch r {
			case '\\':
				escaped = true

			case '(':
				info.calls = append(info.calls, call{name: closeIdent()})
				info.state = inArgs

			case '}':
				closeIdent()
				info = cursorInfo{state: inLiteral}

			case ',':
				closeIdent()

				if nested {
					info.calls[len(info.calls)-1].argIndex++
					info.state = inArgs
				}

			case ')':
				closeIdent()

				if nested {
					info.state = popCall(&info)
				}

			default:
				ident.WriteRune(r)
			}

		case inArgs, inNumber:
			switch {
			case r == ',':
				info.calls[len(info.calls)-1].argIndex++
				info.state = inArgs

			case r == ')':
				info.state = popCall(&info)

			case r == '}':
				info = cursorInfo{state: inLiteral}

			case info.state == inNumber:

			case unicode.IsSpace(r):

			case r == '"':
				info.state = inQuote

			case r == '-' || unicode.IsDigit(r):
				info.state = inNumber

			default:
				info.state = inIdentifier
				info.wordStart = i
				nested = true

				if r == '\\' {
					escaped = true
				} else {
					ident.WriteRune(r)
				}
			}

		case inQuote:
			switch r {
			case '\\':
				escaped = true
			case '"':
				info.state = inArgs
			}

		case inClosed:
			if r == '}' {
				info = cursorInfo{state: inLiteral}
			}
		}
	}

	if info.state == inIdentifier {
		for info.wordStart < cursor {
			r, size := utf8.DecodeRuneInString(input[info.wordStart:])
			if !unicode.IsSpace(r) {
				break
			}

			info.wordStart += size
		}

		info.wordEnd = cursor

		for info.wordEnd < len(input) {
			r, size := utf8.DecodeRuneInString(input[info.wordEnd:])
			if isIdentifierBoundary(r) {
				break
			}

			info.wordEnd += size
		}
	}

	return info
}

// popCall closes the innermost call and returns the state that follows it.
func popCall(info *cursorInfo) scanState {
	if len(info.calls) > 0 {
		info.calls = info.calls[:len(info.calls)-1]
	}

	if len(info.calls) == 0 {
		info.calls = nil

		return inClosed
	}

	return inArgs
}

func isIdentifierBoundary(r rune) bool {
	switch r {
	case '(', ')', ',', '{', '}', '"', '\\':
		return true
	}

	return unicode.IsSpace(r)
}

// parentPath splits a dotted identifier into the path of its container and
// the partial last segment: "user.ro" yields ("user", "ro").
func parentPath(word string) (parent, leaf string) {
	i := strings.LastIndexByte(word, '.')
	if i < 0 {
		return "", word
	}

	return word[:i], word[i+1:]
}
