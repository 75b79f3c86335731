// Package lang implements a small sandboxed template language for
// operator-authored message templates.
//
// A template is literal text with embedded {...} injections. An injection
// names a value in the render namespace or calls a function from it. There
// are no loops, no assignments, and no user-defined functions; evaluation
// always terminates and can only observe values the host has admitted.
//
// # Grammar
//
// Informal EBNF:
//
//	Template   → (Literal | '{' Expr '}')*
//	Expr       → Identifier ('(' (Arg (',' Arg)*)? ')')?
//	Arg        → String | Number | Expr
//	Identifier → path segments separated by '.'
//	String     → '"' characters '"'
//	Number     → ('-' | digit) characters, a finite decimal number
//
// A backslash escapes the following character in literal text, in
// identifiers, and in strings. Whitespace between arguments is ignored.
//
// # Example
//
//	Hello {upperFirst(user.name)}!
//	You have {if(gt(count, 1), concat(count, " messages"), "one message")}.
//	Lucky number: {rand(1, 100, user.id)}
//
// # Values
//
// Every value a template can observe is a [Value]: [Absent], [Bool],
// [Number], [Text], [Callable], [Sequence], or [*Namespace]. Host data
// enters through [NewNamespace], which validates it recursively and rejects
// anything else with [*UnsafeValueError]. The result of every [Callable] is
// validated the same way and rejected with [*UnsafeReturnValueError].
//
// # Rendering
//
// An [Engine] parses through a bounded FIFO [Cache], merges the host
// namespace with its built-in library, and evaluates each injection in
// order. Function arguments are evaluated strictly left to right. Errors
// are terminal: a render returns either its complete output or an error.
//
// Built-in functions are total; bad data yields a fallback such as 0 or
// the empty string rather than an error. See [Builtins] for the catalogue.
package lang
