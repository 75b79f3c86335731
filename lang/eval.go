package lang

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// RenderTemplate evaluates every segment of t against ns and concatenates
// their string forms. A nil namespace resolves every identifier to
// [Absent].
//
// Any error aborts the render and no partial output is returned. The
// context is checked before each segment, argument, and callable
// invocation.
func RenderTemplate(ctx context.Context, t Template, ns *Namespace) (string, error) {
	ev := evaluator{ns: ns}

	var b strings.Builder

	for _, seg := range t {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		switch seg := seg.(type) {
		case Literal:
			b.WriteString(string(seg))

		case *Expr:
			v, err := ev.evaluate(ctx, seg)
			if err != nil {
				return "", err
			}

			b.WriteString(stringify(v))
		}
	}

	return b.String(), nil
}

// Evaluate resolves a single expression against ns.
//
// The identifier is looked up as a dotted path. A [Callable] is invoked
// with its arguments evaluated left to right; any other value is returned
// as is. A path that does not resolve yields [Absent].
func Evaluate(ctx context.Context, e *Expr, ns *Namespace) (Value, error) {
	ev := evaluator{ns: ns}

	return ev.evaluate(ctx, e)
}

// evaluator holds the state shared by a single render call.
type evaluator struct {
	ns *Namespace
}

func (ev evaluator) evaluate(ctx context.Context, e *Expr) (Value, error) {
	if e == nil {
		return Absent{}, nil
	}

	v := ev.ns.Lookup(e.Identifier)

	fn, ok := v.(Callable)
	if !ok {
		return v, nil
	}

	args := make([]Value, 0, len(e.Args))

	for _, a := range e.Args {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := ev.argument(ctx, a)
		if err != nil {
			return nil, err
		}

		args = append(args, v)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ev.invoke(ctx, e.Identifier, fn, args)
}

func (ev evaluator) argument(ctx context.Context, a Arg) (Value, error) {
	switch a := a.(type) {
	case StringArg:
		return Text(a), nil

	case NumberArg:
		return Number(a), nil

	case *Expr:
		return ev.evaluate(ctx, a)

	default:
		return Absent{}, nil
	}
}

// invoke calls fn and validates its result.
func (ev evaluator) invoke(
	ctx context.Context,
	identifier string,
	fn Callable,
	args []Value,
) (Value, error) {
	out, err := fn(ctx, args)
	if err != nil {
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, ErrCallable.Wrap(err).
			With(slog.String("identifier", identifier))
	}

	v, err := fromHost(identifier, out, 0, DefaultMaxDepth)
	if err != nil {
		unsafe := &UnsafeReturnValueError{
			Identifier: identifier,
			Type:       hostTypeName(out),
		}

		var uv *UnsafeValueError
		if errors.As(err, &uv) {
			unsafe.Type = uv.Type
		}

		return nil, unsafe
	}

	return v, nil
}
