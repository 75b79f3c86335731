package lang

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ardnew/tagtmpl/log"
)

// Engine renders template text against host namespaces merged with a
// built-in function library. It owns a [Cache] of parsed templates and is
// safe for concurrent use.
type Engine struct {
	cache        *Cache
	capacity     int
	defs         []Builtin
	builtins     *Namespace
	logger       log.Logger
	metrics      *Metrics
	hostOverride bool
}

// Option configures an [Engine].
type Option func(*Engine)

// WithCacheCapacity sets the number of parsed templates retained.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithBuiltins adds functions to the built-in library, replacing any
// default of the same name.
func WithBuiltins(defs ...Builtin) Option {
	return func(e *Engine) {
		e.defs = catalogue(e.defs, defs...)
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records cache and render metrics to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithHostOverride controls whether host namespace entries replace
// built-ins of the same name. By default built-ins win.
func WithHostOverride(override bool) Option {
	return func(e *Engine) {
		e.hostOverride = override
	}
}

// New returns an engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		capacity: DefaultCacheCapacity,
		defs:     builtinTable(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.builtins = builtinNamespace(e.defs)

	e.cache = NewCache(e.capacity)
	e.cache.logger = e.logger
	e.cache.metrics = e.metrics

	return e
}

// renderConfig holds per-call settings.
type renderConfig struct {
	builtins bool
	override *bool
}

// RenderOption configures a single [Engine.Render] call.
type RenderOption func(*renderConfig)

// WithoutBuiltins renders against the host namespace alone.
func WithoutBuiltins() RenderOption {
	return func(c *renderConfig) {
		c.builtins = false
	}
}

// OverrideBuiltins sets the host-override policy for one call, taking
// precedence over [WithHostOverride].
func OverrideBuiltins(override bool) RenderOption {
	return func(c *renderConfig) {
		c.override = &override
	}
}

// Cache returns the engine's template cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Builtins returns the engine's built-in catalogue sorted by name.
func (e *Engine) Builtins() []Builtin {
	out := make([]Builtin, len(e.defs))
	copy(out, e.defs)

	return out
}

// Parse returns the parsed form of text, using the engine's cache.
func (e *Engine) Parse(ctx context.Context, text string) (Template, error) {
	return e.cache.GetOrParse(ctx, text)
}

// Namespace returns the namespace a render of ns observes: ns merged with
// the built-in library according to the host-override policy.
func (e *Engine) Namespace(ns *Namespace, opts ...RenderOption) *Namespace {
	cfg := renderConfig{builtins: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.builtins {
		return Merge(ns, nil, false)
	}

	override := e.hostOverride
	if cfg.override != nil {
		override = *cfg.override
	}

	return Merge(e.builtins, ns, override)
}

// Render parses text and evaluates it against ns merged with the built-in
// library. It returns the complete output or an error, never partial
// output.
func (e *Engine) Render(
	ctx context.Context,
	text string,
	ns *Namespace,
	opts ...RenderOption,
) (string, error) {
	start := time.Now()

	out, err := e.render(ctx, text, ns, opts...)

	elapsed := time.Since(start)
	outcome := Outcome(err)

	e.metrics.render(outcome, elapsed)

	if err != nil {
		e.logger.DebugContext(
			ctx,
			"render failed",
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)

		return "", err
	}

	e.logger.TraceContext(
		ctx,
		"render complete",
		slog.Int("output_length", len(out)),
		slog.Duration("elapsed", elapsed),
	)

	return out, nil
}

func (e *Engine) render(
	ctx context.Context,
	text string,
	ns *Namespace,
	opts ...RenderOption,
) (string, error) {
	t, err := e.Parse(ctx, text)
	if err != nil {
		return "", err
	}

	return RenderTemplate(ctx, t, e.Namespace(ns, opts...))
}

// Outcome classifies a render error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK

	case errors.Is(err, ErrParse):
		return OutcomeParse

	case errors.Is(err, ErrUnsafeValue), errors.Is(err, ErrUnsafeReturnValue):
		return OutcomeUnsafe

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled

	default:
		return OutcomeCallable
	}
}
