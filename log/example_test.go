package log_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/tagtmpl/log"
)

func Example() {
	logger := log.Make(os.Stdout, log.WithTimeLayout("none"))
	logger.Info("render complete", slog.Int("output_length", 12))
	// Output: {"level":"INFO","msg":"render complete","output_length":12}
}

func Example_levels() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelWarn),
		log.WithFormat(log.FormatText),
		log.WithPretty(false),
		log.WithTimeLayout(""),
	)

	logger.Debug("dropped")
	logger.Warn("cache full", slog.Int("capacity", 200))
	// Output: level=WARN msg="cache full" capacity=200
}

func Example_context() {
	logger := log.Make(os.Stdout, log.WithLevel(log.LevelTrace), log.WithTimeLayout(""))
	logger = logger.With(slog.String("template", "greeting"))

	logger.TraceContext(context.Background(), "cache hit")
	// Output: {"level":"TRACE","msg":"cache hit","template":"greeting"}
}
