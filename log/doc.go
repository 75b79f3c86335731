// Package log is a thin leveled wrapper around [log/slog].
//
// It adds a [LevelTrace] below debug, named time layouts, and a styled
// console handler for interactive use. A [Logger] is an immutable value:
// [Logger.Wrap] and [Logger.With] return modified copies, and the zero
// value discards all output.
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"))
//
//	logger.Trace("cache hit", slog.String("key", key))
//
// The package-level functions write through a default logger that
// [Config] reconfigures. Calls without a context use
// [DefaultContextProvider].
//
// [FormatJSON] is the default format. [FormatText] with [WithPretty]
// enabled produces colored single-line records when the output is a
// terminal and plain text otherwise.
package log
