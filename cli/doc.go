// Package cli contains the command line interface for tagtmpl.
//
// # Usage
//
//	tagtmpl [flags] <command> [args]
//
// The default command is render, so a bare template renders directly:
//
//	tagtmpl 'Hello {upper(name)}!' -v "name='ada'"
//	tagtmpl render -f greeting.tmpl -d users.yaml
//	tagtmpl lint templates.txt
//	tagtmpl funcs -o json
//	tagtmpl repl -d users.yaml
//
// # Configuration
//
// Global flags may be set in config.yaml (or config.json) in the user
// configuration directory; the init command writes one from the current
// flags. Command-line flags take precedence.
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: output format (json, text)
//   - --log-time-layout: timestamp layout, or none
//   - --log-caller: include caller information
//   - --log-pretty: colorize text output
//
// # Engine Options
//
//   - --cache-size: parsed templates kept in the cache (default 200)
//   - --metrics-addr: serve Prometheus metrics at http://ADDR/metrics
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o tagtmpl .
//
//   - --pprof-mode: profile kind (see [profile.Modes])
//   - --pprof-dir: profile output directory
package cli
