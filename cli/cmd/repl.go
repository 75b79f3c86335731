package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/ardnew/tagtmpl/cli/cmd/repl"
	"github.com/ardnew/tagtmpl/log"
)

// Repl starts an interactive session that previews templates as they are
// typed.
type Repl struct {
	HostData `embed:""`
	Scope    `embed:""`

	NoHistory bool `help:"Neither read nor write the history file."`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	data, err := r.values(ctx)
	if err != nil {
		return err
	}

	history := r.historyPath(ctx)

	log.DebugContext(ctx, "repl session",
		slog.Int("host_keys", len(data)),
		slog.String("history", history),
	)

	return repl.Run(ctx, repl.Session{
		Engine:      engineFrom(ctx),
		Data:        data,
		Options:     r.Options(),
		HistoryPath: history,
		Logger:      log.Default(),
	})
}

func (r *Repl) historyPath(ctx context.Context) string {
	if r.NoHistory {
		return ""
	}

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ""
	}

	dir, ok := ktx.Model.Vars()[CacheIdentifier]
	if !ok || dir == "" {
		return ""
	}

	return filepath.Join(dir, repl.HistoryFile)
}
