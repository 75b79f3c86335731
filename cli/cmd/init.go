package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/tagtmpl/log"
	"github.com/ardnew/tagtmpl/profile"
)

// Init writes a configuration file holding the current global flag values.
type Init struct {
	Force bool `help:"Overwrite an existing configuration file." short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	path, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: configuration path undefined")
	}

	out, err := yaml.Marshal(settings(ktx))
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if i.Force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := os.OpenFile(path, flag, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return ErrWriteConfig.
			With(slog.String("file", path)).
			Wrap(ErrFileExists)
	}

	if err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	if _, err = file.Write(out); err != nil {
		file.Close()

		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	if err = file.Close(); err != nil {
		return ErrWriteConfig.With(slog.String("file", path)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", path),
	)

	return nil
}

// settings collects the application-level flags with a value, in
// declaration order. Help and profiling flags are not persisted.
func settings(ktx *kong.Context) yaml.MapSlice {
	var out yaml.MapSlice

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || persistIgnored(flag.Name) {
			continue
		}

		val := ktx.FlagValue(flag)
		if isEmpty(val) {
			continue
		}

		out = append(out, yaml.MapItem{Key: flag.Name, Value: val})
	}

	return out
}

func persistIgnored(name string) bool {
	return name == "help" || strings.HasPrefix(name, profile.Tag)
}

// isEmpty reports whether v is nil, an empty string, or an empty slice.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0

	default:
		return false
	}
}
