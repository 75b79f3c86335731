package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/klauspost/readahead"

	"github.com/ardnew/tagtmpl/lang"
	"github.com/ardnew/tagtmpl/log"
)

type (
	kongContextKey struct{}
	engineKey      struct{}
)

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, kongContextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(kongContextKey{}).(*kong.Context)

	return ktx
}

// WithEngine returns a new context.Context carrying the engine shared by all
// commands of one invocation.
func WithEngine(ctx context.Context, e *lang.Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, e)
}

// engineFrom returns the engine stored by WithEngine, or a fresh engine
// logging through the package-level logger.
func engineFrom(ctx context.Context) *lang.Engine {
	if e, ok := ctx.Value(engineKey{}).(*lang.Engine); ok && e != nil {
		return e
	}

	return lang.New(lang.WithLogger(log.Default()))
}

// stdinSource is the special source name for standard input.
const stdinSource = "-"

// source is one named input.
type source struct {
	name string
	io.ReadCloser
}

// fileKey uniquely identifies a file by its device and inode numbers, so that
// the same file named twice (via symlinks or relative paths) is read once.
type fileKey struct {
	dev uint64
	ino uint64
}

func makeFileKey(info os.FileInfo) (fileKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}

// openSources opens each named input once, in order. "-" names standard
// input, which is always placed last. No names means standard input alone.
// Reads are buffered ahead of the consumer.
func openSources(names []string) ([]source, error) {
	if len(names) == 0 {
		names = []string{stdinSource}
	}

	var (
		out      []source
		hasStdin bool
	)

	seen := make(map[fileKey]struct{})

	for _, name := range names {
		if name == stdinSource {
			hasStdin = true

			continue
		}

		file, err := openUnique(name, seen)
		if err != nil {
			closeSources(out)

			return nil, ErrReadSource.Wrap(err)
		}

		if file != nil {
			out = append(out, source{name: name, ReadCloser: readahead.NewReadCloser(file)})
		}
	}

	if hasStdin {
		out = append(out, source{
			name:       "<stdin>",
			ReadCloser: readahead.NewReader(os.Stdin),
		})
	}

	return out, nil
}

// openUnique opens path unless an equivalent file was already opened, in
// which case it returns nil without error.
func openUnique(path string, seen map[fileKey]struct{}) (*os.File, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return nil, nil
		}

		seen[key] = struct{}{}
	}

	return os.Open(resolved)
}

func closeSources(srcs []source) {
	for _, s := range srcs {
		_ = s.Close()
	}
}

// readFile reads a whole file (or standard input for "-") through a
// read-ahead buffer.
func readFile(name string) ([]byte, error) {
	if name == stdinSource {
		ra := readahead.NewReader(os.Stdin)
		defer ra.Close()

		return io.ReadAll(ra)
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	ra := readahead.NewReadCloser(file)
	defer ra.Close()

	return io.ReadAll(ra)
}
