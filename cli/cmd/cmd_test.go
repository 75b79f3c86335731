package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/tagtmpl/lang"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestOpenSources_Dedup(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta")

	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(a, link))

	srcs, err := openSources([]string{a, b, link, a})
	require.NoError(t, err)
	defer closeSources(srcs)

	require.Len(t, srcs, 2)
	assert.Equal(t, a, srcs[0].name)
	assert.Equal(t, b, srcs[1].name)

	got, err := io.ReadAll(srcs[0])
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))
}

func TestOpenSources_StdinLast(t *testing.T) {
	a := writeFile(t, t.TempDir(), "a.txt", "alpha")

	srcs, err := openSources([]string{stdinSource, a})
	require.NoError(t, err)
	defer closeSources(srcs)

	require.Len(t, srcs, 2)
	assert.Equal(t, a, srcs[0].name)
	assert.Equal(t, "<stdin>", srcs[1].name)
}

func TestOpenSources_Missing(t *testing.T) {
	_, err := openSources([]string{filepath.Join(t.TempDir(), "nope")})
	require.ErrorIs(t, err, ErrReadSource)
}

func TestReadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.txt", "Hello {name}\n")

	got, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello {name}\n", string(got))

	_, err = readFile(path + ".missing")
	require.Error(t, err)
}

func TestEngineFrom(t *testing.T) {
	e := lang.New(lang.WithCacheCapacity(3))

	assert.Same(t, e, engineFrom(WithEngine(context.Background(), e)))
	assert.NotNil(t, engineFrom(context.Background()))
}

func TestError(t *testing.T) {
	err := ErrReadData.Wrap(os.ErrNotExist)

	require.ErrorIs(t, err, ErrReadData)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrDecodeData)
	assert.Contains(t, err.Error(), "read host data")
}
