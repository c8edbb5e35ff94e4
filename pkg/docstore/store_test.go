package docstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wterrors "github.com/matzehuels/wordstree/pkg/errors"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing.json")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	require.NoError(t, s.Put(ctx, "trees/oak.json", []byte(`{"name":"oak"}`)))
	require.NoError(t, s.Put(ctx, "trees/elm.json", []byte(`{"name":"elm"}`)))
	require.NoError(t, s.Put(ctx, "other.json", []byte(`{}`)))

	data, err := s.Get(ctx, "trees/oak.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"oak"}`, string(data))

	require.NoError(t, s.Put(ctx, "trees/oak.json", []byte(`{"name":"oak2"}`)))
	data, err = s.Get(ctx, "trees/oak.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"oak2"}`, string(data))

	keys, err := s.List(ctx, "trees/")
	require.NoError(t, err)
	assert.Equal(t, []string{"trees/elm.json", "trees/oak.json"}, keys)

	require.NoError(t, s.Delete(ctx, "trees/elm.json"))
	require.NoError(t, s.Delete(ctx, "trees/elm.json"))
	_, err = s.Get(ctx, "trees/elm.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Put(ctx, "../escape.json", nil)
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidPath), "got %v", err)
}

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(filepath.Join(dir, "root"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	// no temporary files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "root", "trees"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", buf))
	buf[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestCompressed(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	c, err := Compressed(inner)
	require.NoError(t, err)
	defer c.Close()

	exerciseStore(t, c)

	doc := bytes.Repeat([]byte(`{"index":1,"depth":2},`), 200)
	require.NoError(t, c.Put(ctx, "big.json", doc))

	raw, err := inner.Get(ctx, "big.json")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, zstdMagic))
	assert.Less(t, len(raw), len(doc))

	got, err := c.Get(ctx, "big.json")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// plain documents written before compression was enabled still read
	require.NoError(t, inner.Put(ctx, "plain.json", []byte(`{"name":"old"}`)))
	got, err = c.Get(ctx, "plain.json")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"old"}`, string(got))
}
