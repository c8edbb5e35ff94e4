package filestore

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wordstree/pkg/branch"
	"github.com/matzehuels/wordstree/pkg/docstore"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/loader"
	"github.com/matzehuels/wordstree/pkg/observability"
)

func newTestLoader(t *testing.T, store docstore.Store, opts ...Option) *Loader {
	t.Helper()
	opts = append([]Option{
		WithLogger(log.New(io.Discard)),
		WithGenerator(branch.NewGenerator(1)),
	}, opts...)
	l, err := New(store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t, docstore.NewMemory())

	src := generate(t, 7, "oak")
	ref, err := l.Save(ctx, src, loader.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, loader.Ref{Document: "oak", Name: "oak"}, ref)
	assert.Equal(t, ref, l.Session().Output)

	got, err := l.Load(ctx, loader.ByDocument("oak"))
	require.NoError(t, err)
	assert.Equal(t, "oak", got.Name)
	assert.Zero(t, got.ID)
	assert.Equal(t, src.Layers, got.Layers)
	assert.Equal(t, src.Branches, got.Branches)
	assert.Equal(t, ref, l.Session().Input)

	byName, err := l.Load(ctx, loader.ByName("oak"))
	require.NoError(t, err)
	assert.Equal(t, got.Branches, byName.Branches)
}

func TestSaveDocumentAndName(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	l := newTestLoader(t, store)

	ref, err := l.Save(ctx, generate(t, 2, "oak"), loader.SaveOptions{Document: "trees/a", Name: "birch"})
	require.NoError(t, err)
	assert.Equal(t, loader.Ref{Document: "trees/a", Name: "birch"}, ref)

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"trees/a.json"}, keys)

	got, err := l.Load(ctx, loader.ByDocument("trees/a"))
	require.NoError(t, err)
	assert.Equal(t, "birch", got.Name)
}

func TestSaveDefaultName(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t, docstore.NewMemory())

	tr := generate(t, 2, "")
	before := time.Now().Unix()
	ref, err := l.Save(ctx, tr, loader.SaveOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, ref.Name)
	assert.Equal(t, ref.Name, ref.Document)

	ts, err := strconv.ParseInt(ref.Name, 16, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
}

func TestSaveRejects(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t, docstore.NewMemory())

	_, err := l.Save(ctx, nil, loader.SaveOptions{})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidInput))

	_, err = l.Save(ctx, generate(t, 2, "oak"), loader.SaveOptions{Document: "../escape"})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidPath))

	bad := generate(t, 3, "oak")
	bad.Branches[1].Depth = 9
	_, err = l.Save(ctx, bad, loader.SaveOptions{})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeCorruptData))
	assert.True(t, l.Session().Output.IsZero())
}

func TestSaveRejectsIndexGaps(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	l := newTestLoader(t, store)

	gap := generate(t, 2, "gap")
	gap.Branches[2].Index = 10
	_, err := l.Save(ctx, gap, loader.SaveOptions{})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeCorruptData), "got %v", err)

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = l.Load(ctx, loader.ByDocument("gap"))
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeNotFound))
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	l := newTestLoader(t, store)

	_, err := l.Load(ctx, loader.ByDocument("missing"))
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeNotFound))

	_, err = l.Load(ctx, loader.ByID(3))
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidInput))

	_, err = l.Load(ctx, loader.Selector{})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidInput))

	require.NoError(t, store.Put(ctx, "bad.json", []byte(`{"branches": [
		{"index": 0, "depth": 1, "length": 1, "width": 1, "angle": 0, "pos": {"x": 0, "y": 0}},
		{"index": 1, "depth": 0, "length": 1, "width": 1, "angle": 0, "pos": {"x": 0, "y": 0}}
	]}`)))
	tr, err := l.Load(ctx, loader.ByDocument("bad"))
	assert.Nil(t, tr)
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeCorruptData))
	assert.True(t, l.Session().Input.IsZero())
}

func TestLoadGenerate(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t, docstore.NewMemory())

	tr, err := l.Load(ctx, loader.Generate(3, "ash"))
	require.NoError(t, err)
	assert.Equal(t, "ash", tr.Name)
	assert.Equal(t, []int{0, 1, 3}, tr.Layers)
	assert.Equal(t, loader.Ref{Name: "ash"}, l.Session().Input)
}

func TestLoadDocumentWithoutName(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	l := newTestLoader(t, store)

	require.NoError(t, store.Put(ctx, "anon.json", []byte(`{"branches": []}`)))
	tr, err := l.Load(ctx, loader.ByDocument("anon"))
	require.NoError(t, err)
	assert.Equal(t, "anon", tr.Name)
	assert.Empty(t, tr.Layers)
}

func TestPassthroughSurvivesResave(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	l := newTestLoader(t, store)

	require.NoError(t, store.Put(ctx, "oak.json", []byte(`{
		"name": "oak", "owner": "ada",
		"branches": [{"index": 0, "depth": 0, "length": 0.4, "width": 0.008, "angle": -1.5, "pos": {"x": 0.5, "y": 0.99}}]
	}`)))

	tr, err := l.Load(ctx, loader.ByDocument("oak"))
	require.NoError(t, err)
	_, err = l.Save(ctx, tr, loader.SaveOptions{Document: "oak"})
	require.NoError(t, err)
	_, err = l.Save(ctx, tr, loader.SaveOptions{Document: "copy"})
	require.NoError(t, err)

	saved, err := store.Get(ctx, "oak.json")
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"owner":"ada"`)
	assert.Contains(t, string(saved), `"schema":1`)

	copied, err := store.Get(ctx, "copy.json")
	require.NoError(t, err)
	assert.NotContains(t, string(copied), "owner")
}

func TestCompression(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Put(ctx, "plain.json", []byte(`{"name": "plain", "branches": []}`)))

	l := newTestLoader(t, store, WithCompression())

	src := generate(t, 6, "oak")
	_, err := l.Save(ctx, src, loader.SaveOptions{})
	require.NoError(t, err)

	raw, err := store.Get(ctx, "oak.json")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	got, err := l.Load(ctx, loader.ByDocument("oak"))
	require.NoError(t, err)
	assert.Equal(t, src.Branches, got.Branches)

	plain, err := l.Load(ctx, loader.ByDocument("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", plain.Name)
}

func TestTileIndexUnsupported(t *testing.T) {
	ctx := context.Background()
	l := newTestLoader(t, docstore.NewMemory())

	err := l.SaveZoomLevel(ctx, loader.ZoomLevel{TreeID: 1, Level: 0, Grid: 1})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeUnsupported))
	err = l.SaveTile(ctx, loader.Tile{TreeID: 1})
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeUnsupported))
}

func TestDeleteList(t *testing.T) {
	ctx := context.Background()
	store, err := docstore.NewLocal(t.TempDir())
	require.NoError(t, err)
	l := newTestLoader(t, store)

	for _, name := range []string{"oak", "elm"} {
		_, err := l.Save(ctx, generate(t, 2, name), loader.SaveOptions{})
		require.NoError(t, err)
	}
	require.NoError(t, store.Put(ctx, "notes.txt", []byte("x")))

	names, err := l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"elm", "oak"}, names)

	require.NoError(t, l.Delete(ctx, "oak"))
	require.NoError(t, l.Delete(ctx, "oak"))
	names, err = l.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"elm"}, names)
}

type recordingHooks struct {
	observability.NoopLoaderHooks
	saves      int
	superseded int
}

func (r *recordingHooks) OnSave(_ context.Context, backend string, _ int, superseded bool, _ time.Duration, err error) {
	if backend == Backend && err == nil {
		r.saves++
		if superseded {
			r.superseded++
		}
	}
}

func TestSaveHooks(t *testing.T) {
	ctx := context.Background()
	hooks := &recordingHooks{}
	observability.SetLoaderHooks(hooks)
	t.Cleanup(observability.Reset)

	l := newTestLoader(t, docstore.NewMemory())
	tr := generate(t, 2, "oak")
	_, err := l.Save(ctx, tr, loader.SaveOptions{})
	require.NoError(t, err)
	_, err = l.Save(ctx, tr, loader.SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, hooks.saves)
	assert.Equal(t, 1, hooks.superseded)
}
