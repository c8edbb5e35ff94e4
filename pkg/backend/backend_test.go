package backend

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/wordstree/pkg/config"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/loader"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.SQLite.Path = ":memory:"
	cfg.Generator.MaxDepth = 4
	cfg.Generator.Seed = 7

	b, err := Open(ctx, cfg, quiet())
	require.NoError(t, err)
	defer b.Close()
	require.NotNil(t, b.SQL)
	assert.Nil(t, b.Files)

	tr, err := b.Loader.Load(ctx, b.Generate("oak"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 7}, tr.Layers)

	ref, err := b.Loader.Save(ctx, tr, loader.SaveOptions{})
	require.NoError(t, err)
	require.NoError(t, b.Loader.SaveZoomLevel(ctx, loader.ZoomLevel{
		TreeID: ref.ID, Level: 0, Grid: 1, TileWidth: 1, TileHeight: 1,
		ImageWidth: 256, ImageHeight: 256, ImageDir: "img/0", MetadataDir: "json/0",
	}))

	levels, err := b.SQL.ZoomLevels(ctx, ref.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 1)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	for _, driver := range []string{config.DriverLocal, config.DriverMemory} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Backend = config.BackendFile
			cfg.Storage.File.Driver = driver
			cfg.Storage.File.Root = t.TempDir()
			cfg.Storage.File.Compress = true
			cfg.Generator.MaxDepth = 3

			b, err := Open(ctx, cfg, quiet())
			require.NoError(t, err)
			defer b.Close()
			require.NotNil(t, b.Files)
			assert.Nil(t, b.SQL)

			tr, err := b.Loader.Load(ctx, b.Generate("elm"))
			require.NoError(t, err)
			_, err = b.Loader.Save(ctx, tr, loader.SaveOptions{})
			require.NoError(t, err)

			got, err := b.Loader.Load(ctx, loader.ByName("elm"))
			require.NoError(t, err)
			assert.Equal(t, tr.Branches, got.Branches)

			if driver == config.DriverLocal {
				matches, err := filepath.Glob(filepath.Join(cfg.Storage.File.Root, "*.json"))
				require.NoError(t, err)
				assert.Len(t, matches, 1)
			}
		})
	}
}

func TestOpenInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "postgres"
	_, err := Open(context.Background(), cfg, quiet())
	assert.True(t, wterrors.Is(err, wterrors.ErrCodeInvalidInput))
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.File{Driver: "ftp"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(config.Log{Level: "warn"}, &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = NewLogger(config.Log{Level: "loud"}, &buf)
	assert.Error(t, err)
}
