package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matzehuels/wordstree/pkg/branch"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/loader"
	"github.com/matzehuels/wordstree/pkg/observability"
)

func validateZoomLevel(z loader.ZoomLevel) error {
	switch {
	case z.TreeID == 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "zoom level needs a tree id and no tree has been saved yet")
	case z.Level < 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "zoom level cannot be negative, got %d", z.Level)
	case z.Grid <= 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "grid must be positive, got %d", z.Grid)
	case z.TileWidth <= 0 || z.TileHeight <= 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "tile size must be positive, got %gx%g", z.TileWidth, z.TileHeight)
	case z.ImageWidth <= 0 || z.ImageHeight <= 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "image size must be positive, got %dx%d", z.ImageWidth, z.ImageHeight)
	}
	return nil
}

// SaveZoomLevel implements loader.Loader. A zero TreeID refers to the tree
// this loader saved last.
func (l *Loader) SaveZoomLevel(ctx context.Context, z loader.ZoomLevel) error {
	if z.TreeID == 0 {
		z.TreeID = l.session.OutputID()
	}
	if err := validateZoomLevel(z); err != nil {
		return err
	}

	var (
		zoomID  int64
		dropped int64
	)
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		if err := treeExists(ctx, tx, z.TreeID); err != nil {
			return err
		}

		var old int64
		err := tx.QueryRowContext(ctx,
			`SELECT zoom_id FROM zoom_info WHERE zoom_level = ? AND tree_id = ?`, z.Level, z.TreeID).Scan(&old)
		switch {
		case err == nil:
			res, err := tx.ExecContext(ctx, `DELETE FROM tiles WHERE zoom_id = ?`, old)
			if err != nil {
				return fmt.Errorf("drop tiles of zoom level %d: %w", z.Level, err)
			}
			if dropped, err = res.RowsAffected(); err != nil {
				return fmt.Errorf("drop tiles of zoom level %d: %w", z.Level, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM zoom_info WHERE zoom_id = ?`, old); err != nil {
				return fmt.Errorf("drop zoom level %d: %w", z.Level, err)
			}
			l.logger.Info("dropping existing zoom level", "tree", z.TreeID, "level", z.Level, "tiles", dropped)
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("look up zoom level %d: %w", z.Level, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO zoom_info (zoom_level, tree_id, grid, tile_width, tile_height, image_width, image_height,
			                       imgs_path, jsons_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			z.Level, z.TreeID, z.Grid, z.TileWidth, z.TileHeight, z.ImageWidth, z.ImageHeight, z.ImageDir, z.MetadataDir)
		if err != nil {
			return fmt.Errorf("insert zoom level %d: %w", z.Level, err)
		}
		if zoomID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert zoom level %d: %w", z.Level, err)
		}
		return nil
	})
	observability.Loader().OnZoomLevelSave(ctx, Backend, z.Level, int(dropped), err)
	if err != nil {
		return err
	}

	l.zoomIDs[zoomKey{z.TreeID, z.Level}] = zoomRow{id: zoomID, grid: z.Grid}
	l.logger.Info("added zoom level", "tree", z.TreeID, "level", z.Level, "grid", z.Grid,
		"tile_width", z.TileWidth, "tile_height", z.TileHeight)
	return nil
}

// SaveTile implements loader.Loader. The tile's zoom level must already be
// stored; a tile saved twice at the same index is overwritten.
func (l *Loader) SaveTile(ctx context.Context, t loader.Tile) error {
	if t.TreeID == 0 {
		t.TreeID = l.session.OutputID()
	}
	switch {
	case t.TreeID == 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "tile needs a tree id and no tree has been saved yet")
	case t.Index < 0 || t.Row < 0 || t.Col < 0:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "tile index, row and col cannot be negative")
	}

	key := zoomKey{t.TreeID, t.ZoomLevel}
	zr, cached := l.zoomIDs[key]

	err := l.withTx(ctx, func(tx *sql.Tx) error {
		if cached {
			// another loader on the same database may have superseded or
			// deleted the level since it was cached
			err := tx.QueryRowContext(ctx,
				`SELECT grid FROM zoom_info WHERE zoom_id = ? AND zoom_level = ? AND tree_id = ?`,
				zr.id, t.ZoomLevel, t.TreeID).Scan(&zr.grid)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				cached = false
			case err != nil:
				return fmt.Errorf("look up zoom level %d: %w", t.ZoomLevel, err)
			}
		}
		if !cached {
			err := tx.QueryRowContext(ctx,
				`SELECT zoom_id, grid FROM zoom_info WHERE zoom_level = ? AND tree_id = ?`, t.ZoomLevel, t.TreeID).
				Scan(&zr.id, &zr.grid)
			if errors.Is(err, sql.ErrNoRows) {
				return wterrors.New(wterrors.ErrCodeMissingDependency,
					"tree %d has no zoom level %d", t.TreeID, t.ZoomLevel)
			}
			if err != nil {
				return fmt.Errorf("look up zoom level %d: %w", t.ZoomLevel, err)
			}
		}

		if t.Row >= zr.grid || t.Col >= zr.grid || t.Index != t.Row*zr.grid+t.Col {
			return wterrors.New(wterrors.ErrCodeInvalidInput,
				"tile %d at (%d, %d) does not fit a %dx%d grid", t.Index, t.Row, t.Col, zr.grid, zr.grid)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO tiles (tile_index, zoom_id, img_file, json_file, tile_col, tile_row, tile_pos_x, tile_pos_y)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (zoom_id, tile_index) DO UPDATE SET
			   img_file = excluded.img_file, json_file = excluded.json_file,
			   tile_col = excluded.tile_col, tile_row = excluded.tile_row,
			   tile_pos_x = excluded.tile_pos_x, tile_pos_y = excluded.tile_pos_y`,
			t.Index, zr.id, t.Image, t.Metadata, t.Col, t.Row, t.Pos.X, t.Pos.Y)
		if err != nil {
			return fmt.Errorf("insert tile %d: %w", t.Index, err)
		}
		return nil
	})
	observability.Loader().OnTileSave(ctx, Backend, t.ZoomLevel, err)
	if err != nil {
		if wterrors.Is(err, wterrors.ErrCodeMissingDependency) {
			delete(l.zoomIDs, key)
		}
		return err
	}

	l.zoomIDs[key] = zr
	l.logger.Debug("added tile", "tree", t.TreeID, "level", t.ZoomLevel, "index", t.Index)
	return nil
}

func (l *Loader) forgetZoomLevels(treeID int64) {
	for k := range l.zoomIDs {
		if k.treeID == treeID {
			delete(l.zoomIDs, k)
		}
	}
}

// ZoomLevels returns the zoom levels stored for a tree, lowest first.
func (l *Loader) ZoomLevels(ctx context.Context, treeID int64) ([]loader.ZoomLevel, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT zoom_level, grid, tile_width, tile_height, image_width, image_height, imgs_path, jsons_path
		   FROM zoom_info WHERE tree_id = ? ORDER BY zoom_level ASC`, treeID)
	if err != nil {
		return nil, fmt.Errorf("read zoom levels of tree %d: %w", treeID, err)
	}
	defer rows.Close()

	var levels []loader.ZoomLevel
	for rows.Next() {
		z := loader.ZoomLevel{TreeID: treeID}
		if err := rows.Scan(&z.Level, &z.Grid, &z.TileWidth, &z.TileHeight,
			&z.ImageWidth, &z.ImageHeight, &z.ImageDir, &z.MetadataDir); err != nil {
			return nil, fmt.Errorf("scan zoom level: %w", err)
		}
		levels = append(levels, z)
	}
	return levels, rows.Err()
}

// Tiles returns the tiles of one zoom level ordered by index. A zoom level
// that does not exist is NOT_FOUND.
func (l *Loader) Tiles(ctx context.Context, treeID int64, level int) ([]loader.Tile, error) {
	var tiles []loader.Tile
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		var zoomID int64
		err := tx.QueryRowContext(ctx,
			`SELECT zoom_id FROM zoom_info WHERE zoom_level = ? AND tree_id = ?`, level, treeID).Scan(&zoomID)
		if errors.Is(err, sql.ErrNoRows) {
			return wterrors.New(wterrors.ErrCodeNotFound, "tree %d has no zoom level %d", treeID, level)
		}
		if err != nil {
			return fmt.Errorf("look up zoom level %d: %w", level, err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT tile_index, tile_row, tile_col, tile_pos_x, tile_pos_y, img_file, json_file
			   FROM tiles WHERE zoom_id = ? ORDER BY tile_index ASC`, zoomID)
		if err != nil {
			return fmt.Errorf("read tiles of zoom level %d: %w", level, err)
		}
		defer rows.Close()

		for rows.Next() {
			t := loader.Tile{TreeID: treeID, ZoomLevel: level}
			var pos branch.Vec
			if err := rows.Scan(&t.Index, &t.Row, &t.Col, &pos.X, &pos.Y, &t.Image, &t.Metadata); err != nil {
				return fmt.Errorf("scan tile: %w", err)
			}
			t.Pos = pos
			tiles = append(tiles, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tiles, nil
}

var _ loader.Loader = (*Loader)(nil)
