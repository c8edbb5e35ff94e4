package sqlstore

import (
	"context"
	"fmt"
)

// Schema creates the tables used by the loader. It is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS tree (
		tree_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		tree_name    TEXT    NOT NULL,
		num_branches INTEGER NOT NULL DEFAULT 0,
		full_width   REAL    NOT NULL DEFAULT 0,
		full_height  REAL    NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS tree_name_idx ON tree (tree_name)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		ind     INTEGER NOT NULL,
		depth   INTEGER NOT NULL,
		length  REAL    NOT NULL,
		width   REAL    NOT NULL,
		angle   REAL    NOT NULL,
		pos_x   REAL    NOT NULL,
		pos_y   REAL    NOT NULL,
		parent  INTEGER,
		text    TEXT,
		tree_id INTEGER NOT NULL REFERENCES tree (tree_id) ON DELETE CASCADE,
		UNIQUE (tree_id, ind)
	)`,
	`CREATE TABLE IF NOT EXISTS zoom_info (
		zoom_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		zoom_level   INTEGER NOT NULL,
		tree_id      INTEGER NOT NULL REFERENCES tree (tree_id) ON DELETE CASCADE,
		grid         INTEGER NOT NULL,
		tile_width   REAL    NOT NULL,
		tile_height  REAL    NOT NULL,
		image_width  INTEGER NOT NULL,
		image_height INTEGER NOT NULL,
		imgs_path    TEXT    NOT NULL DEFAULT '',
		jsons_path   TEXT    NOT NULL DEFAULT '',
		UNIQUE (zoom_level, tree_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tiles (
		tile_id    INTEGER PRIMARY KEY AUTOINCREMENT,
		tile_index INTEGER NOT NULL,
		zoom_id    INTEGER NOT NULL REFERENCES zoom_info (zoom_id) ON DELETE CASCADE,
		img_file   TEXT    NOT NULL DEFAULT '',
		json_file  TEXT    NOT NULL DEFAULT '',
		tile_col   INTEGER NOT NULL,
		tile_row   INTEGER NOT NULL,
		tile_pos_x REAL    NOT NULL,
		tile_pos_y REAL    NOT NULL,
		UNIQUE (zoom_id, tile_index)
	)`,
}

// Migrate creates any missing tables.
func (l *Loader) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
