package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/wordstree/internal/logging"
	"github.com/matzehuels/wordstree/pkg/branch"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/loader"
	"github.com/matzehuels/wordstree/pkg/observability"
	"github.com/matzehuels/wordstree/pkg/tree"
)

// Backend is the name reported to logs and hooks.
const Backend = "sqlite"

// Loader is the relational implementation of loader.Loader.
type Loader struct {
	db     *sql.DB
	owned  bool
	gen    *branch.Generator
	logger *log.Logger

	session loader.Session
	zoomIDs map[zoomKey]zoomRow
}

type zoomKey struct {
	treeID int64
	level  int
}

type zoomRow struct {
	id   int64
	grid int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Loader) { s.logger = l }
}

// WithGenerator sets the generator used by Generate selectors.
func WithGenerator(g *branch.Generator) Option {
	return func(s *Loader) { s.gen = g }
}

// New wraps an open database. The caller keeps ownership of db and must
// have created the schema (see Migrate) and enabled foreign keys on every
// connection (PRAGMA foreign_keys = ON), as Open does.
func New(db *sql.DB, opts ...Option) *Loader {
	l := &Loader{
		db:      db,
		session: loader.NewSession(),
		zoomIDs: make(map[zoomKey]zoomRow),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.gen == nil {
		l.gen = branch.NewGenerator(uint64(time.Now().UnixNano()))
	}
	l.logger = logging.OrDefault(l.logger).With("backend", Backend, "session", l.session.ID)
	return l
}

// Open opens (or creates) the SQLite database at path, enables foreign
// keys and migrates the schema. Use ":memory:" for a private in-memory
// database.
func Open(ctx context.Context, path string, opts ...Option) (*Loader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection: SQLite has a single writer, and an in-memory
	// database exists only on the connection that created it
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	l := New(db, opts...)
	l.owned = true
	if err := l.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database if Open created it.
func (l *Loader) Close() error {
	if l.owned {
		return l.db.Close()
	}
	return nil
}

// Session returns the loader's bookkeeping.
func (l *Loader) Session() loader.Session { return l.session }

// withTx runs fn in a transaction, rolling back on any error.
func (l *Loader) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load implements loader.Loader.
func (l *Loader) Load(ctx context.Context, sel loader.Selector) (*tree.Tree, error) {
	p := logging.NewProgress(l.logger)

	t, err := l.load(ctx, sel)
	n := 0
	if t != nil {
		n = t.Len()
	}
	observability.Loader().OnLoad(ctx, Backend, n, p.Elapsed(), err)
	if err != nil {
		return nil, err
	}

	l.session.Input = loader.Ref{ID: t.ID, Name: t.Name}
	p.Done("loaded tree", "id", t.ID, "name", t.Name, "branches", t.Len(), "layers", t.Layers)
	return t, nil
}

func (l *Loader) load(ctx context.Context, sel loader.Selector) (*tree.Tree, error) {
	switch {
	case sel.Generate:
		name := sel.Name
		if name == "" {
			name = loader.DefaultName()
		}
		l.logger.Info("generating tree", "max_depth", sel.Depth(), "name", name)
		return tree.Generate(l.gen, sel.Depth(), name)
	case sel.ID != 0:
		return l.readTree(ctx, sel.ID)
	case sel.Name != "":
		id, err := l.lookupName(ctx, sel.Name)
		if err != nil {
			return nil, err
		}
		return l.readTree(ctx, id)
	case sel.Document != "":
		return nil, wterrors.New(wterrors.ErrCodeInvalidInput, "relational store cannot load document %q", sel.Document)
	default:
		return nil, wterrors.New(wterrors.ErrCodeInvalidInput, "selector names no tree")
	}
}

func (l *Loader) lookupName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx,
		`SELECT tree_id FROM tree WHERE tree_name = ? ORDER BY tree_id DESC LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, wterrors.New(wterrors.ErrCodeNotFound, "no tree named %q", name)
	}
	if err != nil {
		return 0, fmt.Errorf("look up tree %q: %w", name, err)
	}
	return id, nil
}

func (l *Loader) readTree(ctx context.Context, id int64) (*tree.Tree, error) {
	t := &tree.Tree{ID: id}

	err := l.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT tree_name, full_width, full_height FROM tree WHERE tree_id = ?`, id).
			Scan(&t.Name, &t.FullWidth, &t.FullHeight)
		if errors.Is(err, sql.ErrNoRows) {
			return wterrors.New(wterrors.ErrCodeNotFound, "tree %d does not exist", id)
		}
		if err != nil {
			return fmt.Errorf("read tree %d: %w", id, err)
		}

		l.logger.Debug("reading branches", "id", id, "name", t.Name)
		rows, err := tx.QueryContext(ctx,
			`SELECT ind, depth, length, width, angle, pos_x, pos_y, parent, text
			   FROM branches WHERE tree_id = ? ORDER BY ind ASC`, id)
		if err != nil {
			return fmt.Errorf("read branches of tree %d: %w", id, err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				b      branch.Branch
				parent sql.NullInt64
				text   sql.NullString
			)
			if err := rows.Scan(&b.Index, &b.Depth, &b.Length, &b.Width, &b.Angle,
				&b.Pos.X, &b.Pos.Y, &parent, &text); err != nil {
				return fmt.Errorf("scan branch: %w", err)
			}
			b.Parent = branch.NoParent
			if parent.Valid {
				b.Parent = int(parent.Int64)
			}
			b.Text = text.String
			t.Branches = append(t.Branches, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	layers, err := tree.DeriveLayers(t.Branches)
	if err != nil {
		return nil, fmt.Errorf("tree %d: %w", id, err)
	}
	t.Layers = layers
	return t, nil
}

// Save implements loader.Loader. With opts.ID set, an existing tree under
// that id is superseded and the new one keeps the id.
func (l *Loader) Save(ctx context.Context, t *tree.Tree, opts loader.SaveOptions) (loader.Ref, error) {
	if t == nil {
		return loader.Ref{}, wterrors.New(wterrors.ErrCodeInvalidInput, "tree is required")
	}
	// a tree stored out of order could never be loaded back
	if err := tree.CheckIndices(t.Branches); err != nil {
		return loader.Ref{}, err
	}
	if _, err := tree.DeriveLayers(t.Branches); err != nil {
		return loader.Ref{}, err
	}
	p := logging.NewProgress(l.logger)

	name := opts.Name
	if name == "" {
		name = t.Name
	}

	var (
		ref        loader.Ref
		superseded bool
	)
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		if opts.ID != 0 {
			var existing string
			err := tx.QueryRowContext(ctx, `SELECT tree_name FROM tree WHERE tree_id = ?`, opts.ID).Scan(&existing)
			switch {
			case err == nil:
				if name == "" {
					name = existing
				}
				d, err := deleteTree(ctx, tx, opts.ID)
				if err != nil {
					return err
				}
				superseded = true
				l.logger.Info("dropping existing tree", "id", opts.ID, "name", existing,
					"zoom_levels", d.zoomLevels, "tiles", d.tiles, "branches", d.branches)
			case errors.Is(err, sql.ErrNoRows):
			default:
				return fmt.Errorf("look up tree %d: %w", opts.ID, err)
			}
		}

		if name == "" {
			name = loader.DefaultName()
		}
		if err := wterrors.ValidateTreeName(name); err != nil {
			return err
		}

		id, err := insertTree(ctx, tx, opts.ID, name, t)
		if err != nil {
			return err
		}
		if err := insertBranches(ctx, tx, id, t.Branches); err != nil {
			return err
		}
		ref = loader.Ref{ID: id, Name: name}
		return nil
	})
	observability.Loader().OnSave(ctx, Backend, t.Len(), superseded, p.Elapsed(), err)
	if err != nil {
		return loader.Ref{}, err
	}

	l.forgetZoomLevels(ref.ID)
	l.session.Output = ref
	p.Done("saved tree", "id", ref.ID, "name", ref.Name, "branches", t.Len(), "superseded", superseded)
	return ref, nil
}

func insertTree(ctx context.Context, tx *sql.Tx, id int64, name string, t *tree.Tree) (int64, error) {
	if id != 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tree (tree_id, tree_name, num_branches, full_width, full_height) VALUES (?, ?, ?, ?, ?)`,
			id, name, t.Len(), t.FullWidth, t.FullHeight)
		if err != nil {
			return 0, fmt.Errorf("insert tree %d: %w", id, err)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tree (tree_name, num_branches, full_width, full_height) VALUES (?, ?, ?, ?)`,
		name, t.Len(), t.FullWidth, t.FullHeight)
	if err != nil {
		return 0, fmt.Errorf("insert tree: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert tree: %w", err)
	}
	return id, nil
}

const insertBranchSQL = `INSERT INTO branches (ind, depth, length, width, angle, pos_x, pos_y, parent, text, tree_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertBranches(ctx context.Context, tx *sql.Tx, id int64, branches []branch.Branch) error {
	stmt, err := tx.PrepareContext(ctx, insertBranchSQL)
	if err != nil {
		return fmt.Errorf("prepare branch insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range branches {
		if err := execInsertBranch(ctx, stmt, id, b); err != nil {
			return err
		}
	}
	return nil
}

func execInsertBranch(ctx context.Context, stmt *sql.Stmt, id int64, b branch.Branch) error {
	_, err := stmt.ExecContext(ctx, b.Index, b.Depth, b.Length, b.Width, b.Angle,
		b.Pos.X, b.Pos.Y, nullParent(b), nullText(b), id)
	if err != nil {
		return fmt.Errorf("insert branch %d: %w", b.Index, err)
	}
	return nil
}

func nullParent(b branch.Branch) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(b.Parent), Valid: !b.IsRoot()}
}

func nullText(b branch.Branch) sql.NullString {
	return sql.NullString{String: b.Text, Valid: b.Text != ""}
}

type deleted struct {
	tiles, zoomLevels, branches int64
}

// deleteTree removes a tree and everything that depends on it, leaves
// first.
func deleteTree(ctx context.Context, tx *sql.Tx, id int64) (deleted, error) {
	var d deleted
	steps := []struct {
		query string
		count *int64
	}{
		{`DELETE FROM tiles WHERE zoom_id IN (SELECT zoom_id FROM zoom_info WHERE tree_id = ?)`, &d.tiles},
		{`DELETE FROM zoom_info WHERE tree_id = ?`, &d.zoomLevels},
		{`DELETE FROM branches WHERE tree_id = ?`, &d.branches},
		{`DELETE FROM tree WHERE tree_id = ?`, nil},
	}
	for _, s := range steps {
		res, err := tx.ExecContext(ctx, s.query, id)
		if err != nil {
			return d, fmt.Errorf("delete tree %d: %w", id, err)
		}
		if s.count != nil {
			if *s.count, err = res.RowsAffected(); err != nil {
				return d, fmt.Errorf("delete tree %d: %w", id, err)
			}
		}
	}
	return d, nil
}

func treeExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM tree WHERE tree_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return wterrors.New(wterrors.ErrCodeNotFound, "tree %d does not exist", id)
	}
	if err != nil {
		return fmt.Errorf("look up tree %d: %w", id, err)
	}
	return nil
}

// checkStoredLineage re-reads the branches of tree id and verifies that
// they still form a loadable tree: contiguous indices, non-decreasing
// depth and parents one layer up.
func checkStoredLineage(ctx context.Context, tx *sql.Tx, id int64) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT ind, depth, parent FROM branches WHERE tree_id = ? ORDER BY ind ASC`, id)
	if err != nil {
		return fmt.Errorf("read branches of tree %d: %w", id, err)
	}
	defer rows.Close()

	var branches []branch.Branch
	for rows.Next() {
		var (
			b      branch.Branch
			parent sql.NullInt64
		)
		if err := rows.Scan(&b.Index, &b.Depth, &parent); err != nil {
			return fmt.Errorf("scan branch: %w", err)
		}
		b.Parent = branch.NoParent
		if parent.Valid {
			b.Parent = int(parent.Int64)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read branches of tree %d: %w", id, err)
	}

	if err := tree.CheckIndices(branches); err != nil {
		return fmt.Errorf("tree %d: %w", id, err)
	}
	if _, err := tree.DeriveLayers(branches); err != nil {
		return fmt.Errorf("tree %d: %w", id, err)
	}
	if err := tree.CheckLineage(branches); err != nil {
		return fmt.Errorf("tree %d: %w", id, err)
	}
	return nil
}

// DeleteTree removes a tree with its branches, zoom levels and tiles.
func (l *Loader) DeleteTree(ctx context.Context, id int64) error {
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		if err := treeExists(ctx, tx, id); err != nil {
			return err
		}
		d, err := deleteTree(ctx, tx, id)
		if err != nil {
			return err
		}
		l.logger.Info("deleted tree", "id", id,
			"zoom_levels", d.zoomLevels, "tiles", d.tiles, "branches", d.branches)
		return nil
	})
	if err != nil {
		return err
	}
	l.forgetZoomLevels(id)
	return nil
}

// UpdateBranches writes branches into an existing tree without touching
// its zoom levels or tiles. A branch whose index is already stored has
// its depth, parent and geometry overwritten; any other branch is
// inserted. Labels of existing rows are kept.
//
// The merged result must still be a valid tree (see tree.CheckIndices,
// tree.DeriveLayers and tree.CheckLineage); otherwise nothing is written
// and the error is CORRUPT_DATA.
func (l *Loader) UpdateBranches(ctx context.Context, id int64, branches []branch.Branch) (updated, inserted int, err error) {
	if id == 0 {
		return 0, 0, wterrors.New(wterrors.ErrCodeInvalidInput, "tree id is required")
	}
	if len(branches) == 0 {
		return 0, 0, wterrors.New(wterrors.ErrCodeInvalidInput, "branches are required")
	}

	err = l.withTx(ctx, func(tx *sql.Tx) error {
		if err := treeExists(ctx, tx, id); err != nil {
			return err
		}

		upd, err := tx.PrepareContext(ctx,
			`UPDATE branches SET depth = ?, length = ?, width = ?, angle = ?, pos_x = ?, pos_y = ?, parent = ?
			  WHERE tree_id = ? AND ind = ?`)
		if err != nil {
			return fmt.Errorf("prepare branch update: %w", err)
		}
		defer upd.Close()

		ins, err := tx.PrepareContext(ctx, insertBranchSQL)
		if err != nil {
			return fmt.Errorf("prepare branch insert: %w", err)
		}
		defer ins.Close()

		for _, b := range branches {
			res, err := upd.ExecContext(ctx, b.Depth, b.Length, b.Width, b.Angle,
				b.Pos.X, b.Pos.Y, nullParent(b), id, b.Index)
			if err != nil {
				return fmt.Errorf("update branch %d: %w", b.Index, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update branch %d: %w", b.Index, err)
			}
			if n > 0 {
				updated++
				continue
			}
			if err := execInsertBranch(ctx, ins, id, b); err != nil {
				return err
			}
			inserted++
		}

		if err := checkStoredLineage(ctx, tx, id); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tree SET num_branches = (SELECT COUNT(*) FROM branches WHERE tree_id = ?) WHERE tree_id = ?`, id, id)
		if err != nil {
			return fmt.Errorf("count branches of tree %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	l.logger.Info("updated branches", "id", id, "updated", updated, "inserted", inserted)
	return updated, inserted, nil
}
