package loader

import (
	"context"

	"github.com/matzehuels/wordstree/pkg/branch"
	"github.com/matzehuels/wordstree/pkg/tree"
)

// DefaultMaxDepth is used by Generate selectors that leave MaxDepth unset.
const DefaultMaxDepth = 10

// Loader persists and retrieves trees and their tile index.
type Loader interface {
	// Load generates a new tree or reads an existing one.
	Load(ctx context.Context, sel Selector) (*tree.Tree, error)

	// Save writes t to the target named by opts, superseding any tree
	// already stored there, and returns the identity it was stored under.
	Save(ctx context.Context, t *tree.Tree, opts SaveOptions) (Ref, error)

	// SaveZoomLevel records a zoom level, superseding an existing one for
	// the same tree and level along with its tiles.
	SaveZoomLevel(ctx context.Context, z ZoomLevel) error

	// SaveTile records one tile of an already saved zoom level.
	SaveTile(ctx context.Context, t Tile) error
}

// Selector picks the tree Load returns.
type Selector struct {
	Generate bool
	MaxDepth int    // for Generate; DefaultMaxDepth when zero
	ID       int64  // relational identity
	Name     string // tree name, or the name for a generated tree
	Document string // document key for the file backend
}

// Generate selects a freshly grown tree. An empty name is replaced by the
// default name.
func Generate(maxDepth int, name string) Selector {
	return Selector{Generate: true, MaxDepth: maxDepth, Name: name}
}

// ByID selects a stored tree by relational identity.
func ByID(id int64) Selector { return Selector{ID: id} }

// ByName selects the most recently stored tree with the given name.
func ByName(name string) Selector { return Selector{Name: name} }

// ByDocument selects a stored document by key.
func ByDocument(key string) Selector { return Selector{Document: key} }

// Depth returns the effective MaxDepth.
func (s Selector) Depth() int {
	if s.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return s.MaxDepth
}

// SaveOptions names the save target. Each backend reads the fields that
// identify trees in its storage.
type SaveOptions struct {
	ID       int64  // relational target; zero lets storage assign one
	Document string // document key; defaults to the tree name
	Name     string // overrides the tree's own name
}

// Ref identifies a stored tree.
type Ref struct {
	ID       int64
	Document string
	Name     string
}

// IsZero reports whether r names nothing.
func (r Ref) IsZero() bool { return r == Ref{} }

// ZoomLevel is a rendering resolution of a tree and its tile grid.
type ZoomLevel struct {
	TreeID      int64 // zero means the session's last saved tree
	Level       int
	Grid        int // tiles per row and per column
	TileWidth   float64
	TileHeight  float64
	ImageWidth  int
	ImageHeight int
	ImageDir    string
	MetadataDir string
}

// Tiles returns the number of tiles in the grid.
func (z ZoomLevel) Tiles() int { return z.Grid * z.Grid }

// Tile is the metadata of one rendered region of a zoom level.
type Tile struct {
	TreeID    int64 // zero means the session's last saved tree
	ZoomLevel int
	Index     int // Row*Grid + Col
	Row       int
	Col       int
	Pos       branch.Vec // top-left corner in tree coordinates
	Image     string
	Metadata  string
}

// TileAt returns the tile at (row, col) of z with its position derived
// from the tile size.
func (z ZoomLevel) TileAt(row, col int) Tile {
	return Tile{
		TreeID:    z.TreeID,
		ZoomLevel: z.Level,
		Index:     row*z.Grid + col,
		Row:       row,
		Col:       col,
		Pos:       branch.Vec{X: float64(col) * z.TileWidth, Y: float64(row) * z.TileHeight},
	}
}
