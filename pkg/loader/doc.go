// Package loader defines the contract through which the web and rendering
// layers obtain and persist trees and their tile index.
//
// # Backends
//
// Two implementations exist:
//
//   - [github.com/matzehuels/wordstree/pkg/loader/sqlstore]: a relational
//     store holding trees, branches, zoom levels and tiles, with cascading
//     deletes and a per-session zoom id cache.
//   - [github.com/matzehuels/wordstree/pkg/loader/filestore]: one JSON
//     document per tree under a storage root. It does not index tiles.
//
// # Selecting a tree
//
//	t, err := l.Load(ctx, loader.Generate(12, "oak"))  // grow a new tree
//	t, err := l.Load(ctx, loader.ByID(3))              // relational only
//	t, err := l.Load(ctx, loader.ByName("oak"))
//
// # Supersede
//
// Saving to an identity that already exists replaces it: the previous
// branches, zoom levels and tiles are dropped in the same unit of work that
// writes the new ones. Re-saving a zoom level likewise drops its tiles.
// Neither is an error, and retrying any save at the same target leaves a
// single copy behind.
package loader
