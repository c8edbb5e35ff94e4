// Package sqlstore implements [loader.Loader] on a relational database.
//
// Trees, branches, zoom levels and tiles live in four tables linked by
// foreign keys (see [Schema]). Every public operation runs in a single
// transaction, so a supersede that fails halfway leaves the previous tree
// intact. Deletes are issued explicitly from the leaves up (tiles, zoom
// levels, branches, tree) rather than relying on the database to cascade.
//
// [Open] uses the pure-Go SQLite driver; [New] accepts any *sql.DB the
// host application already manages, provided it speaks the same SQL
// dialect.
//
// A Loader remembers the trees it last loaded and saved and caches zoom
// level ids for the lifetime of the instance. It is not safe for
// concurrent use, and callers must serialise writes to a given tree.
package sqlstore
