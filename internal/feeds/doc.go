// Package feeds archives podcast feed documents and recovers audio from them.
//
// Archiver keeps one dated feed.YYYY-MM-DD.xml snapshot per podcast and day,
// pruning trailing snapshots that repeat their predecessor byte for byte.
// Backfill walks the archived snapshots and downloads enclosures that are
// not on disk yet.
package feeds
