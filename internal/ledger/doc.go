// Package ledger persists the set of Overcast episode identifiers that have
// been fully archived.
//
// The ledger is a SQLite database (modernc.org/sqlite, WAL mode) inside the
// archive root. A mark is the last write for an episode and acts as its
// commit point; lookups never fail a run and degrade to "not archived" so the
// episode is re-checked on disk.
package ledger
