// Package preflight provides readiness checks for the filesystem paths and
// ledger podarchive depends on.
//
// The CLI "check" command runs RunAll and renders the results. Commands that
// write to the archive call CheckDirectoryAccess on the download directory
// before taking the run lock, so an unwritable root fails once up front
// instead of once per episode.
package preflight
