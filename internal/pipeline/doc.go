// Package pipeline drives an archive run: for each exported episode it
// consults the ledger, places the audio and metadata, snapshots the feed,
// and finally marks the episode in the ledger.
package pipeline
