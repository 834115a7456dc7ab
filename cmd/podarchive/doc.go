// Package main hosts the podarchive CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, takes the archive run
// lock, and hands Overcast exports to the pipeline package. Summaries and
// ledger listings are rendered as tables; everything that touches the archive
// itself lives in the internal packages.
package main
