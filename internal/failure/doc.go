// Package failure defines the error markers shared by the archiving
// components.
//
// Every error that crosses a package boundary is tagged with one of the
// sentinel markers through Wrap so the pipeline can tell transient transport
// problems from permanent source errors, corrupt metadata, and ledger
// failures without string matching. Kind turns a wrapped error into the short
// label used in run summaries and structured logs.
package failure
