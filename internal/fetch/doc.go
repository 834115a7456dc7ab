// Package fetch downloads remote files into the archive.
//
// Fetch performs one crash-safe attempt: the body streams into a temporary
// sibling of the destination and is renamed into place only once complete,
// and an existing destination short-circuits without network access.
// Download wraps Fetch with a bounded exponential-backoff retry that only
// repeats transient failures (transport errors, 408/425/429 and 5xx).
package fetch
