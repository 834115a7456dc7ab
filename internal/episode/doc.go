// Package episode holds the Podcast and Episode records produced from the
// listening-history export and consumed by the archive pipeline.
package episode
