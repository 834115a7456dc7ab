// Package opml reads the Overcast account export.
package opml
