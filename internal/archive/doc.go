// Package archive maps episodes onto files inside a podcast directory.
//
// ResolveFilename turns an episode title and enclosure URL into a stable
// filename. Placer uses it to download each episode exactly once, store its
// JSON metadata alongside, keep distinct episodes that share a filename apart
// by suffixing the Overcast identifier, and collapse republished episodes
// whose audio is byte-identical to an existing file.
package archive
