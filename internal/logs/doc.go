// Package logs locates and tails podarchive run logs.
//
// Every archive or backfill run writes its own timestamped file into the log
// directory. Latest picks the newest one, Last returns its trailing lines with
// bounded memory, and Follow streams lines appended by a run that is still in
// progress.
package logs
