// Package scanner enumerates the RAW photos of a session folder and pairs
// each with its same-stem JPEG. The scan is flat (subfolders ignored), the
// ordering is filename lexicographic, and the resulting catalog is immutable
// for the session lifetime.
package scanner
