// Package hashtree builds content-addressed hash trees over folders and
// diffs them.
//
// A file's hash digests its raw bytes. A directory's hash digests the
// directory's own relative path followed by its children's hashes, sorted
// lexicographically, which makes the root hash independent of directory
// enumeration order. Symlinks and ignored names never enter the tree.
//
// Diff classifies file paths only; directory nodes exist so the root hash
// can answer "did anything change" in one comparison, but they are never
// reported as changes themselves.
package hashtree
