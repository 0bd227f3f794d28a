// Package fsys abstracts file-system access behind a small provider
// interface so hashing, snapshotting, and tests can swap implementations.
//
// The OS implementation uses Lstat semantics: symlinks are reported as
// symlinks, never followed.
package fsys
