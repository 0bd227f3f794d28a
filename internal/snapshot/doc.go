// Package snapshot decides when a folder's parse and chunk snapshots can
// be served from storage and rebuilds them when they cannot.
//
// Freshness is judged per file against the folder's persisted hash tree:
// a snapshot whose stored content hash matches the tree's hash for the
// same path is current. Files whose hash differs are re-parsed and
// replaced, files gone from the tree are deleted, new supported files are
// added. A folder whose tree has never been persisted is served on
// presence alone, and walked directly only on its very first build.
//
// Rebuilds are transactional delete-then-insert per file set, and
// concurrent ensure calls for the same folder coalesce through a
// singleflight group, so at most one build runs per folder at a time.
//
// Per-file read and parse failures are logged and skipped; a file that
// cannot be rebuilt keeps whatever snapshot it already had.
package snapshot
