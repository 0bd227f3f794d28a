// Package progress tracks per-folder indexing state.
//
// The Bus keeps one TaskProgress record per folder. Begin installs a fresh
// scheduled record, Update merges a partial ProgressPatch into it, and every
// change is broadcast synchronously to subscribers as the full merged state,
// so observers never reconcile diffs. Clear drops a record when a job is
// cancelled or dismissed; a patch arriving after Clear is discarded.
package progress
