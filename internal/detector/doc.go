// Package detector polls registered folders for content changes.
//
// Each tick rebuilds every folder's content-addressed hash tree, diffs it
// against the persisted tree, and replaces the persisted copy wholesale in
// one transaction. Listeners subscribed to a folder receive the diff
// synchronously when it is non-empty; only files are classified as added,
// changed, or deleted.
//
// One shared ticker drives all folders. The first tick runs immediately on
// Start, a re-entrancy guard skips a tick wholesale while the previous one
// is still running, and a per-folder failure is logged without stopping the
// rest of the tick. Change detection is polling only; no file-system event
// APIs are used, and delivery is at-least-once across restarts.
package detector
