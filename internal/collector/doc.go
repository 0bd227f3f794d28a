// Package collector turns a folder's snapshots into embeddable documents.
//
// Each top-level declaration and each text chunk becomes one document: a
// formatted text block for the model plus provenance fields linking it
// back to its snapshot rows. Nested declarations are not expanded; the
// top-level snippet already contains them. When a folder has no snapshots
// at all, Collect builds them once on demand before reading again.
//
// Document order follows the snapshot queries (file path, then position)
// and is stable across calls with unchanged snapshots.
package collector
