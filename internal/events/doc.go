// Package events carries cross-component notifications over an in-process
// Watermill pub/sub.
//
// Two topics exist: TopicFolderChanged announces that a folder's embedding
// index was refreshed, and TopicProgress streams full indexing progress
// snapshots. Payloads are JSON.
//
// Publishing never blocks the pipeline. A failed publish is logged and the
// event dropped; consumers that need guaranteed state read it from storage
// or the progress bus instead.
//
// Discard is a no-op Sink for wiring components in tests.
package events
