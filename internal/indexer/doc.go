// Package indexer runs the embedding pipeline for registered folders.
//
// A job moves through scheduled, parsing, optional summarizing, embedding,
// and ends completed or error. The Runner keeps at most one live job per
// folder: scheduling while a job runs cancels and replaces it, and the
// superseded job writes nothing past its next batch boundary.
//
// # Pipeline
//
// Each job ensures AST and text-chunk snapshots concurrently, flattens them
// into documents, resolves its model backends, then embeds in batches of
// 64, persisting every batch immediately in 50-row transactions at the
// "initial" stage. When summarization is enabled the documents first pass
// through the chat model in batches of 8; a document whose summary fails is
// embedded from its raw content instead. The folder's previous rows are
// deleted at the embed boundary, so the index is replaced wholesale on
// success and left untouched by jobs cancelled earlier.
//
// # Cancellation
//
// Cancellation is cooperative. The flag is polled at batch boundaries and
// never interrupts an in-flight model call; a cancelled job stops silently
// with no error transition and its progress frozen at the last boundary.
//
// # Failure containment
//
// Missing model configuration fails the job with a readable progress error.
// Any other error or panic is recovered at the top of the job goroutine,
// logged, reflected as an error state, and the registry slot freed so a
// retry can be scheduled. No job failure terminates the process.
//
// # Usage
//
//	runner := indexer.NewRunner(store, snapshots, collector, models, bus, sink, logger)
//	jobID := runner.Schedule(folder)
//	// ...
//	runner.Cancel(folder.Name)
package indexer
