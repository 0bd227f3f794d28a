// Package service assembles the folder-indexing components behind one
// facade: registration and validation, the change-detection poll loop, job
// scheduling and cancellation, progress queries, and semantic search.
//
// The service owns everything it builds in New except the storage handle
// and logger, which belong to the caller. Start launches the poll loop,
// re-hooks change listeners for folders registered by earlier runs, and
// starts the internal event consumers; Close tears those down in reverse.
//
// Models are resolved lazily from the environment on first use and cached
// for the process lifetime, so a misconfigured provider surfaces as a
// readable per-job error instead of a failed server start.
package service
