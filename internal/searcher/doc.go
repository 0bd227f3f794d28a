// Package searcher answers semantic queries against a folder's stored
// embedding vectors.
//
// There is no vector index: the folder's rows are loaded and compared
// against the query vector one by one with cosine similarity. Folders hold
// thousands of documents, not millions, so a linear scan stays comfortably
// fast and keeps the storage layer plain SQLite.
//
// # Usage
//
//	s := searcher.New(store, models, logger)
//
//	resp, err := s.Search(ctx, folder, "where are upload retries handled", 10)
//	if err != nil {
//	    return err
//	}
//	for _, r := range resp.Results {
//	    fmt.Printf("%.3f %s %s\n", r.Score, r.FilePath, r.Label)
//	}
//
// # Ranking
//
// The query is embedded through the same model that produced the stored
// rows, supplied by the ModelSource. Rows whose vector dimension does not
// match the query vector are skipped; mixed dimensions appear when the
// configured provider changes between indexing runs. Ties break on row ID
// so repeated queries return a stable order.
//
// Each hit is resolved back to its snapshot record: AST node hits carry the
// symbol name, source snippet and 1-based line span, text chunk hits carry
// the chunk content and its index within the file. Hits whose source record
// no longer exists are dropped from the response.
//
// # Caching
//
// Responses are cached in an LRU keyed by a hash of (folder, query, limit),
// with a one hour TTL. Cached responses are deep copied on both store and
// load. InvalidateFolder purges the cache after a folder is reindexed.
package searcher
