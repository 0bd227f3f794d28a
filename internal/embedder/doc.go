// Package embedder generates vector embeddings for documents using
// various providers.
//
// Supported providers are a local Ollama server (the default), the
// OpenAI embeddings API, and a deterministic offline provider for tests.
// All providers batch, retry with exponential backoff, and share an
// optional LRU cache keyed by content hash.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "def foo(): return 1",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// For indexing runs, use batch processing:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//
// The response carries the provider's token usage when it reports one,
// so callers can account tokens without re-estimating.
//
// Provider selection comes from SEMDEX_EMBEDDING_PROVIDER and
// SEMDEX_EMBEDDING_MODEL. The deterministic local provider must be
// requested by name; a missing or misconfigured provider is an error,
// never a silent fallback.
package embedder
