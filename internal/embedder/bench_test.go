package embedder

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkComputeHash(b *testing.B) {
	texts := []string{
		"short",
		"medium length text for hashing",
		"this is a longer text that represents a typical document that might be embedded for semantic search over a folder",
	}

	for _, text := range texts {
		b.Run(fmt.Sprintf("len=%d", len(text)), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ComputeHash(text)
			}
		})
	}
}

func BenchmarkCache(b *testing.B) {
	cache := NewCache(10000)
	emb := &Embedding{
		Vector:    make([]float32, OllamaDimension),
		Dimension: OllamaDimension,
		Provider:  ProviderOllama,
		Model:     "test",
		Hash:      "test-hash",
	}

	b.Run("set", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			hash := fmt.Sprintf("hash-%d", i%1000)
			cache.Set(hash, emb)
		}
	})

	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("hash-%d", i), emb)
	}

	b.Run("get-hit", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cache.Get(fmt.Sprintf("hash-%d", i%1000))
		}
	})
}

func BenchmarkLocalProvider(b *testing.B) {
	provider, err := NewLocalProvider(nil)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{
			Text: fmt.Sprintf("document %d", i),
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
