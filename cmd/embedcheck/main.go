package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"semdex/internal/embedder"
	"semdex/internal/fsys"
	"semdex/internal/service"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

const sampleSource = `def greet(name):
    return "Hello, " + name


class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        return greet(self.name)
`

func main() {
	fmt.Println("Checking embedding pipeline...")
	ctx := context.Background()

	// Resolve the provider exactly as the server would
	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Fatalf("Embedding provider unavailable: %v", err)
	}
	defer emb.Close()

	fmt.Printf("\nProvider:\n")
	fmt.Printf("  Name: %s\n", emb.Provider())
	fmt.Printf("  Model: %s\n", emb.Model())
	fmt.Printf("  Dimension: %d\n", emb.Dimension())

	start := time.Now()
	single, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: "semantic indexing smoke check"})
	if err != nil {
		log.Fatalf("Failed to embed sample text: %v", err)
	}
	fmt.Printf("  Sample embedding: %d dims in %v\n", len(single.Vector), time.Since(start).Round(time.Millisecond))

	// Run the full pipeline against a throwaway folder
	tmpDir, err := os.MkdirTemp("", "embedcheck-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "sample.py"), []byte(sampleSource), 0o644); err != nil {
		log.Fatalf("Failed to write sample file: %v", err)
	}

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	svc := service.New(store, fsys.NewOS(), service.Config{PollInterval: time.Hour}, zap.NewNop())
	defer svc.Close()

	folder, jobID, err := svc.RegisterFolder(ctx, "embedcheck", tmpDir)
	if err != nil {
		log.Fatalf("Failed to register folder: %v", err)
	}
	fmt.Printf("\nIndexing %s (job %s)...\n", tmpDir, jobID)

	deadline := time.Now().Add(2 * time.Minute)
	for {
		state, ok := svc.GetProgress("embedcheck")
		if ok && state.Phase == types.PhaseCompleted {
			fmt.Printf("  Phase: %s\n", state.Phase)
			fmt.Printf("  Files: %d\n", state.TotalFiles)
			fmt.Printf("  Documents: %d/%d\n", state.ProcessedDocuments, state.TotalDocuments)
			break
		}
		if ok && state.Phase == types.PhaseError {
			log.Fatalf("Indexing failed: %s", state.Error)
		}
		if time.Now().After(deadline) {
			log.Fatalf("Indexing did not complete within 2 minutes")
		}
		time.Sleep(100 * time.Millisecond)
	}

	status, err := store.GetFolderStatus(ctx, folder.ID)
	if err != nil {
		log.Fatalf("Failed to load folder status: %v", err)
	}

	fmt.Printf("\nStored rows:\n")
	fmt.Printf("  AST files: %d\n", status.AstFileCount)
	fmt.Printf("  AST nodes: %d\n", status.AstNodeCount)
	fmt.Printf("  Text chunks: %d\n", status.TextChunkCount)
	fmt.Printf("  Embeddings: %d\n", status.EmbeddingCount)

	resp, err := svc.Search(ctx, "embedcheck", "greet the user by name", 3)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("\nSearch:\n")
	fmt.Printf("  Scanned: %d rows\n", resp.Scanned)
	for i, r := range resp.Results {
		fmt.Printf("  %d. %s (%s, score %.3f)\n", i+1, r.Label, r.FilePath, r.Score)
	}

	if status.EmbeddingCount > 0 && len(resp.Results) > 0 {
		fmt.Println("\n✓ SUCCESS: embeddings generated, stored, and searchable")
	} else {
		fmt.Println("\n✗ FAILURE: pipeline produced no searchable embeddings")
		os.Exit(1)
	}
}
