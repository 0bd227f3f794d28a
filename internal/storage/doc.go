// Package storage provides SQLite-based persistence for indexed folder data.
//
// The storage layer manages:
//   - Registered folder metadata
//   - Hash tree nodes and per-folder root hashes
//   - Parsed source file snapshots and their top-level declarations
//   - Text document chunks
//   - Vector embeddings with snapshot provenance
//
// # Database Schema
//
// Tables:
//   - folders: Registered folders (name, absolute path)
//   - folder_hashes: Last observed root hash per folder
//   - tree_nodes: Flattened hash tree (one row per file or directory)
//   - ast_files: Parsed source files (language, content hash, focus tree JSON)
//   - ast_nodes: Top-level declarations extracted per source file
//   - text_chunks: Token-bounded fragments of text documents
//   - embeddings: Embedding vectors keyed back to ast_nodes or text_chunks
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.semdex/semdex.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	folder, err := db.CreateFolder(ctx, "myproject", "/Users/dev/myproject")
//	if err != nil {
//	    return err
//	}
//
//	// Replace the persisted tree after a poll tick
//	err = db.ReplaceTreeNodes(ctx, folder.ID, tree.Flatten())
//
// # Transactions
//
// Use transactions for atomic snapshot replacement:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	fileID, _ := tx.InsertAstFile(ctx, file)
//	_ = tx.InsertAstNodes(ctx, fileID, nodes)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Incremental Updates
//
// Stored content hashes decide whether a snapshot is still fresh:
//
//	stored, err := db.GetAstFile(ctx, folderID, "pkg/server.py")
//	if err == nil && stored.ContentHash == currentHash {
//	    // Snapshot is current, skip re-parsing
//	    return nil
//	}
//
// # Vector Storage
//
// Embedding vectors are stored as little-endian float32 blobs:
//
//	blob := storage.SerializeVector(vec)
//	err := db.InsertEmbeddings(ctx, []storage.Embedding{{
//	    FolderID: folder.ID,
//	    Kind:     types.DocumentASTNode,
//	    SourceID: nodeID,
//	    FilePath: "pkg/server.py",
//	    Vector:   blob,
//	    Dimension: len(vec),
//	    Provider: "ollama",
//	    Model:    "nomic-embed-text",
//	}})
//
// Similarity ranking happens in Go; see the searcher package.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (cgo_sqlite tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags cgo_sqlite
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
package storage
