// Package types provides shared type definitions for the semdex indexing
// service.
//
// This package defines domain types used across multiple components of
// semdex, including hash tree nodes, syntax focus nodes, embeddable
// documents, and indexing progress state.
//
// # Core Types
//
// FlatNode represents one entry of a folder's content-addressed hash tree.
// File hashes digest raw bytes; directory hashes digest the directory's
// relative path plus its children's hashes:
//
//	node := types.FlatNode{
//	    Path: "src/app.py",
//	    Hash: "9f86d081884c7d65...",
//	    Kind: types.NodeFile,
//	    Size: 1024,
//	}
//
// TreeDiff classifies file-level changes between two hash trees:
//
//	diff := types.TreeDiff{Added: []string{"src/new.py"}}
//	if diff.HasChanges() { ... }
//
// FocusNode represents a syntactically significant declaration kept by the
// parser's per-language filter (functions, classes, interfaces, and the
// script entry-point guard):
//
//	node := &types.FocusNode{
//	    Type:   "function_definition",
//	    Symbol: "parse_config",
//	    Path:   "function_definition[parse_config]",
//	}
//
// Document represents one embeddable unit produced by the collector, either
// a top-level AST focus node or a text chunk, with provenance linkage back
// to its snapshot rows.
//
// # Progress
//
// TaskProgress is the full per-folder indexing state pushed to subscribers.
// Partial updates are expressed as a ProgressPatch and merged with Apply:
//
//	state.Apply(types.ProgressPatch{
//	    Phase:   types.Ptr(types.PhaseEmbedding),
//	    Percent: types.Ptr(40),
//	})
package types
