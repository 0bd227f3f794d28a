package collector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"semdex/internal/storage"
	"semdex/pkg/types"
)

const (
	// maxSnippetChars bounds the source text carried in a node document
	maxSnippetChars = 2000

	// maxLabelChars bounds the display label of a chunk document
	maxLabelChars = 50
)

// Snapshots is the snapshot side the collector pulls from
type Snapshots interface {
	EnsureAstSnapshots(ctx context.Context, folder *storage.Folder) (int, error)
	EnsureTextChunkSnapshots(ctx context.Context, folder *storage.Folder) (int, error)
}

// Collector assembles the embeddable documents of a folder from its parse
// and chunk snapshots
type Collector struct {
	store     storage.Storage
	snapshots Snapshots
	log       *zap.Logger
}

// New creates a Collector reading from the given storage and snapshots
func New(store storage.Storage, snapshots Snapshots, log *zap.Logger) *Collector {
	return &Collector{store: store, snapshots: snapshots, log: log}
}

// Collect returns one document per top-level declaration and one per text
// chunk, ordered by file path then position. When the folder has no
// snapshots at all both ensures run once before reading again.
func (c *Collector) Collect(ctx context.Context, folder *storage.Folder) ([]*types.Document, error) {
	docs, err := c.read(ctx, folder)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		return docs, nil
	}

	if _, err := c.snapshots.EnsureAstSnapshots(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to build parse snapshots: %w", err)
	}
	if _, err := c.snapshots.EnsureTextChunkSnapshots(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to build chunk snapshots: %w", err)
	}
	return c.read(ctx, folder)
}

func (c *Collector) read(ctx context.Context, folder *storage.Folder) ([]*types.Document, error) {
	files, err := c.store.ListAstFiles(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parse snapshots: %w", err)
	}
	fileByID := make(map[int64]*storage.AstFile, len(files))
	for _, f := range files {
		fileByID[f.ID] = f
	}

	nodes, err := c.store.ListAstNodesByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	chunks, err := c.store.ListTextChunks(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	docs := make([]*types.Document, 0, len(nodes)+len(chunks))
	for _, n := range nodes {
		file, ok := fileByID[n.FileID]
		if !ok {
			continue
		}
		docs = append(docs, nodeDocument(folder, file, n))
	}
	for _, ch := range chunks {
		docs = append(docs, chunkDocument(folder, ch))
	}

	c.log.Debug("documents collected",
		zap.String("folder", folder.Name),
		zap.Int("nodes", len(nodes)),
		zap.Int("chunks", len(chunks)))
	return docs, nil
}

func nodeDocument(folder *storage.Folder, file *storage.AstFile, n *storage.AstNode) *types.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", file.Path)
	fmt.Fprintf(&b, "Language: %s\n", string(file.Language))
	fmt.Fprintf(&b, "Path: %s\n", n.NodePath)
	fmt.Fprintf(&b, "Kind: %s\n", n.NodeType)
	if n.Symbol != "" {
		fmt.Fprintf(&b, "Symbol: %s\n", n.Symbol)
	}
	fmt.Fprintf(&b, "Lines: %d-%d\n\n", n.StartLine+1, n.EndLine+1)
	b.WriteString(truncate(n.Snippet, maxSnippetChars))

	label := n.Symbol
	if label == "" {
		label = n.NodeType
	}
	return &types.Document{
		Kind:     types.DocumentASTNode,
		Folder:   folder.Name,
		FilePath: file.Path,
		Label:    label,
		Content:  b.String(),
		FileID:   file.ID,
		SourceID: n.ID,
		Span: types.Span{
			StartLine: n.StartLine,
			StartCol:  n.StartCol,
			EndLine:   n.EndLine,
			EndCol:    n.EndCol,
		},
	}
}

func chunkDocument(folder *storage.Folder, ch *storage.TextChunk) *types.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", ch.Path)
	fmt.Fprintf(&b, "Format: %s\n", string(ch.Format))
	fmt.Fprintf(&b, "Chunk: %d\n", ch.ChunkIndex)
	fmt.Fprintf(&b, "Offsets: %d-%d\n\n", ch.StartOffset, ch.EndOffset)
	b.WriteString(ch.Content)

	return &types.Document{
		Kind:       types.DocumentTextChunk,
		Folder:     folder.Name,
		FilePath:   ch.Path,
		Label:      label(ch.Content),
		Content:    b.String(),
		SourceID:   ch.ID,
		ChunkIndex: ch.ChunkIndex,
	}
}

// label compresses text to a single whitespace-normalized line of at most
// maxLabelChars runes
func label(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	runes := []rune(s)
	if len(runes) > maxLabelChars {
		s = string(runes[:maxLabelChars])
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
