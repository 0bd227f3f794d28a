package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"semdex/internal/chunker"
	"semdex/internal/fsys"
	"semdex/internal/hashtree"
	"semdex/internal/parser"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

// codeParser turns file content into a filtered syntax tree
type codeParser interface {
	Parse(ctx context.Context, content []byte, lang types.Language) (*parser.Result, error)
}

// Config contains configuration for the snapshot manager
type Config struct {
	MaxChunkTokens     int      // Target chunk size in tokens (default: chunker.DefaultMaxTokens)
	ChunkOverlapTokens int      // Overlap between consecutive chunks (default: chunker.DefaultOverlapTokens)
	Ignore             []string // Extra directory/file names to skip when walking unregistered trees
}

// Manager builds and caches per-folder parse and chunk snapshots.
//
// Snapshots live in storage; the manager's job is deciding when they are
// current. A snapshot file is current when its stored content hash matches
// the folder's persisted tree hash for the same path. Folders whose tree
// has never been persisted are served on presence alone.
type Manager struct {
	store   storage.Storage
	fs      fsys.FS
	builder *hashtree.Builder
	parser  codeParser
	chunker *chunker.Chunker
	log     *zap.Logger

	astGroup   singleflight.Group
	chunkGroup singleflight.Group
}

// NewManager creates a snapshot manager backed by the given storage
func NewManager(store storage.Storage, fs fsys.FS, cfg Config, log *zap.Logger) *Manager {
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = chunker.DefaultMaxTokens
	}
	if cfg.ChunkOverlapTokens <= 0 {
		cfg.ChunkOverlapTokens = chunker.DefaultOverlapTokens
	}
	return &Manager{
		store:   store,
		fs:      fs,
		builder: hashtree.NewBuilder(fs, cfg.Ignore, log),
		parser:  parser.New(),
		chunker: chunker.New(cfg.MaxChunkTokens, cfg.ChunkOverlapTokens),
		log:     log,
	}
}

// EnsureAstSnapshots makes the folder's parse snapshots current and
// returns the number of snapshot files. Concurrent calls for the same
// folder coalesce into one build.
func (m *Manager) EnsureAstSnapshots(ctx context.Context, folder *storage.Folder) (int, error) {
	v, err, _ := m.astGroup.Do(folder.Name, func() (interface{}, error) {
		return m.ensureAst(ctx, folder)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// EnsureTextChunkSnapshots makes the folder's text chunk snapshots
// current and returns the number of chunked files. Concurrent calls for
// the same folder coalesce into one build.
func (m *Manager) EnsureTextChunkSnapshots(ctx context.Context, folder *storage.Folder) (int, error) {
	v, err, _ := m.chunkGroup.Do(folder.Name, func() (interface{}, error) {
		return m.ensureChunks(ctx, folder)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (m *Manager) ensureAst(ctx context.Context, folder *storage.Folder) (int, error) {
	existing, err := m.store.ListAstFiles(ctx, folder.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list parse snapshots: %w", err)
	}
	stored := make(map[string]string, len(existing))
	for _, f := range existing {
		stored[f.Path] = f.ContentHash
	}

	current, persisted, err := m.currentHashes(ctx, folder, len(existing) > 0, sourcePath)
	if err != nil {
		return 0, err
	}
	if !persisted && len(existing) > 0 {
		// No tree to compare against yet; presence is enough
		return len(existing), nil
	}

	plan := planSnapshots(stored, current)
	if plan.empty() {
		return len(existing), nil
	}

	removePaths := plan.remove
	type astBuild struct {
		file  *storage.AstFile
		nodes []*storage.AstNode
	}
	builds := make([]astBuild, 0, len(plan.build))
	for _, path := range plan.build {
		file, nodes, err := m.buildAstFile(ctx, folder, path, current[path])
		if err != nil {
			// A file that cannot be read or parsed keeps whatever
			// snapshot it had
			m.log.Warn("skipping source file",
				zap.String("folder", folder.Name),
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		if _, replaced := stored[path]; replaced {
			removePaths = append(removePaths, path)
		}
		builds = append(builds, astBuild{file: file, nodes: nodes})
	}
	if len(removePaths) == 0 && len(builds) == 0 {
		return len(existing), nil
	}

	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteAstFilesByPath(ctx, folder.ID, removePaths); err != nil {
		return 0, fmt.Errorf("failed to delete stale snapshots: %w", err)
	}
	for _, b := range builds {
		if err := tx.InsertAstFile(ctx, b.file); err != nil {
			return 0, fmt.Errorf("failed to insert snapshot for %s: %w", b.file.Path, err)
		}
		for _, n := range b.nodes {
			n.FileID = b.file.ID
		}
		if err := tx.InsertAstNodes(ctx, b.nodes); err != nil {
			return 0, fmt.Errorf("failed to insert nodes for %s: %w", b.file.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshots: %w", err)
	}

	count := len(existing) - len(removePaths) + len(builds)
	m.log.Info("parse snapshots rebuilt",
		zap.String("folder", folder.Name),
		zap.Int("built", len(builds)),
		zap.Int("removed", len(removePaths)),
		zap.Int("files", count))
	return count, nil
}

func (m *Manager) ensureChunks(ctx context.Context, folder *storage.Folder) (int, error) {
	existing, err := m.store.ListChunkedFiles(ctx, folder.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list chunked files: %w", err)
	}
	stored := make(map[string]string, len(existing))
	for _, f := range existing {
		stored[f.Path] = f.ContentHash
	}

	current, persisted, err := m.currentHashes(ctx, folder, len(existing) > 0, textPath)
	if err != nil {
		return 0, err
	}
	if !persisted && len(existing) > 0 {
		return len(existing), nil
	}

	plan := planSnapshots(stored, current)
	if plan.empty() {
		return len(existing), nil
	}

	removePaths := plan.remove
	var rows []*storage.TextChunk
	chunkedBuilds := 0
	for _, path := range plan.build {
		fileRows, err := m.buildChunks(folder, path, current[path])
		if err != nil {
			m.log.Warn("skipping text file",
				zap.String("folder", folder.Name),
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		if _, replaced := stored[path]; replaced {
			removePaths = append(removePaths, path)
		}
		if len(fileRows) > 0 {
			chunkedBuilds++
			rows = append(rows, fileRows...)
		}
	}
	if len(removePaths) == 0 && len(rows) == 0 {
		return len(existing), nil
	}

	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.DeleteTextChunksByPath(ctx, folder.ID, removePaths); err != nil {
		return 0, fmt.Errorf("failed to delete stale chunks: %w", err)
	}
	if err := tx.InsertTextChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit chunks: %w", err)
	}

	count := len(existing) - len(removePaths) + chunkedBuilds
	m.log.Info("text chunks rebuilt",
		zap.String("folder", folder.Name),
		zap.Int("built", chunkedBuilds),
		zap.Int("removed", len(removePaths)),
		zap.Int("files", count))
	return count, nil
}

// currentHashes returns the current content hash of every folder file
// accepted by the filter, keyed by folder-relative path, and whether the
// hashes came from a persisted tree. When no tree has been persisted and
// prior snapshots exist the walk is skipped entirely.
func (m *Manager) currentHashes(ctx context.Context, folder *storage.Folder, havePrior bool, accept func(string) bool) (map[string]string, bool, error) {
	nodes, err := m.store.ListTreeNodes(ctx, folder.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list tree nodes: %w", err)
	}
	if len(nodes) > 0 {
		hashes := make(map[string]string)
		for _, n := range nodes {
			if n.Kind == types.NodeFile && accept(n.Path) {
				hashes[n.Path] = n.Hash
			}
		}
		return hashes, true, nil
	}
	if havePrior {
		return nil, false, nil
	}

	// First build for an unwatched folder: walk the disk directly
	tree, err := m.builder.Build(folder.Path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to walk folder: %w", err)
	}
	hashes := make(map[string]string)
	for path, n := range tree.Nodes {
		if n.Kind == types.NodeFile && accept(path) {
			hashes[path] = n.Hash
		}
	}
	return hashes, false, nil
}

func (m *Manager) buildAstFile(ctx context.Context, folder *storage.Folder, relPath, hash string) (*storage.AstFile, []*storage.AstNode, error) {
	content, err := m.fs.ReadFile(filepath.Join(folder.Path, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, nil, err
	}
	res, err := m.parser.Parse(ctx, content, types.LanguageForPath(relPath))
	if err != nil {
		return nil, nil, err
	}
	treeJSON, err := json.Marshal(res.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tree: %w", err)
	}

	file := &storage.AstFile{
		FolderID:    folder.ID,
		Path:        relPath,
		Language:    res.Language,
		ContentHash: hash,
		TreeJSON:    string(treeJSON),
		ErrorCount:  res.ErrorCount,
	}
	nodes := make([]*storage.AstNode, 0, len(res.Nodes))
	for _, fn := range res.Nodes {
		nodes = append(nodes, &storage.AstNode{
			NodePath:  relPath + ":" + fn.Path,
			NodeType:  fn.Type,
			Symbol:    fn.Symbol,
			StartLine: fn.Span.StartLine,
			StartCol:  fn.Span.StartCol,
			EndLine:   fn.Span.EndLine,
			EndCol:    fn.Span.EndCol,
			Snippet:   fn.Snippet,
		})
	}
	return file, nodes, nil
}

func (m *Manager) buildChunks(folder *storage.Folder, relPath, hash string) ([]*storage.TextChunk, error) {
	content, err := m.fs.ReadFile(filepath.Join(folder.Path, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	format := types.TextFormatForPath(relPath)

	pieces := m.chunker.Split(string(content))
	rows := make([]*storage.TextChunk, 0, len(pieces))
	for _, p := range pieces {
		rows = append(rows, &storage.TextChunk{
			FolderID:    folder.ID,
			Path:        relPath,
			Format:      format,
			ChunkIndex:  p.Index,
			StartOffset: p.StartOffset,
			EndOffset:   p.EndOffset,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			ContentHash: hash,
		})
	}
	return rows, nil
}

// snapshotPlan lists the reconciliation work between stored snapshots and
// the folder's current files
type snapshotPlan struct {
	build  []string // new or stale paths
	remove []string // paths gone from the folder
}

func (p snapshotPlan) empty() bool {
	return len(p.build) == 0 && len(p.remove) == 0
}

func planSnapshots(stored, current map[string]string) snapshotPlan {
	var plan snapshotPlan
	for path, hash := range current {
		if prev, ok := stored[path]; !ok || prev != hash {
			plan.build = append(plan.build, path)
		}
	}
	for path := range stored {
		if _, ok := current[path]; !ok {
			plan.remove = append(plan.remove, path)
		}
	}
	sort.Strings(plan.build)
	sort.Strings(plan.remove)
	return plan
}

func sourcePath(path string) bool {
	return types.LanguageForPath(path) != types.LangUnknown
}

func textPath(path string) bool {
	return types.TextFormatForPath(path) != types.FormatUnknown
}
