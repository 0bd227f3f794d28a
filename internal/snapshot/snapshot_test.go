package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"semdex/internal/fsys"
	"semdex/internal/hashtree"
	"semdex/internal/parser"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

func setupManager(t *testing.T) (*Manager, storage.Storage, *storage.Folder) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	folder := &storage.Folder{Name: "proj", Path: t.TempDir()}
	require.NoError(t, store.CreateFolder(context.Background(), folder))

	m := NewManager(store, fsys.NewOS(), Config{}, zap.NewNop())
	return m, store, folder
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
}

// persistTree stores the folder's current hash tree the way the change
// detector would on a poll tick.
func persistTree(t *testing.T, store storage.Storage, folder *storage.Folder) {
	t.Helper()
	tree, err := hashtree.NewBuilder(fsys.NewOS(), nil, zap.NewNop()).Build(folder.Path)
	require.NoError(t, err)
	nodes := make([]types.FlatNode, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		nodes = append(nodes, n)
	}
	require.NoError(t, store.ReplaceTreeNodes(context.Background(), folder.ID, nodes))
}

func TestEnsureAstSnapshots_FirstBuild(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): return 1\n")
	writeFile(t, folder.Path, "b.go", "package b\n\nfunc Bar() {}\n")
	writeFile(t, folder.Path, "notes.txt", "not source code\n")

	count, err := m.EnsureAstSnapshots(ctx, folder)

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	files, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.py", files[0].Path)
	assert.Equal(t, types.LangPython, files[0].Language)
	assert.NotEmpty(t, files[0].ContentHash)
	assert.Contains(t, files[0].TreeJSON, "function_definition")

	nodes, err := store.ListAstNodesByFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a.py:0", nodes[0].NodePath)
	assert.Equal(t, "foo", nodes[0].Symbol)
	assert.Equal(t, "Bar", nodes[1].Symbol)
}

func TestEnsureAstSnapshots_PresenceOnly(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): return 1\n")
	_, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)

	before, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)

	// The folder changed on disk but no tree was persisted, so the
	// existing snapshots are served as-is
	writeFile(t, folder.Path, "a.py", "def bar(): return 2\n")

	count, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].ContentHash, after[0].ContentHash)
}

func TestEnsureAstSnapshots_CurrentTreeIdempotent(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): return 1\n")
	persistTree(t, store, folder)

	_, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	before, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)

	count, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, before[0].ID, after[0].ID)
}

func TestEnsureAstSnapshots_StaleRebuild(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): return 1\n")
	persistTree(t, store, folder)
	_, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)

	// File changes and the detector persists the new tree
	writeFile(t, folder.Path, "a.py", "def bar(): return 2\n")
	persistTree(t, store, folder)

	count, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	files, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].TreeJSON, "bar")

	nodes, err := store.ListAstNodesByFolder(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "bar", nodes[0].Symbol)
}

func TestEnsureAstSnapshots_DeletesGoneFiles(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): pass\n")
	writeFile(t, folder.Path, "b.py", "def bar(): pass\n")
	persistTree(t, store, folder)
	count, err := m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, os.Remove(filepath.Join(folder.Path, "b.py")))
	persistTree(t, store, folder)

	count, err = m.EnsureAstSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	files, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].Path)
}

func TestEnsureAstSnapshots_UnreadableFileSkipped(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "b.py", "def bar(): pass\n")

	// The persisted tree claims a file the disk does not have
	tree, err := hashtree.NewBuilder(fsys.NewOS(), nil, zap.NewNop()).Build(folder.Path)
	require.NoError(t, err)
	nodes := make([]types.FlatNode, 0, len(tree.Nodes)+1)
	for _, n := range tree.Nodes {
		nodes = append(nodes, n)
	}
	nodes = append(nodes, types.FlatNode{Path: "a.py", Hash: "f00d", Kind: types.NodeFile, Size: 16})
	require.NoError(t, store.ReplaceTreeNodes(ctx, folder.ID, nodes))

	count, err := m.EnsureAstSnapshots(ctx, folder)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	files, err := store.ListAstFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.py", files[0].Path)
}

func TestEnsureAstSnapshots_SyntaxErrorKept(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "broken.py", "def ok():\n    pass\n\ndef broken(:\n")

	count, err := m.EnsureAstSnapshots(ctx, folder)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	file, err := store.GetAstFile(ctx, folder.ID, "broken.py")
	require.NoError(t, err)
	assert.Greater(t, file.ErrorCount, 0)
}

func TestEnsureAstSnapshots_EmptyFolder(t *testing.T) {
	m, _, folder := setupManager(t)

	count, err := m.EnsureAstSnapshots(context.Background(), folder)

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureAstSnapshots_Singleflight(t *testing.T) {
	m, _, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "a.py", "def foo(): pass\n")
	writeFile(t, folder.Path, "b.py", "def bar(): pass\n")

	var parses atomic.Int32
	m.parser = &countingParser{inner: parser.New(), calls: &parses}

	var wg sync.WaitGroup
	counts := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := m.EnsureAstSnapshots(ctx, folder)
			assert.NoError(t, err)
			counts[i] = n
		}(i)
	}
	wg.Wait()

	for _, n := range counts {
		assert.Equal(t, 2, n)
	}
	// One coalesced build parses each file exactly once; later callers
	// hit the presence check
	assert.Equal(t, int32(2), parses.Load())
}

type countingParser struct {
	inner *parser.Parser
	calls *atomic.Int32
}

func (p *countingParser) Parse(ctx context.Context, content []byte, lang types.Language) (*parser.Result, error) {
	p.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return p.inner.Parse(ctx, content, lang)
}

func TestEnsureTextChunkSnapshots_FirstBuild(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "README.md", "# Title\n\nSome documentation text.\n")
	writeFile(t, folder.Path, "a.py", "def foo(): pass\n")

	count, err := m.EnsureTextChunkSnapshots(ctx, folder)

	require.NoError(t, err)
	assert.Equal(t, 1, count)

	chunks, err := store.ListTextChunks(ctx, folder.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "README.md", chunks[0].Path)
	assert.Equal(t, types.FormatMarkdown, chunks[0].Format)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.NotEmpty(t, chunks[0].ContentHash)
	assert.Greater(t, chunks[0].TokenCount, 0)
}

func TestEnsureTextChunkSnapshots_StaleRebuild(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "README.md", "original text\n")
	persistTree(t, store, folder)
	_, err := m.EnsureTextChunkSnapshots(ctx, folder)
	require.NoError(t, err)

	writeFile(t, folder.Path, "README.md", "rewritten text\n")
	persistTree(t, store, folder)

	count, err := m.EnsureTextChunkSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	chunks, err := store.ListTextChunks(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "rewritten")
}

func TestEnsureTextChunkSnapshots_GoneFileRemoved(t *testing.T) {
	m, store, folder := setupManager(t)
	ctx := context.Background()

	writeFile(t, folder.Path, "README.md", "text\n")
	writeFile(t, folder.Path, "notes.txt", "more text\n")
	persistTree(t, store, folder)
	count, err := m.EnsureTextChunkSnapshots(ctx, folder)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, os.Remove(filepath.Join(folder.Path, "notes.txt")))
	persistTree(t, store, folder)

	count, err = m.EnsureTextChunkSnapshots(ctx, folder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	files, err := store.ListChunkedFiles(ctx, folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "README.md", files[0].Path)
}
