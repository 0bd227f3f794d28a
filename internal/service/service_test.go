package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"semdex/internal/embedder"
	"semdex/internal/fsys"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

func setupService(t *testing.T) (*Service, storage.Storage) {
	t.Helper()
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := New(store, fsys.NewOS(), Config{PollInterval: time.Hour}, zap.NewNop())
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func waitCompleted(t *testing.T, svc *Service, folder string) types.TaskProgress {
	t.Helper()
	var state types.TaskProgress
	require.Eventually(t, func() bool {
		st, ok := svc.GetProgress(folder)
		if !ok {
			return false
		}
		state = st
		return st.Phase == types.PhaseCompleted
	}, 10*time.Second, 10*time.Millisecond, "job for %s did not complete", folder)
	return state
}

func TestRegisterFolder_SchedulesInitialJob(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	folder, jobID, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)
	assert.Equal(t, "proj", folder.Name)
	assert.NotZero(t, folder.ID)

	state := waitCompleted(t, svc, "proj")
	assert.Equal(t, jobID, state.JobID)
	assert.Equal(t, 1, state.TotalFiles)

	rows, err := store.ListEmbeddings(ctx, folder.ID, storage.StageInitial)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRegisterFolder_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, _, err := svc.RegisterFolder(ctx, "  ", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name cannot be empty")

	_, _, err = svc.RegisterFolder(ctx, "proj", "relative/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")

	_, _, err = svc.RegisterFolder(ctx, "proj", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accessible")

	writeFile(t, dir, "file.txt", "plain")
	_, _, err = svc.RegisterFolder(ctx, "proj", filepath.Join(dir, "file.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRegisterFolder_DuplicateName(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, _, err := svc.RegisterFolder(ctx, "proj", t.TempDir())
	require.NoError(t, err)

	_, _, err = svc.RegisterFolder(ctx, "proj", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFolderExists)
}

func TestUnregisterFolder_RemovesEverything(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	folder, _, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	waitCompleted(t, svc, "proj")

	require.NoError(t, svc.UnregisterFolder(ctx, "proj"))

	_, err = store.GetFolder(ctx, "proj")
	require.Error(t, err)

	rows, err := store.ListEmbeddings(ctx, folder.ID, storage.StageInitial)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, ok := svc.GetProgress("proj")
	assert.False(t, ok)

	svc.mu.Lock()
	_, subscribed := svc.unsubs["proj"]
	svc.mu.Unlock()
	assert.False(t, subscribed)
}

func TestUnregisterFolder_Unknown(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.UnregisterFolder(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFolderNotFound)
}

func TestScheduleIndexing_SupersedesAndCompletes(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	folder, firstJob, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	waitCompleted(t, svc, "proj")

	secondJob, err := svc.ScheduleIndexing(ctx, "proj")
	require.NoError(t, err)
	assert.NotEqual(t, firstJob, secondJob)

	require.Eventually(t, func() bool {
		st, ok := svc.GetProgress("proj")
		return ok && st.JobID == secondJob && st.Phase == types.PhaseCompleted
	}, 10*time.Second, 10*time.Millisecond)

	rows, err := store.ListEmbeddings(ctx, folder.ID, storage.StageInitial)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestScheduleIndexing_Unknown(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.ScheduleIndexing(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFolderNotFound)
}

func TestCancelIndexing_NoLiveJob(t *testing.T) {
	svc, _ := setupService(t)
	assert.False(t, svc.CancelIndexing("ghost"))
}

func TestListFolders_Statuses(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	_, _, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	waitCompleted(t, svc, "proj")

	// The root hash is persisted by the detector pass, not by indexing.
	diff, err := svc.CheckFolder(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, diff.HasChanges())

	statuses, err := svc.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	status := statuses[0]
	assert.Equal(t, "proj", status.Folder.Name)
	assert.NotEmpty(t, status.RootHash)
	assert.False(t, status.CheckedAt.IsZero())
	assert.Equal(t, 1, status.EmbeddingCount)
	assert.Equal(t, 1, status.AstFileCount)
}

func TestSearch_EndToEnd(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	_, _, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	waitCompleted(t, svc, "proj")

	resp, err := svc.Search(ctx, "proj", "def foo", 5)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "foo", resp.Results[0].Label)
	assert.Equal(t, "a.py", resp.Results[0].FilePath)
}

func TestSearch_UnknownFolder(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Search(context.Background(), "ghost", "anything", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFolderNotFound)
}

func TestStart_IndexesFolderFromEarlierRun(t *testing.T) {
	svc, store := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	// A folder row left behind by a previous process: registered, never
	// indexed by this one.
	folder := &storage.Folder{Name: "old", Path: dir}
	require.NoError(t, store.CreateFolder(ctx, folder))

	require.NoError(t, svc.Start(ctx))

	waitCompleted(t, svc, "old")
	rows, err := store.ListEmbeddings(ctx, folder.ID, storage.StageInitial)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStart_FolderChangedInvalidatesSearchCache(t *testing.T) {
	svc, _ := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	writeFile(t, dir, "a.py", "def foo():\n    return 1\n")

	require.NoError(t, svc.Start(ctx))

	_, _, err := svc.RegisterFolder(ctx, "proj", dir)
	require.NoError(t, err)
	waitCompleted(t, svc, "proj")

	// Let the initial job's folder-changed event drain before pinning a
	// cache entry, or the purge it triggers could race the pin.
	time.Sleep(250 * time.Millisecond)

	resp, err := svc.Search(ctx, "proj", "def foo", 5)
	require.NoError(t, err)
	require.False(t, resp.CacheHit)

	resp, err = svc.Search(ctx, "proj", "def foo", 5)
	require.NoError(t, err)
	require.True(t, resp.CacheHit)

	jobID, err := svc.ScheduleIndexing(ctx, "proj")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, ok := svc.GetProgress("proj")
		return ok && st.JobID == jobID && st.Phase == types.PhaseCompleted
	}, 10*time.Second, 10*time.Millisecond)

	// The reindex publishes folder-changed, which purges the cache.
	require.Eventually(t, func() bool {
		resp, err := svc.Search(ctx, "proj", "def foo", 5)
		return err == nil && !resp.CacheHit
	}, 5*time.Second, 50*time.Millisecond)
}

func TestClose_WithoutStart(t *testing.T) {
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := New(store, fsys.NewOS(), Config{}, zap.NewNop())
	require.NoError(t, svc.Close())
}
