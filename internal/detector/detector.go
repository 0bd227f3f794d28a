package detector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"semdex/internal/fsys"
	"semdex/internal/hashtree"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

// DefaultInterval is the poll interval when the config does not set one.
const DefaultInterval = 30 * time.Second

// Listener receives a folder's change set. Listeners run synchronously on
// the polling goroutine; a panic is recovered and logged.
type Listener func(change types.FolderChange)

// Config holds detector settings.
type Config struct {
	// Interval between poll ticks. Zero or negative uses DefaultInterval.
	Interval time.Duration
	// Ignore extends the default ignore set for tree building.
	Ignore []string
}

// Detector polls registered folders, rebuilds their hash trees, persists
// them wholesale, and notifies per-folder listeners when files were added,
// changed, or deleted.
type Detector struct {
	store    storage.Storage
	builder  *hashtree.Builder
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	listeners map[string]map[int]Listener
	nextID    int

	guard    tickGuard
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a detector over the given store and file system.
func New(store storage.Storage, fs fsys.FS, cfg Config, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Detector{
		store:     store,
		builder:   hashtree.NewBuilder(fs, cfg.Ignore, log),
		interval:  interval,
		log:       log,
		listeners: make(map[string]map[int]Listener),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the poll loop. The first tick runs immediately; subsequent
// ticks follow the configured interval. Calling Start twice is a no-op.
func (d *Detector) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	go d.loop(ctx)
}

// Stop terminates the poll loop and waits for the current tick to finish.
func (d *Detector) Stop() {
	if !d.started.Load() {
		return
	}
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Detector) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick processes every registered folder sequentially. If the previous tick
// is still running the whole tick is skipped; a slow folder delays others
// but never overlaps them.
func (d *Detector) tick(ctx context.Context) {
	if !d.guard.TryAcquire() {
		d.log.Debug("poll tick skipped, previous tick still running")
		return
	}
	defer d.guard.Release()

	folders, err := d.store.ListFolders(ctx)
	if err != nil {
		d.log.Warn("failed to list folders for poll tick", zap.Error(err))
		return
	}

	for _, folder := range folders {
		if _, err := d.CheckFolder(ctx, folder); err != nil {
			d.log.Warn("folder check failed",
				zap.String("folder", folder.Name),
				zap.Error(err))
		}
	}
}

// CheckFolder rebuilds the folder's hash tree, diffs it against the
// persisted one, replaces the persisted tree, and notifies listeners when
// the diff is non-empty. Returns the diff.
func (d *Detector) CheckFolder(ctx context.Context, folder *storage.Folder) (types.TreeDiff, error) {
	stored, err := d.store.ListTreeNodes(ctx, folder.ID)
	if err != nil {
		return types.TreeDiff{}, fmt.Errorf("failed to load persisted tree: %w", err)
	}

	var prev *types.HashTree
	if len(stored) > 0 {
		nodes := make(map[string]types.FlatNode, len(stored))
		for _, n := range stored {
			nodes[n.Path] = n
		}
		prev = &types.HashTree{Nodes: nodes}
	}

	curr, err := d.builder.Build(folder.Path)
	if err != nil {
		return types.TreeDiff{}, fmt.Errorf("failed to build hash tree: %w", err)
	}

	diff := hashtree.Diff(prev, curr)

	if err := d.persist(ctx, folder.ID, curr); err != nil {
		return types.TreeDiff{}, err
	}

	if diff.HasChanges() {
		d.log.Info("folder changed",
			zap.String("folder", folder.Name),
			zap.Int("added", len(diff.Added)),
			zap.Int("changed", len(diff.Changed)),
			zap.Int("deleted", len(diff.Deleted)))
		d.notify(types.FolderChange{Folder: folder.Name, Diff: diff})
	}
	return diff, nil
}

// persist replaces the folder's persisted tree and root hash in one
// transaction. The node set is always written wholesale, never patched.
func (d *Detector) persist(ctx context.Context, folderID int64, tree *types.HashTree) error {
	nodes := make([]types.FlatNode, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })

	tx, err := d.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ReplaceTreeNodes(ctx, folderID, nodes); err != nil {
		return fmt.Errorf("failed to replace tree nodes: %w", err)
	}
	if err := tx.UpsertFolderHash(ctx, &storage.FolderHash{
		FolderID:  folderID,
		RootHash:  tree.RootHash,
		CheckedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to upsert folder hash: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tree replacement: %w", err)
	}
	return nil
}

// Subscribe registers a listener for one folder's changes. The returned
// function removes the subscription.
func (d *Detector) Subscribe(folder string, fn Listener) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	m := d.listeners[folder]
	if m == nil {
		m = make(map[int]Listener)
		d.listeners[folder] = m
	}
	m[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		if m := d.listeners[folder]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(d.listeners, folder)
			}
		}
		d.mu.Unlock()
	}
}

func (d *Detector) notify(change types.FolderChange) {
	d.mu.Lock()
	subs := make([]Listener, 0, len(d.listeners[change.Folder]))
	for _, fn := range d.listeners[change.Folder] {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	for _, fn := range subs {
		d.invoke(fn, change)
	}
}

func (d *Detector) invoke(fn Listener, change types.FolderChange) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("change listener panicked",
				zap.String("folder", change.Folder),
				zap.Any("panic", r))
		}
	}()
	fn(change)
}
