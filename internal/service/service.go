package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"semdex/internal/collector"
	"semdex/internal/detector"
	"semdex/internal/events"
	"semdex/internal/fsys"
	"semdex/internal/indexer"
	"semdex/internal/progress"
	"semdex/internal/searcher"
	"semdex/internal/snapshot"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

// Config carries the tunables the service passes down to its components.
type Config struct {
	PollInterval       time.Duration
	Ignore             []string
	Summarize          bool
	MaxChunkTokens     int
	ChunkOverlapTokens int
}

// Service wires change detection, snapshots, indexing, progress, and search
// behind one facade. The MCP layer talks only to this type.
type Service struct {
	store    storage.Storage
	fs       fsys.FS
	detector *detector.Detector
	runner   *indexer.Runner
	progress *progress.Bus
	events   *events.Bus
	searcher *searcher.Searcher
	log      *zap.Logger

	mu     sync.Mutex
	unsubs map[string]func()

	progressUnsub func()
	wg            sync.WaitGroup
}

// New builds the service and all components it owns. The storage handle and
// logger belong to the caller; everything else is constructed here.
func New(store storage.Storage, fs fsys.FS, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	bus := progress.NewBus(log.Named("progress"))
	evts := events.NewBus(log.Named("events"))
	models := newEnvModels(cfg.Summarize)

	snaps := snapshot.NewManager(store, fs, snapshot.Config{
		MaxChunkTokens:     cfg.MaxChunkTokens,
		ChunkOverlapTokens: cfg.ChunkOverlapTokens,
		Ignore:             cfg.Ignore,
	}, log.Named("snapshot"))
	docs := collector.New(store, snaps, log.Named("collector"))

	return &Service{
		store:    store,
		fs:       fs,
		detector: detector.New(store, fs, detector.Config{Interval: cfg.PollInterval, Ignore: cfg.Ignore}, log.Named("detector")),
		runner:   indexer.NewRunner(store, snaps, docs, models, bus, evts, log.Named("indexer")),
		progress: bus,
		events:   evts,
		searcher: searcher.New(store, models, log.Named("searcher")),
		log:      log,
		unsubs:   make(map[string]func()),
	}
}

// Start launches the poll loop and the internal event consumers, and hooks
// up change listeners for folders registered in earlier runs.
func (s *Service) Start(ctx context.Context) error {
	s.progressUnsub = s.progress.Subscribe(func(state types.TaskProgress) {
		s.events.Progress(state)
	})

	msgs, err := s.events.SubscribeFolderChanged(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to folder changes: %w", err)
	}
	s.wg.Add(1)
	go s.consumeFolderChanged(msgs)

	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	s.mu.Lock()
	for _, folder := range folders {
		s.subscribeLocked(folder)
	}
	s.mu.Unlock()

	s.detector.Start(ctx)
	s.log.Info("service started", zap.Int("folders", len(folders)))
	return nil
}

// Close stops the poll loop and the event bus. The storage handle is the
// caller's to close.
func (s *Service) Close() error {
	s.detector.Stop()
	if s.progressUnsub != nil {
		s.progressUnsub()
	}
	err := s.events.Close()
	s.wg.Wait()
	return err
}

// Events exposes the event bus for external consumers.
func (s *Service) Events() *events.Bus {
	return s.events
}

// RegisterFolder validates the path, persists the folder, hooks up its
// change listener, and schedules the initial indexing job.
func (s *Service) RegisterFolder(ctx context.Context, name, path string) (*storage.Folder, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", types.ErrEmptyFolder
	}
	if !filepath.IsAbs(path) {
		return nil, "", fmt.Errorf("%w: must be absolute: %s", types.ErrInvalidPath, path)
	}
	entry, err := s.fs.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: not accessible: %v", types.ErrInvalidPath, err)
	}
	if !entry.IsDir {
		return nil, "", fmt.Errorf("%w: not a directory: %s", types.ErrInvalidPath, path)
	}

	if _, err := s.store.GetFolder(ctx, name); err == nil {
		return nil, "", fmt.Errorf("%w: %s", types.ErrFolderExists, name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check folder: %w", err)
	}

	folder := &storage.Folder{Name: name, Path: filepath.Clean(path)}
	if err := s.store.CreateFolder(ctx, folder); err != nil {
		return nil, "", fmt.Errorf("failed to create folder: %w", err)
	}

	s.mu.Lock()
	s.subscribeLocked(folder)
	s.mu.Unlock()

	jobID := s.runner.Schedule(folder)
	s.log.Info("folder registered",
		zap.String("folder", name),
		zap.String("path", folder.Path),
		zap.String("job_id", jobID))
	return folder, jobID, nil
}

// UnregisterFolder cancels any live job, drops the change listener, and
// deletes the folder row. Snapshots and embeddings go with it via cascade.
func (s *Service) UnregisterFolder(ctx context.Context, name string) error {
	folder, err := s.loadFolder(ctx, name)
	if err != nil {
		return err
	}

	s.runner.Forget(name)

	s.mu.Lock()
	if unsub, ok := s.unsubs[name]; ok {
		unsub()
		delete(s.unsubs, name)
	}
	s.mu.Unlock()

	if err := s.store.DeleteFolder(ctx, folder.ID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	s.searcher.InvalidateFolder(name)
	s.log.Info("folder unregistered", zap.String("folder", name))
	return nil
}

// ScheduleIndexing starts a job for the folder, superseding any live one.
func (s *Service) ScheduleIndexing(ctx context.Context, name string) (string, error) {
	folder, err := s.loadFolder(ctx, name)
	if err != nil {
		return "", err
	}
	return s.runner.Schedule(folder), nil
}

// CancelIndexing flags the folder's live job for cancellation. Returns
// false when no job is live.
func (s *Service) CancelIndexing(name string) bool {
	return s.runner.Cancel(name)
}

// GetProgress returns the folder's current merged progress state.
func (s *Service) GetProgress(name string) (types.TaskProgress, bool) {
	return s.progress.Get(name)
}

// ListProgress returns every live progress record, ordered by folder.
func (s *Service) ListProgress() []types.TaskProgress {
	return s.progress.List()
}

// ListFolders returns the registered folders with their index statistics.
func (s *Service) ListFolders(ctx context.Context) ([]*storage.FolderStatus, error) {
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	statuses := make([]*storage.FolderStatus, 0, len(folders))
	for _, folder := range folders {
		status, err := s.store.GetFolderStatus(ctx, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load status for %s: %w", folder.Name, err)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Search answers a semantic query against the folder's indexed documents.
func (s *Service) Search(ctx context.Context, name, query string, limit int) (*searcher.Response, error) {
	folder, err := s.loadFolder(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, folder, query, limit)
}

// CheckFolder runs one detector pass for the folder immediately.
func (s *Service) CheckFolder(ctx context.Context, name string) (types.TreeDiff, error) {
	folder, err := s.loadFolder(ctx, name)
	if err != nil {
		return types.TreeDiff{}, err
	}
	return s.detector.CheckFolder(ctx, folder)
}

// loadFolder resolves a folder by name, mapping the storage miss onto the
// shared sentinel so callers can match it.
func (s *Service) loadFolder(ctx context.Context, name string) (*storage.Folder, error) {
	folder, err := s.store.GetFolder(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", types.ErrFolderNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load folder: %w", err)
	}
	return folder, nil
}

// subscribeLocked hooks the folder's change listener. Caller holds s.mu.
func (s *Service) subscribeLocked(folder *storage.Folder) {
	if _, ok := s.unsubs[folder.Name]; ok {
		return
	}
	f := folder
	s.unsubs[f.Name] = s.detector.Subscribe(f.Name, func(change types.FolderChange) {
		s.onFolderChange(f, change)
	})
}

// onFolderChange schedules indexing for folders that change before any job
// has run in this process. Folders already indexed this process pick up the
// changes on their next scheduled job instead, since snapshots refresh
// against the persisted tree hash.
func (s *Service) onFolderChange(folder *storage.Folder, change types.FolderChange) {
	if s.runner.HasEverRun(folder.Name) {
		return
	}
	jobID := s.runner.Schedule(folder)
	s.log.Info("change detected, scheduling indexing",
		zap.String("folder", folder.Name),
		zap.String("job_id", jobID))
}

// consumeFolderChanged drops cached search responses when a folder's rows
// are replaced.
func (s *Service) consumeFolderChanged(msgs <-chan *message.Message) {
	defer s.wg.Done()
	for msg := range msgs {
		var evt events.FolderChangedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			s.log.Warn("failed to decode folder-changed event", zap.Error(err))
			msg.Ack()
			continue
		}
		s.searcher.InvalidateFolder(evt.Folder)
		msg.Ack()
	}
}
