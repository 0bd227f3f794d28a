package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"semdex/internal/chat"
	"semdex/internal/chunker"
	"semdex/internal/embedder"
	"semdex/internal/events"
	"semdex/internal/progress"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

const (
	// EmbedBatchSize is the number of documents sent per embedding call
	EmbedBatchSize = 64
	// SummarizeBatchSize is the number of documents summarized per batch
	SummarizeBatchSize = 8
	// persistBatchSize bounds rows per insert transaction
	persistBatchSize = 50
)

const summarySystemPrompt = "You summarize source code and documentation fragments " +
	"for semantic search. Reply with a single plain-English paragraph, at most 60 " +
	"words, describing what the fragment does. No code, no markdown."

// errCancelled ends a job silently at a batch boundary. Cancellation is not
// an error: no error transition, no log above info.
var errCancelled = errors.New("job cancelled")

// Snapshots materializes parse and chunk snapshots for a folder.
type Snapshots interface {
	EnsureAstSnapshots(ctx context.Context, folder *storage.Folder) (int, error)
	EnsureTextChunkSnapshots(ctx context.Context, folder *storage.Folder) (int, error)
}

// Documents flattens a folder's snapshots into embeddable documents.
type Documents interface {
	Collect(ctx context.Context, folder *storage.Folder) ([]*types.Document, error)
}

// ModelResolver supplies the model backends a job runs against. Resolution
// happens per job; a failure is fatal to that job and surfaces as a
// readable progress error, never a silent fallback.
type ModelResolver interface {
	EmbeddingModel(ctx context.Context) (embedder.Embedder, error)
	ChatModel(ctx context.Context) (chat.Client, error)
	SummarizeEnabled() bool
}

// job is one cancellable pipeline run. The cancelled flag is orthogonal to
// the phase: it is polled at batch boundaries only and never interrupts an
// in-flight model call.
type job struct {
	id        string
	folder    string
	cancelled atomic.Bool
}

// cancel marks the job cancelled. Returns false if it already was.
func (j *job) cancel() bool { return !j.cancelled.Swap(true) }

func (j *job) isCancelled() bool { return j.cancelled.Load() }

// Runner owns the embedding job registry: at most one live job per folder,
// and scheduling a new job cancels and replaces the old one.
type Runner struct {
	store     storage.Storage
	snapshots Snapshots
	collector Documents
	models    ModelResolver
	progress  *progress.Bus
	events    events.Sink
	log       *zap.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	everRan map[string]struct{}
}

// NewRunner creates a runner. The progress bus is required; a nil sink
// discards events.
func NewRunner(store storage.Storage, snapshots Snapshots, collector Documents, models ModelResolver, bus *progress.Bus, sink events.Sink, log *zap.Logger) *Runner {
	if sink == nil {
		sink = events.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		store:     store,
		snapshots: snapshots,
		collector: collector,
		models:    models,
		progress:  bus,
		events:    sink,
		log:       log,
		jobs:      make(map[string]*job),
		everRan:   make(map[string]struct{}),
	}
}

// Schedule starts an indexing job for the folder, superseding any job
// already live for it. The new job's ID is returned immediately; the
// pipeline runs on its own goroutine.
func (r *Runner) Schedule(folder *storage.Folder) string {
	j := &job{id: uuid.NewString(), folder: folder.Name}

	r.mu.Lock()
	if prev := r.jobs[folder.Name]; prev != nil && prev.cancel() {
		r.log.Info("superseding live job",
			zap.String("folder", folder.Name),
			zap.String("job_id", prev.id))
	}
	r.jobs[folder.Name] = j
	r.everRan[folder.Name] = struct{}{}
	r.mu.Unlock()

	r.progress.Begin(folder.Name, j.id)
	go r.run(folder, j)
	return j.id
}

// Cancel marks the folder's live job cancelled and clears its progress
// record. Returns false when there is nothing to cancel.
func (r *Runner) Cancel(folder string) bool {
	r.mu.Lock()
	j := r.jobs[folder]
	r.mu.Unlock()

	if j == nil || !j.cancel() {
		return false
	}
	r.progress.Clear(folder)
	r.log.Info("indexing job cancelled",
		zap.String("folder", folder),
		zap.String("job_id", j.id))
	return true
}

// Running reports whether the folder has a live, non-cancelled job.
func (r *Runner) Running(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[folder]
	return j != nil && !j.isCancelled()
}

// HasEverRun reports whether a job was scheduled for the folder during this
// process lifetime.
func (r *Runner) HasEverRun(folder string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.everRan[folder]
	return ok
}

// Forget cancels any live job and drops the folder's scheduling history and
// progress. Used when a folder is unregistered.
func (r *Runner) Forget(folder string) {
	r.mu.Lock()
	j := r.jobs[folder]
	delete(r.everRan, folder)
	r.mu.Unlock()

	if j != nil {
		j.cancel()
	}
	r.progress.Clear(folder)
}

func (r *Runner) run(folder *storage.Folder, j *job) {
	defer r.remove(j)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("indexing job panicked",
				zap.String("folder", folder.Name),
				zap.String("job_id", j.id),
				zap.Any("panic", rec))
			r.fail(j, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	err := r.execute(context.Background(), folder, j)
	switch {
	case err == nil:
	case errors.Is(err, errCancelled):
		r.log.Info("indexing job stopped by cancellation",
			zap.String("folder", folder.Name),
			zap.String("job_id", j.id))
	default:
		r.log.Error("indexing job failed",
			zap.String("folder", folder.Name),
			zap.String("job_id", j.id),
			zap.Error(err))
		r.fail(j, err.Error())
	}
}

func (r *Runner) execute(ctx context.Context, folder *storage.Folder, j *job) error {
	started := time.Now()

	r.update(j, types.ProgressPatch{
		Phase:   types.Ptr(types.PhaseParsing),
		Percent: types.Ptr(10),
		Message: types.Ptr("building snapshots"),
	})

	var astFiles, chunkFiles int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.snapshots.EnsureAstSnapshots(gctx, folder)
		astFiles = n
		return err
	})
	g.Go(func() error {
		n, err := r.snapshots.EnsureTextChunkSnapshots(gctx, folder)
		chunkFiles = n
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to build snapshots: %w", err)
	}
	totalFiles := astFiles + chunkFiles

	if j.isCancelled() {
		return errCancelled
	}

	docs, err := r.collector.Collect(ctx, folder)
	if err != nil {
		return fmt.Errorf("failed to collect documents: %w", err)
	}

	r.update(j, types.ProgressPatch{
		TotalFiles:     types.Ptr(totalFiles),
		TotalDocuments: types.Ptr(len(docs)),
		Percent:        types.Ptr(15),
		Message:        types.Ptr(fmt.Sprintf("collected %d documents from %d files", len(docs), totalFiles)),
	})

	if len(docs) == 0 {
		r.update(j, types.ProgressPatch{
			Phase:   types.Ptr(types.PhaseCompleted),
			Percent: types.Ptr(100),
			Message: types.Ptr("no embeddable documents"),
		})
		r.log.Info("indexing job completed with no documents",
			zap.String("folder", folder.Name),
			zap.String("job_id", j.id),
			zap.Int("files", totalFiles))
		return nil
	}

	model, err := r.models.EmbeddingModel(ctx)
	if err != nil {
		return fmt.Errorf("embedding model unavailable: %w", err)
	}

	summarize := r.models.SummarizeEnabled()
	var chatModel chat.Client
	if summarize {
		chatModel, err = r.models.ChatModel(ctx)
		if err != nil {
			return fmt.Errorf("chat model unavailable: %w", err)
		}
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}

	if summarize {
		texts, err = r.summarizeDocuments(ctx, j, chatModel, docs)
		if err != nil {
			return err
		}
	}

	if err := r.embedAndPersist(ctx, folder, j, model, docs, texts, summarize); err != nil {
		return err
	}

	if j.isCancelled() {
		return errCancelled
	}

	r.update(j, types.ProgressPatch{
		Phase:   types.Ptr(types.PhaseCompleted),
		Percent: types.Ptr(100),
		Message: types.Ptr(fmt.Sprintf("indexed %d documents in %s", len(docs), time.Since(started).Round(time.Millisecond))),
	})
	r.events.FolderChanged(folder.Name)
	r.log.Info("indexing job completed",
		zap.String("folder", folder.Name),
		zap.String("job_id", j.id),
		zap.Int("documents", len(docs)),
		zap.Duration("duration", time.Since(started)))
	return nil
}

// summarizeDocuments passes every document through the chat model in
// batches, sequentially within each batch. A per-document failure falls
// back to that document's raw content; only cancellation stops the pass.
func (r *Runner) summarizeDocuments(ctx context.Context, j *job, model chat.Client, docs []*types.Document) ([]string, error) {
	total := len(docs)
	out := make([]string, total)
	for i := range docs {
		out[i] = docs[i].Content
	}

	r.update(j, types.ProgressPatch{
		Phase:              types.Ptr(types.PhaseSummarizing),
		ProcessedDocuments: types.Ptr(0),
		Message:            types.Ptr("summarizing documents"),
	})

	var usedTokens int
	fallbacks := 0
	for start := 0; start < total; start += SummarizeBatchSize {
		if j.isCancelled() {
			return nil, errCancelled
		}
		end := start + SummarizeBatchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			reply, err := model.Complete(ctx, summarySystemPrompt, docs[i].Content)
			if err != nil {
				fallbacks++
				r.log.Warn("summarization failed, keeping raw content",
					zap.String("folder", j.folder),
					zap.String("file", docs[i].FilePath),
					zap.Error(err))
				continue
			}
			if reply.Content != "" {
				out[i] = reply.Content
			}
			if reply.OutputTokens > 0 {
				usedTokens += reply.OutputTokens
			} else {
				usedTokens += chunker.EstimateTokens(reply.Content)
			}
		}

		r.update(j, types.ProgressPatch{
			ProcessedDocuments: types.Ptr(end),
			Percent:            types.Ptr(15 + 35*end/total),
			Message:            types.Ptr(fmt.Sprintf("summarized %d/%d documents", end, total)),
		})
	}

	r.log.Info("summarization finished",
		zap.String("folder", j.folder),
		zap.Int("documents", total),
		zap.Int("fallbacks", fallbacks),
		zap.Int("tokens", usedTokens))
	return out, nil
}

// embedAndPersist embeds the texts in batches and persists each batch
// immediately. The folder's previous rows are deleted here, at the embed
// boundary rather than at job start, so a job cancelled during
// summarization leaves the persisted index untouched.
func (r *Runner) embedAndPersist(ctx context.Context, folder *storage.Folder, j *job, model embedder.Embedder, docs []*types.Document, texts []string, summarized bool) error {
	if j.isCancelled() {
		return errCancelled
	}

	base := 15
	if summarized {
		base = 50
	}
	r.update(j, types.ProgressPatch{
		Phase:              types.Ptr(types.PhaseEmbedding),
		ProcessedDocuments: types.Ptr(0),
		Percent:            types.Ptr(base),
		Message:            types.Ptr("embedding documents"),
	})

	if err := r.store.DeleteEmbeddingsByStage(ctx, folder.ID, storage.StageInitial); err != nil {
		return fmt.Errorf("failed to clear previous embeddings: %w", err)
	}

	total := len(docs)
	var embedTokens int
	for start := 0; start < total; start += EmbedBatchSize {
		if j.isCancelled() {
			return errCancelled
		}
		end := start + EmbedBatchSize
		if end > total {
			end = total
		}

		resp, err := model.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts[start:end]})
		if err != nil {
			return fmt.Errorf("failed to embed batch: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), end-start)
		}

		// A batch in flight when the job was superseded must not clobber
		// the successor's rows
		if j.isCancelled() {
			return errCancelled
		}

		if resp.TotalTokens > 0 {
			embedTokens += resp.TotalTokens
		} else {
			for _, text := range texts[start:end] {
				embedTokens += chunker.EstimateTokens(text)
			}
		}

		rows := make([]*storage.Embedding, 0, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			doc := docs[start+i]
			rows = append(rows, &storage.Embedding{
				FolderID:  folder.ID,
				Kind:      doc.Kind,
				SourceID:  doc.SourceID,
				FilePath:  doc.FilePath,
				Vector:    storage.SerializeVector(emb.Vector),
				Dimension: emb.Dimension,
				Provider:  model.Provider(),
				Model:     model.Model(),
				Stage:     storage.StageInitial,
			})
		}
		if err := r.persistRows(ctx, rows); err != nil {
			return err
		}

		r.update(j, types.ProgressPatch{
			ProcessedDocuments: types.Ptr(end),
			Percent:            types.Ptr(base + (100-base)*end/total),
			Message:            types.Ptr(fmt.Sprintf("embedded %d/%d documents", end, total)),
		})
	}

	r.log.Info("embedding finished",
		zap.String("folder", folder.Name),
		zap.Int("documents", total),
		zap.Int("tokens", embedTokens),
		zap.String("provider", model.Provider()),
		zap.String("model", model.Model()))
	return nil
}

// persistRows writes rows in bounded sub-transactions to cap memory and
// per-transaction size.
func (r *Runner) persistRows(ctx context.Context, rows []*storage.Embedding) error {
	for start := 0; start < len(rows); start += persistBatchSize {
		end := start + persistBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		tx, err := r.store.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := tx.InsertEmbeddings(ctx, rows[start:end]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to persist embeddings: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit embeddings: %w", err)
		}
	}
	return nil
}

// update merges a progress patch unless the job has been cancelled; a
// cancelled job's progress stays frozen at its last boundary.
func (r *Runner) update(j *job, patch types.ProgressPatch) {
	if j.isCancelled() {
		return
	}
	r.progress.Update(j.folder, patch)
}

func (r *Runner) fail(j *job, msg string) {
	if j.isCancelled() {
		return
	}
	r.progress.Update(j.folder, types.ProgressPatch{
		Phase: types.Ptr(types.PhaseError),
		Error: types.Ptr(msg),
	})
}

// remove drops the job from the registry, comparing the stored pointer so
// a superseding job is never evicted by its predecessor's cleanup.
func (r *Runner) remove(j *job) {
	r.mu.Lock()
	if r.jobs[j.folder] == j {
		delete(r.jobs, j.folder)
	}
	r.mu.Unlock()
}
