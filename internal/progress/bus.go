package progress

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"semdex/pkg/types"
)

// Subscriber receives the full merged state after every change.
type Subscriber func(state types.TaskProgress)

// Bus holds one progress record per folder and broadcasts full-state
// snapshots to subscribers. Updates merge a partial patch into the stored
// record; subscribers always see the complete result, never a diff.
type Bus struct {
	mu     sync.RWMutex
	states map[string]*types.TaskProgress
	subs   map[int]Subscriber
	nextID int
	log    *zap.Logger
}

// NewBus creates an empty progress bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		states: make(map[string]*types.TaskProgress),
		subs:   make(map[int]Subscriber),
		log:    log,
	}
}

// Begin installs a fresh scheduled record for the folder, replacing any
// previous one, and emits it.
func (b *Bus) Begin(folder, jobID string) types.TaskProgress {
	now := time.Now()
	state := &types.TaskProgress{
		Folder:    folder,
		JobID:     jobID,
		Phase:     types.PhaseScheduled,
		Percent:   5,
		StartedAt: now,
		UpdatedAt: now,
	}

	b.mu.Lock()
	b.states[folder] = state
	snapshot := *state
	subs := b.subscribers()
	b.mu.Unlock()

	b.emit(snapshot, subs)
	return snapshot
}

// Update merges the patch into the folder's record and synchronously emits
// the full merged state. Returns false when the folder has no record, which
// happens after Clear; the patch is dropped in that case.
func (b *Bus) Update(folder string, patch types.ProgressPatch) (types.TaskProgress, bool) {
	b.mu.Lock()
	state, ok := b.states[folder]
	if !ok {
		b.mu.Unlock()
		return types.TaskProgress{}, false
	}
	state.Apply(patch)
	state.UpdatedAt = time.Now()
	snapshot := *state
	subs := b.subscribers()
	b.mu.Unlock()

	b.emit(snapshot, subs)
	return snapshot, true
}

// Get returns a copy of the folder's current record.
func (b *Bus) Get(folder string) (types.TaskProgress, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state, ok := b.states[folder]
	if !ok {
		return types.TaskProgress{}, false
	}
	return *state, true
}

// List returns copies of all records, ordered by folder name.
func (b *Bus) List() []types.TaskProgress {
	b.mu.RLock()
	out := make([]types.TaskProgress, 0, len(b.states))
	for _, state := range b.states {
		out = append(out, *state)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out
}

// Clear removes the folder's record. Used when a job is cancelled or its
// result dismissed; no state is emitted.
func (b *Bus) Clear(folder string) {
	b.mu.Lock()
	delete(b.states, folder)
	b.mu.Unlock()
}

// Subscribe registers a callback for every emitted state. The returned
// function removes the subscription.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// subscribers snapshots the callback list. Caller must hold the lock.
func (b *Bus) subscribers() []Subscriber {
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	return subs
}

// emit invokes the callbacks outside the lock so a subscriber may call
// back into the bus. A panicking subscriber is logged and skipped.
func (b *Bus) emit(state types.TaskProgress, subs []Subscriber) {
	for _, fn := range subs {
		b.invoke(fn, state)
	}
}

func (b *Bus) invoke(fn Subscriber, state types.TaskProgress) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("progress subscriber panicked",
				zap.String("folder", state.Folder),
				zap.Any("panic", r))
		}
	}()
	fn(state)
}
