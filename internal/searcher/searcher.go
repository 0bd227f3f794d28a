package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"semdex/internal/embedder"
	"semdex/internal/storage"
	"semdex/pkg/types"
)

const (
	// DefaultLimit is used when a request does not specify a result count.
	DefaultLimit = 10
	// MaxLimit caps the result count for a single query.
	MaxLimit = 100

	defaultCacheSize = 1000
	defaultCacheTTL  = 1 * time.Hour

	maxLabelChars = 50
)

// ModelSource resolves the embedding model used for query vectors. Queries
// must be embedded by the same model that produced the stored rows or the
// similarity scores are meaningless.
type ModelSource interface {
	EmbeddingModel(ctx context.Context) (embedder.Embedder, error)
}

// Result is a single search hit with its source record resolved.
type Result struct {
	Kind     types.DocumentKind
	FilePath string
	Label    string // symbol name for AST nodes, content preview for chunks
	Content  string // node snippet or chunk text
	Score    float64

	// StartLine and EndLine are 1-based and set for AST node hits only.
	StartLine int
	EndLine   int

	// ChunkIndex is set for text chunk hits only.
	ChunkIndex int

	SourceID int64
}

// Response holds the ranked hits plus query metadata.
type Response struct {
	Results  []Result
	Scanned  int // embedding rows compared
	Provider string
	Model    string
	Duration time.Duration
	CacheHit bool
}

// cacheEntry wraps a cached response with its expiration time.
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher answers semantic queries against a folder's embedding rows.
// Similarity is computed in process: every stored vector is compared against
// the query vector, so cost is linear in the folder's document count.
type Searcher struct {
	store  storage.Storage
	models ModelSource
	log    *zap.Logger

	cacheMu  sync.RWMutex
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheTTL time.Duration
}

// New creates a Searcher with the default cache configuration.
func New(store storage.Storage, models ModelSource, log *zap.Logger) *Searcher {
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New[[32]byte, *cacheEntry](defaultCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(fmt.Sprintf("failed to create search cache: %v", err))
	}
	return &Searcher{
		store:    store,
		models:   models,
		log:      log,
		cache:    cache,
		cacheTTL: defaultCacheTTL,
	}
}

// Search embeds the query, ranks the folder's stored vectors by cosine
// similarity, and returns the top hits with their source records resolved.
// Rows whose dimension does not match the query vector are skipped.
func (s *Searcher) Search(ctx context.Context, folder *storage.Folder, query string, limit int) (*Response, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	limit = clampLimit(limit)

	key := queryKey(folder.Name, query, limit)
	if resp := s.fromCache(key); resp != nil {
		resp.CacheHit = true
		resp.Duration = time.Since(started)
		return resp, nil
	}

	model, err := s.models.EmbeddingModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding model unavailable: %w", err)
	}

	queryEmb, err := model.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.store.ListEmbeddings(ctx, folder.ID, storage.StageInitial)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	ranked := s.rank(queryEmb.Vector, rows)
	if limit > len(ranked) {
		limit = len(ranked)
	}

	results := make([]Result, 0, limit)
	for _, hit := range ranked[:limit] {
		res, err := s.resolve(ctx, hit)
		if err != nil {
			// The source row may have been replaced by a reindex since the
			// embedding was written. Skip rather than failing the query.
			s.log.Debug("skipping unresolvable search hit",
				zap.String("kind", string(hit.row.Kind)),
				zap.Int64("source_id", hit.row.SourceID),
				zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	resp := &Response{
		Results:  results,
		Scanned:  len(rows),
		Provider: model.Provider(),
		Model:    model.Model(),
		Duration: time.Since(started),
	}
	s.toCache(key, resp)
	return resp, nil
}

// InvalidateFolder drops cached responses after a folder's rows change.
// Cache keys are opaque hashes, so entries cannot be purged per folder;
// reindexing is rare enough that dropping everything is fine.
func (s *Searcher) InvalidateFolder(folder string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Purge()
	s.log.Debug("search cache purged", zap.String("folder", folder))
}

// CacheLen returns the number of cached responses.
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// scoredRow pairs an embedding row with its similarity to the query.
type scoredRow struct {
	row   *storage.Embedding
	score float64
}

// rank scores every row against the query vector and sorts descending.
// Rows that fail to decode or whose dimension differs from the query are
// dropped, since a stale provider switch can leave mixed-dimension rows
// behind until the next full reindex.
func (s *Searcher) rank(query []float32, rows []*storage.Embedding) []scoredRow {
	ranked := make([]scoredRow, 0, len(rows))
	for _, row := range rows {
		vec := storage.DeserializeVector(row.Vector)
		if len(vec) == 0 || len(vec) != len(query) {
			s.log.Debug("skipping embedding with mismatched dimension",
				zap.Int64("id", row.ID),
				zap.Int("dimension", row.Dimension),
				zap.Int("query_dimension", len(query)))
			continue
		}
		ranked = append(ranked, scoredRow{row: row, score: storage.CosineSimilarity(query, vec)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].row.ID < ranked[j].row.ID
	})
	return ranked
}

// resolve loads the snapshot record an embedding row points at.
func (s *Searcher) resolve(ctx context.Context, hit scoredRow) (Result, error) {
	switch hit.row.Kind {
	case types.DocumentASTNode:
		node, err := s.store.GetAstNode(ctx, hit.row.SourceID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to load ast node: %w", err)
		}
		label := node.Symbol
		if label == "" {
			label = node.NodeType
		}
		return Result{
			Kind:      hit.row.Kind,
			FilePath:  hit.row.FilePath,
			Label:     label,
			Content:   node.Snippet,
			Score:     hit.score,
			StartLine: node.StartLine + 1,
			EndLine:   node.EndLine + 1,
			SourceID:  hit.row.SourceID,
		}, nil
	case types.DocumentTextChunk:
		chunk, err := s.store.GetTextChunk(ctx, hit.row.SourceID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to load text chunk: %w", err)
		}
		return Result{
			Kind:       hit.row.Kind,
			FilePath:   hit.row.FilePath,
			Label:      previewLabel(chunk.Content),
			Content:    chunk.Content,
			Score:      hit.score,
			ChunkIndex: chunk.ChunkIndex,
			SourceID:   hit.row.SourceID,
		}, nil
	default:
		return Result{}, fmt.Errorf("unknown document kind %q", hit.row.Kind)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// queryKey derives the cache key for a query. Fields are length-prefixed so
// distinct (folder, query) pairs can never collide by concatenation.
func queryKey(folder, query string, limit int) [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d:%s|%d", len(folder), folder, len(query), query, limit)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (s *Searcher) fromCache(key [32]byte) *Response {
	s.cacheMu.RLock()
	entry, ok := s.cache.Get(key)
	s.cacheMu.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Searcher) toCache(key [32]byte, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(s.cacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// copyResponse clones a response so cached values cannot be mutated by
// callers and vice versa.
func copyResponse(resp *Response) *Response {
	out := *resp
	out.Results = make([]Result, len(resp.Results))
	copy(out.Results, resp.Results)
	return &out
}

// previewLabel condenses chunk content into a short single-line label.
func previewLabel(content string) string {
	fields := strings.FieldsFunc(content, unicode.IsSpace)
	label := strings.Join(fields, " ")
	runes := []rune(label)
	if len(runes) > maxLabelChars {
		label = string(runes[:maxLabelChars]) + "..."
	}
	return label
}
