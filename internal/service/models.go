package service

import (
	"context"
	"sync"

	"semdex/internal/chat"
	"semdex/internal/embedder"
	"semdex/internal/indexer"
	"semdex/internal/searcher"
)

// envModels resolves models from the environment, caching each one after
// its first successful construction. Failures are returned to the caller
// every time, so a corrected environment is picked up by the next job
// without restarting the server.
type envModels struct {
	summarize bool

	mu   sync.Mutex
	emb  embedder.Embedder
	chat chat.Client
}

var (
	_ indexer.ModelResolver = (*envModels)(nil)
	_ searcher.ModelSource  = (*envModels)(nil)
)

func newEnvModels(summarize bool) *envModels {
	return &envModels{summarize: summarize}
}

func (m *envModels) EmbeddingModel(ctx context.Context) (embedder.Embedder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emb == nil {
		emb, err := embedder.NewFromEnv()
		if err != nil {
			return nil, err
		}
		m.emb = emb
	}
	return m.emb, nil
}

func (m *envModels) ChatModel(ctx context.Context) (chat.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chat == nil {
		client, err := chat.NewFromEnv()
		if err != nil {
			return nil, err
		}
		m.chat = client
	}
	return m.chat, nil
}

func (m *envModels) SummarizeEnabled() bool {
	return m.summarize
}
