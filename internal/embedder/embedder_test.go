package embedder

import (
	"errors"
	"testing"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		equal bool
	}{
		{
			name:  "empty string",
			text:  "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			equal: true,
		},
		{
			name:  "simple text",
			text:  "hello world",
			want:  "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
			equal: true,
		},
		{
			name:  "same text produces same hash",
			text:  "test",
			want:  "test",
			equal: false, // Will compute and compare
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeHash(tt.text)
			if tt.equal {
				if got != tt.want {
					t.Errorf("ComputeHash() = %v, want %v", got, tt.want)
				}
			} else {
				got2 := ComputeHash(tt.text)
				if got != got2 {
					t.Errorf("ComputeHash() not consistent: %v != %v", got, got2)
				}
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     EmbeddingRequest
		wantErr error
	}{
		{
			name:    "valid request",
			req:     EmbeddingRequest{Text: "some text"},
			wantErr: nil,
		},
		{
			name:    "empty text",
			req:     EmbeddingRequest{Text: ""},
			wantErr: ErrEmptyText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     BatchEmbeddingRequest
		wantErr error
	}{
		{
			name:    "valid batch",
			req:     BatchEmbeddingRequest{Texts: []string{"one", "two"}},
			wantErr: nil,
		},
		{
			name:    "no texts",
			req:     BatchEmbeddingRequest{},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty text in batch",
			req:     BatchEmbeddingRequest{Texts: []string{"one", ""}},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateBatchRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCache(t *testing.T) {
	cache := NewCache(2)

	emb := &Embedding{
		Vector:    []float32{1, 2, 3},
		Dimension: 3,
		Provider:  ProviderLocal,
		Model:     "test",
		Hash:      "h1",
	}
	cache.Set("h1", emb)

	got, ok := cache.Get("h1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Dimension != 3 || got.Model != "test" {
		t.Errorf("cached embedding mangled: %+v", got)
	}

	// Mutating the returned vector must not touch the cached copy
	got.Vector[0] = 99
	again, _ := cache.Get("h1")
	if again.Vector[0] != 1 {
		t.Errorf("cache returned shared vector, got %v", again.Vector[0])
	}

	// LRU eviction at capacity
	cache.Set("h2", emb)
	cache.Set("h3", emb)
	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", cache.Size())
	}
}

func TestCache_Miss(t *testing.T) {
	cache := NewCache(10)
	if _, ok := cache.Get("missing"); ok {
		t.Error("expected cache miss")
	}
}
