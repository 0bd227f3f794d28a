package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		vector []float32
	}{
		{
			name:   "empty",
			vector: []float32{},
		},
		{
			name:   "single value",
			vector: []float32{3.14},
		},
		{
			name:   "mixed signs",
			vector: []float32{-1.5, 0, 2.25, -0.001},
		},
		{
			name: "typical embedding",
			vector: func() []float32 {
				v := make([]float32, 768)
				for i := range v {
					v[i] = float32(i) * 0.001
				}
				return v
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blob := SerializeVector(tc.vector)
			require.Len(t, blob, len(tc.vector)*4)

			restored := DeserializeVector(blob)
			assert.Equal(t, tc.vector, restored)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 2},
			b:        []float32{-1, -2},
			expected: -1.0,
		},
		{
			name:     "zero norm",
			a:        []float32{0, 0},
			b:        []float32{1, 2},
			expected: 0.0,
		},
		{
			name:     "dimension mismatch",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2},
			expected: 0.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			assert.InDelta(t, tc.expected, got, 1e-6)
		})
	}
}

func TestCosineSimilarity_Scaled(t *testing.T) {
	// Cosine similarity is scale invariant
	a := []float32{0.5, 1.0, 1.5}
	b := []float32{1.0, 2.0, 3.0}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}
