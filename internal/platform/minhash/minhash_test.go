package minhash

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestHasher_Deterministic(t *testing.T) {
	h1 := NewHasher(128, 0)
	h2 := NewHasher(128, 0)

	toks := []string{"type:organization", "acme", "corporation"}
	assert.Equal(t, h1.Signature(toks), h2.Signature(toks))
	assert.Equal(t, 128, h1.Size())
}

func TestHasher_OrderAndDuplicatesIgnored(t *testing.T) {
	h := NewHasher(64, 0)

	a := h.Signature([]string{"a", "b", "c"})
	b := h.Signature([]string{"c", "a", "b", "a"})
	assert.Equal(t, a, b)
}

func TestSignature_JaccardEstimate(t *testing.T) {
	h := NewHasher(256, 0)

	// 60 shared tokens, 20 unique on each side: J = 60/100 = 0.6
	shared := tokens("s", 60)
	a := append(append([]string{}, shared...), tokens("a", 20)...)
	b := append(append([]string{}, shared...), tokens("b", 20)...)

	exact := ExactJaccard(a, b)
	require.InDelta(t, 0.6, exact, 1e-9)

	est := h.Signature(a).Jaccard(h.Signature(b))
	assert.InDelta(t, exact, est, 0.12, "estimate should be near the exact similarity")
}

func TestSignature_EmptyAndMismatched(t *testing.T) {
	h := NewHasher(32, 0)
	empty := h.Signature(nil)

	assert.True(t, empty.Empty())
	assert.Equal(t, 0.0, empty.Jaccard(empty))
	assert.Equal(t, 0.0, h.Signature([]string{"x"}).Jaccard(NewHasher(16, 0).Signature([]string{"x"})))
	assert.Equal(t, 1.0, h.Signature([]string{"x"}).Jaccard(h.Signature([]string{"x"})))
}

func TestOptimalParams(t *testing.T) {
	tests := []struct {
		k         int
		threshold float64
		bands     int
		rows      int
	}{
		{128, 0.5, 25, 5},
		{128, 0.8, 11, 11},
		{16, 0.5, 5, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("k%d_t%.1f", tt.k, tt.threshold), func(t *testing.T) {
			b, r := OptimalParams(tt.k, tt.threshold)
			assert.Equal(t, tt.bands, b, "bands")
			assert.Equal(t, tt.rows, r, "rows")
			assert.LessOrEqual(t, b*r, tt.k)

			mid := math.Pow(1/float64(b), 1/float64(r))
			assert.InDelta(t, tt.threshold, mid, 0.1)
		})
	}
}

func TestLSH_FindsSimilarAndIgnoresDissimilar(t *testing.T) {
	h := NewHasher(128, 0)
	idx, err := NewLSH(128, 0.5)
	require.NoError(t, err)

	shared := tokens("s", 40)
	near := append(append([]string{}, shared...), tokens("n", 5)...)
	far := tokens("z", 45)

	require.NoError(t, idx.Insert("base", h.Signature(shared)))
	require.NoError(t, idx.Insert("far", h.Signature(far)))

	got := idx.Query(h.Signature(near))
	assert.Contains(t, got, "base")
	assert.NotContains(t, got, "far")
	assert.Equal(t, 2, idx.Len())
}

func TestLSH_InsertErrors(t *testing.T) {
	idx, err := NewLSH(64, 0.5)
	require.NoError(t, err)
	h := NewHasher(64, 0)

	require.NoError(t, idx.Insert("a", h.Signature([]string{"x"})))
	assert.Error(t, idx.Insert("a", h.Signature([]string{"y"})), "duplicate id")
	assert.Error(t, idx.Insert("b", NewHasher(32, 0).Signature([]string{"x"})), "length mismatch")

	_, err = NewLSH(0, 0.5)
	assert.Error(t, err)
	_, err = NewLSH(64, 1.5)
	assert.Error(t, err)
}

func TestLSH_EmptySignatureNeverMatches(t *testing.T) {
	idx, err := NewLSH(64, 0.5)
	require.NoError(t, err)
	h := NewHasher(64, 0)

	require.NoError(t, idx.Insert("empty", h.Signature(nil)))
	assert.Empty(t, idx.Query(h.Signature(nil)))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"acme", "corp", "inc"}, Words("ACME Corp., Inc."))
	assert.Equal(t, []string{"www", "example", "com"}, Words("www.example.com/"))
	assert.Empty(t, Words("  --  "))
}
