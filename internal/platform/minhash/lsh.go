package minhash

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// LSH is a banded locality-sensitive index over MinHash signatures. Two
// signatures become candidates when all rows of at least one band agree.
type LSH struct {
	mu        sync.RWMutex
	bands     int
	rows      int
	size      int
	threshold float64
	buckets   []map[uint64][]string
	sigs      map[string]Signature
}

// OptimalParams picks the band/row split of k permutations whose
// S-curve midpoint (1/b)^(1/r) lies closest to threshold.
func OptimalParams(k int, threshold float64) (bands, rows int) {
	bestDiff := math.Inf(1)
	for r := 1; r <= k; r++ {
		b := k / r
		if b < 1 {
			break
		}
		t := math.Pow(1/float64(b), 1/float64(r))
		diff := math.Abs(t - threshold)
		if diff < bestDiff {
			bestDiff = diff
			bands, rows = b, r
		}
	}
	return bands, rows
}

// NewLSH creates an index for signatures of length k tuned for threshold.
func NewLSH(k int, threshold float64) (*LSH, error) {
	if k <= 0 {
		return nil, fmt.Errorf("signature size must be positive, got %d", k)
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in (0,1), got %.2f", threshold)
	}

	bands, rows := OptimalParams(k, threshold)
	buckets := make([]map[uint64][]string, bands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}

	return &LSH{
		bands:     bands,
		rows:      rows,
		size:      k,
		threshold: threshold,
		buckets:   buckets,
		sigs:      make(map[string]Signature),
	}, nil
}

// Bands returns the band count.
func (l *LSH) Bands() int { return l.bands }

// Rows returns the rows per band.
func (l *LSH) Rows() int { return l.rows }

// Threshold returns the configured similarity threshold.
func (l *LSH) Threshold() float64 { return l.threshold }

// Len returns the number of indexed signatures.
func (l *LSH) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sigs)
}

// Insert adds sig under id. Re-inserting an id is an error.
func (l *LSH) Insert(id string, sig Signature) error {
	if len(sig) != l.size {
		return fmt.Errorf("signature length %d does not match index size %d", len(sig), l.size)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.sigs[id]; exists {
		return fmt.Errorf("id %q already indexed", id)
	}
	l.sigs[id] = sig
	if sig.Empty() {
		return nil
	}
	for b := 0; b < l.bands; b++ {
		key := l.bandKey(sig, b)
		l.buckets[b][key] = append(l.buckets[b][key], id)
	}
	return nil
}

// Query returns the sorted ids sharing at least one band bucket with sig.
func (l *LSH) Query(sig Signature) []string {
	if len(sig) != l.size || sig.Empty() {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	for b := 0; b < l.bands; b++ {
		for _, id := range l.buckets[b][l.bandKey(sig, b)] {
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Signature returns the signature stored under id.
func (l *LSH) Signature(id string) (Signature, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sig, ok := l.sigs[id]
	return sig, ok
}

func (l *LSH) bandKey(sig Signature, band int) uint64 {
	var buf [8]byte
	d := xxhash.New()
	start := band * l.rows
	for _, v := range sig[start : start+l.rows] {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
