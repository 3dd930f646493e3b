// Package minhash implements MinHash signatures and a banded LSH index for
// estimating Jaccard similarity between token sets.
package minhash

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultPermutations is the signature length used when none is configured.
const DefaultPermutations = 128

// defaultSeed keeps signatures stable across processes.
const defaultSeed uint64 = 0x5f3759df9e3779b9

// Signature is a fixed-size MinHash sketch.
type Signature []uint64

// Hasher turns token sets into signatures. A Hasher is immutable and safe
// for concurrent use.
type Hasher struct {
	seeds []uint64
}

// NewHasher builds a hasher with k permutations derived from seed.
// A seed of 0 selects the package default.
func NewHasher(k int, seed uint64) *Hasher {
	if k <= 0 {
		k = DefaultPermutations
	}
	if seed == 0 {
		seed = defaultSeed
	}

	seeds := make([]uint64, k)
	state := seed
	for i := range seeds {
		state, seeds[i] = splitmix64(state)
	}
	return &Hasher{seeds: seeds}
}

// Size returns the number of permutations.
func (h *Hasher) Size() int {
	return len(h.seeds)
}

// Signature computes the MinHash sketch of tokens. Duplicate tokens do not
// change the result. An empty token set yields a signature of MaxUint64.
func (h *Hasher) Signature(tokens []string) Signature {
	sig := make(Signature, len(h.seeds))
	for i := range sig {
		sig[i] = math.MaxUint64
	}

	for _, tok := range tokens {
		base := xxhash.Sum64String(tok)
		for i, s := range h.seeds {
			v := mix64(base ^ s)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// Empty reports whether the signature was built from no tokens.
func (s Signature) Empty() bool {
	for _, v := range s {
		if v != math.MaxUint64 {
			return false
		}
	}
	return true
}

// Jaccard estimates the Jaccard similarity of the two underlying sets as
// the fraction of agreeing slots. Signatures of different length, or empty
// ones, have similarity 0.
func (s Signature) Jaccard(other Signature) float64 {
	if len(s) == 0 || len(s) != len(other) || s.Empty() || other.Empty() {
		return 0
	}
	equal := 0
	for i := range s {
		if s[i] == other[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(s))
}

// ExactJaccard computes |a∩b| / |a∪b| over two token sets. It is used to
// check estimates in tests and for small candidate lists.
func ExactJaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// Words splits s into lowercase alphanumeric tokens.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitmix64 advances state and returns the next pseudo-random value.
func splitmix64(state uint64) (uint64, uint64) {
	state += 0x9e3779b97f4a7c15
	return state, mix64(state)
}

// mix64 is the splitmix64 finalizer, a bijection on uint64.
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
