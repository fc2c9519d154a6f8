// Package bloomfilter implements the fixed-size bit-array set-membership
// filter described in spec §4.3: a single non-cryptographic hash mixed with
// a small number of seeds, backed by github.com/bits-and-blooms/bitset — the
// exact "fixed-size bit array" primitive the spec calls for, promoted here
// from the teacher's indirect dependency closure to a direct one.
package bloomfilter

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// DefaultHashCount is the number of hash seeds mixed per token, matching
// typical false-positive rates for a share of a few hundred thousand names
// against a 2^20-bit vector.
const DefaultHashCount = 4

// Bloom is a fixed-size bit-array set-membership filter over lowercased
// tokens (file names, virtual root names, and n-grams thereof).
type Bloom struct {
	mu   sync.RWMutex
	bits *bitset.BitSet
	m    uint
	k    uint
}

// New creates a Bloom filter with m bits and k hash functions.
func New(m, k uint) *Bloom {
	if m == 0 {
		m = 1 << 20
	}
	if k == 0 {
		k = DefaultHashCount
	}
	return &Bloom{bits: bitset.New(m), m: m, k: k}
}

// Add inserts every 5-byte substring of the lowercased token into the
// filter; a token shorter than 5 bytes adds nothing.
func (b *Bloom) Add(token string) {
	if token == "" {
		return
	}
	token = strings.ToLower(token)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, idx := range b.positions(token) {
		b.bits.Set(idx)
	}
}

// Contains reports whether every 5-byte substring of token (or a false
// positive) is a member; a token shorter than 5 bytes is always a member.
func (b *Bloom) Contains(token string) bool {
	if token == "" {
		return true
	}
	token = strings.ToLower(token)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, idx := range b.positions(token) {
		if !b.bits.Test(idx) {
			return false
		}
	}
	return true
}

// ContainsAll reports whether every token is a member; used by the ADC
// search pre-filter, which discards the whole query on the first miss.
func (b *Bloom) ContainsAll(tokens []string) bool {
	for _, t := range tokens {
		if !b.Contains(t) {
			return false
		}
	}
	return true
}

// Clear resets the filter to empty, keeping its size, as done at the start
// of rebuildIndices during a full refresh (§4.2).
func (b *Bloom) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bits.ClearAll()
}

// positions returns the k bit positions of each 5-byte substring of token,
// or none for a shorter token.
func (b *Bloom) positions(token string) []uint {
	const ngram = 5
	var positions []uint
	for start := 0; start+ngram <= len(token); start++ {
		h1, h2 := fnv1aSplit(token[start : start+ngram])
		for i := uint(0); i < b.k; i++ {
			positions = append(positions, uint((h1+uint64(i)*h2)%uint64(b.m)))
		}
	}
	return positions
}

// fnv1aSplit derives two independent 64-bit hashes from a single FNV-1a pass
// (double hashing, Kirsch-Mitzenmacher), avoiding the need for k independent
// hash functions.
func fnv1aSplit(s string) (h1, h2 uint64) {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h1 = offset
	for i := 0; i < len(s); i++ {
		h1 ^= uint64(s[i])
		h1 *= prime
	}
	h2 = offset ^ 0x9e3779b97f4a7c15
	for i := len(s) - 1; i >= 0; i-- {
		h2 ^= uint64(s[i])
		h2 *= prime
	}
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// GetBloom rebuilds tokens into a caller-provided bit vector using k hashes
// over m bits with seed-derivation parameter h, matching the ADC SBIG
// command's exported hashing contract (§4.3).
func GetBloom(tokens []string, m, k, h uint) *bitset.BitSet {
	bits := bitset.New(m)
	seed := uint64(h)
	for _, token := range tokens {
		token = strings.ToLower(token)
		h1, h2 := fnv1aSplit(token)
		h1 ^= seed
		for i := uint(0); i < k; i++ {
			idx := uint((h1 + uint64(i)*h2) % uint64(m))
			bits.Set(idx)
		}
	}
	return bits
}
