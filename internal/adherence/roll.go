// Package adherence implements the probabilistic trust gate that decides
// whether a character obeys a coach's decision.
package adherence

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// RollSource produces uniform rolls in [1, 100]. Callers substitute a
// seeded source in tests.
type RollSource interface {
	Roll() int
}

// CryptoSource draws rolls from crypto/rand. The zero value is usable.
type CryptoSource struct{}

// Roll returns a uniform integer in [1, 100].
func (CryptoSource) Roll() int {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand read failures are effectively unreachable.
		return 50
	}
	n := binary.LittleEndian.Uint64(buf[:])
	return int(n%100) + 1
}

// SeededSource is a deterministic roll source for tests.
type SeededSource struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeededSource creates a deterministic source from a seed.
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{rng: mathrand.New(mathrand.NewSource(seed))}
}

// Roll returns a uniform integer in [1, 100].
func (s *SeededSource) Roll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(100) + 1
}

// FixedSource always returns the same roll. Useful for forcing a specific
// pass/fail outcome in tests.
type FixedSource int

// Roll returns the fixed value.
func (f FixedSource) Roll() int { return int(f) }
