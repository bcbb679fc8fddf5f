// Package rng abstracts the random source behind an interface so that
// components whose control flow depends on sampling (scanner slippage,
// executor outcomes, market jitter) can be driven deterministically in tests.
package rng

import (
	"math/rand/v2"
	"sync"
)

// Source yields random samples. Implementations must be safe for use from
// a single goroutine; wrap with Locked for concurrent use.
type Source interface {
	// Float64 returns a sample in [0, 1).
	Float64() float64
	// Intn returns a sample in [0, n).
	Intn(n int) int
}

// New returns a PCG-backed source with a fixed seed.
func New(seed int64) Source {
	return &mathSource{rand: rand.New(rand.NewPCG(uint64(seed), uint64(seed)))}
}

type mathSource struct {
	rand *rand.Rand
}

func (s *mathSource) Float64() float64 {
	return s.rand.Float64()
}

func (s *mathSource) Intn(n int) int {
	return s.rand.IntN(n)
}

// Locked wraps a source with a mutex so concurrent callers (e.g. the two
// gateway legs) can share it.
func Locked(source Source) Source {
	return &lockedSource{inner: source}
}

type lockedSource struct {
	mu    sync.Mutex
	inner Source
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inner.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inner.Intn(n)
}

// Sequence is a deterministic source that replays a fixed list of float
// samples, cycling when exhausted. Intn scales the next float sample.
// Intended for tests that need to force a specific outcome.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence creates a Sequence from the given samples. Samples must be
// in [0, 1). An empty sequence always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}

	v := s.values[s.next%len(s.values)]
	s.next++

	return v
}

func (s *Sequence) Intn(n int) int {
	return int(s.Float64() * float64(n))
}
