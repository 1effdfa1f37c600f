// Package random is the injectable random-number seam used by the offer and
// seat-map generators and the booking-code generator.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is satisfied by *math/rand/v2.Rand.
type Source interface {
	// IntN returns a value in [0, n). Panics if n <= 0.
	IntN(n int) int
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// lockedSource makes a single PCG stream safe to share between sessions.
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a PCG-backed source. A zero seed seeds from the wall clock.
func New(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Scripted replays fixed values, cycling when exhausted. IntN results are
// reduced modulo n so any script stays in range.
type Scripted struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	i, f   int
}

func NewScripted(ints []int, floats []float64) *Scripted {
	return &Scripted{ints: ints, floats: floats}
}

func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.i%len(s.ints)]
	s.i++
	if v < 0 {
		v = -v
	}
	return v % n
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.f%len(s.floats)]
	s.f++
	return v
}
