package rand

import (
	"github.com/seehuhn/mt19937"
	exprand "golang.org/x/exp/rand"
)

// A Generator uses a goroutine to populate batches of random numbers from a
// seeded Mersenne twister. It also implements golang.org/x/exp/rand.Source so
// that gonum distributions can draw from it directly, which keeps every
// random decision in a chain on a single reproducible stream.
type Generator struct {
	ch chan uint64
}

var _ exprand.Source = (*Generator)(nil)

// NewGenerator starts a new background PRNG based on the given seed
func NewGenerator(seed int64) (*Generator, error) {
	numChan := make(chan uint64, 1024)

	go func() {
		r := mt19937.New()
		r.Seed(seed)
		for {
			numChan <- r.Uint64()
		}
	}()

	g := &Generator{
		ch: numChan,
	}

	return g, nil
}

// Uint64 returns the next raw value from the twister.
func (g *Generator) Uint64() uint64 {
	return <-g.ch
}

// Seed is required by exp/rand.Source. A Generator is seeded exactly once, at
// construction, and never re-seeded mid-stream.
func (g *Generator) Seed(seed uint64) {
	panic("A Generator may only be seeded at construction")
}

// Int63 provides the same interface as Go's math/rand, but with pre-generation.
func (g *Generator) Int63() int64 {
	return int64(g.Uint64() >> 1)
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// Int31 is just a copy of the golang impl
func (g *Generator) Int31() int32 {
	return int32(g.Int63() >> 32)
}

// Int31n is just a copy of the golang impL
func (g *Generator) Int31n(n int32) int32 {
	if n <= 0 {
		panic("invalid argument to Int31n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int31() & (n - 1)
	}

	max := int32((1 << 31) - 1 - (1<<31)%uint32(n))
	v := g.Int31()

	for v > max {
		v = g.Int31()
	}

	return v % n
}

// Float64 uses the commented, simpler implmentation since we don't have the
// same support requirements for users
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63n(1<<53)) / (1 << 53)
}
