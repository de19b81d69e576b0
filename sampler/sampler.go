package sampler

import (
	"math"

	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
)

// A Sampler updates its target node(s) in the owning model, one step per
// call. Implementations must leave the live and saved stores in agreement
// for every node they touch before Run returns.
type Sampler interface {
	// Run performs a single update step. The only errors it may surface are
	// numerical (NaN log-densities); accept and reject are normal outcomes.
	Run() error

	// Reset clears mutable tuning state (acceptance counters). It never
	// touches model state.
	Reset()

	// Targets returns the names of the node(s) this sampler updates. Used by
	// the registry to remove samplers by target.
	Targets() []string
}

// decideWith is the pure Metropolis-Hastings accept rule: accept iff
// log(u) < logAccept for u drawn Uniform(0,1).
func decideWith(logAccept float64, u float64) bool {
	if logAccept >= 0 {
		return true
	}
	return math.Log(u) < logAccept
}

// decide draws u and applies the accept rule. A NaN acceptance ratio means
// the log-probability bookkeeping upstream produced garbage and the run
// cannot continue.
func decide(gen *rand.Generator, logAccept float64) (bool, error) {
	if math.IsNaN(logAccept) {
		return false, model.NumericErrorf("NaN log-acceptance ratio")
	}
	return decideWith(logAccept, gen.Float64()), nil
}
