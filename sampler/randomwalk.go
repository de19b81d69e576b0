package sampler

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
)

// RandomWalk is the within-model companion sampler: a symmetric
// Normal(v, scale) Metropolis-Hastings step on a single scalar node. The
// proposal scale is fixed for the life of a run; the only mutable state is
// the acceptance counters.
type RandomWalk struct {
	gen        *rand.Generator
	m          *model.Model
	target     model.NodeID
	targetName string
	kernel     distuv.Normal // zero-mean perturbation kernel
	calcNodes  []model.NodeID

	nProposed int64
	nAccepted int64
}

// NewRandomWalk creates a new sampler for the named node. The dependency set
// is resolved once, here; Run never looks anything up by name.
func NewRandomWalk(gen *rand.Generator, m *model.Model, target string, scale float64) (*RandomWalk, error) {
	if gen == nil || m == nil {
		return nil, model.ConfigErrorf("A generator and model are required for a random walk sampler")
	}
	if scale <= 0 {
		return nil, model.ConfigErrorf("Invalid proposal scale %v for node %s", scale, target)
	}

	id, err := m.Lookup(target)
	if err != nil {
		return nil, err
	}
	if !m.Node(id).Stochastic() {
		return nil, model.ConfigErrorf("Node %s is deterministic and can not be sampled", target)
	}

	s := &RandomWalk{
		gen:        gen,
		m:          m,
		target:     id,
		targetName: target,
		kernel:     distuv.Normal{Mu: 0, Sigma: scale, Src: gen},
		calcNodes:  m.Dependencies([]model.NodeID{id}, true),
	}

	return s, nil
}

// Run performs one Metropolis-Hastings step - implements Sampler.
func (s *RandomWalk) Run() error {
	currentLP := s.m.LogProb(s.calcNodes)

	v := s.m.Get(s.target)
	s.m.Set(s.target, v+s.kernel.Rand())

	propLP, err := s.m.Calculate(s.calcNodes)
	if err != nil {
		return errors.Wrapf(err, "Proposal for node %s failed", s.targetName)
	}

	acc, err := decide(s.gen, propLP-currentLP)
	if err != nil {
		return errors.Wrapf(err, "Acceptance for node %s failed", s.targetName)
	}

	s.nProposed++
	if acc {
		s.nAccepted++
		s.m.Copy(model.Live, model.Saved, s.calcNodes, true)
	} else {
		s.m.Copy(model.Saved, model.Live, s.calcNodes, true)
	}

	return nil
}

// Reset zeroes the acceptance counters - implements Sampler.
func (s *RandomWalk) Reset() {
	s.nProposed = 0
	s.nAccepted = 0
}

// Targets - implements Sampler.
func (s *RandomWalk) Targets() []string {
	return []string{s.targetName}
}

// AcceptanceRate returns accepted/proposed since the last Reset, or 0 before
// any proposal has been made.
func (s *RandomWalk) AcceptanceRate() float64 {
	if s.nProposed < 1 {
		return 0
	}
	return float64(s.nAccepted) / float64(s.nProposed)
}

// BlockRandomWalk jointly perturbs a fixed block of scalar nodes and accepts
// or rejects the block as a whole over the union of their dependency sets.
type BlockRandomWalk struct {
	gen         *rand.Generator
	m           *model.Model
	targets     []model.NodeID
	targetNames []string
	kernels     []distuv.Normal
	calcNodes   []model.NodeID

	nProposed int64
	nAccepted int64
}

// NewBlockRandomWalk creates a joint sampler over the named nodes. scales
// gives the per-node perturbation std-dev and must match targets in length.
func NewBlockRandomWalk(gen *rand.Generator, m *model.Model, targets []string, scales []float64) (*BlockRandomWalk, error) {
	if gen == nil || m == nil {
		return nil, model.ConfigErrorf("A generator and model are required for a block sampler")
	}
	if len(targets) < 1 {
		return nil, model.ConfigErrorf("A block sampler requires at least one target")
	}
	if len(scales) != len(targets) {
		return nil, model.ConfigErrorf("Block sampler has %d targets but %d scales", len(targets), len(scales))
	}

	ids := make([]model.NodeID, len(targets))
	kernels := make([]distuv.Normal, len(targets))
	for i, t := range targets {
		id, err := m.Lookup(t)
		if err != nil {
			return nil, err
		}
		if !m.Node(id).Stochastic() {
			return nil, model.ConfigErrorf("Node %s is deterministic and can not be sampled", t)
		}
		if scales[i] <= 0 {
			return nil, model.ConfigErrorf("Invalid proposal scale %v for node %s", scales[i], t)
		}
		ids[i] = id
		kernels[i] = distuv.Normal{Mu: 0, Sigma: scales[i], Src: gen}
	}

	s := &BlockRandomWalk{
		gen:         gen,
		m:           m,
		targets:     ids,
		targetNames: append([]string{}, targets...),
		kernels:     kernels,
		calcNodes:   m.Dependencies(ids, true),
	}

	return s, nil
}

// Run performs one joint Metropolis-Hastings step - implements Sampler.
func (s *BlockRandomWalk) Run() error {
	currentLP := s.m.LogProb(s.calcNodes)

	for i, id := range s.targets {
		s.m.Set(id, s.m.Get(id)+s.kernels[i].Rand())
	}

	propLP, err := s.m.Calculate(s.calcNodes)
	if err != nil {
		return errors.Wrapf(err, "Block proposal for nodes %v failed", s.targetNames)
	}

	acc, err := decide(s.gen, propLP-currentLP)
	if err != nil {
		return errors.Wrapf(err, "Block acceptance for nodes %v failed", s.targetNames)
	}

	s.nProposed++
	if acc {
		s.nAccepted++
		s.m.Copy(model.Live, model.Saved, s.calcNodes, true)
	} else {
		s.m.Copy(model.Saved, model.Live, s.calcNodes, true)
	}

	return nil
}

// Reset zeroes the acceptance counters - implements Sampler.
func (s *BlockRandomWalk) Reset() {
	s.nProposed = 0
	s.nAccepted = 0
}

// Targets - implements Sampler.
func (s *BlockRandomWalk) Targets() []string {
	return append([]string{}, s.targetNames...)
}

// AcceptanceRate returns accepted/proposed since the last Reset.
func (s *BlockRandomWalk) AcceptanceRate() float64 {
	if s.nProposed < 1 {
		return 0
	}
	return float64(s.nAccepted) / float64(s.nProposed)
}
