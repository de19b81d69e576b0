package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
)

// RJConfig is the control configuration for a reversible-jump sampler.
// Exactly one inclusion-prior encoding must be chosen: either Prior in (0,1),
// folded into the acceptance ratio as log prior odds, or Indicator naming a
// 0/1 node whose own density already carries the prior odds in the model
// graph. Setting both would double-count the prior, so it is rejected.
type RJConfig struct {
	// FixedValue is the excluded-state value of the target. Defaults to 0.
	FixedValue float64

	// Scale is the std-dev of the Normal(FixedValue, Scale) jump kernel.
	// Required, > 0, and invariant for the life of a run.
	Scale float64

	// Prior is the explicit prior inclusion probability. Zero means unset.
	Prior float64

	// Indicator names the 0/1 gating node for the indicator encoding.
	// Empty means unset.
	Indicator string
}

// ReversibleJump proposes toggling a target node between an excluded state
// (held at a fixed value) and an included state (a continuous free value),
// with a Metropolis-Hastings correction for the change in dimensionality:
// the jump kernel density of the forward or reverse move plus the prior odds
// of inclusion. The two states are distinguished purely by the target's
// value; the only mutable state here is the jump counters.
type ReversibleJump struct {
	gen *rand.Generator
	m   *model.Model

	target        model.NodeID
	targetName    string
	indicator     model.NodeID // -1 for the prior-odds encoding
	indicatorName string

	fixed        float64
	logPriorOdds float64       // 0 for the indicator encoding
	kernel       distuv.Normal // jump kernel Normal(fixed, scale)

	// Dependency sets, resolved at construction. calcNodesReduced is
	// calcNodes without the target itself: the excluded state omits the
	// target's own prior contribution.
	calcNodes        []model.NodeID
	calcNodesReduced []model.NodeID

	nProposed int64
	nJumps    int64
}

// NewReversibleJump creates a new trans-dimensional sampler for the named
// node. All names resolve to handles here; Run performs no lookups.
func NewReversibleJump(gen *rand.Generator, m *model.Model, target string, cfg RJConfig) (*ReversibleJump, error) {
	if gen == nil || m == nil {
		return nil, model.ConfigErrorf("A generator and model are required for a reversible jump sampler")
	}
	if cfg.Scale <= 0 {
		return nil, model.ConfigErrorf("Invalid jump scale %v for node %s", cfg.Scale, target)
	}

	hasPrior := cfg.Prior != 0
	hasIndicator := len(cfg.Indicator) > 0
	if hasPrior == hasIndicator {
		return nil, model.ConfigErrorf(
			"Node %s needs exactly one inclusion-prior encoding: Prior in (0,1) or an Indicator node",
			target,
		)
	}
	if hasPrior && (cfg.Prior <= 0 || cfg.Prior >= 1) {
		return nil, model.ConfigErrorf("Prior inclusion probability %v for node %s not in (0,1)", cfg.Prior, target)
	}

	id, err := m.Lookup(target)
	if err != nil {
		return nil, err
	}
	if !m.Node(id).Stochastic() {
		return nil, model.ConfigErrorf("Node %s is deterministic and can not be sampled", target)
	}

	s := &ReversibleJump{
		gen:        gen,
		m:          m,
		target:     id,
		targetName: target,
		indicator:  -1,
		fixed:      cfg.FixedValue,
		kernel:     distuv.Normal{Mu: cfg.FixedValue, Sigma: cfg.Scale, Src: gen},
	}

	roots := []model.NodeID{id}
	if hasIndicator {
		ind, err := m.Lookup(cfg.Indicator)
		if err != nil {
			return nil, err
		}
		if !m.Node(ind).Stochastic() {
			return nil, model.ConfigErrorf("Indicator node %s must be stochastic", cfg.Indicator)
		}
		s.indicator = ind
		s.indicatorName = cfg.Indicator
		roots = append(roots, ind)
	} else {
		p := cfg.Prior
		s.logPriorOdds = logOdds(p)
	}

	s.calcNodes = m.Dependencies(roots, true)
	s.calcNodesReduced = without(s.calcNodes, id)

	return s, nil
}

// proposeRemoval mutates the model to the excluded state and returns the
// log-acceptance ratio. v is the target's current (included) value.
func (s *ReversibleJump) proposeRemoval(v float64) (float64, error) {
	currentLP := s.m.LogProb(s.calcNodes)
	logRev := s.kernel.LogProb(v)

	s.m.Set(s.target, s.fixed)
	if s.indicator >= 0 {
		s.m.Set(s.indicator, 0)
	}
	if _, err := s.m.Calculate(s.calcNodes); err != nil {
		return 0, err
	}

	// The excluded state is scored without the target's own prior: that
	// dimension no longer exists.
	return s.m.LogProb(s.calcNodesReduced) - currentLP - s.logPriorOdds + logRev, nil
}

// proposeInclusion mutates the model to the included state at the drawn
// value and returns the log-acceptance ratio.
func (s *ReversibleJump) proposeInclusion(v float64) (float64, error) {
	currentLP := s.m.LogProb(s.calcNodesReduced)

	s.m.Set(s.target, v)
	if s.indicator >= 0 {
		s.m.Set(s.indicator, 1)
	}
	propLP, err := s.m.Calculate(s.calcNodes)
	if err != nil {
		return 0, err
	}

	return propLP - currentLP + s.logPriorOdds - s.kernel.LogProb(v), nil
}

// Run performs one jump proposal - implements Sampler.
func (s *ReversibleJump) Run() error {
	v := s.m.Get(s.target)

	var logAccept float64
	var err error
	if v != s.fixed {
		logAccept, err = s.proposeRemoval(v)
	} else {
		logAccept, err = s.proposeInclusion(s.kernel.Rand())
	}
	if err != nil {
		return errors.Wrapf(err, "Jump proposal for node %s failed", s.targetName)
	}

	acc, err := decide(s.gen, logAccept)
	if err != nil {
		return errors.Wrapf(err, "Jump acceptance for node %s failed", s.targetName)
	}

	s.nProposed++
	if acc {
		s.nJumps++
		s.m.Copy(model.Live, model.Saved, s.calcNodes, true)
	} else {
		s.m.Copy(model.Saved, model.Live, s.calcNodes, true)
	}

	return nil
}

// Reset clears the jump counters. There is no tuning state: the jump scale
// is invariant for the life of a run - implements Sampler.
func (s *ReversibleJump) Reset() {
	s.nProposed = 0
	s.nJumps = 0
}

// Targets - implements Sampler. The indicator node, when present, is part of
// the target set: this sampler is what updates it.
func (s *ReversibleJump) Targets() []string {
	if s.indicator >= 0 {
		return []string{s.targetName, s.indicatorName}
	}
	return []string{s.targetName}
}

// JumpRate returns accepted jumps/proposals since the last Reset.
func (s *ReversibleJump) JumpRate() float64 {
	if s.nProposed < 1 {
		return 0
	}
	return float64(s.nJumps) / float64(s.nProposed)
}

func logOdds(p float64) float64 {
	// p is validated to be in (0,1)
	return math.Log(p) - math.Log(1-p)
}

func without(ids []model.NodeID, drop model.NodeID) []model.NodeID {
	out := make([]model.NodeID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
