package sampler

import (
	"github.com/rjmcmc/rjmcmc/model"
)

// Conditional wraps an inner sampler and only invokes it while a gating
// condition on the model holds. When the gate is closed, Run is a strict
// no-op: no value, no saved state, and no cached log-density changes. This
// is what makes the gated-random-walk-plus-reversible-jump pattern correct:
// an excluded coefficient must stay bit-identical at its fixed value.
//
// Two gate forms exist, exactly one per instance: a separate indicator node
// expected to hold 1 (open) or 0 (closed), or a comparison of the target's
// own value against a fixed exclusion value (open when they differ).
type Conditional struct {
	m     *model.Model
	inner Sampler

	gate      model.NodeID // indicator form
	valueGate bool         // fixed-value comparison form
	target    model.NodeID
	fixed     float64
}

// NewConditionalIndicator gates the inner sampler on the named indicator
// node holding value 1.
func NewConditionalIndicator(m *model.Model, indicator string, inner Sampler) (*Conditional, error) {
	if m == nil || inner == nil {
		return nil, model.ConfigErrorf("A model and inner sampler are required for a conditional sampler")
	}

	id, err := m.Lookup(indicator)
	if err != nil {
		return nil, err
	}

	return &Conditional{
		m:     m,
		inner: inner,
		gate:  id,
	}, nil
}

// NewConditionalValue gates the inner sampler on the named node's own value
// differing from fixedValue (the "included" state of a reversible-jump
// target).
func NewConditionalValue(m *model.Model, target string, fixedValue float64, inner Sampler) (*Conditional, error) {
	if m == nil || inner == nil {
		return nil, model.ConfigErrorf("A model and inner sampler are required for a conditional sampler")
	}

	id, err := m.Lookup(target)
	if err != nil {
		return nil, err
	}

	return &Conditional{
		m:         m,
		inner:     inner,
		valueGate: true,
		target:    id,
		fixed:     fixedValue,
	}, nil
}

func (s *Conditional) open() bool {
	if s.valueGate {
		return s.m.Get(s.target) != s.fixed
	}
	return s.m.Get(s.gate) == 1
}

// Run delegates to the inner sampler only while the gate is open -
// implements Sampler.
func (s *Conditional) Run() error {
	if !s.open() {
		return nil
	}
	return s.inner.Run()
}

// Reset delegates unconditionally: tuning state clears regardless of the
// gate - implements Sampler.
func (s *Conditional) Reset() {
	s.inner.Reset()
}

// Targets - implements Sampler.
func (s *Conditional) Targets() []string {
	return s.inner.Targets()
}
