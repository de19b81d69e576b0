package sampler

import (
	"github.com/rjmcmc/rjmcmc/model"
)

// Monitors is one monitored-node group: an insertion-ordered name list plus
// a thinning interval. A configuration carries two independent groups so
// slow-moving nodes can be recorded on a coarser interval than the rest.
type Monitors struct {
	names []string
	thin  int
}

// NewMonitors creates an empty group recording every iteration.
func NewMonitors() *Monitors {
	return &Monitors{thin: 1}
}

// Add extends the monitored set. Order is preserved: it becomes the trace
// column order.
func (m *Monitors) Add(names ...string) error {
	for _, n := range names {
		for _, have := range m.names {
			if have == n {
				return model.ConfigErrorf("Node %s is already monitored", n)
			}
		}
		m.names = append(m.names, n)
	}
	return nil
}

// Reset replaces the monitored set with nothing. The thinning interval is
// untouched.
func (m *Monitors) Reset() {
	m.names = nil
}

// SetThin sets the thinning interval: record every thin-th iteration.
func (m *Monitors) SetThin(thin int) error {
	if thin < 1 {
		return model.ConfigErrorf("Invalid thinning interval %d", thin)
	}
	m.thin = thin
	return nil
}

// Thin returns the thinning interval.
func (m *Monitors) Thin() int {
	return m.thin
}

// Names returns a copy of the monitored names in insertion order.
func (m *Monitors) Names() []string {
	return append([]string{}, m.names...)
}

// Configuration is the sampler registry for one MCMC run: the ordered list
// of active samplers (order is execution order within an iteration) plus the
// two monitor groups. The registry never reorders or deduplicates: a node
// may legally have zero, one, or several samplers - the gated-random-walk
// plus reversible-jump pattern deliberately gives one node two.
type Configuration struct {
	samplers []Sampler

	Monitors  *Monitors
	Monitors2 *Monitors
}

// NewConfiguration creates an empty configuration.
func NewConfiguration() *Configuration {
	return &Configuration{
		Monitors:  NewMonitors(),
		Monitors2: NewMonitors(),
	}
}

// AddSampler appends a sampler; it will run after everything already added.
func (c *Configuration) AddSampler(s Sampler) error {
	if s == nil {
		return model.ConfigErrorf("Cannot add a nil sampler")
	}
	c.samplers = append(c.samplers, s)
	return nil
}

// RemoveSamplers removes every sampler whose target set intersects the given
// names, leaving all others in their original order. Returns the number
// removed; removing nothing is not an error.
func (c *Configuration) RemoveSamplers(names ...string) int {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	kept := c.samplers[:0]
	removed := 0
	for _, s := range c.samplers {
		hit := false
		for _, t := range s.Targets() {
			if drop[t] {
				hit = true
				break
			}
		}
		if hit {
			removed++
		} else {
			kept = append(kept, s)
		}
	}
	c.samplers = kept

	return removed
}

// Samplers returns the current ordered list for inspection.
func (c *Configuration) Samplers() []Sampler {
	return append([]Sampler{}, c.samplers...)
}
