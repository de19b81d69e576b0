package sampler

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/rjmcmc/rjmcmc/buffer"
	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
)

// Measure is a distance between two sample histograms, used by the
// convergence diagnostic.
type Measure func(h1 *model.Histogram, h2 *model.Histogram) float64

// Chain owns one model instance, one random stream, and one configuration,
// and drives them: every iteration runs each configured sampler once in
// registry order, then appends monitored node values to the output traces at
// each group's thinning interval. A chain is strictly single-threaded;
// independent chains (own model clone, own generator) may run in parallel.
type Chain struct {
	Target *model.Model
	Conf   *Configuration
	Gen    *rand.Generator

	// ConvergenceWindow is the size of the per-monitor history window used
	// by the split-window diagnostic. Zero disables history tracking.
	ConvergenceWindow int
	History           []*buffer.CircularFloat

	TotalIterations int64

	monIDs  []model.NodeID
	monIDs2 []model.NodeID
	rowBuf  []float64
}

// NewChain validates the model and monitors, computes the initial state
// (full calculate plus live-to-saved sync, so every sampler starts from
// agreeing stores), and runs burn-in. Burned-in iterations are never
// recorded.
func NewChain(mod *model.Model, conf *Configuration, gen *rand.Generator, cw int, burnIn int) (*Chain, error) {
	if mod == nil || conf == nil || gen == nil {
		return nil, model.ConfigErrorf("A model, configuration, and generator are required for a chain")
	}
	if err := mod.Check(); err != nil {
		return nil, err
	}

	c := &Chain{
		Target:            mod,
		Conf:              conf,
		Gen:               gen,
		ConvergenceWindow: cw,
	}

	var err error
	c.monIDs, err = resolveMonitors(mod, conf.Monitors)
	if err != nil {
		return nil, err
	}
	c.monIDs2, err = resolveMonitors(mod, conf.Monitors2)
	if err != nil {
		return nil, err
	}

	c.rowBuf = make([]float64, maxInt(len(c.monIDs), len(c.monIDs2)))

	if cw > 0 {
		c.History = make([]*buffer.CircularFloat, len(c.monIDs))
		for i := range c.History {
			c.History[i] = buffer.NewCircularFloat(cw)
		}
	}

	if _, err := mod.CalculateAll(); err != nil {
		return nil, errors.Wrap(err, "Initial model state is invalid")
	}
	mod.Copy(model.Live, model.Saved, mod.AllNodes(), true)

	samplers := conf.Samplers()
	for i := 0; i < burnIn; i++ {
		if err := c.oneIteration(samplers); err != nil {
			return nil, errors.Wrapf(err, "Failure during chain burn in (iteration %d)", i+1)
		}
	}

	return c, nil
}

func resolveMonitors(mod *model.Model, mons *Monitors) ([]model.NodeID, error) {
	names := mons.Names()
	ids := make([]model.NodeID, len(names))
	for i, n := range names {
		id, err := mod.Lookup(n)
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot monitor node %s", n)
		}
		ids[i] = id
	}
	return ids, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// oneIteration runs every sampler once, in registry order.
func (c *Chain) oneIteration(samplers []Sampler) error {
	for _, s := range samplers {
		if err := s.Run(); err != nil {
			return errors.Wrapf(err, "Sampler for %v failed", s.Targets())
		}
	}
	c.TotalIterations++
	return nil
}

func (c *Chain) record(tr *buffer.Trace, ids []model.NodeID) error {
	row := c.rowBuf[:len(ids)]
	for i, id := range ids {
		row[i] = c.Target.Get(id)
	}
	return tr.Record(row)
}

// Run executes iters iterations and returns one trace per monitor group (nil
// for an empty group). Any sampler error aborts the run with the iteration
// index and sampler target in the error; the partial traces are discarded -
// there is no partial-result contract. Cancellation via ctx is honored only
// at iteration boundaries and also discards the traces.
func (c *Chain) Run(ctx context.Context, iters int) (*buffer.Trace, *buffer.Trace, error) {
	if iters < 1 {
		return nil, nil, model.ConfigErrorf("Invalid iteration count %d", iters)
	}

	var tr, tr2 *buffer.Trace
	var err error
	if len(c.monIDs) > 0 {
		tr, err = buffer.NewTrace(c.Conf.Monitors.Names())
		if err != nil {
			return nil, nil, err
		}
	}
	if len(c.monIDs2) > 0 {
		tr2, err = buffer.NewTrace(c.Conf.Monitors2.Names())
		if err != nil {
			return nil, nil, err
		}
	}

	thin := c.Conf.Monitors.Thin()
	thin2 := c.Conf.Monitors2.Thin()
	samplers := c.Conf.Samplers()

	for i := 1; i <= iters; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrapf(err, "Chain stopped at iteration %d", i)
		}

		if err := c.oneIteration(samplers); err != nil {
			return nil, nil, errors.Wrapf(err, "Iteration %d", i)
		}

		if tr != nil && i%thin == 0 {
			if err := c.record(tr, c.monIDs); err != nil {
				return nil, nil, err
			}
			if c.History != nil {
				for hi, id := range c.monIDs {
					c.History[hi].Add(c.Target.Get(id))
				}
			}
		}
		if tr2 != nil && i%thin2 == 0 {
			if err := c.record(tr2, c.monIDs2); err != nil {
				return nil, nil, err
			}
		}
	}

	return tr, tr2, nil
}

// Convergence applies the given distance measure between histograms of the
// first and second halves of every monitor's history window. It only has an
// answer once every window has filled; before that it returns an error. A
// well-mixed chain shows small distances.
func (c *Chain) Convergence(d Measure, lo float64, hi float64, bins int) ([]float64, error) {
	if c.History == nil {
		return nil, model.ConfigErrorf("Chain has no convergence window configured")
	}
	if d == nil {
		d = model.HellingerDiff
	}

	out := make([]float64, len(c.History))
	for i, w := range c.History {
		first := w.FirstHalf()
		second := w.SecondHalf()
		if first == nil || second == nil {
			return nil, errors.Errorf("Convergence window not yet full (%d of %d)", w.Count, w.BufSize)
		}

		h1, err := model.NewHistogram(lo, hi, bins)
		if err != nil {
			return nil, err
		}
		h2, err := model.NewHistogram(lo, hi, bins)
		if err != nil {
			return nil, err
		}

		for first.Next() {
			h1.Observe(first.Value())
		}
		for second.Next() {
			h2.Observe(second.Value())
		}

		out[i] = d(h1, h2)
	}

	return out, nil
}

// Result is the outcome of one chain from RunChains.
type Result struct {
	Trace  *buffer.Trace
	Trace2 *buffer.Trace
	Err    error
}

// RunChains advances every chain for iters iterations on its own goroutine.
// Chains must not share a model instance or a generator; under that
// contract, there is no synchronization beyond result collection.
func RunChains(ctx context.Context, chains []*Chain, iters int) []Result {
	results := make([]Result, len(chains))

	var wg sync.WaitGroup
	for i, ch := range chains {
		wg.Add(1)
		go func(i int, ch *Chain) {
			defer wg.Done()
			tr, tr2, err := ch.Run(ctx, iters)
			results[i] = Result{Trace: tr, Trace2: tr2, Err: err}
		}(i, ch)
	}
	wg.Wait()

	return results
}

// MergeTraces pools same-shape traces from independent chains into a single
// trace suitable for marginal estimates.
func MergeTraces(traces []*buffer.Trace) (*buffer.Trace, error) {
	if len(traces) < 1 {
		return nil, errors.Errorf("Can not merge 0 traces")
	}

	merged, err := buffer.NewTrace(traces[0].Columns())
	if err != nil {
		return nil, err
	}

	for _, t := range traces {
		if err := merged.Append(t); err != nil {
			return nil, errors.Wrap(err, "Cannot merge chain traces")
		}
	}

	return merged, nil
}
