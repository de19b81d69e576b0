package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rjmcmc/rjmcmc/buffer"
	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
	"github.com/rjmcmc/rjmcmc/sampler"
)

var spikeSlabCmd = &cobra.Command{
	Use:   "spikeslab",
	Short: "Run the spike-and-slab regression demo",
	Long: `spikeslab runs a single-coefficient linear model where the
coefficient is toggled in and out of the model by a reversible-jump sampler
and updated by a gated random walk while included. The empirical inclusion
probability and the conditional-on-included posterior are both checked
against their closed forms.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := newStartupParams()
		if err != nil {
			return err
		}
		return SpikeSlabRun(sp)
	},
}

// Histogram range and resolution for scoring the coefficient posterior.
const (
	histLo   = -3.0
	histHi   = 3.0
	histBins = 60
)

// spikeSlabData is the synthetic regression problem: a fixed covariate grid
// and responses drawn once from y = betaTrue*x + N(0,1).
func spikeSlabData(gen *rand.Generator, n int, betaTrue float64) ([]float64, []float64) {
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: gen}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = -1.0 + 2.0*float64(i)/float64(n-1)
		ys[i] = betaTrue*xs[i] + noise.Rand()
	}

	return xs, ys
}

// spikeSlabModel builds the node graph: beta ~ N(0,1) (the slab), an
// optional Bernoulli inclusion indicator, one deterministic mean node per
// observation, and the observed responses as unsampled stochastic nodes.
func spikeSlabModel(xs []float64, ys []float64, prior float64, indicator bool) (*model.Model, error) {
	mod := model.NewModel("spikeslab")

	slab := distuv.Normal{Mu: 0, Sigma: 1}
	if _, err := mod.AddStochastic("beta", nil, func(v float64, _ []float64) float64 {
		return slab.LogProb(v)
	}, 0); err != nil {
		return nil, err
	}

	muParents := []string{"beta"}
	if indicator {
		bern := distuv.Bernoulli{P: prior}
		if _, err := mod.AddStochastic("z", nil, func(v float64, _ []float64) float64 {
			return bern.LogProb(v)
		}, 0); err != nil {
			return nil, err
		}
		muParents = []string{"beta", "z"}
	}

	like := distuv.Normal{Mu: 0, Sigma: 1}
	for i := range xs {
		x := xs[i]
		muName := fmt.Sprintf("mu[%d]", i)

		var fn model.DetermineFunc
		if indicator {
			fn = func(p []float64) float64 { return p[0] * p[1] * x }
		} else {
			fn = func(p []float64) float64 { return p[0] * x }
		}
		if _, err := mod.AddDeterministic(muName, muParents, fn); err != nil {
			return nil, err
		}

		if _, err := mod.AddStochastic(fmt.Sprintf("y[%d]", i), []string{muName}, func(v float64, p []float64) float64 {
			return like.LogProb(v - p[0])
		}, ys[i]); err != nil {
			return nil, err
		}
	}

	return mod, nil
}

// spikeSlabConf wires the gated-random-walk-plus-reversible-jump pattern for
// beta. With rj false it instead configures the always-included control
// chain (a plain random walk).
func spikeSlabConf(mod *model.Model, gen *rand.Generator, cfg RunConfig, indicator bool, rj bool) (*sampler.Configuration, error) {
	conf := sampler.NewConfiguration()

	rw, err := sampler.NewRandomWalk(gen, mod, "beta", cfg.Scale)
	if err != nil {
		return nil, err
	}

	if !rj {
		if err := conf.AddSampler(rw); err != nil {
			return nil, err
		}
	} else {
		rjCfg := sampler.RJConfig{Scale: cfg.JumpScale}
		var gated sampler.Sampler
		if indicator {
			rjCfg.Indicator = "z"
			gated, err = sampler.NewConditionalIndicator(mod, "z", rw)
		} else {
			rjCfg.Prior = cfg.Prior
			gated, err = sampler.NewConditionalValue(mod, "beta", 0, rw)
		}
		if err != nil {
			return nil, err
		}

		jump, err := sampler.NewReversibleJump(gen, mod, "beta", rjCfg)
		if err != nil {
			return nil, err
		}

		if err := conf.AddSampler(jump); err != nil {
			return nil, err
		}
		if err := conf.AddSampler(gated); err != nil {
			return nil, err
		}
	}

	if err := conf.Monitors.Add("beta"); err != nil {
		return nil, err
	}
	if err := conf.Monitors.SetThin(cfg.Thin); err != nil {
		return nil, err
	}
	if indicator && rj {
		if err := conf.Monitors2.Add("z"); err != nil {
			return nil, err
		}
		if err := conf.Monitors2.SetThin(cfg.Thin); err != nil {
			return nil, err
		}
	}

	return conf, nil
}

// analyticPosterior returns the closed forms for the conjugate model
// y ~ N(beta*x, 1), beta ~ N(0,1): the posterior inclusion probability given
// prior inclusion odds, and the conditional-on-included posterior (mean, sd).
func analyticPosterior(xs []float64, ys []float64, prior float64) (pInc float64, mean float64, sd float64) {
	a, b := 1.0, 0.0
	for i := range xs {
		a += xs[i] * xs[i]
		b += xs[i] * ys[i]
	}

	logBF := b*b/(2*a) - 0.5*math.Log(a)
	logOdds := math.Log(prior) - math.Log(1-prior) + logBF
	pInc = 1.0 / (1.0 + math.Exp(-logOdds))

	return pInc, b / a, math.Sqrt(1 / a)
}

// runEncoding runs cfg.Chains parallel chains for one prior encoding and
// returns the merged beta trace.
func runEncoding(sp *startupParams, xs []float64, ys []float64, indicator bool, rj bool) (*buffer.Trace, *sampler.Chain, error) {
	cfg := sp.cfg

	// History window for the split-window convergence diagnostic: the full
	// recorded trace, capped so long runs keep a bounded recent window.
	cw := cfg.Iterations / cfg.Thin
	if cw > 1000 {
		cw = 1000
	}
	if cw < 2 {
		cw = 0
	}

	chains := make([]*sampler.Chain, cfg.Chains)
	for i := range chains {
		gen, err := rand.NewGenerator(cfg.Seed + int64(i)*7919)
		if err != nil {
			return nil, nil, err
		}

		mod, err := spikeSlabModel(xs, ys, cfg.Prior, indicator)
		if err != nil {
			return nil, nil, err
		}

		conf, err := spikeSlabConf(mod, gen, cfg, indicator, rj)
		if err != nil {
			return nil, nil, err
		}

		chains[i], err = sampler.NewChain(mod, conf, gen, cw, cfg.BurnIn)
		if err != nil {
			return nil, nil, err
		}
	}

	results := sampler.RunChains(context.Background(), chains, cfg.Iterations)

	traces := make([]*buffer.Trace, len(results))
	for i, r := range results {
		if r.Err != nil {
			return nil, nil, errors.Wrapf(r.Err, "Chain %d failed", i)
		}
		traces[i] = r.Trace
	}

	merged, err := sampler.MergeTraces(traces)
	if err != nil {
		return nil, nil, err
	}

	return merged, chains[0], nil
}

func includedSamples(betas []float64) []float64 {
	inc := make([]float64, 0, len(betas))
	for _, b := range betas {
		if b != 0 {
			inc = append(inc, b)
		}
	}
	return inc
}

func errorReport(sp *startupParams, prefix string, es *model.ErrorSuite) {
	sp.out.Printf(
		"%s | MeanAE:%7.4f MaxAE:%7.4f Hel:%7.4f JSD:%7.4f\n",
		prefix, es.MeanMeanAbsError, es.MeanMaxAbsError, es.MeanHellinger, es.MeanJSDiverge,
	)
}

// SpikeSlabRun executes the demo end to end for both prior encodings.
func SpikeSlabRun(sp *startupParams) error {
	cfg := sp.cfg
	sp.out.Printf("spikeslab: %d chains x %d iterations (burn-in %d, thin %d), seed %d\n",
		cfg.Chains, cfg.Iterations, cfg.BurnIn, cfg.Thin, cfg.Seed)

	var mon monitor
	if len(sp.monitorAddr) > 0 {
		if err := mon.Start(sp.monitorAddr); err != nil {
			return err
		}
		defer mon.Stop()
		mon.BurnIn.Set(int64(cfg.BurnIn))
		mon.Iterations.Set(int64(cfg.Iterations))
		mon.Thin.Set(int64(cfg.Thin))
		mon.Chains.Set(int64(cfg.Chains))
	}

	dataGen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return err
	}
	xs, ys := spikeSlabData(dataGen, 40, 0.75)

	pInc, postMean, postSD := analyticPosterior(xs, ys, cfg.Prior)
	sp.out.Printf("Analytic: P(included)=%.4f, beta|included ~ N(%.4f, %.4f)\n", pInc, postMean, postSD)

	ref := model.NewReference()
	postPDF := distuv.Normal{Mu: postMean, Sigma: postSD}
	if err := ref.AddDensity(histLo, histHi, histBins, postPDF.Prob); err != nil {
		return err
	}

	started := time.Now()

	// Always-included control chain for the marginal-consistency check
	ctrlTrace, ctrlFirst, err := runEncoding(sp, xs, ys, false, false)
	if err != nil {
		return err
	}
	ctrlBetas, err := ctrlTrace.Column("beta")
	if err != nil {
		return err
	}
	for _, s := range ctrlFirst.Conf.Samplers() {
		if rw, ok := s.(*sampler.RandomWalk); ok {
			sp.verbosef("Control acceptance rate (chain 0): %.4f\n", rw.AcceptanceRate())
			if len(sp.monitorAddr) > 0 {
				mon.AcceptRate.Set(rw.AcceptanceRate())
			}
		}
	}

	for _, indicator := range []bool{false, true} {
		name := "prior-odds"
		if indicator {
			name = "indicator"
		}
		sp.out.Printf("--------------------------------------------------\n")
		sp.out.Printf("Encoding: %s\n", name)

		merged, first, err := runEncoding(sp, xs, ys, indicator, true)
		if err != nil {
			return err
		}

		betas, err := merged.Column("beta")
		if err != nil {
			return err
		}

		inc := includedSamples(betas)
		empInc := float64(len(inc)) / float64(len(betas))
		sp.out.Printf("Empirical P(included): %.4f (analytic %.4f) over %d samples\n", empInc, pInc, len(betas))
		if len(sp.monitorAddr) > 0 {
			mon.InclusionProb.Set(empInc)
		}

		for _, s := range first.Conf.Samplers() {
			if j, ok := s.(*sampler.ReversibleJump); ok {
				sp.verbosef("Jump rate (chain 0): %.4f\n", j.JumpRate())
				if len(sp.monitorAddr) > 0 {
					mon.JumpRate.Set(j.JumpRate())
				}
			}
		}

		if ds, cerr := first.Convergence(nil, histLo, histHi, histBins); cerr == nil {
			sp.verbosef("Split-window Hellinger for beta (chain 0): %.4f\n", ds[0])
		} else {
			sp.verbosef("Convergence diagnostic unavailable: %v\n", cerr)
		}

		if len(inc) < 2 {
			return errors.Errorf("Too few included samples (%d) to score", len(inc))
		}

		obs, err := model.NewHistogram(histLo, histHi, histBins)
		if err != nil {
			return err
		}
		obs.ObserveAll(inc)

		score, err := ref.Error([]*model.Histogram{obs})
		if err != nil {
			return err
		}
		errorReport(sp, "Included-vs-analytic", score)

		ks := ksDistance(inc, ctrlBetas)
		sp.out.Printf("KS distance vs always-included chain: %.4f\n", ks)

		if !indicator && len(cfg.TraceFile) > 0 {
			if err := writeTrace(merged, cfg.TraceFile); err != nil {
				return err
			}
			sp.out.Printf("Wrote merged trace to %s\n", cfg.TraceFile)
		}
	}

	sp.out.Printf("--------------------------------------------------\n")
	elapsed := time.Since(started).Seconds()
	sp.out.Printf("Total compute time: %.2fs\n", elapsed)
	if len(sp.monitorAddr) > 0 {
		mon.RunTime.Set(elapsed)
	}

	return nil
}

// ksDistance is the two-sample Kolmogorov-Smirnov statistic.
func ksDistance(a []float64, b []float64) float64 {
	sa := append([]float64{}, a...)
	sb := append([]float64{}, b...)
	sort.Float64s(sa)
	sort.Float64s(sb)
	return stat.KolmogorovSmirnov(sa, nil, sb, nil)
}

// writeTrace saves a trace as CSV, gzipped when the name ends in .gz.
func writeTrace(tr *buffer.Trace, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not create trace file %s", filename)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(filename, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	return tr.WriteCSV(w)
}
