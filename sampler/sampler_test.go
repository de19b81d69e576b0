package sampler

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rjmcmc/rjmcmc/model"
	"github.com/rjmcmc/rjmcmc/rand"
)

// normalNormalModel is the conjugate test bed: theta ~ N(0,1) with observed
// ys[i] ~ N(theta, 1), so theta | y ~ N(sum(y)/(n+1), 1/(n+1)).
func normalNormalModel(t *testing.T, ys []float64) *model.Model {
	m := model.NewModel("normal-normal")

	prior := distuv.Normal{Mu: 0, Sigma: 1}
	_, err := m.AddStochastic("theta", nil, func(v float64, _ []float64) float64 {
		return prior.LogProb(v)
	}, 0)
	assert.NoError(t, err)

	like := distuv.Normal{Mu: 0, Sigma: 1}
	for i, y := range ys {
		_, err := m.AddStochastic(nodeName("y", i), []string{"theta"}, func(v float64, p []float64) float64 {
			return like.LogProb(v - p[0])
		}, y)
		assert.NoError(t, err)
	}

	return m
}

func nodeName(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}

// spikeModel is the trans-dimensional test bed: beta ~ N(0,1) slab with
// observed ys[i] ~ N(beta*xs[i], 1). With prior inclusion probability p the
// posterior inclusion probability and the conditional posterior of beta are
// both closed-form (see analyticInclusion).
func spikeModel(t *testing.T, xs []float64, ys []float64, prior float64, indicator bool) *model.Model {
	m := model.NewModel("spike")

	slab := distuv.Normal{Mu: 0, Sigma: 1}
	_, err := m.AddStochastic("beta", nil, func(v float64, _ []float64) float64 {
		return slab.LogProb(v)
	}, 0)
	assert.NoError(t, err)

	muParents := []string{"beta"}
	if indicator {
		bern := distuv.Bernoulli{P: prior}
		_, err := m.AddStochastic("z", nil, func(v float64, _ []float64) float64 {
			return bern.LogProb(v)
		}, 0)
		assert.NoError(t, err)
		muParents = []string{"beta", "z"}
	}

	like := distuv.Normal{Mu: 0, Sigma: 1}
	for i := range xs {
		x := xs[i]
		mu := nodeName("mu", i)

		var fn model.DetermineFunc
		if indicator {
			fn = func(p []float64) float64 { return p[0] * p[1] * x }
		} else {
			fn = func(p []float64) float64 { return p[0] * x }
		}
		_, err := m.AddDeterministic(mu, muParents, fn)
		assert.NoError(t, err)

		_, err = m.AddStochastic(nodeName("y", i), []string{mu}, func(v float64, p []float64) float64 {
			return like.LogProb(v - p[0])
		}, ys[i])
		assert.NoError(t, err)
	}

	return m
}

// analyticInclusion returns the closed-form posterior inclusion probability
// and the conditional-on-included posterior mean/sd for spikeModel.
func analyticInclusion(xs []float64, ys []float64, prior float64) (pInc float64, mean float64, sd float64) {
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

func testGen(t *testing.T, seed int64) *rand.Generator {
	gen, err := rand.NewGenerator(seed)
	assert.NoError(t, err)
	return gen
}

func TestDecideWith(t *testing.T) {
	assert := assert.New(t)

	// Non-negative log ratios always accept
	assert.True(decideWith(0, 0.99))
	assert.True(decideWith(3.5, 0.99))
	assert.True(decideWith(math.Inf(1), 0.5))

	// Negative ratios accept iff log(u) < logAccept
	assert.True(decideWith(-1, math.Exp(-2)))
	assert.False(decideWith(-1, math.Exp(-0.5)))
	assert.False(decideWith(math.Inf(-1), 0.5))

	// Monotone: a larger ratio never flips accept to reject
	for _, u := range []float64{0.01, 0.25, 0.5, 0.9} {
		prev := false
		for _, la := range []float64{-10, -2, -0.5, -0.1, 0, 1} {
			cur := decideWith(la, u)
			assert.False(prev && !cur, "decide not monotone at la=%v u=%v", la, u)
			prev = cur
		}
	}
}

func TestDecideNaN(t *testing.T) {
	assert := assert.New(t)

	gen := testGen(t, 11)
	_, err := decide(gen, math.NaN())
	assert.Error(err)
	assert.True(model.IsNumericError(err))

	acc, err := decide(gen, 1.0)
	assert.NoError(err)
	assert.True(acc)
}
