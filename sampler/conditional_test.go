package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rjmcmc/rjmcmc/model"
)

func TestConditionalConfig(t *testing.T) {
	assert := assert.New(t)

	xs := []float64{-1, 0, 1}
	ys := []float64{-0.5, 0.1, 0.6}
	m := spikeModel(t, xs, ys, 0.8, true)
	gen := testGen(t, 3)

	rw, err := NewRandomWalk(gen, m, "beta", 1)
	assert.NoError(err)

	_, err = NewConditionalIndicator(nil, "z", rw)
	assert.True(model.IsConfigError(err))

	_, err = NewConditionalIndicator(m, "z", nil)
	assert.True(model.IsConfigError(err))

	_, err = NewConditionalIndicator(m, "missing", rw)
	assert.True(model.IsConfigError(err))

	_, err = NewConditionalValue(m, "missing", 0, rw)
	assert.True(model.IsConfigError(err))

	c, err := NewConditionalIndicator(m, "z", rw)
	assert.NoError(err)
	assert.Equal([]string{"beta"}, c.Targets())
}

// snapshot captures every node value and cached log-density.
func snapshot(m *model.Model) ([]float64, []float64) {
	ids := m.AllNodes()
	vals := make([]float64, len(ids))
	lps := make([]float64, len(ids))
	for i, id := range ids {
		vals[i] = m.Get(id)
		lps[i] = m.LogProb([]model.NodeID{id})
	}
	return vals, lps
}

func TestConditionalClosedGateIsNoOp(t *testing.T) {
	assert := assert.New(t)

	xs := []float64{-1, -0.5, 0.5, 1}
	ys := []float64{-0.7, -0.2, 0.3, 0.8}

	// Indicator gate: z starts at 0 (closed)
	m := spikeModel(t, xs, ys, 0.8, true)
	gen := testGen(t, 17)
	_, err := m.CalculateAll()
	assert.NoError(err)
	m.Copy(model.Live, model.Saved, m.AllNodes(), true)

	rw, err := NewRandomWalk(gen, m, "beta", 1)
	assert.NoError(err)
	c, err := NewConditionalIndicator(m, "z", rw)
	assert.NoError(err)

	beforeVals, beforeLPs := snapshot(m)
	for i := 0; i < 100; i++ {
		assert.NoError(c.Run())
	}
	afterVals, afterLPs := snapshot(m)

	// Bit-identical: the closed gate may not touch anything
	assert.Equal(beforeVals, afterVals)
	assert.Equal(beforeLPs, afterLPs)

	// Value gate: beta sits at its fixed value 0 (closed)
	m2 := spikeModel(t, xs, ys, 0.8, false)
	gen2 := testGen(t, 18)
	_, err = m2.CalculateAll()
	assert.NoError(err)
	m2.Copy(model.Live, model.Saved, m2.AllNodes(), true)

	rw2, err := NewRandomWalk(gen2, m2, "beta", 1)
	assert.NoError(err)
	c2, err := NewConditionalValue(m2, "beta", 0, rw2)
	assert.NoError(err)

	beforeVals, beforeLPs = snapshot(m2)
	for i := 0; i < 100; i++ {
		assert.NoError(c2.Run())
	}
	afterVals, afterLPs = snapshot(m2)

	assert.Equal(beforeVals, afterVals)
	assert.Equal(beforeLPs, afterLPs)
}

func TestConditionalOpenGateDelegates(t *testing.T) {
	assert := assert.New(t)

	xs := []float64{-1, -0.5, 0.5, 1}
	ys := []float64{-0.7, -0.2, 0.3, 0.8}
	m := spikeModel(t, xs, ys, 0.8, false)
	gen := testGen(t, 19)

	beta, err := m.Lookup("beta")
	assert.NoError(err)
	m.Set(beta, 0.4) // included
	_, err = m.CalculateAll()
	assert.NoError(err)
	m.Copy(model.Live, model.Saved, m.AllNodes(), true)

	rw, err := NewRandomWalk(gen, m, "beta", 1)
	assert.NoError(err)
	c, err := NewConditionalValue(m, "beta", 0, rw)
	assert.NoError(err)

	moved := false
	for i := 0; i < 200 && !moved; i++ {
		assert.NoError(c.Run())
		moved = m.Get(beta) != 0.4
	}
	assert.True(moved, "Open gate never delegated to the inner sampler")

	// Reset always reaches the inner sampler
	assert.True(rw.AcceptanceRate() >= 0)
	c.Reset()
	assert.Equal(0.0, rw.AcceptanceRate())
}
