package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testModel builds a small graph: theta (stoch) -> mu (det) -> y (stoch),
// plus an unrelated stochastic node under y. Densities are simple so the
// expected sums are easy to compute by hand.
func testModel(t *testing.T) *Model {
	m := NewModel("test")

	_, err := m.AddStochastic("theta", nil, func(v float64, _ []float64) float64 {
		return -v * v
	}, 1.0)
	assert.NoError(t, err)

	_, err = m.AddDeterministic("mu", []string{"theta"}, func(p []float64) float64 {
		return 2 * p[0]
	})
	assert.NoError(t, err)

	_, err = m.AddStochastic("y", []string{"mu"}, func(v float64, p []float64) float64 {
		return -(v - p[0])
	}, 3.0)
	assert.NoError(t, err)

	_, err = m.AddStochastic("deep", []string{"y"}, func(v float64, p []float64) float64 {
		return v + p[0]
	}, 0.5)
	assert.NoError(t, err)

	return m
}

func TestModelBuild(t *testing.T) {
	assert := assert.New(t)

	m := testModel(t)
	assert.NoError(m.Check())
	assert.Equal(4, m.Len())

	id, err := m.Lookup("theta")
	assert.NoError(err)
	assert.Equal(NodeID(0), id)
	assert.Equal(1.0, m.Get(id))

	_, err = m.Lookup("nope")
	assert.Error(err)
	assert.True(IsConfigError(err))

	// Deterministic init computed from parents at add time
	mu, err := m.Lookup("mu")
	assert.NoError(err)
	assert.Equal(2.0, m.Get(mu))

	// Duplicate names and unknown parents are config errors
	_, err = m.AddStochastic("theta", nil, func(v float64, _ []float64) float64 { return 0 }, 0)
	assert.True(IsConfigError(err))

	_, err = m.AddDeterministic("bad", []string{"missing"}, func(p []float64) float64 { return 0 })
	assert.True(IsConfigError(err))

	_, err = m.AddStochastic("nilfn", nil, nil, 0)
	assert.True(IsConfigError(err))
}

func TestModelDependencies(t *testing.T) {
	assert := assert.New(t)

	m := testModel(t)
	theta, _ := m.Lookup("theta")
	mu, _ := m.Lookup("mu")
	y, _ := m.Lookup("y")

	// Traversal includes deterministic descendants and the stochastic
	// frontier, but does not continue past a stochastic node.
	deps := m.Dependencies([]NodeID{theta}, true)
	assert.Equal([]NodeID{theta, mu, y}, deps)

	reduced := m.Dependencies([]NodeID{theta}, false)
	assert.Equal([]NodeID{mu, y}, reduced)

	deep, _ := m.Lookup("deep")
	assert.Equal([]NodeID{y, deep}, m.Dependencies([]NodeID{y}, true))
}

func TestModelCalculate(t *testing.T) {
	assert := assert.New(t)

	m := testModel(t)
	theta, _ := m.Lookup("theta")
	mu, _ := m.Lookup("mu")
	y, _ := m.Lookup("y")

	// theta=1: lp(theta) = -1; mu = 2; lp(y) = -(3-2) = -1
	total, err := m.Calculate(m.Dependencies([]NodeID{theta}, true))
	assert.NoError(err)
	assert.InDelta(-2.0, total, 1e-12)
	assert.Equal(2.0, m.Get(mu))

	// Cached sums match without recompute
	assert.InDelta(-2.0, m.LogProb([]NodeID{theta, mu, y}), 1e-12)
	assert.InDelta(-1.0, m.LogProb([]NodeID{y}), 1e-12)

	// Change theta: dependents recompute in topological order
	m.Set(theta, 2.0)
	total, err = m.Calculate(m.Dependencies([]NodeID{theta}, true))
	assert.NoError(err)
	assert.Equal(4.0, m.Get(mu))
	assert.InDelta(-4.0+-(3.0-4.0), total, 1e-12)
}

func TestModelCalculateNaN(t *testing.T) {
	assert := assert.New(t)

	m := NewModel("nan")
	id, err := m.AddStochastic("x", nil, func(v float64, _ []float64) float64 {
		if v > 0 {
			return math.NaN()
		}
		return math.Inf(-1) // -Inf is legal
	}, -1)
	assert.NoError(err)

	total, err := m.CalculateAll()
	assert.NoError(err)
	assert.True(math.IsInf(total, -1))

	m.Set(id, 1)
	_, err = m.CalculateAll()
	assert.Error(err)
	assert.True(IsNumericError(err))
	assert.False(IsConfigError(err))
}

func TestModelCopy(t *testing.T) {
	assert := assert.New(t)

	m := testModel(t)
	theta, _ := m.Lookup("theta")
	nodes := m.Dependencies([]NodeID{theta}, true)

	_, err := m.CalculateAll()
	assert.NoError(err)
	m.Copy(Live, Saved, m.AllNodes(), true)

	savedVal := m.Get(theta)
	savedLP := m.LogProb(nodes)

	// Trial mutation then roll back
	m.Set(theta, -5)
	_, err = m.Calculate(nodes)
	assert.NoError(err)
	assert.NotEqual(savedLP, m.LogProb(nodes))

	m.Copy(Saved, Live, nodes, true)
	assert.Equal(savedVal, m.Get(theta))
	assert.Equal(savedLP, m.LogProb(nodes))

	// Accept path: live overwrites saved
	m.Set(theta, 0.25)
	_, err = m.Calculate(nodes)
	assert.NoError(err)
	m.Copy(Live, Saved, nodes, true)
	m.Copy(Saved, Live, nodes, true)
	assert.Equal(0.25, m.Get(theta))
}

func TestModelClone(t *testing.T) {
	assert := assert.New(t)

	m := testModel(t)
	theta, _ := m.Lookup("theta")
	_, err := m.CalculateAll()
	assert.NoError(err)

	cp := m.Clone()
	assert.Equal(m.Get(theta), cp.Get(theta))

	cp.Set(theta, 99)
	_, err = cp.CalculateAll()
	assert.NoError(err)
	assert.NotEqual(m.Get(theta), cp.Get(theta))
	assert.Equal(1.0, m.Get(theta))
}

func TestModelCheck(t *testing.T) {
	assert := assert.New(t)

	empty := NewModel("empty")
	assert.Error(empty.Check())

	onlyDet := NewModel("det")
	_, err := onlyDet.AddDeterministic("a", nil, func(p []float64) float64 { return 1 })
	assert.NoError(err)
	err = onlyDet.Check()
	assert.Error(err)
	assert.True(IsConfigError(err))

	ok := NewModel("ok")
	_, err = ok.AddStochastic("a", nil, func(v float64, _ []float64) float64 { return 0 }, 0)
	assert.NoError(err)
	assert.NoError(ok.Check())
}
