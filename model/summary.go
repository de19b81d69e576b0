package model

import (
	"math"
)

// Histogram is a fixed-width binned summary of scalar samples over [Lo, Hi].
// Samples outside the range land in the edge bins, so mass is never lost.
// Bin contents are raw weights; every metric below normalizes before
// comparing, so histograms with different sample counts compare cleanly.
type Histogram struct {
	Lo   float64
	Hi   float64
	Bins []float64
	N    int64 // Total number of Observe calls
}

// NewHistogram creates an empty histogram with the given range and bin count.
func NewHistogram(lo float64, hi float64, bins int) (*Histogram, error) {
	if hi <= lo {
		return nil, ConfigErrorf("Invalid histogram range [%v,%v]", lo, hi)
	}
	if bins < 2 {
		return nil, ConfigErrorf("Invalid histogram bin count %d", bins)
	}

	return &Histogram{
		Lo:   lo,
		Hi:   hi,
		Bins: make([]float64, bins),
	}, nil
}

// Observe adds one sample.
func (h *Histogram) Observe(x float64) {
	idx := int(float64(len(h.Bins)) * (x - h.Lo) / (h.Hi - h.Lo))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.Bins) {
		idx = len(h.Bins) - 1
	}

	h.Bins[idx]++
	h.N++
}

// ObserveAll adds every sample in xs.
func (h *Histogram) ObserveAll(xs []float64) {
	for _, x := range xs {
		h.Observe(x)
	}
}

// ErrorSuite represents all the loss/error functions we use to judge
// agreement between sampled and reference distributions. Errors beginning
// with Mean are the mean across all compared histogram pairs while Max is the
// maximum value across the pairs. So MeanMaxAbsError is the MEAN of the
// Maximum Absolute Error for each pair.
type ErrorSuite struct {
	MeanMeanAbsError float64
	MeanMaxAbsError  float64
	MeanHellinger    float64
	MeanJSDiverge    float64

	MaxMeanAbsError float64
	MaxMaxAbsError  float64
	MaxHellinger    float64
	MaxJSDiverge    float64
}

// NewErrorSuite returns an ErrorSuite with all calculated error functions
func NewErrorSuite(hists1 []*Histogram, hists2 []*Histogram) (*ErrorSuite, error) {
	if len(hists1) != len(hists2) {
		return nil, ConfigErrorf("Histogram count mismatch %d != %d", len(hists1), len(hists2))
	}
	if len(hists1) < 1 {
		return nil, ConfigErrorf("No histograms to score")
	}

	for i, h1 := range hists1 {
		if len(h1.Bins) != len(hists2[i].Bins) {
			return nil, ConfigErrorf("Histogram bin mismatch %d != %d", len(h1.Bins), len(hists2[i].Bins))
		}
	}

	es := ErrorSuite{}

	var d float64
	for i, h1 := range hists1 {
		h2 := hists2[i]

		d = MeanAbsDiff(h1, h2)
		es.MeanMeanAbsError += d
		es.MaxMeanAbsError = math.Max(d, es.MaxMeanAbsError)

		d = MaxAbsDiff(h1, h2)
		es.MeanMaxAbsError += d
		es.MaxMaxAbsError = math.Max(d, es.MaxMaxAbsError)

		d = HellingerDiff(h1, h2)
		es.MeanHellinger += d
		es.MaxHellinger = math.Max(d, es.MaxHellinger)

		d = JSDivergence(h1, h2)
		es.MeanJSDiverge += d
		es.MaxJSDiverge = math.Max(d, es.MaxJSDiverge)
	}

	fc := float64(len(hists1))
	es.MeanMeanAbsError /= fc
	es.MeanMaxAbsError /= fc
	es.MeanHellinger /= fc
	es.MeanJSDiverge /= fc

	return &es, nil
}

// The pairwise metrics below require histograms binned on the same grid.
// Comparing different bin counts has no meaningful answer, so they return
// +Inf (maximally distant) instead of panicking; NewErrorSuite rejects the
// mismatch up front with a ConfigError.

// normTotals returns the bin sums for normalizing, floored at eps so an
// empty histogram does not divide by zero.
func normTotals(h1 *Histogram, h2 *Histogram) (float64, float64) {
	const eps = 1e-12

	tot1, tot2 := 0.0, 0.0
	for c := range h1.Bins {
		tot1 += h1.Bins[c]
		tot2 += h2.Bins[c]
	}
	if tot1 < eps {
		tot1 = eps
	}
	if tot2 < eps {
		tot2 = eps
	}

	return tot1, tot2
}

// MaxAbsDiff returns the maximum difference found between the two prob dists
func MaxAbsDiff(h1 *Histogram, h2 *Histogram) float64 {
	if len(h1.Bins) != len(h2.Bins) {
		return math.Inf(1)
	}

	tot1, tot2 := normTotals(h1, h2)

	maxErr := 0.0
	for c := range h1.Bins {
		adjVal1 := h1.Bins[c] / tot1
		adjVal2 := h2.Bins[c] / tot2
		err := math.Abs(adjVal1 - adjVal2)
		if c == 0 || err > maxErr {
			maxErr = err
		}
	}

	return maxErr
}

// MeanAbsDiff returns the mean of the differences found between the two prob dists
func MeanAbsDiff(h1 *Histogram, h2 *Histogram) float64 {
	if len(h1.Bins) != len(h2.Bins) {
		return math.Inf(1)
	}
	if len(h1.Bins) < 1 {
		return 0
	}

	tot1, tot2 := normTotals(h1, h2)

	errSum := 0.0
	for c := range h1.Bins {
		adjVal1 := h1.Bins[c] / tot1
		adjVal2 := h2.Bins[c] / tot2
		errSum += math.Abs(adjVal1 - adjVal2)
	}

	return errSum / float64(len(h1.Bins))
}

// HellingerDiff returns the Hellinger error between the two distributions.
// Bin weights are normalized (sum=1.0) before comparing.
func HellingerDiff(h1 *Histogram, h2 *Histogram) float64 {
	if len(h1.Bins) != len(h2.Bins) {
		return math.Inf(1)
	}

	tot1, tot2 := normTotals(h1, h2)

	// Hellinger distance is similar to the Euclidean L2:
	// sum((sqrt(p) - sqrt(q))**2) / sqrt(2)
	errSum := 0.0
	for c := range h1.Bins {
		adjVal1 := math.Sqrt(h1.Bins[c] / tot1)
		adjVal2 := math.Sqrt(h2.Bins[c] / tot2)
		err := math.Pow(adjVal1-adjVal2, 2) // squared, so always positive
		errSum += err
	}
	return errSum / math.Sqrt2
}

// klDivergence returns the Kullback–Leibler divergence, which is
// non-symmetric! This is strictly a subroutine for JS Divergence, so there
// is no error checking and the arrays are assumed normalized (so sum(p1) ==
// sum(p2) == 1.0). Empty bins contribute zero (lim p->0 of p*log(p/q)).
// klDivergence(P, Q) <==> D_{KL}(P || Q)
func klDivergence(v1 []float64, v2 []float64) float64 {
	diverge := 0.0
	for i, p1 := range v1 {
		if p1 <= 0.0 {
			continue
		}
		p2 := v2[i]
		diverge += p1 * math.Log2(p1/p2)
	}

	return diverge
}

// JSDivergence returns the Jensen-Shannon divergence, which is a
// symmetric gneralization of the KL divergence
func JSDivergence(h1 *Histogram, h2 *Histogram) float64 {
	if len(h1.Bins) != len(h2.Bins) {
		return math.Inf(1)
	}

	tot1, tot2 := normTotals(h1, h2)

	bins := len(h1.Bins)
	p1Norm := make([]float64, bins)
	p2Norm := make([]float64, bins)
	mid := make([]float64, bins)
	for i := range h1.Bins {
		p1Norm[i] = h1.Bins[i] / tot1
		p2Norm[i] = h2.Bins[i] / tot2
		mid[i] = (p1Norm[i] + p2Norm[i]) * 0.5
	}

	return 0.5 * (klDivergence(p1Norm, mid) + klDivergence(p2Norm, mid))
}
