package model

// Reference holds analytically known marginal distributions to score sampler
// output against, binned on the same grid as the empirical histograms. Where
// a model has a closed-form conditional posterior (conjugate pairs), this is
// the ground truth for the error suite.
type Reference struct {
	Hists []*Histogram
}

// NewReference creates an empty reference set.
func NewReference() *Reference {
	return &Reference{}
}

// AddDensity appends a reference marginal built by evaluating the given
// density at each bin midpoint. The result need not be normalized - every
// error metric normalizes bin weights before comparing.
func (r *Reference) AddDensity(lo float64, hi float64, bins int, pdf func(float64) float64) error {
	h, err := NewHistogram(lo, hi, bins)
	if err != nil {
		return err
	}

	width := (hi - lo) / float64(bins)
	for i := range h.Bins {
		mid := lo + width*(float64(i)+0.5)
		h.Bins[i] = pdf(mid) * width
	}

	r.Hists = append(r.Hists, h)
	return nil
}

// Error is a helper method to return the entire error suite we offer for the
// observed histograms against this reference.
func (r *Reference) Error(observed []*Histogram) (*ErrorSuite, error) {
	return NewErrorSuite(r.Hists, observed)
}
