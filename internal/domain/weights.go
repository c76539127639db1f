package domain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WeightTolerance is the allowed deviation of a weight vector's sum from 1.
const WeightTolerance = 1e-6

// WeightVector maps factor names to non-negative overlay weights. The sum of
// all weights must be 1 within WeightTolerance; a violating vector is a
// configuration error, never silently normalized. Construct through
// NewWeightVector so the invariant holds everywhere a vector is accepted.
type WeightVector map[string]float64

// NewWeightVector validates and returns a weight vector.
func NewWeightVector(weights map[string]float64) (WeightVector, error) {
	if len(weights) == 0 {
		return nil, Configf("weight vector is empty")
	}
	vals := make([]float64, 0, len(weights))
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, Configf("weight for %q must be non-negative, got %g", name, w)
		}
		vals = append(vals, w)
	}
	if sum := floats.Sum(vals); math.Abs(sum-1) > WeightTolerance {
		return nil, Configf("weights must sum to 1, got %g", sum)
	}
	out := make(WeightVector, len(weights))
	for name, w := range weights {
		out[name] = w
	}
	return out, nil
}

// Factors returns the factor names in deterministic (sorted) order.
func (w WeightVector) Factors() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
