package heatwave

import (
	"fmt"
	"math"
	"sort"
)

// Percentile returns the p-th percentile of values using linear
// interpolation between closest ranks. p must lie strictly between 0
// and 100 and values must be non-empty.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("percentile of empty series")
	}
	if p <= 0 || p >= 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100 exclusive, got %v", p)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, nil
}
