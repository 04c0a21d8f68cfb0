package aggregation

import (
	"math"
	"sort"
)

// Summary holds descriptive statistics for one group of values.
type Summary struct {
	Mean  float64
	Min   float64
	Max   float64
	Std   float64
	Count int
}

// Summarize computes mean, min, max and population standard deviation
// over values. The second return is false when values is empty. A
// single value has a standard deviation of zero.
func Summarize(values []float64) (Summary, bool) {
	if len(values) == 0 {
		return Summary{}, false
	}

	s := Summary{Min: values[0], Max: values[0], Count: len(values)}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(values)))

	return s, true
}

// Cell identifies one spatial bin.
type Cell struct {
	LatBin float64
	LonBin float64
}

func sortedCells[T any](groups map[Cell]T) []Cell {
	cells := make([]Cell, 0, len(groups))
	for c := range groups {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].LatBin != cells[j].LatBin {
			return cells[i].LatBin < cells[j].LatBin
		}
		return cells[i].LonBin < cells[j].LonBin
	})
	return cells
}

// rollup accumulates finer-grained aggregates into one coarser cell.
// The rolled-up mean and std are taken over the input means; min, max
// and count carry the true extremes and total underlying sample size.
type rollup struct {
	avgs  []float64
	min   float64
	max   float64
	count int
}

func newRollup() *rollup {
	return &rollup{min: math.Inf(1), max: math.Inf(-1)}
}

func (r *rollup) add(avg, lo, hi float64, n int) {
	r.avgs = append(r.avgs, avg)
	if lo < r.min {
		r.min = lo
	}
	if hi > r.max {
		r.max = hi
	}
	r.count += n
}

func (r *rollup) summarize() (Summary, bool) {
	s, ok := Summarize(r.avgs)
	if !ok {
		return Summary{}, false
	}
	s.Min = r.min
	s.Max = r.max
	s.Count = r.count
	return s, true
}
