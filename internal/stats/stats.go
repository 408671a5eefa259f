// Package stats holds the numerical helpers shared by the risk analyzers.
package stats

import (
	"math"
	"sort"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"gonum.org/v1/gonum/stat"
)

// Returns derives simple periodic returns from an equity series. Periods whose
// previous equity is not positive are skipped.
func Returns(points []domain.EquityPoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Equity
		if prev <= 0 {
			continue
		}
		out = append(out, points[i].Equity/prev-1)
	}
	return out
}

func Equities(points []domain.EquityPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Equity
	}
	return out
}

// MeanStd returns the mean and the unbiased sample standard deviation.
func MeanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Quantile interpolates linearly between order statistics at position (n-1)p.
// sorted must be in ascending order.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	pos := float64(n-1) * p
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// TailMean averages every value at or below cutoff.
func TailMean(sorted []float64, cutoff float64) float64 {
	var sum float64
	var n int
	for _, v := range sorted {
		if v > cutoff {
			break
		}
		sum += v
		n++
	}
	if n == 0 {
		return cutoff
	}
	return sum / float64(n)
}

func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Slope fits a least-squares line against the sample index and returns its slope.
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}

func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite maps NaN and infinities to zero so results stay JSON encodable.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
