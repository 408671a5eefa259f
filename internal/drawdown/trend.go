package drawdown

import (
	"math"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/stats"
)

// TrendChanges flags the indices where the sign of the rolling regression
// slope flips and then holds for at least MinPersistence windows. Flat
// windows neither start a regime nor break one.
func TrendChanges(points []domain.EquityPoint, opts Options) []domain.TrendChange {
	opts = opts.normalized()
	equities := stats.Equities(points)
	w := opts.SlopeWindow
	if len(equities) < w {
		return nil
	}

	signs := make([]int, len(equities))
	for t := w - 1; t < len(equities); t++ {
		window := equities[t-w+1 : t+1]
		signs[t] = slopeSign(stats.Slope(window), window)
	}

	var changes []domain.TrendChange
	regime := 0
	for t := w - 1; t < len(signs); t++ {
		s := signs[t]
		if s == 0 || s == regime {
			continue
		}
		if !persists(signs, t, s, opts.MinPersistence) {
			continue
		}
		if regime != 0 {
			dir := domain.TrendUp
			if s < 0 {
				dir = domain.TrendDown
			}
			changes = append(changes, domain.TrendChange{
				Index:     t,
				Timestamp: points[t].Timestamp,
				Direction: dir,
			})
		}
		regime = s
	}
	return changes
}

func persists(signs []int, from, s, need int) bool {
	count := 0
	for k := from; k < len(signs) && count < need; k++ {
		if signs[k] == -s {
			return false
		}
		if signs[k] == s {
			count++
		}
	}
	return count >= need
}

func slopeSign(slope float64, window []float64) int {
	var level float64
	for _, v := range window {
		level += math.Abs(v)
	}
	level /= float64(len(window))
	eps := 1e-12 * math.Max(1, level)
	switch {
	case slope > eps:
		return 1
	case slope < -eps:
		return -1
	}
	return 0
}
