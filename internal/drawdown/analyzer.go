// Package drawdown decomposes an equity curve into running-maximum drawdowns,
// drawdown episodes, Pain and Ulcer indices and slope-based trend changes.
package drawdown

import (
	"fmt"
	"math"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

type Options struct {
	SlopeWindow    int
	MinPersistence int
}

func DefaultOptions() Options {
	return Options{SlopeWindow: 5, MinPersistence: 3}
}

func (o Options) normalized() Options {
	if o.SlopeWindow < 2 {
		o.SlopeWindow = 2
	}
	if o.MinPersistence < 1 {
		o.MinPersistence = 1
	}
	return o
}

// Analyze computes the drawdown report for an ordered equity series.
func Analyze(points []domain.EquityPoint, opts Options) (domain.DrawdownReport, error) {
	if len(points) < 2 {
		return domain.DrawdownReport{}, fmt.Errorf("drawdown needs at least 2 equity points, got %d: %w",
			len(points), domain.ErrInsufficientData)
	}
	opts = opts.normalized()

	series, peaks := Series(points)
	episodes := segment(points, series, peaks)

	var absSum, sqSum float64
	maxDD := 0.0
	for _, d := range series {
		absSum += math.Abs(d)
		sqSum += d * d
		if d < maxDD {
			maxDD = d
		}
	}
	n := float64(len(series))

	return domain.DrawdownReport{
		Series:          series,
		Episodes:        episodes,
		MaxDrawdown:     maxDD,
		CurrentDrawdown: series[len(series)-1],
		PainIndex:       absSum / n,
		UlcerIndex:      math.Sqrt(sqSum / n),
		TrendChanges:    TrendChanges(points, opts),
	}, nil
}

// Series returns D[t] = (equity[t]-M[t])/M[t] together with the running
// maximum M. D is 0 wherever M is not positive.
func Series(points []domain.EquityPoint) ([]float64, []float64) {
	dd := make([]float64, len(points))
	peaks := make([]float64, len(points))
	peak := math.Inf(-1)
	for i, p := range points {
		if p.Equity > peak {
			peak = p.Equity
		}
		peaks[i] = peak
		if peak <= 0 {
			continue
		}
		d := (p.Equity - peak) / peak
		if d > 0 {
			d = 0
		}
		dd[i] = d
	}
	return dd, peaks
}

func segment(points []domain.EquityPoint, series, peaks []float64) []domain.DrawdownEpisode {
	var episodes []domain.DrawdownEpisode
	var cur *domain.DrawdownEpisode
	lastHigh := 0

	for i, d := range series {
		if d < 0 {
			if cur == nil {
				cur = &domain.DrawdownEpisode{
					StartIndex:    lastHigh,
					TroughIndex:   i,
					RecoveryIndex: -1,
					PeakValue:     peaks[i],
					TroughValue:   points[i].Equity,
					DepthPct:      d,
				}
			}
			if d < cur.DepthPct {
				cur.DepthPct = d
				cur.TroughIndex = i
				cur.TroughValue = points[i].Equity
			}
			cur.EndIndex = i
			continue
		}
		if cur != nil {
			cur.RecoveryIndex = i
			episodes = append(episodes, finish(points, *cur))
			cur = nil
		}
		lastHigh = i
	}

	if cur != nil {
		cur.Active = true
		episodes = append(episodes, finish(points, *cur))
	}
	return episodes
}

func finish(points []domain.EquityPoint, ep domain.DrawdownEpisode) domain.DrawdownEpisode {
	ep.Duration = ep.EndIndex - ep.StartIndex
	ep.StartTime = points[ep.StartIndex].Timestamp
	ep.EndTime = points[ep.EndIndex].Timestamp
	ep.Span = ep.EndTime.Sub(ep.StartTime)
	return ep
}
