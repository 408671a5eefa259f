// Package leverage computes dynamic leverage (notional exposure over equity),
// classifies the trading style from holding durations and proposes a uniform
// de-leveraging when the style threshold is exceeded.
package leverage

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/shopspring/decimal"
)

type Options struct {
	Thresholds map[domain.TradingStyle]float64
	// SubOptimal marks the level under which leverage is rated optimal.
	SubOptimal map[domain.TradingStyle]float64
	// FallbackThreshold applies when there is no position to classify.
	FallbackThreshold float64
	LotSteps          map[string]float64
	DefaultLotStep    float64
}

func DefaultOptions() Options {
	return Options{
		Thresholds: map[domain.TradingStyle]float64{
			domain.StyleScalping: 16.25,
			domain.StyleIntraday: 13.0,
			domain.StyleSwing:    9.75,
		},
		SubOptimal: map[domain.TradingStyle]float64{
			domain.StyleScalping: 10,
			domain.StyleIntraday: 8,
			domain.StyleSwing:    5,
		},
		FallbackThreshold: 16.25,
		DefaultLotStep:    0.01,
	}
}

func (o Options) Threshold(style domain.TradingStyle) float64 {
	if v, ok := o.Thresholds[style]; ok && v > 0 {
		return v
	}
	return o.FallbackThreshold
}

func (o Options) LotStep(symbol string) float64 {
	if v, ok := o.LotSteps[strings.ToUpper(symbol)]; ok && v > 0 {
		return v
	}
	if o.DefaultLotStep > 0 {
		return o.DefaultLotStep
	}
	return 0.01
}

// Ratio is total notional over equity.
func Ratio(positions []domain.Position, equity float64) (float64, error) {
	if equity <= 0 {
		return 0, fmt.Errorf("d-leverage with equity %.2f: %w", equity, domain.ErrDivisionByZero)
	}
	var notional float64
	for _, p := range positions {
		notional += p.Notional()
	}
	return notional / equity, nil
}

// Classify maps an average holding time in minutes to a style. Lower bounds
// are inclusive: 30 minutes is intraday, 60 minutes is swing.
func Classify(avgMinutes float64) domain.TradingStyle {
	switch {
	case avgMinutes < 30:
		return domain.StyleScalping
	case avgMinutes < 60:
		return domain.StyleIntraday
	default:
		return domain.StyleSwing
	}
}

// AverageHolding averages holding minutes over open positions and closed trades.
func AverageHolding(open, closed []domain.Position, now time.Time) (float64, int) {
	var total float64
	n := 0
	for _, set := range [][]domain.Position{open, closed} {
		for _, p := range set {
			total += p.HoldingMinutes(now)
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return total / float64(n), n
}

func Compute(open, closed []domain.Position, equity float64, now time.Time, opts Options) domain.LeverageReport {
	avg, n := AverageHolding(open, closed, now)
	style := domain.StyleNone
	if n > 0 {
		style = Classify(avg)
	}

	rep := domain.LeverageReport{
		Style:             style,
		AvgHoldingMinutes: avg,
		Threshold:         opts.Threshold(style),
		ScaleFactor:       1,
		Rating:            domain.RatingUndefined,
	}

	d, err := Ratio(open, equity)
	if err != nil {
		return rep
	}
	rep.DLeverage = d
	rep.Defined = true
	rep.Rating = rate(d, style, rep.Threshold, opts)

	if d > rep.Threshold && rep.Threshold > 0 {
		rep.Exceeded = true
		rep.ScaleFactor = rep.Threshold / d
		rep.Suggestions = Resize(open, rep.ScaleFactor, opts)
	}
	return rep
}

// Resize scales every position by factor and rounds down to the lot step so
// the resulting leverage never overshoots the target.
func Resize(positions []domain.Position, factor float64, opts Options) []domain.ResizeSuggestion {
	out := make([]domain.ResizeSuggestion, 0, len(positions))
	f := decimal.NewFromFloat(factor)
	for _, p := range positions {
		step := decimal.NewFromFloat(opts.LotStep(p.Symbol))
		target := decimal.NewFromFloat(p.Volume).Mul(f)
		newVol, _ := target.Div(step).Floor().Mul(step).Float64()

		reduce := 0.0
		if p.Volume > 0 {
			reduce = 1 - newVol/p.Volume
		}
		out = append(out, domain.ResizeSuggestion{
			Ticket:    p.Ticket,
			Symbol:    p.Symbol,
			Volume:    p.Volume,
			NewVolume: newVol,
			ReducePct: reduce * 100,
		})
	}
	return out
}

// Apply returns a copy of positions with the suggested volumes.
func Apply(positions []domain.Position, suggestions []domain.ResizeSuggestion) []domain.Position {
	out := make([]domain.Position, len(positions))
	copy(out, positions)
	for i := range out {
		if i < len(suggestions) && suggestions[i].Ticket == out[i].Ticket && suggestions[i].Symbol == out[i].Symbol {
			out[i].Volume = suggestions[i].NewVolume
		}
	}
	return out
}

func rate(d float64, style domain.TradingStyle, threshold float64, opts Options) domain.Rating {
	sub, ok := opts.SubOptimal[style]
	switch {
	case d <= 0 || (ok && d <= sub):
		return domain.RatingOptimal
	case d <= threshold:
		return domain.RatingAcceptable
	default:
		return domain.RatingExcessive
	}
}
