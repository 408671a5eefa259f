// Package performance computes return and risk-adjusted performance ratios
// for an equity curve.
package performance

import (
	"fmt"
	"math"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/drawdown"
	"github.com/louisruiz/mt5-trading-analyzer/internal/stats"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	PeriodsPerYear int
	RiskFreeRate   float64
	// RollingWindow is the number of returns per rolling window. Zero
	// leaves the rolling series out of the report.
	RollingWindow int
}

func DefaultOptions() Options {
	return Options{PeriodsPerYear: 252, RiskFreeRate: 0.03, RollingWindow: 30}
}

// cut-offs for poor, acceptable, good and very good; anything above is excellent
var (
	sharpeCutoffs  = [4]float64{0.5, 1, 2, 3}
	sortinoCutoffs = [4]float64{0.5, 1, 2, 3}
	calmarCutoffs  = [4]float64{0.5, 1, 3, 5}
)

func Compute(points []domain.EquityPoint, opts Options) (domain.PerformanceReport, error) {
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultOptions().PeriodsPerYear
	}
	returns := stats.Returns(points)
	if len(returns) < 2 {
		return domain.PerformanceReport{}, fmt.Errorf("performance needs 2 returns, have %d: %w",
			len(returns), domain.ErrInsufficientData)
	}
	periods := float64(opts.PeriodsPerYear)
	first, last := points[0].Equity, points[len(points)-1].Equity

	var rep domain.PerformanceReport
	if first > 0 {
		rep.TotalReturnPct = (last/first - 1) * 100
	}
	rep.AnnualReturnPct = rep.TotalReturnPct * periods / float64(len(returns))

	_, std := stats.MeanStd(returns)
	rep.VolatilityPct = std * math.Sqrt(periods) * 100

	dd, _ := drawdown.Series(points)
	rep.MaxDrawdownPct = floats.Min(dd) * 100

	excess := excessReturns(returns, opts)
	exMean, _ := stats.MeanStd(excess)

	rep.SharpeRating = domain.RatingUndefined
	if v, ok := sharpe(excess, periods); ok {
		rep.Sharpe = v
		rep.SharpeRating = rating(rep.Sharpe, sharpeCutoffs)
	}

	rep.SortinoRating = domain.RatingUndefined
	if downside := downsideDeviation(excess); downside > 0 {
		rep.Sortino = exMean * periods / (downside * math.Sqrt(periods))
		rep.SortinoRating = rating(rep.Sortino, sortinoCutoffs)
	}

	rep.CalmarRating = domain.RatingUndefined
	if rep.MaxDrawdownPct < 0 {
		rep.Calmar = rep.AnnualReturnPct / math.Abs(rep.MaxDrawdownPct)
		rep.CalmarRating = rating(rep.Calmar, calmarCutoffs)
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	rep.WinRatio = float64(wins) / float64(len(returns)) * 100
	rep.BestPct = floats.Max(returns) * 100
	rep.WorstPct = floats.Min(returns) * 100

	if std > 0 {
		if len(returns) > 2 {
			rep.Skew = stats.Finite(stat.Skew(returns, nil))
		}
		if len(returns) > 3 {
			rep.ExcessKurtosis = stats.Finite(stat.ExKurtosis(returns, nil))
		}
	}

	if opts.RollingWindow > 0 && len(points) > opts.RollingWindow {
		rep.RollingWindow = opts.RollingWindow
		rep.Rolling, _ = Rolling(points, opts.RollingWindow, opts)
	}
	return rep, nil
}

// Rolling computes return, volatility, Sharpe and max drawdown over every
// window of window+1 consecutive equity points. Each point is stamped with
// the last timestamp of its window.
func Rolling(points []domain.EquityPoint, window int, opts Options) ([]domain.RollingPoint, error) {
	if window < 2 {
		return nil, fmt.Errorf("rolling window %d: %w", window, domain.ErrConfigurationInvalid)
	}
	if len(points) < window+1 {
		return nil, fmt.Errorf("rolling window %d needs %d points, have %d: %w",
			window, window+1, len(points), domain.ErrInsufficientData)
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultOptions().PeriodsPerYear
	}
	periods := float64(opts.PeriodsPerYear)

	out := make([]domain.RollingPoint, 0, len(points)-window)
	for end := window; end < len(points); end++ {
		w := points[end-window : end+1]
		p := domain.RollingPoint{Timestamp: w[len(w)-1].Timestamp}
		if first := w[0].Equity; first > 0 {
			p.ReturnPct = (w[len(w)-1].Equity/first - 1) * 100
		}
		returns := stats.Returns(w)
		_, std := stats.MeanStd(returns)
		p.VolatilityPct = std * math.Sqrt(periods) * 100
		p.Sharpe, p.SharpeDefined = sharpe(excessReturns(returns, opts), periods)
		dd, _ := drawdown.Series(w)
		p.MaxDrawdownPct = floats.Min(dd) * 100
		out = append(out, p)
	}
	return out, nil
}

func excessReturns(returns []float64, opts Options) []float64 {
	rfPeriod := math.Pow(1+opts.RiskFreeRate, 1/float64(opts.PeriodsPerYear)) - 1
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rfPeriod
	}
	return excess
}

// sharpe is the annualised mean over standard deviation of excess returns.
func sharpe(excess []float64, periods float64) (float64, bool) {
	mean, std := stats.MeanStd(excess)
	if std <= 0 {
		return 0, false
	}
	return mean / std * math.Sqrt(periods), true
}

// downsideDeviation is the root mean square of the negative excess returns.
func downsideDeviation(excess []float64) float64 {
	var sum float64
	n := 0
	for _, r := range excess {
		if r < 0 {
			sum += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func rating(v float64, cutoffs [4]float64) domain.Rating {
	switch {
	case v < cutoffs[0]:
		return domain.RatingPoor
	case v < cutoffs[1]:
		return domain.RatingAcceptable
	case v < cutoffs[2]:
		return domain.RatingGood
	case v < cutoffs[3]:
		return domain.RatingVeryGood
	default:
		return domain.RatingExcellent
	}
}
