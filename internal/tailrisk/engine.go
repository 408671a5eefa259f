// Package tailrisk estimates Value at Risk and Expected Shortfall from a
// periodic return series using parametric, historical and Monte Carlo methods.
package tailrisk

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

type Sampling string

const (
	SamplingNormal    Sampling = "normal"
	SamplingBootstrap Sampling = "bootstrap"
)

type Options struct {
	Horizons    []domain.Horizon
	Confidences []float64
	// MinSamples gates the historical and Monte Carlo methods. Parametric
	// only needs two returns.
	MinSamples  int
	Simulations int
	Sampling    Sampling
	Seed        *uint64
	RequireSeed bool
	RatioWindow int
	RatioMethod domain.VaRMethod
}

func DefaultOptions() Options {
	return Options{
		Horizons:    domain.DefaultHorizons,
		Confidences: domain.DefaultConfidences,
		MinSamples:  10,
		Simulations: 10000,
		Sampling:    SamplingNormal,
		RatioWindow: 126,
		RatioMethod: domain.VaRParametric,
	}
}

type Engine struct {
	opts Options
	now  func() time.Time
}

func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if len(opts.Horizons) == 0 {
		opts.Horizons = def.Horizons
	}
	if len(opts.Confidences) == 0 {
		opts.Confidences = def.Confidences
	}
	if opts.MinSamples < 2 {
		opts.MinSamples = def.MinSamples
	}
	if opts.Simulations <= 0 {
		opts.Simulations = def.Simulations
	}
	if opts.Sampling != SamplingBootstrap {
		opts.Sampling = SamplingNormal
	}
	if opts.RatioWindow < 2 {
		opts.RatioWindow = def.RatioWindow
	}
	if opts.RatioMethod != domain.VaRHistorical {
		opts.RatioMethod = domain.VaRParametric
	}
	return &Engine{opts: opts, now: time.Now}
}

// Compute returns one result per method, horizon and confidence. With fewer
// than MinSamples returns only the parametric method is computed and the
// report is flagged partial.
func (e *Engine) Compute(returns []float64) (domain.VaRReport, error) {
	n := len(returns)
	rep := domain.VaRReport{Samples: n}
	if n < 2 {
		return rep, fmt.Errorf("var needs at least 2 returns, got %d: %w", n, domain.ErrInsufficientData)
	}

	mean, std := stats.MeanStd(returns)
	rep.Mean, rep.StdDev = mean, std

	full := n >= e.opts.MinSamples
	if full {
		seed, seeded, err := e.seed()
		if err != nil {
			return rep, err
		}
		rep.Seed, rep.Seeded = seed, seeded
	} else {
		rep.Partial = true
		rep.Missing = []domain.VaRMethod{domain.VaRHistorical, domain.VaRMonteCarlo}
	}

	for _, h := range e.opts.Horizons {
		for _, c := range e.opts.Confidences {
			v, es := Parametric(mean, std, c, h.Periods)
			rep.Results = append(rep.Results, result(domain.VaRParametric, h, c, v, es))
		}
	}
	if !full {
		rep.Ratio = e.ratio(returns)
		return rep, nil
	}

	sorted := stats.Sorted(returns)
	for _, h := range e.opts.Horizons {
		for _, c := range e.opts.Confidences {
			v, es := Historical(sorted, c, h.Periods)
			rep.Results = append(rep.Results, result(domain.VaRHistorical, h, c, v, es))
		}
	}

	src := rand.NewPCG(rep.Seed, rep.Seed^0x9e3779b97f4a7c15)
	for _, h := range e.opts.Horizons {
		sims := e.simulate(src, returns, mean, std, h.Periods)
		for _, c := range e.opts.Confidences {
			v, es := tail(sims, c, 1)
			rep.Results = append(rep.Results, result(domain.VaRMonteCarlo, h, c, v, es))
		}
	}

	rep.Ratio = e.ratio(returns)
	return rep, nil
}

func (e *Engine) seed() (uint64, bool, error) {
	if e.opts.Seed != nil {
		return *e.opts.Seed, true, nil
	}
	if e.opts.RequireSeed {
		return 0, false, fmt.Errorf("monte carlo var: %w", domain.ErrSimulationNonDeterminism)
	}
	return uint64(e.now().UnixNano()), false, nil
}

// Parametric returns VaR and ES under a normal fit, scaled by sqrt(periods).
func Parametric(mean, std, confidence float64, periods int) (float64, float64) {
	tailProb := 1 - confidence
	z := distuv.UnitNormal.Quantile(tailProb)
	scale := math.Sqrt(float64(periods))
	v := -(mean + z*std) * scale
	es := -(mean - std*distuv.UnitNormal.Prob(z)/tailProb) * scale
	return v, es
}

// Historical reads VaR off the empirical (1-c) quantile and ES off the mean
// of the returns at or below it, both scaled by sqrt(periods).
func Historical(sorted []float64, confidence float64, periods int) (float64, float64) {
	return tail(sorted, confidence, math.Sqrt(float64(periods)))
}

func tail(sorted []float64, confidence, scale float64) (float64, float64) {
	q := stats.Quantile(sorted, 1-confidence)
	return -q * scale, -stats.TailMean(sorted, q) * scale
}

// simulate sums periods draws per path and returns the sorted path totals.
func (e *Engine) simulate(src rand.Source, returns []float64, mean, std float64, periods int) []float64 {
	sims := make([]float64, e.opts.Simulations)
	switch e.opts.Sampling {
	case SamplingBootstrap:
		rng := rand.New(src)
		for i := range sims {
			var sum float64
			for k := 0; k < periods; k++ {
				sum += returns[rng.IntN(len(returns))]
			}
			sims[i] = sum
		}
	default:
		dist := distuv.Normal{Mu: mean, Sigma: std, Src: src}
		for i := range sims {
			var sum float64
			for k := 0; k < periods; k++ {
				sum += dist.Rand()
			}
			sims[i] = sum
		}
	}
	return stats.Sorted(sims)
}

// ratio slides a window over the returns and compares the largest and
// smallest one-month 95% VaR seen.
func (e *Engine) ratio(returns []float64) domain.VaRRatio {
	n := len(returns)
	w := e.opts.RatioWindow
	if n < w {
		w = max(2, n/2)
	}
	if n < w {
		return domain.VaRRatio{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	windows := 0
	for end := w; end <= n; end++ {
		v := e.monthlyVaR(returns[end-w : end])
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		windows++
	}

	r := domain.VaRRatio{Min: lo, Max: hi, Windows: windows}
	if lo > 0 {
		r.Value = hi / lo
		r.Defined = true
	}
	return r
}

func (e *Engine) monthlyVaR(window []float64) float64 {
	periods := domain.HorizonMonth.Periods
	if e.opts.RatioMethod == domain.VaRHistorical {
		v, _ := Historical(stats.Sorted(window), 0.95, periods)
		return v
	}
	mean, std := stats.MeanStd(window)
	v, _ := Parametric(mean, std, 0.95, periods)
	return v
}

func result(m domain.VaRMethod, h domain.Horizon, c, v, es float64) domain.VaRResult {
	return domain.VaRResult{
		Method:            m,
		Horizon:           h.Name,
		Periods:           h.Periods,
		Confidence:        c,
		Value:             v,
		ExpectedShortfall: es,
	}
}
