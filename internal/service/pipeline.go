package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/drawdown"
	"github.com/louisruiz/mt5-trading-analyzer/internal/exposure"
	"github.com/louisruiz/mt5-trading-analyzer/internal/leverage"
	"github.com/louisruiz/mt5-trading-analyzer/internal/performance"
	"github.com/louisruiz/mt5-trading-analyzer/internal/riskscore"
	"github.com/louisruiz/mt5-trading-analyzer/internal/stats"
	"github.com/louisruiz/mt5-trading-analyzer/internal/tailrisk"
)

// AnalyzeOptions carries the process-level knobs that are not part of the
// user settings file.
type AnalyzeOptions struct {
	Seed        *uint64
	RequireSeed bool
	// Simulations overrides the settings value when positive.
	Simulations int
	Now         time.Time
}

// Analyze runs every analyzer over one snapshot. It performs no I/O, so the
// same snapshot, settings and seed always give the same report. Alerts are
// not evaluated here.
func Analyze(snap domain.Snapshot, st config.Settings, opts AnalyzeOptions) (*domain.RiskReport, error) {
	if err := domain.ValidateSeries(snap.Equity); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositions(snap.Positions); err != nil {
		return nil, err
	}
	now := opts.Now
	if now.IsZero() {
		now = snap.FetchedAt
	}

	r := &domain.RiskReport{
		GeneratedAt:  now,
		Account:      snap.Account,
		EquityPoints: len(snap.Equity),
		Positions:    len(snap.Positions),
	}

	var err error
	returns := stats.Returns(snap.Equity)
	r.VaR, err = tailrisk.NewEngine(TailRiskOptions(st, opts)).Compute(returns)
	if errors.Is(err, domain.ErrSimulationNonDeterminism) {
		return nil, err
	}
	r.SetAvailability(domain.SectionVaR, err)

	r.Drawdown, err = drawdown.Analyze(snap.Equity, drawdown.Options{
		SlopeWindow:    st.Analytics.SlopeWindow,
		MinPersistence: st.Analytics.MinPersistence,
	})
	r.SetAvailability(domain.SectionDrawdown, err)

	r.Leverage = leverage.Compute(snap.Positions, snap.Closed, snap.CurrentEquity(), now, LeverageOptions(st))
	if r.Leverage.Defined {
		r.SetAvailability(domain.SectionLeverage, nil)
	} else {
		r.SetAvailability(domain.SectionLeverage,
			fmt.Errorf("equity %.2f: %w", snap.CurrentEquity(), domain.ErrDivisionByZero))
	}

	exposureOpts := exposure.DefaultOptions()
	exposureOpts.Now = now
	r.Exposure = exposure.Analyze(snap.Positions, snap.Account, exposureOpts)
	r.SetAvailability(domain.SectionExposure, nil)

	perfOpts := performance.DefaultOptions()
	perfOpts.RollingWindow = st.Analytics.RollingWindow
	r.Performance, err = performance.Compute(snap.Equity, perfOpts)
	r.SetAvailability(domain.SectionPerformance, err)

	r.Score = riskscore.Compute(riskscore.Metrics(r), st.AlertThresholds, st.RiskScore.Weights, st.RiskScore.Bands)
	if r.Score.Available {
		r.SetAvailability(domain.SectionScore, nil)
	} else {
		r.SetAvailability(domain.SectionScore,
			fmt.Errorf("no risk component available: %w", domain.ErrInsufficientData))
	}
	return r, nil
}

func TailRiskOptions(st config.Settings, opts AnalyzeOptions) tailrisk.Options {
	o := tailrisk.DefaultOptions()
	o.MinSamples = st.Analytics.MinSamples
	o.Simulations = st.Analytics.Simulations
	if opts.Simulations > 0 {
		o.Simulations = opts.Simulations
	}
	o.Sampling = tailrisk.Sampling(st.Analytics.Sampling)
	o.RatioWindow = st.Analytics.RatioWindow
	o.Seed = opts.Seed
	o.RequireSeed = opts.RequireSeed
	return o
}

// LeverageOptions uses the configured d_leverage threshold when no style can
// be classified.
func LeverageOptions(st config.Settings) leverage.Options {
	o := leverage.DefaultOptions()
	if st.AlertThresholds.DLeverage > 0 {
		o.FallbackThreshold = st.AlertThresholds.DLeverage
	}
	if st.Analytics.DefaultLotStep > 0 {
		o.DefaultLotStep = st.Analytics.DefaultLotStep
	}
	o.LotSteps = st.Analytics.LotSteps
	return o
}
