// Package exposure measures how the open book is spread across symbols,
// sectors, currencies and directions, and derives the account-level margin
// and daily P&L metrics.
package exposure

import (
	"fmt"
	"sort"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

type Options struct {
	ConcentrationHHI float64
	OversizedPct     float64
	DirectionalPct   float64
	// Now dates holding times for the duration breakdown. The breakdown is
	// left empty when Now is zero.
	Now time.Time
}

func DefaultOptions() Options {
	return Options{ConcentrationHHI: 0.25, OversizedPct: 40, DirectionalPct: 80}
}

func Analyze(positions []domain.Position, account domain.AccountInfo, opts Options) domain.ExposureReport {
	rep := domain.ExposureReport{
		Sectors:   map[string]float64{},
		MarginPct: MarginPct(account),
	}
	if pnl, err := DailyPnLPct(positions, account); err == nil {
		rep.DailyPnLPct = pnl
		rep.DailyPnLDefined = true
	}

	bySymbol := map[string]float64{}
	bySector := map[string]float64{}
	for _, p := range positions {
		v := valueNotional(p, account.Currency)
		if p.Direction == domain.DirectionShort {
			rep.ShortNotional += v
		} else {
			rep.LongNotional += v
		}
		bySymbol[p.Symbol] += v
		bySector[Sector(p.Symbol)] += v
	}
	rep.GrossNotional = rep.LongNotional + rep.ShortNotional
	rep.NetNotional = rep.LongNotional - rep.ShortNotional

	if rep.GrossNotional > 0 {
		rep.LongPct = rep.LongNotional / rep.GrossNotional * 100
		rep.ShortPct = rep.ShortNotional / rep.GrossNotional * 100
		rep.Allocations = allocations(bySymbol, rep.GrossNotional)
		for i, a := range rep.Allocations {
			w := a.Pct / 100
			rep.HHI += w * w
			if i < 3 {
				rep.Top3Pct += a.Pct
			}
		}
		rep.MaxExposurePct = rep.Allocations[0].Pct

		for sector, v := range bySector {
			rep.Sectors[sector] = v / rep.GrossNotional * 100
		}
		rep.TopSector, rep.TopSectorPct = topSector(rep.Sectors)
	}

	rep.ClusterCurrency, rep.ClusterDirection, rep.ClusterSize = Cluster(positions)
	if !opts.Now.IsZero() {
		rep.Durations = Durations(positions, account.Currency, opts.Now)
	}
	rep.Sizing = Sizing(positions, account)
	rep.Recommendations = recommendations(rep, len(positions), opts)
	return rep
}

// MarginPct is used margin relative to free margin, in percent.
func MarginPct(account domain.AccountInfo) float64 {
	if account.MarginFree <= 0 {
		return 0
	}
	return account.Margin / account.MarginFree * 100
}

// DailyPnLPct is the floating profit of open positions relative to balance, in percent.
func DailyPnLPct(positions []domain.Position, account domain.AccountInfo) (float64, error) {
	if account.Balance <= 0 {
		return 0, fmt.Errorf("daily p&l with balance %.2f: %w", account.Balance, domain.ErrDivisionByZero)
	}
	var pnl float64
	for _, p := range positions {
		pnl += p.Profit + p.Swap
	}
	return pnl / account.Balance * 100, nil
}

// Cluster finds the largest group of FX positions pushing the same currency
// in the same direction. A long EURUSD is long EUR and short USD.
func Cluster(positions []domain.Position) (string, domain.Direction, int) {
	type key struct {
		ccy string
		dir domain.Direction
	}
	counts := map[key]int{}
	for _, p := range positions {
		base, quote, ok := Currencies(p.Symbol)
		if !ok {
			continue
		}
		baseDir, quoteDir := domain.DirectionLong, domain.DirectionShort
		if p.Direction == domain.DirectionShort {
			baseDir, quoteDir = quoteDir, baseDir
		}
		counts[key{base, baseDir}]++
		counts[key{quote, quoteDir}]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		if keys[i].ccy != keys[j].ccy {
			return keys[i].ccy < keys[j].ccy
		}
		return keys[i].dir < keys[j].dir
	})
	if len(keys) == 0 {
		return "", "", 0
	}
	return keys[0].ccy, keys[0].dir, counts[keys[0]]
}

type durationBucket struct {
	label      string
	maxMinutes float64
}

var durationBuckets = []durationBucket{
	{"scalping", 30},
	{"intraday", 60},
	{"day_trading", 24 * 60},
	{"swing", 0},
}

func bucketFor(minutes float64) int {
	for i, b := range durationBuckets {
		if b.maxMinutes > 0 && minutes < b.maxMinutes {
			return i
		}
	}
	return len(durationBuckets) - 1
}

// Durations splits the open notional by holding time: under 30 minutes,
// under an hour, under a day and longer. Empty buckets are omitted and the
// rest keep that order.
func Durations(positions []domain.Position, accountCurrency string, now time.Time) []domain.DurationBucket {
	buckets := make([]domain.DurationBucket, len(durationBuckets))
	var total float64
	for _, p := range positions {
		b := &buckets[bucketFor(p.HoldingMinutes(now))]
		v := valueNotional(p, accountCurrency)
		b.Positions++
		b.Notional += v
		if p.Direction == domain.DirectionShort {
			b.ShortNotional += v
		} else {
			b.LongNotional += v
		}
		total += v
	}
	var out []domain.DurationBucket
	for i, b := range buckets {
		if b.Positions == 0 {
			continue
		}
		b.Label = durationBuckets[i].label
		if total > 0 {
			b.Pct = b.Notional / total * 100
		}
		out = append(out, b)
	}
	return out
}

// Sizing measures each position's notional against account equity.
func Sizing(positions []domain.Position, account domain.AccountInfo) domain.PositionSizing {
	s := domain.PositionSizing{Count: len(positions)}
	if len(positions) == 0 || account.Equity <= 0 {
		return s
	}
	s.Defined = true
	sizes := make([]float64, len(positions))
	var total float64
	for i, p := range positions {
		sizes[i] = valueNotional(p, account.Currency)
		total += sizes[i]
	}
	s.MinPct = sizes[0] / account.Equity * 100
	for _, v := range sizes {
		pct := v / account.Equity * 100
		s.AvgPct += pct
		s.MaxPct = max(s.MaxPct, pct)
		s.MinPct = min(s.MinPct, pct)
		if total > 0 {
			w := v / total
			s.HHI += w * w
		}
	}
	s.AvgPct /= float64(len(sizes))
	return s
}

func valueNotional(p domain.Position, accountCurrency string) float64 {
	units := p.Notional()
	if base, _, ok := Currencies(p.Symbol); ok && base == accountCurrency {
		return units
	}
	price := p.CurrentPrice
	if price <= 0 {
		price = p.OpenPrice
	}
	if price <= 0 {
		return units
	}
	return units * price
}

func allocations(bySymbol map[string]float64, gross float64) []domain.SymbolAllocation {
	out := make([]domain.SymbolAllocation, 0, len(bySymbol))
	for symbol, v := range bySymbol {
		out = append(out, domain.SymbolAllocation{Symbol: symbol, Notional: v, Pct: v / gross * 100})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Notional != out[j].Notional {
			return out[i].Notional > out[j].Notional
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func topSector(sectors map[string]float64) (string, float64) {
	names := make([]string, 0, len(sectors))
	for name := range sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	best, pct := "", 0.0
	for _, name := range names {
		if sectors[name] > pct {
			best, pct = name, sectors[name]
		}
	}
	return best, pct
}

func recommendations(rep domain.ExposureReport, n int, opts Options) []string {
	if n == 0 {
		return []string{"No open positions to analyse."}
	}
	var out []string
	if rep.HHI > opts.ConcentrationHHI {
		out = append(out, fmt.Sprintf(
			"High position concentration (HHI %.2f). Diversify to reduce instrument-specific risk.", rep.HHI))
	}
	if n > 1 && rep.MaxExposurePct > opts.OversizedPct {
		out = append(out, fmt.Sprintf(
			"Oversized exposure on %s (%.1f%% of gross exposure). Consider trimming it.",
			rep.Allocations[0].Symbol, rep.MaxExposurePct))
	}
	switch {
	case rep.LongPct > opts.DirectionalPct:
		out = append(out, fmt.Sprintf(
			"Exposure heavily skewed LONG (%.1f%%). Consider offsetting the directional risk.", rep.LongPct))
	case rep.ShortPct > opts.DirectionalPct:
		out = append(out, fmt.Sprintf(
			"Exposure heavily skewed SHORT (%.1f%%). Consider offsetting the directional risk.", rep.ShortPct))
	}
	if len(out) == 0 {
		out = append(out, "Allocation looks balanced. No specific recommendation.")
	}
	return out
}
