package exposure

import (
	"errors"
	"testing"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(symbol string, dir domain.Direction, volume, price float64) domain.Position {
	return domain.Position{Symbol: symbol, Direction: dir, Volume: volume, ContractSize: 100000, CurrentPrice: price}
}

func TestSector(t *testing.T) {
	cases := map[string]string{
		"XAUUSD":   "metals",
		"BTCUSD":   "crypto",
		"US500":    "indices",
		"XTIUSD":   "energy",
		"EURUSD.m": "EUR",
		"gbpjpy":   "GBP",
		"AAPL":     "other",
	}
	for symbol, want := range cases {
		assert.Equal(t, want, Sector(symbol), symbol)
	}
}

func TestCurrencies(t *testing.T) {
	base, quote, ok := Currencies("EURUSDpro")
	require.True(t, ok)
	assert.Equal(t, "EUR", base)
	assert.Equal(t, "USD", quote)

	_, _, ok = Currencies("US30")
	assert.False(t, ok)
}

func TestAnalyzeConcentration(t *testing.T) {
	positions := []domain.Position{
		pos("USDJPY", domain.DirectionLong, 1, 150),
		pos("USDCHF", domain.DirectionLong, 1, 0.9),
		pos("USDCAD", domain.DirectionShort, 2, 1.35),
	}
	rep := Analyze(positions, domain.AccountInfo{Currency: "USD", Balance: 10000, Margin: 500, MarginFree: 9500}, DefaultOptions())

	// base USD pairs are valued in units
	assert.InDelta(t, 400000, rep.GrossNotional, 1e-9)
	assert.InDelta(t, 50, rep.LongPct, 1e-9)
	assert.InDelta(t, 50, rep.ShortPct, 1e-9)
	require.Len(t, rep.Allocations, 3)
	assert.Equal(t, "USDCAD", rep.Allocations[0].Symbol)
	assert.InDelta(t, 50, rep.MaxExposurePct, 1e-9)
	assert.InDelta(t, 100, rep.Top3Pct, 1e-9)
	assert.InDelta(t, 0.25+0.0625+0.0625, rep.HHI, 1e-9)
	assert.Equal(t, "USD", rep.TopSector)
	assert.InDelta(t, 100, rep.TopSectorPct, 1e-9)
	assert.InDelta(t, 500.0/9500*100, rep.MarginPct, 1e-9)

	assert.Contains(t, rep.Recommendations[0], "High position concentration")
	assert.Contains(t, rep.Recommendations[1], "Oversized exposure on USDCAD")
}

func TestAnalyzeDirectionalSkew(t *testing.T) {
	positions := []domain.Position{
		pos("EURUSD", domain.DirectionLong, 1, 1),
		pos("GBPUSD", domain.DirectionLong, 1, 1),
		pos("AUDUSD", domain.DirectionLong, 1, 1),
		pos("NZDUSD", domain.DirectionLong, 1, 1),
		pos("USDCAD", domain.DirectionLong, 1, 1),
	}
	rep := Analyze(positions, domain.AccountInfo{Currency: "USD", Balance: 1000}, DefaultOptions())
	assert.InDelta(t, 100, rep.LongPct, 1e-9)
	require.Len(t, rep.Recommendations, 1)
	assert.Contains(t, rep.Recommendations[0], "skewed LONG")
}

func TestAnalyzeBalanced(t *testing.T) {
	positions := []domain.Position{
		pos("EURUSD", domain.DirectionLong, 1, 1),
		pos("GBPJPY", domain.DirectionShort, 1, 1),
		pos("AUDCAD", domain.DirectionLong, 1, 1),
		pos("NZDCHF", domain.DirectionShort, 1, 1),
		pos("XAUUSD", domain.DirectionLong, 1, 1),
		pos("US500", domain.DirectionShort, 1, 1),
	}
	rep := Analyze(positions, domain.AccountInfo{Currency: "USD", Balance: 1000}, DefaultOptions())
	assert.Equal(t, []string{"Allocation looks balanced. No specific recommendation."}, rep.Recommendations)
}

func TestAnalyzeEmpty(t *testing.T) {
	rep := Analyze(nil, domain.AccountInfo{Currency: "USD", Balance: 1000}, DefaultOptions())
	assert.Zero(t, rep.GrossNotional)
	assert.Empty(t, rep.Allocations)
	assert.Zero(t, rep.ClusterSize)
	assert.True(t, rep.DailyPnLDefined)
	assert.Equal(t, []string{"No open positions to analyse."}, rep.Recommendations)
}

func TestCluster(t *testing.T) {
	positions := []domain.Position{
		pos("EURUSD", domain.DirectionLong, 1, 1),  // EUR long, USD short
		pos("GBPUSD", domain.DirectionLong, 1, 1),  // GBP long, USD short
		pos("USDJPY", domain.DirectionShort, 1, 1), // USD short, JPY long
		pos("USDCHF", domain.DirectionLong, 1, 1),  // USD long, CHF short
		pos("US500", domain.DirectionLong, 1, 1),
	}
	ccy, dir, n := Cluster(positions)
	assert.Equal(t, "USD", ccy)
	assert.Equal(t, domain.DirectionShort, dir)
	assert.Equal(t, 3, n)
}

func TestClusterTieBreak(t *testing.T) {
	ccy, dir, n := Cluster([]domain.Position{pos("EURUSD", domain.DirectionLong, 1, 1)})
	assert.Equal(t, "EUR", ccy)
	assert.Equal(t, domain.DirectionLong, dir)
	assert.Equal(t, 1, n)
}

func TestDailyPnLPct(t *testing.T) {
	positions := []domain.Position{{Profit: 120, Swap: -20}, {Profit: -300}}
	got, err := DailyPnLPct(positions, domain.AccountInfo{Balance: 10000})
	require.NoError(t, err)
	assert.InDelta(t, -2, got, 1e-12)

	_, err = DailyPnLPct(positions, domain.AccountInfo{Balance: 0})
	assert.True(t, errors.Is(err, domain.ErrDivisionByZero))
}

func TestMarginPctNoFreeMargin(t *testing.T) {
	assert.Zero(t, MarginPct(domain.AccountInfo{Margin: 100, MarginFree: 0}))
}

func heldSince(p domain.Position, open time.Time) domain.Position {
	p.OpenTime = open
	return p
}

func TestDurations(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	positions := []domain.Position{
		heldSince(pos("USDJPY", domain.DirectionLong, 1, 150), now.Add(-10*time.Minute)),
		heldSince(pos("USDCHF", domain.DirectionShort, 1, 0.9), now.Add(-45*time.Minute)),
		heldSince(pos("USDCAD", domain.DirectionLong, 2, 1.35), now.Add(-72*time.Hour)),
	}
	got := Durations(positions, "USD", now)
	require.Len(t, got, 3, "empty day_trading bucket is omitted")

	assert.Equal(t, "scalping", got[0].Label)
	assert.InDelta(t, 25, got[0].Pct, 1e-9)
	assert.InDelta(t, 100000, got[0].LongNotional, 1e-9)

	assert.Equal(t, "intraday", got[1].Label)
	assert.InDelta(t, 100000, got[1].ShortNotional, 1e-9)
	assert.Zero(t, got[1].LongNotional)

	assert.Equal(t, "swing", got[2].Label)
	assert.Equal(t, 1, got[2].Positions)
	assert.InDelta(t, 50, got[2].Pct, 1e-9)

	rep := Analyze(positions, domain.AccountInfo{Currency: "USD", Balance: 1000}, DefaultOptions())
	assert.Empty(t, rep.Durations, "no clock, no duration breakdown")

	opts := DefaultOptions()
	opts.Now = now
	rep = Analyze(positions, domain.AccountInfo{Currency: "USD", Balance: 1000}, opts)
	assert.Len(t, rep.Durations, 3)
}

func TestSizing(t *testing.T) {
	positions := []domain.Position{
		pos("USDJPY", domain.DirectionLong, 1, 150),
		pos("USDCHF", domain.DirectionShort, 1, 0.9),
		pos("USDCAD", domain.DirectionLong, 2, 1.35),
	}
	s := Sizing(positions, domain.AccountInfo{Currency: "USD", Equity: 200000})
	require.True(t, s.Defined)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 200.0/3, s.AvgPct, 1e-9)
	assert.InDelta(t, 100, s.MaxPct, 1e-9)
	assert.InDelta(t, 50, s.MinPct, 1e-9)
	assert.InDelta(t, 0.375, s.HHI, 1e-9)

	s = Sizing(positions, domain.AccountInfo{Currency: "USD"})
	assert.False(t, s.Defined)
	assert.Equal(t, 3, s.Count)

	assert.False(t, Sizing(nil, domain.AccountInfo{Equity: 1000}).Defined)
}
