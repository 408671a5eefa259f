package domain

import (
	"fmt"
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Sign returns +1 for long and -1 for short exposure.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
	Balance   float64   `json:"balance"`
}

type Position struct {
	Ticket       int64      `json:"ticket"`
	Symbol       string     `json:"symbol"`
	Direction    Direction  `json:"direction"`
	Volume       float64    `json:"volume"`
	ContractSize float64    `json:"contract_size"`
	OpenPrice    float64    `json:"open_price"`
	CurrentPrice float64    `json:"current_price"`
	OpenTime     time.Time  `json:"open_time"`
	CloseTime    *time.Time `json:"close_time,omitempty"`
	Swap         float64    `json:"swap"`
	Profit       float64    `json:"profit"`
}

// Notional is volume times contract size, in units of the base instrument.
func (p Position) Notional() float64 {
	return p.Volume * p.ContractSize
}

// HoldingMinutes is measured to the close time for closed trades and to now otherwise.
func (p Position) HoldingMinutes(now time.Time) float64 {
	end := now
	if p.CloseTime != nil {
		end = *p.CloseTime
	}
	d := end.Sub(p.OpenTime).Minutes()
	if d < 0 {
		return 0
	}
	return d
}

type AccountInfo struct {
	Login      int64   `json:"login"`
	Currency   string  `json:"currency"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	MarginFree float64 `json:"margin_free"`
}

// Snapshot is everything the broker connector hands over for one refresh cycle.
type Snapshot struct {
	Account   AccountInfo   `json:"account"`
	Equity    []EquityPoint `json:"equity"`
	Positions []Position    `json:"positions"`
	Closed    []Position    `json:"closed,omitempty"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// CurrentEquity prefers the live account equity and falls back to the last
// point of the series.
func (s Snapshot) CurrentEquity() float64 {
	if s.Account.Equity != 0 || len(s.Equity) == 0 {
		return s.Account.Equity
	}
	return s.Equity[len(s.Equity)-1].Equity
}

// ValidateSeries checks that timestamps are strictly increasing.
func ValidateSeries(points []EquityPoint) error {
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			return fmt.Errorf("equity series not strictly increasing at index %d (%s <= %s)",
				i, points[i].Timestamp.Format(time.RFC3339), points[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// ValidatePositions rejects malformed position records.
func ValidatePositions(positions []Position) error {
	for i, p := range positions {
		if p.Symbol == "" {
			return fmt.Errorf("position %d: empty symbol", i)
		}
		if !p.Direction.IsValid() {
			return fmt.Errorf("position %d (%s): invalid direction %q", i, p.Symbol, p.Direction)
		}
		if p.Volume < 0 || p.ContractSize < 0 {
			return fmt.Errorf("position %d (%s): negative volume or contract size", i, p.Symbol)
		}
	}
	return nil
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}
