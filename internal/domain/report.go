package domain

import "time"

type Section string

const (
	SectionVaR         Section = "var"
	SectionDrawdown    Section = "drawdown"
	SectionLeverage    Section = "leverage"
	SectionExposure    Section = "exposure"
	SectionPerformance Section = "performance"
	SectionScore       Section = "score"
)

type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// RiskReport is the result set of one refresh cycle. It is published as a
// whole and never mutated afterwards.
type RiskReport struct {
	Cycle        int64                    `json:"cycle"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Account      AccountInfo              `json:"account"`
	EquityPoints int                      `json:"equity_points"`
	Positions    int                      `json:"positions"`
	Availability map[Section]Availability `json:"availability"`

	VaR         VaRReport         `json:"var"`
	Drawdown    DrawdownReport    `json:"drawdown"`
	Leverage    LeverageReport    `json:"leverage"`
	Exposure    ExposureReport    `json:"exposure"`
	Performance PerformanceReport `json:"performance"`
	Score       RiskScore         `json:"score"`

	Alerts      []Alert      `json:"alerts"`
	Suggestions []Suggestion `json:"suggestions"`
}

func (r *RiskReport) SetAvailability(s Section, err error) {
	if r.Availability == nil {
		r.Availability = make(map[Section]Availability)
	}
	if err != nil {
		r.Availability[s] = Availability{Available: false, Reason: err.Error()}
		return
	}
	r.Availability[s] = Availability{Available: true}
}

func (r *RiskReport) IsAvailable(s Section) bool {
	a, ok := r.Availability[s]
	return ok && a.Available
}
