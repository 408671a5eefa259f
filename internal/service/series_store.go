package service

import (
	"sync/atomic"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

// SeriesStore holds the snapshot of the current refresh cycle. The refresh
// task replaces it wholesale; readers never see a partially updated set.
type SeriesStore struct {
	current atomic.Pointer[domain.Snapshot]
}

func NewSeriesStore() *SeriesStore {
	return &SeriesStore{}
}

// Replace installs a copy of snap so later changes by the caller cannot leak in.
func (s *SeriesStore) Replace(snap domain.Snapshot) {
	c := snap
	c.Equity = append([]domain.EquityPoint(nil), snap.Equity...)
	c.Positions = append([]domain.Position(nil), snap.Positions...)
	c.Closed = append([]domain.Position(nil), snap.Closed...)
	s.current.Store(&c)
}

// Snapshot returns the current snapshot and false before the first Replace.
func (s *SeriesStore) Snapshot() (domain.Snapshot, bool) {
	p := s.current.Load()
	if p == nil {
		return domain.Snapshot{}, false
	}
	return *p, true
}

// Equity returns the equity points of the current snapshot.
func (s *SeriesStore) Equity() []domain.EquityPoint {
	snap, _ := s.Snapshot()
	return snap.Equity
}
