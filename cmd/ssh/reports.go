package main

import (
	"context"
	"log"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

type reportLoader interface {
	LoadReport(ctx context.Context) (*domain.RiskReport, error)
}

// cachedReports adapts the Redis mirror to the advisor's synchronous
// Latest lookup.
type cachedReports struct {
	cache reportLoader
}

func (c *cachedReports) Latest() *domain.RiskReport {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	r, err := c.cache.LoadReport(ctx)
	if err != nil {
		log.Printf("Warning: advisor could not load report: %v", err)
		return nil
	}
	return r
}
