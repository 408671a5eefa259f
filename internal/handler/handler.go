package handler

import (
	"context"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/alerts"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// ReportSource is satisfied by service.RiskService.
type ReportSource interface {
	Latest() *domain.RiskReport
	AlertHistory() *alerts.History
}

type RefreshTrigger interface {
	TriggerNow() bool
}

type AlertArchive interface {
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
}

type ScoreArchive interface {
	ScoreHistory(ctx context.Context, since time.Time) ([]domain.ScorePoint, error)
}

// EquitySource is satisfied by service.SeriesStore.
type EquitySource interface {
	Equity() []domain.EquityPoint
}

type Handler struct {
	tracer  trace.Tracer
	reports ReportSource
	trigger RefreshTrigger
	archive AlertArchive
	scores  ScoreArchive
	equity  EquitySource
	hub     *Hub
}

func New(tracer trace.Tracer, reports ReportSource) *Handler {
	return &Handler{tracer: tracer, reports: reports}
}

func (h *Handler) SetRefreshTrigger(t RefreshTrigger) { h.trigger = t }

func (h *Handler) SetAlertArchive(a AlertArchive) { h.archive = a }

func (h *Handler) SetScoreArchive(a ScoreArchive) { h.scores = a }

func (h *Handler) SetEquitySource(e EquitySource) { h.equity = e }

func (h *Handler) SetHub(hub *Hub) { h.hub = hub }

// RegisterRoutes mounts the public health endpoints and the key-protected /api group.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h.hub != nil {
		r.GET("/ws", APIKeyAuth(apiKey), h.hub.Serve)
	}

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/report", h.GetReport)
	api.GET("/var", h.GetVaR)
	api.GET("/drawdown", h.GetDrawdown)
	api.GET("/leverage", h.GetLeverage)
	api.GET("/exposure", h.GetExposure)
	api.GET("/performance", h.GetPerformance)
	api.GET("/score", h.GetScore)
	api.GET("/score/history", h.GetScoreHistory)
	api.GET("/equity", h.GetEquity)
	api.GET("/alerts", h.GetAlerts)
	api.GET("/alerts/history", h.GetAlertHistory)
	api.GET("/suggestions", h.GetSuggestions)
	api.POST("/refresh", h.TriggerRefresh)
}
