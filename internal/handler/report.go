package handler

import (
	"net/http"
	"strconv"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxAlertLimit = 500

// latest writes 503 and returns nil until the first cycle has published.
func (h *Handler) latest(c *gin.Context) *domain.RiskReport {
	r := h.reports.Latest()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no risk report computed yet"})
	}
	return r
}

// GetReport godoc
// @Summary      Latest risk report
// @Description  Returns every section of the last published refresh cycle
// @Tags         risk
// @Produce      json
// @Success      200  {object}  domain.RiskReport
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-report")
	defer span.End()

	if r := h.latest(c); r != nil {
		c.JSON(http.StatusOK, r)
	}
}

// GetVaR godoc
// @Summary      Value at Risk table
// @Description  Parametric, historical and Monte Carlo VaR and CVaR per horizon and confidence
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/var [get]
func (h *Handler) GetVaR(c *gin.Context) {
	h.withReport(c, domain.SectionVaR, func(r *domain.RiskReport) any { return r.VaR })
}

// GetDrawdown godoc
// @Summary      Drawdown analysis
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/drawdown [get]
func (h *Handler) GetDrawdown(c *gin.Context) {
	h.withReport(c, domain.SectionDrawdown, func(r *domain.RiskReport) any { return r.Drawdown })
}

// GetLeverage godoc
// @Summary      D-Leverage and volume suggestions
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/leverage [get]
func (h *Handler) GetLeverage(c *gin.Context) {
	h.withReport(c, domain.SectionLeverage, func(r *domain.RiskReport) any { return r.Leverage })
}

// GetExposure godoc
// @Summary      Exposure and concentration
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/exposure [get]
func (h *Handler) GetExposure(c *gin.Context) {
	h.withReport(c, domain.SectionExposure, func(r *domain.RiskReport) any { return r.Exposure })
}

// GetPerformance godoc
// @Summary      Performance ratios
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/performance [get]
func (h *Handler) GetPerformance(c *gin.Context) {
	h.withReport(c, domain.SectionPerformance, func(r *domain.RiskReport) any { return r.Performance })
}

// GetScore godoc
// @Summary      Composite risk score
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/score [get]
func (h *Handler) GetScore(c *gin.Context) {
	h.withReport(c, domain.SectionScore, func(r *domain.RiskReport) any { return r.Score })
}

func (h *Handler) withReport(c *gin.Context, s domain.Section, pick func(*domain.RiskReport) any) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-"+string(s))
	defer span.End()

	r := h.latest(c)
	if r == nil {
		return
	}
	avail := r.Availability[s]
	span.SetAttributes(attribute.Int64("cycle", r.Cycle), attribute.Bool("available", avail.Available))
	c.JSON(http.StatusOK, gin.H{
		"cycle":        r.Cycle,
		"generated_at": r.GeneratedAt,
		"available":    avail.Available,
		"reason":       avail.Reason,
		string(s):      pick(r),
	})
}

// GetAlerts godoc
// @Summary      Recent alerts
// @Description  Oldest first, from the in-memory history (at most 50)
// @Tags         alerts
// @Produce      json
// @Param        limit  query  int  false  "Number of alerts"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/alerts [get]
func (h *Handler) GetAlerts(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-alerts")
	defer span.End()

	limit, ok := parseLimit(c, 50)
	if !ok {
		return
	}
	list := h.reports.AlertHistory().Recent(limit)
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

// GetAlertHistory godoc
// @Summary      Archived alerts
// @Description  Newest first, from Postgres
// @Tags         alerts
// @Produce      json
// @Param        limit  query  int  false  "Number of alerts (max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/alerts/history [get]
func (h *Handler) GetAlertHistory(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert archive unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-alert-history")
	defer span.End()

	limit, ok := parseLimit(c, 100)
	if !ok {
		return
	}
	list, err := h.archive.RecentAlerts(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

// GetSuggestions godoc
// @Summary      Optimisation suggestions
// @Description  The last 20 optimisation suggestions, oldest first
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /api/suggestions [get]
func (h *Handler) GetSuggestions(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-suggestions")
	defer span.End()

	list := h.reports.AlertHistory().Suggestions()
	c.JSON(http.StatusOK, gin.H{"suggestions": list, "count": len(list)})
}

// TriggerRefresh godoc
// @Summary      Trigger a refresh cycle
// @Description  Queues an immediate cycle unless one is already running
// @Tags         risk
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/refresh [post]
func (h *Handler) TriggerRefresh(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh job unavailable"})
		return
	}
	if !h.trigger.TriggerNow() {
		c.JSON(http.StatusConflict, gin.H{"status": "busy"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxAlertLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return 0, false
	}
	return n, true
}
