package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxHistoryHours = 24 * 365

// GetScoreHistory godoc
// @Summary      Risk score history
// @Description  Archived composite scores, oldest first
// @Tags         risk
// @Produce      json
// @Param        hours  query  int  false  "Look-back window in hours (max 8760)"  default(24)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/score/history [get]
func (h *Handler) GetScoreHistory(c *gin.Context) {
	if h.scores == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "score archive unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-score-history")
	defer span.End()

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryHours {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be between 1 and 8760"})
			return
		}
		hours = n
	}
	span.SetAttributes(attribute.Int("hours", hours))

	points, err := h.scores.ScoreHistory(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": points, "count": len(points)})
}

// GetEquity godoc
// @Summary      Equity curve
// @Description  The equity series the last cycle was computed from
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/equity [get]
func (h *Handler) GetEquity(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-equity")
	defer span.End()

	var points []domain.EquityPoint
	if h.equity != nil {
		points = h.equity.Equity()
	}
	if len(points) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no equity series loaded yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": points, "count": len(points)})
}
