package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the service status and the age of the latest risk report
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if h.reports != nil {
		if r := h.reports.Latest(); r != nil {
			body["cycle"] = r.Cycle
			body["report_age_seconds"] = int64(time.Since(r.GeneratedAt).Seconds())
		} else {
			body["status"] = "starting"
		}
	}
	c.JSON(http.StatusOK, body)
}
