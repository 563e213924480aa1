package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

type PerformanceHandler struct {
	performance *services.PerformanceService
}

func NewPerformanceHandler(performance *services.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

// GetSummary reports hit rate, ROI and calibration of settled value picks
func (h *PerformanceHandler) GetSummary(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid days", err.Error())
			return
		}
		days = parsed
	}

	summary, err := h.performance.Summary(c.Request.Context(), days)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, summary)
}
