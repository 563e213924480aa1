package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/api/middleware"
	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

type NHLHandler struct {
	dashboard *services.DashboardService
}

func NewNHLHandler(dashboard *services.DashboardService) *NHLHandler {
	return &NHLHandler{dashboard: dashboard}
}

// GetDashboard returns upcoming matches with their top players. Anonymous
// and free viewers get the gated board.
func (h *NHLHandler) GetDashboard(c *gin.Context) {
	board, err := h.dashboard.Build(c.Request.Context(), c.Query("team"), middleware.GetViewer(c))
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, board)
}

// GetPlayer returns the latest pick for a player with its insight
func (h *NHLHandler) GetPlayer(c *gin.Context) {
	insight, err := h.dashboard.PlayerDetail(c.Request.Context(), c.Param("id"), middleware.GetViewer(c))
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, insight)
}

// GetTeams lists every NHL club with its full name
func (h *NHLHandler) GetTeams(c *gin.Context) {
	utils.SendSuccess(c, models.NHLTeams())
}
