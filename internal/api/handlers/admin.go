package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

type AdminHandler struct {
	scheduler *services.Scheduler
}

func NewAdminHandler(scheduler *services.Scheduler) *AdminHandler {
	return &AdminHandler{scheduler: scheduler}
}

// ListJobs returns the status of every registered job
func (h *AdminHandler) ListJobs(c *gin.Context) {
	utils.SendSuccess(c, h.scheduler.Status())
}

// RunJob runs a job now and returns its report. The run is detached from
// the request so a dropped client does not abort a half-written slate.
func (h *AdminHandler) RunJob(c *gin.Context) {
	name := c.Param("name")
	report, err := h.scheduler.Trigger(context.WithoutCancel(c.Request.Context()), name)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"job": name, "report": report})
}
