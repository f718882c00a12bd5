package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GET /api/v1/dashboard
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to build dashboard: "+err.Error())
		return
	}
	Success(c, snap)
}

// POST /api/v1/dashboard/refresh
// Kicks a background rebuild; only the newest refresh lands.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.svc.Refresh(c.Request.Context())
	Success(c, gin.H{"refreshing": true})
}
