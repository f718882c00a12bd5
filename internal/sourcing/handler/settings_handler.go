package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type SettingsHandler struct {
	svc       *service.SettingsService
	enrichSvc *service.EnrichmentService
}

func NewSettingsHandler(svc *service.SettingsService, enrichSvc *service.EnrichmentService) *SettingsHandler {
	return &SettingsHandler{svc: svc, enrichSvc: enrichSvc}
}

// GET /api/v1/sources
func (h *SettingsHandler) ListSources(c *gin.Context) {
	items, err := h.svc.ListSources(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to list sources: "+err.Error())
		return
	}
	Success(c, items)
}

// POST /api/v1/sources   (admin)
func (h *SettingsHandler) CreateSource(c *gin.Context) {
	var req service.CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	src, err := h.svc.CreateSource(c.Request.Context(), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, src)
}

// PUT /api/v1/sources/:id   (admin)
func (h *SettingsHandler) UpdateSource(c *gin.Context) {
	var req service.UpdateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	src, err := h.svc.UpdateSource(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, src)
}

// DELETE /api/v1/sources/:id   (admin)
func (h *SettingsHandler) DeleteSource(c *gin.Context) {
	if err := h.svc.DeleteSource(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// GET /api/v1/scoring-weights
func (h *SettingsHandler) GetWeights(c *gin.Context) {
	w, err := h.svc.GetWeights(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to load scoring weights: "+err.Error())
		return
	}
	Success(c, w)
}

// PUT /api/v1/scoring-weights   (admin)
func (h *SettingsHandler) UpdateWeights(c *gin.Context) {
	var req service.UpdateWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	w, err := h.svc.UpdateWeights(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, w)
}

// GET /api/v1/error-reports?status=open
func (h *SettingsHandler) ListErrorReports(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListErrorReports(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		InternalError(c, "failed to list error reports: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// POST /api/v1/error-reports
func (h *SettingsHandler) CreateErrorReport(c *gin.Context) {
	var req service.CreateErrorReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	report, err := h.svc.CreateErrorReport(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, report)
}

type reportStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PUT /api/v1/error-reports/:id/status   (admin)
func (h *SettingsHandler) UpdateErrorReportStatus(c *gin.Context) {
	var req reportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	report, err := h.svc.UpdateErrorReportStatus(c.Request.Context(), c.Param("id"), req.Status, GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, report)
}

// POST /api/v1/enrichment/start   (admin)
func (h *SettingsHandler) StartEnrichment(c *gin.Context) {
	if err := h.enrichSvc.Start(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrEnrichmentRunning) {
			Conflict(c, err.Error())
			return
		}
		InternalError(c, "failed to start enrichment: "+err.Error())
		return
	}
	Success(c, gin.H{"started": true})
}

// POST /api/v1/enrichment/stop   (admin)
func (h *SettingsHandler) StopEnrichment(c *gin.Context) {
	h.enrichSvc.Stop()
	Success(c, nil)
}

// GET /api/v1/enrichment/progress
func (h *SettingsHandler) EnrichmentProgress(c *gin.Context) {
	Success(c, h.enrichSvc.Progress())
}
