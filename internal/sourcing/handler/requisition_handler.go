package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type RequisitionHandler struct {
	svc *service.RequisitionService
}

func NewRequisitionHandler(svc *service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

// List requisitions
// GET /api/v1/requisitions?status=xxx&search=xxx&sort=deadline&page=1&page_size=20
func (h *RequisitionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
		"sort":   c.Query("sort"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list requisitions: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GET /api/v1/requisitions/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, req)
}

// POST /api/v1/requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, result)
}

// PUT /api/v1/requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// PUT /api/v1/requisitions/:id/archive
func (h *RequisitionHandler) Archive(c *gin.Context) {
	if err := h.svc.Archive(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// POST /api/v1/requisitions/:id/clone
func (h *RequisitionHandler) Clone(c *gin.Context) {
	clone, err := h.svc.Clone(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, clone)
}

// GET /api/v1/requisitions/:id/requirements
func (h *RequisitionHandler) ListRequirements(c *gin.Context) {
	items, err := h.svc.ListRequirements(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "failed to list requirements: "+err.Error())
		return
	}
	Success(c, items)
}

// POST /api/v1/requisitions/:id/requirements
func (h *RequisitionHandler) AddRequirement(c *gin.Context) {
	var req service.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	line, err := h.svc.AddRequirement(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, line)
}

// PUT /api/v1/requirements/:id
func (h *RequisitionHandler) UpdateRequirement(c *gin.Context) {
	var req service.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	line, err := h.svc.UpdateRequirement(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, line)
}

// DELETE /api/v1/requirements/:id
func (h *RequisitionHandler) DeleteRequirement(c *gin.Context) {
	if err := h.svc.DeleteRequirement(c.Request.Context(), c.Param("id")); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// GET /api/v1/requisitions/:id/activity?limit=50
func (h *RequisitionHandler) ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.svc.ListActivity(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		InternalError(c, "failed to list activity: "+err.Error())
		return
	}
	Success(c, items)
}
