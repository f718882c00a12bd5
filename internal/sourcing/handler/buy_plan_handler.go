package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/middleware"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type BuyPlanHandler struct {
	svc *service.BuyPlanService
}

func NewBuyPlanHandler(svc *service.BuyPlanService) *BuyPlanHandler {
	return &BuyPlanHandler{svc: svc}
}

// GET /api/v1/buy-plans?status=xxx&requisition_id=xxx
func (h *BuyPlanHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":         c.Query("status"),
		"requisition_id": c.Query("requisition_id"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "failed to list buy plans: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GET /api/v1/buy-plans/:id
func (h *BuyPlanHandler) Get(c *gin.Context) {
	plan, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// POST /api/v1/buy-plans
func (h *BuyPlanHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.Submit(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, plan)
}

// PUT /api/v1/buy-plans/:id/approve   (manager/admin, role-guarded route)
func (h *BuyPlanHandler) Approve(c *gin.Context) {
	var req service.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.Approve(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

type approveTokenRequest struct {
	Token            string `json:"token" binding:"required"`
	SalesOrderNumber string `json:"sales_order_number"`
	ManagerNotes     string `json:"manager_notes"`
}

// POST /api/v1/buy-plans/approve-token
// The emailed deep-link flow: the signed token identifies the plan.
func (h *BuyPlanHandler) ApproveByToken(c *gin.Context) {
	var req approveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.ApproveByToken(c.Request.Context(), req.Token, &service.ApproveRequest{
		SalesOrderNumber: req.SalesOrderNumber,
		ManagerNotes:     req.ManagerNotes,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// PUT /api/v1/buy-plans/:id/reject   (manager/admin)
func (h *BuyPlanHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.Reject(c.Request.Context(), c.Param("id"), GetUserID(c), req.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// PUT /api/v1/buy-plans/:id/cancel
func (h *BuyPlanHandler) Cancel(c *gin.Context) {
	roles := middleware.RolesFromContext(c)
	isManager := middleware.HasRole(roles, "manager") || middleware.HasRole(roles, "admin")

	plan, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), GetUserID(c), isManager)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// PUT /api/v1/buy-plans/:id/pos   (buyer)
func (h *BuyPlanHandler) SavePOs(c *gin.Context) {
	var req service.SavePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.SavePOs(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// POST /api/v1/buy-plans/:id/verify-pos
func (h *BuyPlanHandler) VerifyPOs(c *gin.Context) {
	plan, err := h.svc.VerifyPOs(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

// PUT /api/v1/buy-plans/:id/complete   (manager/admin)
func (h *BuyPlanHandler) Complete(c *gin.Context) {
	plan, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, plan)
}

type resubmitRequest struct {
	Notes string `json:"notes"`
}

// POST /api/v1/buy-plans/:id/resubmit
// Spawns a new plan; the response carries the new id and callers must drop
// the old one.
func (h *BuyPlanHandler) Resubmit(c *gin.Context) {
	var req resubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	plan, err := h.svc.Resubmit(c.Request.Context(), c.Param("id"), GetUserID(c), req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, plan)
}
