package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/crm/repository"
	"github.com/trioscs/avail/internal/crm/service"
	sourcinghandler "github.com/trioscs/avail/internal/sourcing/handler"
)

// CRMHandler serves companies, sites, contacts, vendor cards and material
// cards. Response helpers are shared with the sourcing handlers.
type CRMHandler struct {
	svc *service.CRMService
}

func NewCRMHandler(svc *service.CRMService) *CRMHandler {
	return &CRMHandler{svc: svc}
}

func crmError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		sourcinghandler.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidEmail):
		sourcinghandler.BadRequest(c, err.Error())
	default:
		sourcinghandler.InternalError(c, err.Error())
	}
}

// GET /api/v1/companies?search=xxx
func (h *CRMHandler) ListCompanies(c *gin.Context) {
	page, pageSize := sourcinghandler.GetPagination(c)
	items, total, err := h.svc.ListCompanies(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		sourcinghandler.InternalError(c, "failed to list companies: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	sourcinghandler.Success(c, sourcinghandler.ListResponse{
		Items: items,
		Pagination: &sourcinghandler.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GET /api/v1/companies/:id
func (h *CRMHandler) GetCompany(c *gin.Context) {
	company, err := h.svc.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, company)
}

// POST /api/v1/companies
func (h *CRMHandler) CreateCompany(c *gin.Context) {
	var req service.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	company, err := h.svc.CreateCompany(c.Request.Context(), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Created(c, company)
}

// PUT /api/v1/companies/:id
func (h *CRMHandler) UpdateCompany(c *gin.Context) {
	var req service.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	company, err := h.svc.UpdateCompany(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, company)
}

// POST /api/v1/companies/:id/sites
func (h *CRMHandler) CreateSite(c *gin.Context) {
	var req service.CreateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	site, err := h.svc.CreateSite(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Created(c, site)
}

// POST /api/v1/sites/:id/contacts
func (h *CRMHandler) CreateContact(c *gin.Context) {
	var req service.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	contact, err := h.svc.CreateContact(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Created(c, contact)
}

// DELETE /api/v1/contacts/:id
func (h *CRMHandler) DeleteContact(c *gin.Context) {
	if err := h.svc.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, nil)
}

// GET /api/v1/vendor-cards?search=xxx
func (h *CRMHandler) ListVendorCards(c *gin.Context) {
	page, pageSize := sourcinghandler.GetPagination(c)
	items, total, err := h.svc.ListVendorCards(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		sourcinghandler.InternalError(c, "failed to list vendor cards: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	sourcinghandler.Success(c, sourcinghandler.ListResponse{
		Items: items,
		Pagination: &sourcinghandler.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GET /api/v1/vendor-cards/:id
func (h *CRMHandler) GetVendorCard(c *gin.Context) {
	card, err := h.svc.GetVendorCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, card)
}

// POST /api/v1/vendor-cards
func (h *CRMHandler) UpsertVendorCard(c *gin.Context) {
	var req service.UpsertVendorCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	card, err := h.svc.UpsertVendorCard(c.Request.Context(), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, card)
}

// GET /api/v1/material-cards?search=xxx
func (h *CRMHandler) ListMaterialCards(c *gin.Context) {
	page, pageSize := sourcinghandler.GetPagination(c)
	items, total, err := h.svc.ListMaterialCards(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		sourcinghandler.InternalError(c, "failed to list material cards: "+err.Error())
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	sourcinghandler.Success(c, sourcinghandler.ListResponse{
		Items: items,
		Pagination: &sourcinghandler.Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// GET /api/v1/material-cards/:id
func (h *CRMHandler) GetMaterialCard(c *gin.Context) {
	card, err := h.svc.GetMaterialCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, card)
}

// POST /api/v1/material-cards
func (h *CRMHandler) UpsertMaterialCard(c *gin.Context) {
	var req service.UpsertMaterialCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sourcinghandler.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	card, err := h.svc.UpsertMaterialCard(c.Request.Context(), &req)
	if err != nil {
		crmError(c, err)
		return
	}
	sourcinghandler.Success(c, card)
}

// GET /api/v1/material-cards/history?mpn=LM358N
func (h *CRMHandler) ListMaterialHistory(c *gin.Context) {
	mpn := c.Query("mpn")
	if mpn == "" {
		sourcinghandler.BadRequest(c, "mpn is required")
		return
	}

	items, err := h.svc.ListMaterialHistory(c.Request.Context(), mpn)
	if err != nil {
		sourcinghandler.InternalError(c, "failed to list material history: "+err.Error())
		return
	}
	sourcinghandler.Success(c, items)
}
