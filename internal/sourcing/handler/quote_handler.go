package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type QuoteHandler struct {
	svc *service.QuoteService
}

func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// GET /api/v1/requisitions/:id/quotes
func (h *QuoteHandler) ListByRequisition(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "failed to list quotes: "+err.Error())
		return
	}
	Success(c, items)
}

// GET /api/v1/quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	quote, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, quote)
}

// POST /api/v1/quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req service.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	quote, err := h.svc.CreateFromOffers(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, quote)
}

// PUT /api/v1/quote-items/:id/prices
func (h *QuoteHandler) UpdateItemPrices(c *gin.Context) {
	var req service.UpdateItemPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItemPrices(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}

// PUT /api/v1/quotes/:id/send
func (h *QuoteHandler) Send(c *gin.Context) {
	quote, err := h.svc.Send(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, quote)
}

// PUT /api/v1/quotes/:id/revise
func (h *QuoteHandler) Revise(c *gin.Context) {
	quote, err := h.svc.Revise(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, quote)
}

// PUT /api/v1/quotes/:id/won
func (h *QuoteHandler) MarkWon(c *gin.Context) {
	quote, err := h.svc.MarkWon(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, quote)
}

// PUT /api/v1/quotes/:id/lost
func (h *QuoteHandler) MarkLost(c *gin.Context) {
	quote, err := h.svc.MarkLost(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, quote)
}

// GET /api/v1/quotes/:id/export
func (h *QuoteHandler) Export(c *gin.Context) {
	buf, filename, err := h.svc.ExportXLSX(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
