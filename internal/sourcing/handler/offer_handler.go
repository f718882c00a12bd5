package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type OfferHandler struct {
	svc *service.OfferService
}

func NewOfferHandler(svc *service.OfferService) *OfferHandler {
	return &OfferHandler{svc: svc}
}

// GET /api/v1/requisitions/:id/offers
func (h *OfferHandler) ListByRequisition(c *gin.Context) {
	items, err := h.svc.ListByRequisition(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "failed to list offers: "+err.Error())
		return
	}
	Success(c, items)
}

// GET /api/v1/offers/:id
func (h *OfferHandler) Get(c *gin.Context) {
	offer, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, offer)
}

// POST /api/v1/offers
func (h *OfferHandler) Create(c *gin.Context) {
	var req service.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	offer, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, offer)
}

// POST /api/v1/offers/:id/attachments
func (h *OfferHandler) UploadAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required: "+err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	offer, err := h.svc.UploadAttachment(c.Request.Context(), c.Param("id"), GetUserID(c),
		file, header.Filename, header.Size, contentType)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, offer)
}

// GET /api/v1/offers/:id/attachments/:index
func (h *OfferHandler) DownloadAttachment(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		BadRequest(c, "invalid attachment index")
		return
	}

	reader, att, err := h.svc.DownloadAttachment(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		ServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "attachment; filename="+att.Name)
	c.Header("Content-Type", att.ContentType)
	c.Header("Content-Length", strconv.FormatInt(att.Size, 10))

	io.Copy(c.Writer, reader)
}

// PUT /api/v1/offers/:id
func (h *OfferHandler) Update(c *gin.Context) {
	var req service.UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	offer, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, offer)
}
