package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type SearchHandler struct {
	svc *service.SearchService
}

func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// POST /api/v1/requisitions/:id/search
func (h *SearchHandler) Run(c *gin.Context) {
	result, err := h.svc.Run(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// GET /api/v1/requirements/:id/sightings
func (h *SearchHandler) ListSightings(c *gin.Context) {
	items, err := h.svc.ListSightings(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "failed to list sightings: "+err.Error())
		return
	}
	Success(c, items)
}

type markUnavailableRequest struct {
	Unavailable *bool `json:"unavailable" binding:"required"`
}

// PUT /api/v1/sightings/:id/unavailable
// The flag flips only after the write succeeds; clients must not render it
// optimistically.
func (h *SearchHandler) MarkUnavailable(c *gin.Context) {
	var req markUnavailableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.svc.MarkUnavailable(c.Request.Context(), c.Param("id"), *req.Unavailable, GetUserID(c)); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

type selectionRequest struct {
	SightingIDs []string `json:"sighting_ids"`
	LegacyKeys  []string `json:"legacy_keys"` // "requirementID:index" form
}

// resolveSelection loads the requisition's results and applies the selection.
func (h *SearchHandler) resolveSelection(c *gin.Context, requisitionID string, req *selectionRequest) (*service.ResultSet, bool) {
	rs, err := h.svc.BuildResultSet(c.Request.Context(), requisitionID)
	if err != nil {
		ServiceError(c, err)
		return nil, false
	}

	for _, key := range req.LegacyKeys {
		if id, ok := rs.ResolveLegacyKey(key); ok {
			rs.Toggle(id)
		}
	}
	for _, id := range req.SightingIDs {
		if !rs.IsSelected(id) {
			rs.Toggle(id)
		}
	}
	return rs, true
}

// POST /api/v1/requisitions/:id/selection/group
// Resolves the posted selection against current results and rolls it up into
// vendor groups.
func (h *SearchHandler) GroupSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rs, ok := h.resolveSelection(c, c.Param("id"), &req)
	if !ok {
		return
	}
	Success(c, gin.H{
		"groups":         rs.GroupSelectedByVendor(),
		"selected_count": rs.SelectedCount(),
	})
}

// GET /api/v1/requisitions/:id/results?requirement_id=xxx&q=text&category=exact
func (h *SearchHandler) FilterResults(c *gin.Context) {
	rs, err := h.svc.BuildResultSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	items := rs.Filter(c.Query("requirement_id"), c.Query("q"), c.Query("category"))
	Success(c, items)
}
