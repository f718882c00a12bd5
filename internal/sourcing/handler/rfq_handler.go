package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/service"
)

type RFQHandler struct {
	svc       *service.RFQService
	searchSvc *service.SearchService
}

func NewRFQHandler(svc *service.RFQService, searchSvc *service.SearchService) *RFQHandler {
	return &RFQHandler{svc: svc, searchSvc: searchSvc}
}

type composeRequest struct {
	SightingIDs []string `json:"sighting_ids" binding:"required"`
	LegacyKeys  []string `json:"legacy_keys"`
	// ExtraMPNs adds opportunistic parts per vendor key, asked alongside the
	// vendor's own listings.
	ExtraMPNs map[string][]string `json:"extra_mpns"`
}

// POST /api/v1/requisitions/:id/rfq/compose
// Groups the selection by vendor, resolves contacts in parallel and
// partitions parts into new/repeat and listing/other.
func (h *RFQHandler) Compose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	rs, err := h.searchSvc.BuildResultSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
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

	groups := rs.GroupSelectedByVendor()

	// Parts from a vendor's own sightings are its listing parts; extra MPNs
	// join the group without joining the listings.
	listings := make(map[string]map[string]bool, len(groups))
	for i := range groups {
		g := &groups[i]
		listing := make(map[string]bool, len(g.MPNs))
		for _, mpn := range g.MPNs {
			listing[mpn] = true
		}
		listings[g.VendorKey] = listing

		seen := make(map[string]bool)
		for _, mpn := range req.ExtraMPNs[g.VendorKey] {
			if mpn == "" || listing[mpn] || seen[mpn] {
				continue
			}
			seen[mpn] = true
			g.MPNs = append(g.MPNs, mpn)
		}
	}

	result, err := h.svc.Compose(c.Request.Context(), groups, listings)
	if err != nil {
		InternalError(c, "failed to compose rfq batch: "+err.Error())
		return
	}
	Success(c, result)
}

// POST /api/v1/rfq/dispatch
func (h *RFQHandler) Dispatch(c *gin.Context) {
	var req service.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}

	batch, err := h.svc.Dispatch(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, batch)
}

// GET /api/v1/requisitions/:id/rfq/batches
func (h *RFQHandler) ListBatches(c *gin.Context) {
	items, err := h.svc.ListBatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "failed to list rfq batches: "+err.Error())
		return
	}
	Success(c, items)
}
