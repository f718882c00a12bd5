package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/trioscs/avail/internal/sourcing/service"
)

// Handlers is the sourcing handler registry.
type Handlers struct {
	Requisition *RequisitionHandler
	Search      *SearchHandler
	RFQ         *RFQHandler
	Offer       *OfferHandler
	Quote       *QuoteHandler
	BuyPlan     *BuyPlanHandler
	Settings    *SettingsHandler
	Dashboard   *DashboardHandler
}

func NewHandlers(
	reqSvc *service.RequisitionService,
	searchSvc *service.SearchService,
	rfqSvc *service.RFQService,
	offerSvc *service.OfferService,
	quoteSvc *service.QuoteService,
	planSvc *service.BuyPlanService,
	settingsSvc *service.SettingsService,
	enrichSvc *service.EnrichmentService,
	dashSvc *service.DashboardService,
) *Handlers {
	return &Handlers{
		Requisition: NewRequisitionHandler(reqSvc),
		Search:      NewSearchHandler(searchSvc),
		RFQ:         NewRFQHandler(rfqSvc, searchSvc),
		Offer:       NewOfferHandler(offerSvc),
		Quote:       NewQuoteHandler(quoteSvc),
		BuyPlan:     NewBuyPlanHandler(planSvc),
		Settings:    NewSettingsHandler(settingsSvc, enrichSvc),
		Dashboard:   NewDashboardHandler(dashSvc),
	}
}

// === Response helpers ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError maps well-known service errors onto the envelope.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrCancelNotAllowed),
		errors.Is(err, entity.ErrNotResubmittable):
		Conflict(c, err.Error())
	case errors.Is(err, entity.ErrSalesOrderRequired),
		errors.Is(err, entity.ErrReasonRequired),
		errors.Is(err, service.ErrInvalidDeadline),
		errors.Is(err, service.ErrInvalidCondition),
		errors.Is(err, service.ErrQuoteNotWon),
		errors.Is(err, service.ErrPONotEditable),
		errors.Is(err, service.ErrInvalidToken):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
