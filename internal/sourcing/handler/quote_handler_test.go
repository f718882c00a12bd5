package handler

import (
	"net/http"
	"testing"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/trioscs/avail/internal/sourcing/service"
	"github.com/trioscs/avail/internal/testutil"
	"go.uber.org/zap"
)

func setupQuoteTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	activity := service.NewActivityRecorder(repos.ActivityLog, logger)
	reqSvc := service.NewRequisitionService(repos, activity, logger)
	quoteSvc := service.NewQuoteService(repos, reqSvc, activity, logger)

	h := NewQuoteHandler(quoteSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/requisitions/:id/quotes", h.ListByRequisition)
	api.GET("/quotes/:id", h.Get)
	api.POST("/quotes", h.Create)
	api.PUT("/quote-items/:id/prices", h.UpdateItemPrices)
	api.PUT("/quotes/:id/send", h.Send)
	api.PUT("/quotes/:id/revise", h.Revise)
	api.PUT("/quotes/:id/won", h.MarkWon)
	api.PUT("/quotes/:id/lost", h.MarkLost)
	api.GET("/quotes/:id/export", h.Export)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedOffers(t *testing.T, env *testutil.TestEnv) (requisitionID string, offerIDs []string) {
	t.Helper()

	req := &entity.Requisition{ID: "req-quote-001", Name: "Quote test", Status: entity.ReqStatusOffers}
	if err := env.DB.Create(req).Error; err != nil {
		t.Fatalf("failed to seed requisition: %v", err)
	}
	line := &entity.Requirement{ID: "line-quote-001", RequisitionID: req.ID, PrimaryMPN: "LM358N", TargetQty: 1000}
	if err := env.DB.Create(line).Error; err != nil {
		t.Fatalf("failed to seed requirement: %v", err)
	}

	offers := []entity.Offer{
		{
			ID:            "offer-001",
			RequirementID: line.ID,
			VendorName:    "Acme Parts",
			MPN:           "LM358N",
			QtyAvailable:  1000,
			UnitPrice:     1.50,
			CreatedBy:     "test-buyer-001",
		},
		{
			ID:            "offer-002",
			RequirementID: line.ID,
			VendorName:    "Chip Source",
			MPN:           "LM358N",
			QtyAvailable:  500,
			UnitPrice:     1.40,
			CreatedBy:     "test-buyer-001",
		},
	}
	for i := range offers {
		if err := env.DB.Create(&offers[i]).Error; err != nil {
			t.Fatalf("failed to seed offer: %v", err)
		}
		offerIDs = append(offerIDs, offers[i].ID)
	}
	return req.ID, offerIDs
}

func TestQuoteCreateDerivesMargin(t *testing.T) {
	env := setupQuoteTest(t)
	token := testutil.BuyerToken()
	reqID, offerIDs := seedOffers(t, env)

	body := map[string]interface{}{
		"requisition_id": reqID,
		"lines": []map[string]interface{}{
			{"offer_id": offerIDs[0], "qty": 1000, "sell_price": 2.00},
			{"offer_id": offerIDs[1], "sell_price": 1.40},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/quotes", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.Data(testutil.ParseResponse(w))
	quoteID := data["id"].(string)

	var quote entity.Quote
	if err := env.DB.Preload("Items").First(&quote, "id = ?", quoteID).Error; err != nil {
		t.Fatalf("failed to load quote: %v", err)
	}
	if len(quote.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(quote.Items))
	}

	byVendor := make(map[string]*entity.QuoteItem, len(quote.Items))
	for i := range quote.Items {
		byVendor[quote.Items[i].VendorName] = &quote.Items[i]
	}

	// (2.00-1.50)/2.00 = 25%
	if got := byVendor["Acme Parts"].MarginPct; got != 25 {
		t.Fatalf("expected margin 25, got %v", got)
	}
	// Zero-margin line; qty defaults to the offer's available qty.
	chip := byVendor["Chip Source"]
	if chip.MarginPct != 0 {
		t.Fatalf("expected margin 0, got %v", chip.MarginPct)
	}
	if chip.Qty != 500 {
		t.Fatalf("expected qty defaulted to 500, got %d", chip.Qty)
	}
}

func TestQuotePriceEditRecomputesMargin(t *testing.T) {
	env := setupQuoteTest(t)
	token := testutil.BuyerToken()
	reqID, offerIDs := seedOffers(t, env)

	body := map[string]interface{}{
		"requisition_id": reqID,
		"lines":          []map[string]interface{}{{"offer_id": offerIDs[0], "sell_price": 2.00}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/quotes", body, token)
	quoteID := testutil.Data(testutil.ParseResponse(w))["id"].(string)

	var quote entity.Quote
	if err := env.DB.Preload("Items").First(&quote, "id = ?", quoteID).Error; err != nil {
		t.Fatalf("failed to load quote: %v", err)
	}
	itemID := quote.Items[0].ID

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quote-items/"+itemID+"/prices",
		map[string]interface{}{"sell_price": 3.00}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("price edit failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.Data(testutil.ParseResponse(w))
	// (3.00-1.50)/3.00 = 50%
	if data["margin_pct"].(float64) != 50 {
		t.Fatalf("expected margin 50, got %v", data["margin_pct"])
	}

	// A zero sell price yields zero margin, not a division error.
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quote-items/"+itemID+"/prices",
		map[string]interface{}{"sell_price": 0.0}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("zero price edit failed: %d %s", w.Code, w.Body.String())
	}
	if got := testutil.Data(testutil.ParseResponse(w))["margin_pct"].(float64); got != 0 {
		t.Fatalf("expected margin 0 for zero sell price, got %v", got)
	}
}

func TestQuoteLifecycleAndExport(t *testing.T) {
	env := setupQuoteTest(t)
	token := testutil.BuyerToken()
	reqID, offerIDs := seedOffers(t, env)

	body := map[string]interface{}{
		"requisition_id": reqID,
		"lines":          []map[string]interface{}{{"offer_id": offerIDs[0], "sell_price": 2.00}},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/quotes", body, token)
	quoteID := testutil.Data(testutil.ParseResponse(w))["id"].(string)

	// Draft quotes cannot be won directly.
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quotes/"+quoteID+"/won", nil, token)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected failure winning a draft, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quotes/"+quoteID+"/send", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("send failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.Data(testutil.ParseResponse(w))
	if data["status"] != entity.QuoteStatusSent || data["sent_at"] == nil {
		t.Fatalf("unexpected sent state: %v / %v", data["status"], data["sent_at"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quotes/"+quoteID+"/revise", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("revise failed: %d %s", w.Code, w.Body.String())
	}
	if got := testutil.Data(testutil.ParseResponse(w))["revision"].(float64); got != 2 {
		t.Fatalf("expected revision 2, got %v", got)
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quotes/"+quoteID+"/send", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("re-send failed: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/quotes/"+quoteID+"/won", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("mark won failed: %d %s", w.Code, w.Body.String())
	}

	// Winning the quote rolls the requisition status up.
	var req entity.Requisition
	if err := env.DB.First(&req, "id = ?", reqID).Error; err != nil {
		t.Fatalf("failed to load requisition: %v", err)
	}
	if req.Status != entity.ReqStatusWon {
		t.Fatalf("expected won requisition, got %s", req.Status)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/quotes/"+quoteID+"/export", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("export failed: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("empty export body")
	}
}
