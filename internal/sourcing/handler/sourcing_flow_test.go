package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/trioscs/avail/internal/sourcing/service"
	"github.com/trioscs/avail/internal/testutil"
	"go.uber.org/zap"
)

type fakeConnector struct {
	name string
	hits map[string][]service.SourceHit
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) Search(ctx context.Context, mpn string) ([]service.SourceHit, error) {
	return f.hits[mpn], nil
}

type staticResolver struct {
	emails map[string]string
}

func (r *staticResolver) EmailForVendor(ctx context.Context, vendorKey string) (string, error) {
	return r.emails[vendorKey], nil
}

// setupFlowTest wires requisition, search and RFQ handlers against one DB with
// a fake stock-feed connector and a static contact book.
func setupFlowTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	activity := service.NewActivityRecorder(repos.ActivityLog, logger)
	reqSvc := service.NewRequisitionService(repos, activity, logger)
	searchSvc := service.NewSearchService(repos, activity, logger)

	price := 1.85
	searchSvc.RegisterConnector(&fakeConnector{
		name: "stockfeed",
		hits: map[string][]service.SourceHit{
			"LM358N": {
				{
					VendorName:   "Acme Parts",
					MPN:          "LM358N",
					Manufacturer: "TI",
					UnitPrice:    &price,
					QtyAvailable: 4200,
					SourceType:   "stock",
					Condition:    "new",
				},
			},
		},
	})

	resolver := &staticResolver{emails: map[string]string{"acme parts": "rfq@acmeparts.example"}}
	rfqSvc := service.NewRFQService(repos, resolver, activity, logger)

	offerSvc := service.NewOfferService(repos, activity, logger)

	reqHandler := NewRequisitionHandler(reqSvc)
	searchHandler := NewSearchHandler(searchSvc)
	rfqHandler := NewRFQHandler(rfqSvc, searchSvc)
	offerHandler := NewOfferHandler(offerSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/requisitions", reqHandler.Create)
	api.GET("/requisitions/:id", reqHandler.Get)
	api.GET("/requisitions/:id/requirements", reqHandler.ListRequirements)
	api.POST("/requisitions/:id/search", searchHandler.Run)
	api.GET("/requirements/:id/sightings", searchHandler.ListSightings)
	api.POST("/requisitions/:id/selection/group", searchHandler.GroupSelection)
	api.POST("/requisitions/:id/rfq/compose", rfqHandler.Compose)
	api.POST("/rfq/dispatch", rfqHandler.Dispatch)
	api.GET("/requisitions/:id/rfq/batches", rfqHandler.ListBatches)
	api.POST("/offers", offerHandler.Create)
	api.POST("/offers/:id/attachments", offerHandler.UploadAttachment)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestIntakeSearchSelectComposeFlow(t *testing.T) {
	env := setupFlowTest(t)
	token := testutil.BuyerToken()

	src := &entity.Source{
		ID:        "src-stockfeed",
		Name:      "stockfeed",
		Type:      "stock",
		Enabled:   true,
		Weight:    1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := env.DB.Create(src).Error; err != nil {
		t.Fatalf("failed to seed source: %v", err)
	}

	// Intake
	body := map[string]interface{}{
		"name": "Q3 shortage",
		"requirements": []map[string]interface{}{
			{"primary_mpn": "LM358N", "target_qty": 1000, "condition": "new"},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	reqID := testutil.Data(testutil.ParseResponse(w))["id"].(string)

	// Search
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/search", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", w.Code, w.Body.String())
	}
	runData := testutil.Data(testutil.ParseResponse(w))
	if runData["sighting_count"].(float64) != 1 {
		t.Fatalf("expected 1 sighting, got %v", runData["sighting_count"])
	}

	// Search advanced the requisition out of draft.
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID, nil, token)
	if got := testutil.Data(testutil.ParseResponse(w))["status"]; got != entity.ReqStatusActive {
		t.Fatalf("expected active requisition, got %v", got)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID+"/requirements", nil, token)
	reqs := testutil.ParseResponse(w)["data"].([]interface{})
	if len(reqs) != 1 {
		t.Fatalf("expected 1 requirement, got %d", len(reqs))
	}
	lineID := reqs[0].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requirements/"+lineID+"/sightings", nil, token)
	sightings := testutil.ParseResponse(w)["data"].([]interface{})
	if len(sightings) != 1 {
		t.Fatalf("expected 1 sighting, got %d", len(sightings))
	}
	sighting := sightings[0].(map[string]interface{})
	if sighting["vendor_name"] != "Acme Parts" {
		t.Fatalf("expected Acme Parts, got %v", sighting["vendor_name"])
	}
	sightingID := sighting["id"].(string)

	// Group the selection
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/selection/group",
		map[string]interface{}{"sighting_ids": []string{sightingID}}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("group failed: %d %s", w.Code, w.Body.String())
	}
	groupData := testutil.Data(testutil.ParseResponse(w))
	groups := groupData["groups"].([]interface{})
	if len(groups) != 1 {
		t.Fatalf("expected 1 vendor group, got %d", len(groups))
	}
	group := groups[0].(map[string]interface{})
	if group["vendor_key"] != "acme parts" {
		t.Fatalf("expected normalized key, got %v", group["vendor_key"])
	}

	// Compose, with one opportunistic part riding along
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/rfq/compose",
		map[string]interface{}{
			"sighting_ids": []string{sightingID},
			"extra_mpns":   map[string][]string{"acme parts": {"NE555P"}},
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("compose failed: %d %s", w.Code, w.Body.String())
	}
	composeData := testutil.Data(testutil.ParseResponse(w))
	vendors := composeData["vendors"].([]interface{})
	if len(vendors) != 1 {
		t.Fatalf("expected 1 vendor plan, got %d", len(vendors))
	}
	vendor := vendors[0].(map[string]interface{})
	if vendor["contact_email"] != "rfq@acmeparts.example" {
		t.Fatalf("expected resolved contact, got %v", vendor["contact_email"])
	}
	newParts := vendor["new_parts"].([]interface{})
	if len(newParts) != 2 || newParts[0] != "LM358N" || newParts[1] != "NE555P" {
		t.Fatalf("expected new_parts [LM358N NE555P], got %v", newParts)
	}
	listingParts := vendor["listing_parts"].([]interface{})
	if len(listingParts) != 1 || listingParts[0] != "LM358N" {
		t.Fatalf("expected listing_parts [LM358N], got %v", listingParts)
	}
	otherParts := vendor["other_parts"].([]interface{})
	if len(otherParts) != 1 || otherParts[0] != "NE555P" {
		t.Fatalf("expected other_parts [NE555P], got %v", otherParts)
	}

	// Dispatch and verify the repeat partition on a second pass
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/rfq/dispatch", map[string]interface{}{
		"requisition_id": reqID,
		"vendors":        vendors,
		"subject":        "RFQ: LM358N",
		"body":           "Please quote 1000 pcs LM358N.",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("dispatch failed: %d %s", w.Code, w.Body.String())
	}
	batch := testutil.Data(testutil.ParseResponse(w))
	if batch["vendor_count"].(float64) != 1 {
		t.Fatalf("expected vendor_count 1, got %v", batch["vendor_count"])
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions/"+reqID+"/rfq/compose",
		map[string]interface{}{"sighting_ids": []string{sightingID}}, token)
	composeData = testutil.Data(testutil.ParseResponse(w))
	vendor = composeData["vendors"].([]interface{})[0].(map[string]interface{})
	repeats, _ := vendor["repeat_parts"].([]interface{})
	if len(repeats) != 1 || repeats[0] != "LM358N" {
		t.Fatalf("expected LM358N as repeat after dispatch, got %v", vendor["repeat_parts"])
	}
	if vendor["status"] != entity.RFQSendStatusExhausted {
		t.Fatalf("expected exhausted vendor on second compose, got %v", vendor["status"])
	}
}

func TestFirstOfferAdvancesRequisition(t *testing.T) {
	env := setupFlowTest(t)
	token := testutil.BuyerToken()

	body := map[string]interface{}{
		"name": "Offer stage",
		"requirements": []map[string]interface{}{
			{"primary_mpn": "LM358N", "target_qty": 500, "condition": "new"},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/requisitions", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	reqID := testutil.Data(testutil.ParseResponse(w))["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID+"/requirements", nil, token)
	reqs := testutil.ParseResponse(w)["data"].([]interface{})
	lineID := reqs[0].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/offers", map[string]interface{}{
		"requirement_id": lineID,
		"vendor_name":    "Acme Parts",
		"qty_available":  500,
		"unit_price":     1.60,
		"condition":      "new",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("offer create failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/requisitions/"+reqID, nil, token)
	if got := testutil.Data(testutil.ParseResponse(w))["status"]; got != entity.ReqStatusOffers {
		t.Fatalf("expected offers requisition after first offer, got %v", got)
	}

	var req entity.Requisition
	if err := env.DB.First(&req, "id = ?", reqID).Error; err != nil {
		t.Fatalf("failed to load requisition: %v", err)
	}
	if req.ReplyCount != 1 {
		t.Fatalf("expected reply_count 1, got %d", req.ReplyCount)
	}
}

func TestAttachmentUploadNeedsObjectStore(t *testing.T) {
	env := setupFlowTest(t)
	token := testutil.BuyerToken()

	line := &entity.Requirement{ID: "line-att-001", RequisitionID: "req-att-001", PrimaryMPN: "LM358N"}
	if err := env.DB.Create(&entity.Requisition{ID: "req-att-001", Name: "Attach", Status: entity.ReqStatusActive}).Error; err != nil {
		t.Fatalf("failed to seed requisition: %v", err)
	}
	if err := env.DB.Create(line).Error; err != nil {
		t.Fatalf("failed to seed requirement: %v", err)
	}
	offer := &entity.Offer{ID: "offer-att-001", RequirementID: line.ID, VendorName: "Acme Parts", UnitPrice: 1.50}
	if err := env.DB.Create(offer).Error; err != nil {
		t.Fatalf("failed to seed offer: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "quote.pdf")
	if err != nil {
		t.Fatalf("failed to build form: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 vendor quote"))
	mw.Close()

	httpReq, _ := http.NewRequest(http.MethodPost, "/api/v1/offers/"+offer.ID+"/attachments", &buf)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httpReq)

	// No store wired in tests: the upload must fail cleanly without touching
	// the attachment list.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected storage failure, got %d %s", w.Code, w.Body.String())
	}

	var reloaded entity.Offer
	if err := env.DB.First(&reloaded, "id = ?", offer.ID).Error; err != nil {
		t.Fatalf("failed to reload offer: %v", err)
	}
	if reloaded.Attachments != nil && len(*reloaded.Attachments) != 0 {
		t.Fatalf("expected no attachments recorded, got %v", *reloaded.Attachments)
	}
}
