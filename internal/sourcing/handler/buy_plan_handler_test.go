package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/trioscs/avail/internal/sourcing/service"
	"github.com/trioscs/avail/internal/testutil"
	"go.uber.org/zap"
)

type fakePOScanner struct {
	confirmed map[string]bool
	err       error
}

func (f *fakePOScanner) ScanSentMail(ctx context.Context, poNumbers []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]bool, len(poNumbers))
	for _, po := range poNumbers {
		out[po] = f.confirmed[po]
	}
	return out, nil
}

func setupBuyPlanTest(t *testing.T) (*testutil.TestEnv, *service.BuyPlanService, *fakePOScanner) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	logger := zap.NewNop()
	repos := repository.NewRepositories(db)
	activity := service.NewActivityRecorder(repos.ActivityLog, logger)
	reqSvc := service.NewRequisitionService(repos, activity, logger)
	planSvc := service.NewBuyPlanService(repos, reqSvc, activity, logger, testutil.JWTSecret, time.Hour)
	scanner := &fakePOScanner{confirmed: map[string]bool{}}
	planSvc.SetPOScanner(scanner)

	h := NewBuyPlanHandler(planSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/buy-plans/:id", h.Get)
	api.POST("/buy-plans", h.Submit)
	api.POST("/buy-plans/approve-token", h.ApproveByToken)
	api.PUT("/buy-plans/:id/approve", h.Approve)
	api.PUT("/buy-plans/:id/reject", h.Reject)
	api.PUT("/buy-plans/:id/cancel", h.Cancel)
	api.PUT("/buy-plans/:id/pos", h.SavePOs)
	api.POST("/buy-plans/:id/verify-pos", h.VerifyPOs)
	api.PUT("/buy-plans/:id/complete", h.Complete)
	api.POST("/buy-plans/:id/resubmit", h.Resubmit)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, planSvc, scanner
}

func seedWonQuote(t *testing.T, env *testutil.TestEnv) *entity.Quote {
	t.Helper()

	req := &entity.Requisition{
		ID:     "req-plan-001",
		Name:   "Q3 shortage buy",
		Status: entity.ReqStatusWon,
	}
	if err := env.DB.Create(req).Error; err != nil {
		t.Fatalf("failed to seed requisition: %v", err)
	}

	quote := &entity.Quote{
		ID:            "quote-plan-001",
		RequisitionID: req.ID,
		Status:        entity.QuoteStatusWon,
		Items: []entity.QuoteItem{
			{
				ID:         "qi-plan-001",
				QuoteID:    "quote-plan-001",
				MPN:        "LM358N",
				VendorName: "Acme Parts",
				Qty:        100,
				CostPrice:  1.50,
				SellPrice:  2.10,
			},
			{
				ID:         "qi-plan-002",
				QuoteID:    "quote-plan-001",
				MPN:        "NE555P",
				VendorName: "Chip Source",
				Qty:        50,
				CostPrice:  2.00,
				SellPrice:  2.60,
			},
		},
	}
	if err := env.DB.Create(quote).Error; err != nil {
		t.Fatalf("failed to seed quote: %v", err)
	}
	return quote
}

func submitPlan(t *testing.T, env *testutil.TestEnv, quote *entity.Quote) string {
	t.Helper()

	body := map[string]interface{}{
		"quote_id": quote.ID,
		"lines": []map[string]interface{}{
			{"quote_item_id": "qi-plan-001"},
			{"quote_item_id": "qi-plan-002"},
		},
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans", body, testutil.BuyerToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.Data(testutil.ParseResponse(w))
	return data["id"].(string)
}

func fetchPlan(t *testing.T, env *testutil.TestEnv, id string) *entity.BuyPlan {
	t.Helper()
	var plan entity.BuyPlan
	if err := env.DB.Preload("Items").First(&plan, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to load plan %s: %v", id, err)
	}
	return &plan
}

func TestBuyPlanSubmitTotalsCost(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)

	planID := submitPlan(t, env, quote)
	plan := fetchPlan(t, env, planID)

	if plan.Status != entity.PlanStatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", plan.Status)
	}
	// 100*1.50 + 50*2.00
	if plan.TotalCost != 250.00 {
		t.Fatalf("expected total 250.00, got %.2f", plan.TotalCost)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(plan.Items))
	}
}

func TestApproveWithoutSalesOrderLeavesPlanUntouched(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	body := map[string]interface{}{"sales_order_number": "", "manager_notes": "looks fine"}
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/approve", body, testutil.ManagerToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	plan := fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusPendingApproval {
		t.Fatalf("plan status changed to %s", plan.Status)
	}
	if plan.ApprovedBy != nil || plan.ManagerNotes != "" {
		t.Fatalf("approval fields written despite guard failure")
	}
}

func TestRejectWithoutReasonLeavesPlanUntouched(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/reject",
		map[string]interface{}{"reason": ""}, testutil.ManagerToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	plan := fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusPendingApproval {
		t.Fatalf("plan status changed to %s", plan.Status)
	}
	if plan.RejectReason != "" {
		t.Fatalf("reject reason written despite guard failure")
	}
}

func TestApproveThenRejectConflicts(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/approve",
		map[string]interface{}{"sales_order_number": "SO-2026-0042"}, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	plan := fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusApproved {
		t.Fatalf("expected approved, got %s", plan.Status)
	}
	if plan.ApprovedBy == nil || *plan.ApprovedBy != "test-manager-001" {
		t.Fatalf("expected approved_by test-manager-001, got %v", plan.ApprovedBy)
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/reject",
		map[string]interface{}{"reason": "changed my mind"}, testutil.ManagerToken())
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reject after approve, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApproveByToken(t *testing.T) {
	env, planSvc, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	token, err := planSvc.IssueApprovalToken(planID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	body := map[string]interface{}{"token": token, "sales_order_number": "SO-2026-0099"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/approve-token", body, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	plan := fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusApproved {
		t.Fatalf("expected approved, got %s", plan.Status)
	}

	// Garbage token is rejected without touching anything.
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/approve-token",
		map[string]interface{}{"token": "not-a-token", "sales_order_number": "SO-1"}, testutil.ManagerToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad token, got %d", w.Code)
	}
}

func TestPOEntryVerifyAndComplete(t *testing.T) {
	env, _, scanner := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/approve",
		map[string]interface{}{"sales_order_number": "SO-2026-0042"}, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}

	plan := fetchPlan(t, env, planID)
	lines := make([]map[string]interface{}, 0, len(plan.Items))
	for i, item := range plan.Items {
		lines = append(lines, map[string]interface{}{
			"item_id":   item.ID,
			"po_number": fmt.Sprintf("PO-100%d", i),
		})
	}
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/pos",
		map[string]interface{}{"lines": lines}, testutil.BuyerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("save pos failed: %d %s", w.Code, w.Body.String())
	}
	if got := fetchPlan(t, env, planID).Status; got != entity.PlanStatusPOEntered {
		t.Fatalf("expected po_entered, got %s", got)
	}

	// Gateway failure must not mutate verification state.
	scanner.err = fmt.Errorf("gateway timeout")
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/"+planID+"/verify-pos", nil, testutil.BuyerToken())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on scan failure, got %d", w.Code)
	}
	plan = fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusPOEntered {
		t.Fatalf("scan failure changed status to %s", plan.Status)
	}
	for _, item := range plan.Items {
		if item.POVerified {
			t.Fatalf("item %s verified despite scan failure", item.ID)
		}
	}

	// Only one PO confirmed keeps the plan at po_entered.
	scanner.err = nil
	scanner.confirmed = map[string]bool{"PO-1000": true}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/"+planID+"/verify-pos", nil, testutil.BuyerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("verify failed: %d %s", w.Code, w.Body.String())
	}
	if got := fetchPlan(t, env, planID).Status; got != entity.PlanStatusPOEntered {
		t.Fatalf("expected po_entered with one unverified po, got %s", got)
	}

	scanner.confirmed["PO-1001"] = true
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/"+planID+"/verify-pos", nil, testutil.BuyerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("verify failed: %d %s", w.Code, w.Body.String())
	}
	if got := fetchPlan(t, env, planID).Status; got != entity.PlanStatusPOConfirmed {
		t.Fatalf("expected po_confirmed, got %s", got)
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/complete", nil, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("complete failed: %d %s", w.Code, w.Body.String())
	}
	plan = fetchPlan(t, env, planID)
	if plan.Status != entity.PlanStatusComplete {
		t.Fatalf("expected complete, got %s", plan.Status)
	}
	if plan.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
}

func TestCancelRoleRules(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)

	// Pending plans can be cancelled by anyone authorized.
	planID := submitPlan(t, env, quote)
	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/cancel", nil, testutil.BuyerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Approved plans need a manager.
	planID = submitPlan(t, env, quote)
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/approve",
		map[string]interface{}{"sales_order_number": "SO-2026-0050"}, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/cancel", nil, testutil.BuyerToken())
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for buyer cancel of approved plan, got %d", w.Code)
	}
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/cancel", nil, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager cancel, got %d: %s", w.Code, w.Body.String())
	}
}

func TestResubmitSpawnsNewPlan(t *testing.T) {
	env, _, _ := setupBuyPlanTest(t)
	quote := seedWonQuote(t, env)
	planID := submitPlan(t, env, quote)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/buy-plans/"+planID+"/reject",
		map[string]interface{}{"reason": "price too high"}, testutil.ManagerToken())
	if w.Code != http.StatusOK {
		t.Fatalf("reject failed: %d %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/buy-plans/"+planID+"/resubmit",
		map[string]interface{}{"notes": "renegotiated"}, testutil.BuyerToken())
	if w.Code != http.StatusCreated {
		t.Fatalf("resubmit failed: %d %s", w.Code, w.Body.String())
	}
	data := testutil.Data(testutil.ParseResponse(w))
	newID := data["id"].(string)
	if newID == planID {
		t.Fatalf("resubmit reused the old plan id")
	}

	newPlan := fetchPlan(t, env, newID)
	if newPlan.Status != entity.PlanStatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", newPlan.Status)
	}
	if newPlan.PrevPlanID == nil || *newPlan.PrevPlanID != planID {
		t.Fatalf("prev_plan_id not linked: %v", newPlan.PrevPlanID)
	}
	if len(newPlan.Items) != 2 {
		t.Fatalf("expected items copied, got %d", len(newPlan.Items))
	}

	// The old plan stays terminal.
	if got := fetchPlan(t, env, planID).Status; got != entity.PlanStatusRejected {
		t.Fatalf("old plan status changed to %s", got)
	}
}
