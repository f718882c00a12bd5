package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// POScanner checks sent mail for PO confirmations.
type POScanner interface {
	ScanSentMail(ctx context.Context, poNumbers []string) (map[string]bool, error)
}

const approvalTokenPurpose = "buy_plan_approval"

var (
	ErrQuoteNotWon       = errors.New("buy plan requires a won quote")
	ErrPONotEditable     = errors.New("po numbers can only be entered on approved plans")
	ErrInvalidToken      = errors.New("approval token is invalid or expired")
	ErrPlansNotConfirmed = errors.New("plan must be po_confirmed before completion")
)

// BuyPlanService owns the buy-plan approval lifecycle. Every guard runs
// before the first repository write, so a rejected precondition leaves no
// trace.
type BuyPlanService struct {
	repos     *repository.Repositories
	reqSvc    *RequisitionService
	scanner   POScanner
	mail      MailSender
	activity  *ActivityRecorder
	logger    *zap.Logger
	jwtSecret string
	tokenTTL  time.Duration
}

func NewBuyPlanService(repos *repository.Repositories, reqSvc *RequisitionService, activity *ActivityRecorder, logger *zap.Logger, jwtSecret string, tokenTTL time.Duration) *BuyPlanService {
	return &BuyPlanService{
		repos:     repos,
		reqSvc:    reqSvc,
		activity:  activity,
		logger:    logger,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (s *BuyPlanService) SetPOScanner(sc POScanner) {
	s.scanner = sc
}

func (s *BuyPlanService) SetMailSender(m MailSender) {
	s.mail = m
}

func (s *BuyPlanService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.BuyPlan, int64, error) {
	return s.repos.BuyPlan.FindAll(ctx, page, pageSize, filters)
}

func (s *BuyPlanService) Get(ctx context.Context, id string) (*entity.BuyPlan, error) {
	return s.repos.BuyPlan.FindByID(ctx, id)
}

// SubmitRequest creates a plan from a won quote's checked lines.
type SubmitRequest struct {
	QuoteID          string            `json:"quote_id" binding:"required"`
	Lines            []SubmitLineInput `json:"lines" binding:"required"`
	SalespersonNotes string            `json:"salesperson_notes"`
	ApproverEmail    string            `json:"approver_email"`
}

type SubmitLineInput struct {
	QuoteItemID string `json:"quote_item_id" binding:"required"`
	PlanQty     int    `json:"plan_qty"`
}

// Submit builds a pending-approval plan from the won quote, totals the cost
// with decimal math and emails the approver a signed deep-link token.
func (s *BuyPlanService) Submit(ctx context.Context, userID string, req *SubmitRequest) (*entity.BuyPlan, error) {
	quote, err := s.repos.Quote.FindByID(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != entity.QuoteStatusWon {
		return nil, ErrQuoteNotWon
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("plan needs at least one line")
	}

	itemsByID := make(map[string]*entity.QuoteItem, len(quote.Items))
	for i := range quote.Items {
		itemsByID[quote.Items[i].ID] = &quote.Items[i]
	}

	plan := &entity.BuyPlan{
		ID:               uuid.New().String()[:32],
		QuoteID:          quote.ID,
		RequisitionID:    quote.RequisitionID,
		Status:           entity.PlanStatusPendingApproval,
		SalespersonNotes: req.SalespersonNotes,
		SubmittedBy:      userID,
	}

	total := decimal.Zero
	for i, line := range req.Lines {
		item, ok := itemsByID[line.QuoteItemID]
		if !ok {
			return nil, fmt.Errorf("quote item %s: %w", line.QuoteItemID, repository.ErrNotFound)
		}
		qty := line.PlanQty
		if qty == 0 {
			qty = item.Qty
		}
		plan.Items = append(plan.Items, entity.BuyPlanItem{
			ID:         uuid.New().String()[:32],
			PlanID:     plan.ID,
			OfferID:    item.OfferID,
			MPN:        item.MPN,
			VendorName: item.VendorName,
			PlanQty:    qty,
			UnitPrice:  item.CostPrice,
			SortOrder:  i + 1,
		})
		total = total.Add(decimal.NewFromFloat(item.CostPrice).Mul(decimal.NewFromInt(int64(qty))))
	}
	plan.TotalCost, _ = total.Round(2).Float64()

	if err := s.repos.BuyPlan.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "submitted",
		fmt.Sprintf("total %.2f", plan.TotalCost), userID)
	s.reqSvc.RefreshStatus(ctx, plan.RequisitionID)
	s.notifyApprover(ctx, plan, req.ApproverEmail)

	return plan, nil
}

// notifyApprover emails a signed approval deep link, best-effort.
func (s *BuyPlanService) notifyApprover(ctx context.Context, plan *entity.BuyPlan, email string) {
	if s.mail == nil || email == "" {
		return
	}
	token, err := s.IssueApprovalToken(plan.ID)
	if err != nil {
		s.logger.Warn("approval token issue failed",
			zap.String("plan_id", plan.ID), zap.Error(err))
		return
	}
	body := fmt.Sprintf("Buy plan %s awaits approval (total %.2f).\n\n#approve-token/%s",
		plan.ID, plan.TotalCost, token)
	if err := s.mail.SendMail(ctx, email, "Buy plan pending approval", body); err != nil {
		s.logger.Warn("approval notification failed",
			zap.String("plan_id", plan.ID), zap.Error(err))
	}
}

// IssueApprovalToken signs a single-purpose deep-link token for one plan.
func (s *BuyPlanService) IssueApprovalToken(planID string) (string, error) {
	claims := jwt.MapClaims{
		"plan_id": planID,
		"purpose": approvalTokenPurpose,
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// parseApprovalToken validates signature, expiry and purpose.
func (s *BuyPlanService) parseApprovalToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != approvalTokenPurpose {
		return "", ErrInvalidToken
	}
	planID, _ := claims["plan_id"].(string)
	if planID == "" {
		return "", ErrInvalidToken
	}
	return planID, nil
}

// ApproveRequest carries the approval inputs.
type ApproveRequest struct {
	SalesOrderNumber string `json:"sales_order_number"`
	ManagerNotes     string `json:"manager_notes"`
}

// Approve transitions pending_approval → approved. The sales-order guard
// fires before any repository write.
func (s *BuyPlanService) Approve(ctx context.Context, id, userID string, req *ApproveRequest) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.ApproveGuard(req.SalesOrderNumber); err != nil {
		return nil, err
	}

	now := time.Now()
	plan.Status = entity.PlanStatusApproved
	plan.SalesOrderNumber = req.SalesOrderNumber
	plan.ManagerNotes = req.ManagerNotes
	plan.ApprovedBy = &userID
	plan.ApprovedAt = &now

	if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "approved",
		"so "+req.SalesOrderNumber, userID)
	s.reqSvc.RefreshStatus(ctx, plan.RequisitionID)
	return plan, nil
}

// ApproveByToken performs the same transition via an emailed deep link.
func (s *BuyPlanService) ApproveByToken(ctx context.Context, tokenStr string, req *ApproveRequest) (*entity.BuyPlan, error) {
	planID, err := s.parseApprovalToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return s.Approve(ctx, planID, "approval-link", req)
}

// Reject transitions pending_approval → rejected; the reason is mandatory
// and checked before any write.
func (s *BuyPlanService) Reject(ctx context.Context, id, userID, reason string) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.RejectGuard(reason); err != nil {
		return nil, err
	}

	plan.Status = entity.PlanStatusRejected
	plan.RejectReason = reason
	if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "rejected", reason, userID)
	s.reqSvc.RefreshStatus(ctx, plan.RequisitionID)
	return plan, nil
}

// Cancel applies the role-sensitive cancellation guard.
func (s *BuyPlanService) Cancel(ctx context.Context, id, userID string, isManager bool) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.CancelGuard(isManager); err != nil {
		return nil, err
	}

	plan.Status = entity.PlanStatusCancelled
	if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "cancelled", "", userID)
	s.reqSvc.RefreshStatus(ctx, plan.RequisitionID)
	return plan, nil
}

// SavePORequest writes per-line PO numbers.
type SavePORequest struct {
	Lines []POLineInput `json:"lines" binding:"required"`
}

type POLineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	PONumber string `json:"po_number" binding:"required"`
}

// SavePOs records PO numbers on an approved or po_entered plan. The first
// saved PO advances approved → po_entered.
func (s *BuyPlanService) SavePOs(ctx context.Context, id, userID string, req *SavePORequest) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !plan.POEditable() {
		return nil, ErrPONotEditable
	}

	itemIDs := make(map[string]bool, len(plan.Items))
	for _, item := range plan.Items {
		itemIDs[item.ID] = true
	}
	for _, line := range req.Lines {
		if !itemIDs[line.ItemID] {
			return nil, fmt.Errorf("item %s: %w", line.ItemID, repository.ErrNotFound)
		}
	}

	for _, line := range req.Lines {
		if err := s.repos.BuyPlan.SavePONumber(ctx, line.ItemID, line.PONumber); err != nil {
			return nil, err
		}
	}

	if plan.Status == entity.PlanStatusApproved && len(req.Lines) > 0 {
		plan.Status = entity.PlanStatusPOEntered
		if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
			return nil, err
		}
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "po_saved",
		fmt.Sprintf("%d lines", len(req.Lines)), userID)

	return s.repos.BuyPlan.FindByID(ctx, id)
}

// VerifyPOs scans sent mail for each entered PO and merges the verification
// flags. All POs confirmed moves po_entered → po_confirmed. A gateway
// failure leaves the plan untouched.
func (s *BuyPlanService) VerifyPOs(ctx context.Context, id, userID string) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status != entity.PlanStatusPOEntered {
		return nil, entity.ErrInvalidTransition
	}
	if s.scanner == nil {
		return nil, fmt.Errorf("sent-mail scanning is not configured")
	}

	var poNumbers []string
	for _, item := range plan.Items {
		if item.PONumber != "" {
			poNumbers = append(poNumbers, item.PONumber)
		}
	}
	confirmed, err := s.scanner.ScanSentMail(ctx, poNumbers)
	if err != nil {
		return nil, fmt.Errorf("sent-mail scan failed: %w", err)
	}

	for _, item := range plan.Items {
		if item.PONumber == "" {
			continue
		}
		if confirmed[item.PONumber] && !item.POVerified {
			if err := s.repos.BuyPlan.SetPOVerified(ctx, item.ID, true); err != nil {
				return nil, err
			}
		}
	}

	plan, err = s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.AllPOsVerified() {
		plan.Status = entity.PlanStatusPOConfirmed
		if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
			return nil, err
		}
		s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "po_confirmed", "", userID)
	}
	return plan, nil
}

// Complete closes out a po_confirmed plan.
func (s *BuyPlanService) Complete(ctx context.Context, id, userID string) (*entity.BuyPlan, error) {
	plan, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(plan.Status, entity.PlanStatusComplete) {
		return nil, ErrPlansNotConfirmed
	}

	now := time.Now()
	plan.Status = entity.PlanStatusComplete
	plan.CompletedAt = &now
	if err := s.repos.BuyPlan.Update(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "completed", "", userID)
	s.reqSvc.RefreshStatus(ctx, plan.RequisitionID)
	return plan, nil
}

// Resubmit spawns a fresh pending-approval plan from a rejected or cancelled
// one, copying its items. The old plan stays terminal; prev_plan_id links the
// chain and callers must switch to the new id.
func (s *BuyPlanService) Resubmit(ctx context.Context, id, userID, notes string) (*entity.BuyPlan, error) {
	old, err := s.repos.BuyPlan.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := old.ResubmitGuard(); err != nil {
		return nil, err
	}

	prevID := old.ID
	plan := &entity.BuyPlan{
		ID:               uuid.New().String()[:32],
		QuoteID:          old.QuoteID,
		RequisitionID:    old.RequisitionID,
		Status:           entity.PlanStatusPendingApproval,
		PrevPlanID:       &prevID,
		TotalCost:        old.TotalCost,
		SalespersonNotes: notes,
		SubmittedBy:      userID,
	}
	for i, item := range old.Items {
		plan.Items = append(plan.Items, entity.BuyPlanItem{
			ID:         uuid.New().String()[:32],
			PlanID:     plan.ID,
			OfferID:    item.OfferID,
			MPN:        item.MPN,
			VendorName: item.VendorName,
			PlanQty:    item.PlanQty,
			UnitPrice:  item.UnitPrice,
			SortOrder:  i + 1,
		})
	}

	if err := s.repos.BuyPlan.Create(ctx, plan); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, plan.RequisitionID, "buy_plan", plan.ID, "resubmitted",
		"from "+old.ID, userID)
	return plan, nil
}
