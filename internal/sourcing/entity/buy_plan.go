package entity

import (
	"errors"
	"time"
)

// BuyPlan is created from a won quote and carries its own approval lifecycle,
// independent of the quote status.
type BuyPlan struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	QuoteID       string  `json:"quote_id" gorm:"size:32;not null;index"`
	RequisitionID string  `json:"requisition_id" gorm:"size:32;not null;index"`
	Status        string  `json:"status" gorm:"size:20;default:pending_approval"`
	PrevPlanID    *string `json:"prev_plan_id" gorm:"size:32"` // resubmission chain

	TotalCost        float64 `json:"total_cost" gorm:"type:decimal(15,2);default:0"`
	SalesOrderNumber string  `json:"sales_order_number" gorm:"size:64"`
	SalespersonNotes string  `json:"salesperson_notes" gorm:"type:text"`
	ManagerNotes     string  `json:"manager_notes" gorm:"type:text"`
	RejectReason     string  `json:"reject_reason" gorm:"type:text"`

	SubmittedBy string     `json:"submitted_by" gorm:"size:32"`
	ApprovedBy  *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt  *time.Time `json:"approved_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Items []BuyPlanItem `json:"items,omitempty" gorm:"foreignKey:PlanID"`
}

func (BuyPlan) TableName() string {
	return "buy_plans"
}

// BuyPlanItem is one planned purchase line with PO tracking fields.
type BuyPlanItem struct {
	ID      string  `json:"id" gorm:"primaryKey;size:32"`
	PlanID  string  `json:"plan_id" gorm:"size:32;not null;index"`
	OfferID *string `json:"offer_id" gorm:"size:32"`

	MPN        string  `json:"mpn" gorm:"size:128;not null"`
	VendorName string  `json:"vendor_name" gorm:"size:200"`
	PlanQty    int     `json:"plan_qty" gorm:"default:0"`
	UnitPrice  float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`

	PONumber   string     `json:"po_number" gorm:"size:64"`
	POVerified bool       `json:"po_verified" gorm:"default:false"`
	POSavedAt  *time.Time `json:"po_saved_at"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BuyPlanItem) TableName() string {
	return "buy_plan_items"
}

// Buy-plan statuses
const (
	PlanStatusPendingApproval = "pending_approval"
	PlanStatusApproved        = "approved"
	PlanStatusRejected        = "rejected"
	PlanStatusCancelled       = "cancelled"
	PlanStatusPOEntered       = "po_entered"
	PlanStatusPOConfirmed     = "po_confirmed"
	PlanStatusComplete        = "complete"
)

var (
	ErrInvalidTransition  = errors.New("invalid buy plan status transition")
	ErrSalesOrderRequired = errors.New("sales order number is required")
	ErrReasonRequired     = errors.New("rejection reason is required")
	ErrCancelNotAllowed   = errors.New("plan cannot be cancelled in its current state")
	ErrNotResubmittable   = errors.New("only rejected or cancelled plans can be resubmitted")
)

// planTransitions is the authoritative transition table. Resubmission is not
// listed: it creates a new plan instance rather than mutating the old one.
var planTransitions = map[string][]string{
	PlanStatusPendingApproval: {PlanStatusApproved, PlanStatusRejected, PlanStatusCancelled},
	PlanStatusApproved:        {PlanStatusPOEntered, PlanStatusCancelled},
	PlanStatusPOEntered:       {PlanStatusPOConfirmed},
	PlanStatusPOConfirmed:     {PlanStatusComplete},
}

// CanTransition reports whether from → to is a legal status move.
func CanTransition(from, to string) bool {
	for _, t := range planTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// HasPOEntered reports whether any line carries a PO number.
func (p *BuyPlan) HasPOEntered() bool {
	for _, item := range p.Items {
		if item.PONumber != "" {
			return true
		}
	}
	return false
}

// AllPOsVerified reports whether every line with a PO number has been
// confirmed against sent mail. Lines without a PO don't block confirmation,
// but at least one verified PO is required.
func (p *BuyPlan) AllPOsVerified() bool {
	verified := 0
	for _, item := range p.Items {
		if item.PONumber == "" {
			continue
		}
		if !item.POVerified {
			return false
		}
		verified++
	}
	return verified > 0
}

// ApproveGuard validates the approval preconditions before any side effect.
func (p *BuyPlan) ApproveGuard(salesOrderNumber string) error {
	if salesOrderNumber == "" {
		return ErrSalesOrderRequired
	}
	if !CanTransition(p.Status, PlanStatusApproved) {
		return ErrInvalidTransition
	}
	return nil
}

// RejectGuard validates the rejection preconditions.
func (p *BuyPlan) RejectGuard(reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if !CanTransition(p.Status, PlanStatusRejected) {
		return ErrInvalidTransition
	}
	return nil
}

// CancelGuard enforces the cancellation rules: anyone authorized may cancel
// while pending approval; once approved, only a manager may cancel and only
// while no PO has been entered.
func (p *BuyPlan) CancelGuard(isManager bool) error {
	switch p.Status {
	case PlanStatusPendingApproval:
		return nil
	case PlanStatusApproved:
		if !isManager {
			return ErrCancelNotAllowed
		}
		if p.HasPOEntered() {
			return ErrCancelNotAllowed
		}
		return nil
	default:
		return ErrCancelNotAllowed
	}
}

// ResubmitGuard validates that a new plan instance may be spawned from this one.
func (p *BuyPlan) ResubmitGuard() error {
	if p.Status != PlanStatusRejected && p.Status != PlanStatusCancelled {
		return ErrNotResubmittable
	}
	return nil
}

// POEditable reports whether buyers may still enter PO numbers.
func (p *BuyPlan) POEditable() bool {
	return p.Status == PlanStatusApproved || p.Status == PlanStatusPOEntered
}
