package entity

import "testing"

func TestPlanTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{PlanStatusPendingApproval, PlanStatusApproved},
		{PlanStatusPendingApproval, PlanStatusRejected},
		{PlanStatusPendingApproval, PlanStatusCancelled},
		{PlanStatusApproved, PlanStatusPOEntered},
		{PlanStatusApproved, PlanStatusCancelled},
		{PlanStatusPOEntered, PlanStatusPOConfirmed},
		{PlanStatusPOConfirmed, PlanStatusComplete},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to string }{
		{PlanStatusPendingApproval, PlanStatusComplete},
		{PlanStatusPendingApproval, PlanStatusPOEntered},
		{PlanStatusApproved, PlanStatusComplete},
		{PlanStatusApproved, PlanStatusRejected},
		{PlanStatusPOEntered, PlanStatusCancelled},
		{PlanStatusPOEntered, PlanStatusComplete},
		{PlanStatusPOConfirmed, PlanStatusCancelled},
		{PlanStatusRejected, PlanStatusApproved},
		{PlanStatusCancelled, PlanStatusApproved},
		{PlanStatusComplete, PlanStatusPendingApproval},
	}
	for _, tt := range denied {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("expected %s -> %s to be denied", tt.from, tt.to)
		}
	}
}

func TestApproveGuardRequiresSalesOrder(t *testing.T) {
	plan := &BuyPlan{Status: PlanStatusPendingApproval}

	if err := plan.ApproveGuard(""); err != ErrSalesOrderRequired {
		t.Fatalf("expected ErrSalesOrderRequired, got %v", err)
	}
	if err := plan.ApproveGuard("SO-1001"); err != nil {
		t.Fatalf("expected approval to pass, got %v", err)
	}

	plan.Status = PlanStatusApproved
	if err := plan.ApproveGuard("SO-1001"); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRejectGuardRequiresReason(t *testing.T) {
	plan := &BuyPlan{Status: PlanStatusPendingApproval}

	if err := plan.RejectGuard(""); err != ErrReasonRequired {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if err := plan.RejectGuard("price too high"); err != nil {
		t.Fatalf("expected rejection to pass, got %v", err)
	}
}

func TestCancelGuard(t *testing.T) {
	// Pending: anyone authorized may cancel.
	plan := &BuyPlan{Status: PlanStatusPendingApproval}
	if err := plan.CancelGuard(false); err != nil {
		t.Fatalf("pending plan should be cancellable by non-manager, got %v", err)
	}

	// Approved with no POs: manager only.
	plan = &BuyPlan{Status: PlanStatusApproved, Items: []BuyPlanItem{{MPN: "LM358N"}}}
	if err := plan.CancelGuard(false); err != ErrCancelNotAllowed {
		t.Fatalf("non-manager cancel of approved plan should fail, got %v", err)
	}
	if err := plan.CancelGuard(true); err != nil {
		t.Fatalf("manager cancel of approved plan should pass, got %v", err)
	}

	// Approved with a PO entered: nobody.
	plan.Items[0].PONumber = "PO-555"
	if err := plan.CancelGuard(true); err != ErrCancelNotAllowed {
		t.Fatalf("cancel with PO entered should fail, got %v", err)
	}

	// Later states: never.
	for _, status := range []string{PlanStatusPOEntered, PlanStatusPOConfirmed, PlanStatusComplete, PlanStatusRejected, PlanStatusCancelled} {
		plan := &BuyPlan{Status: status}
		if err := plan.CancelGuard(true); err != ErrCancelNotAllowed {
			t.Errorf("cancel from %s should fail, got %v", status, err)
		}
	}
}

func TestResubmitGuard(t *testing.T) {
	for _, status := range []string{PlanStatusRejected, PlanStatusCancelled} {
		plan := &BuyPlan{Status: status}
		if err := plan.ResubmitGuard(); err != nil {
			t.Errorf("resubmit from %s should pass, got %v", status, err)
		}
	}
	for _, status := range []string{PlanStatusPendingApproval, PlanStatusApproved, PlanStatusPOEntered, PlanStatusPOConfirmed, PlanStatusComplete} {
		plan := &BuyPlan{Status: status}
		if err := plan.ResubmitGuard(); err != ErrNotResubmittable {
			t.Errorf("resubmit from %s should fail, got %v", status, err)
		}
	}
}

func TestPOVerificationFlags(t *testing.T) {
	plan := &BuyPlan{Items: []BuyPlanItem{
		{MPN: "A", PONumber: "PO-1", POVerified: true},
		{MPN: "B"}, // no PO entered, should not block
		{MPN: "C", PONumber: "PO-2", POVerified: false},
	}}
	if plan.AllPOsVerified() {
		t.Fatal("unverified PO should block confirmation")
	}
	plan.Items[2].POVerified = true
	if !plan.AllPOsVerified() {
		t.Fatal("all entered POs verified, expected confirmation to pass")
	}

	empty := &BuyPlan{Items: []BuyPlanItem{{MPN: "A"}}}
	if empty.AllPOsVerified() {
		t.Fatal("plan with no POs entered must not count as verified")
	}
}
