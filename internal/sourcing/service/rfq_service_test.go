package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"go.uber.org/zap"
)

type fakeResolver struct {
	emails map[string]string
	errs   map[string]error
}

func (f *fakeResolver) EmailForVendor(_ context.Context, vendorKey string) (string, error) {
	if err := f.errs[vendorKey]; err != nil {
		return "", err
	}
	return f.emails[vendorKey], nil
}

type fakeLedger struct {
	asked    map[string]map[string]bool
	recorded map[string][]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		asked:    make(map[string]map[string]bool),
		recorded: make(map[string][]string),
	}
}

func (f *fakeLedger) AskedMPNs(_ context.Context, vendorKey string, mpns []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, mpn := range mpns {
		if f.asked[vendorKey][mpn] {
			out[mpn] = true
		}
	}
	return out, nil
}

func (f *fakeLedger) RecordAsks(_ context.Context, vendorKey string, mpns []string) error {
	f.recorded[vendorKey] = append(f.recorded[vendorKey], mpns...)
	return nil
}

func newComposeService(resolver ContactResolver, ledger AskedLedger) *RFQService {
	s := NewRFQService(nil, resolver, nil, zap.NewNop())
	s.SetAskedLedger(ledger)
	return s
}

func planByKey(t *testing.T, result *ComposeResult, key string) VendorPlan {
	t.Helper()
	for _, p := range result.Vendors {
		if p.VendorKey == key {
			return p
		}
	}
	t.Fatalf("vendor %q not in compose result", key)
	return VendorPlan{}
}

func TestComposeFailureIsolation(t *testing.T) {
	resolver := &fakeResolver{
		emails: map[string]string{"acme parts": "rfq@acme.example"},
		errs:   map[string]error{"beta components": errors.New("directory timeout")},
	}
	svc := newComposeService(resolver, newFakeLedger())

	groups := []VendorGroup{
		{VendorKey: "acme parts", VendorName: "Acme Parts", MPNs: []string{"LM358N"}},
		{VendorKey: "beta components", VendorName: "Beta Components", MPNs: []string{"NE555P"}},
		{VendorKey: "gamma supply", VendorName: "Gamma Supply", MPNs: []string{"LM358N"}},
	}

	result, err := svc.Compose(context.Background(), groups, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if result.Progress.Done != 3 || result.Progress.Total != 3 {
		t.Errorf("progress = %+v, want 3/3", result.Progress)
	}

	acme := planByKey(t, result, "acme parts")
	if acme.ContactEmail != "rfq@acme.example" || acme.Status != "" {
		t.Errorf("acme plan = %+v", acme)
	}

	// The failing lookup degrades just that vendor, never the batch.
	beta := planByKey(t, result, "beta components")
	if beta.Status != entity.RFQSendStatusNoEmail {
		t.Errorf("beta status = %q, want no_email", beta.Status)
	}

	gamma := planByKey(t, result, "gamma supply")
	if gamma.Status != entity.RFQSendStatusNoEmail {
		t.Errorf("gamma (no card) status = %q, want no_email", gamma.Status)
	}
}

func TestComposePartitionsNewAndRepeat(t *testing.T) {
	resolver := &fakeResolver{emails: map[string]string{"acme parts": "rfq@acme.example"}}
	ledger := newFakeLedger()
	ledger.asked["acme parts"] = map[string]bool{"LM358N": true}
	svc := newComposeService(resolver, ledger)

	groups := []VendorGroup{
		{VendorKey: "acme parts", VendorName: "Acme Parts", MPNs: []string{"LM358N", "NE555P"}},
	}
	listings := map[string]map[string]bool{
		"acme parts": {"LM358N": true},
	}

	result, err := svc.Compose(context.Background(), groups, listings)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	plan := planByKey(t, result, "acme parts")
	if len(plan.NewParts) != 1 || plan.NewParts[0] != "NE555P" {
		t.Errorf("new parts = %v", plan.NewParts)
	}
	if len(plan.RepeatParts) != 1 || plan.RepeatParts[0] != "LM358N" {
		t.Errorf("repeat parts = %v", plan.RepeatParts)
	}
	if len(plan.ListingParts) != 1 || plan.ListingParts[0] != "LM358N" {
		t.Errorf("listing parts = %v", plan.ListingParts)
	}
	if len(plan.OtherParts) != 1 || plan.OtherParts[0] != "NE555P" {
		t.Errorf("other parts = %v", plan.OtherParts)
	}
	if plan.Status != "" {
		t.Errorf("vendor with new parts should not be exhausted, got %q", plan.Status)
	}
}

func TestComposeMarksExhaustedVendors(t *testing.T) {
	resolver := &fakeResolver{emails: map[string]string{"acme parts": "rfq@acme.example"}}
	ledger := newFakeLedger()
	ledger.asked["acme parts"] = map[string]bool{"LM358N": true, "NE555P": true}
	svc := newComposeService(resolver, ledger)

	groups := []VendorGroup{
		{VendorKey: "acme parts", VendorName: "Acme Parts", MPNs: []string{"LM358N", "NE555P"}},
	}

	result, err := svc.Compose(context.Background(), groups, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	plan := planByKey(t, result, "acme parts")
	if plan.Status != entity.RFQSendStatusExhausted {
		t.Errorf("status = %q, want exhausted", plan.Status)
	}
	if len(plan.NewParts) != 0 {
		t.Errorf("new parts = %v, want empty", plan.NewParts)
	}
}

func TestComposeIsStateless(t *testing.T) {
	resolver := &fakeResolver{emails: map[string]string{"acme parts": "rfq@acme.example"}}
	svc := newComposeService(resolver, newFakeLedger())

	groups := []VendorGroup{
		{VendorKey: "acme parts", VendorName: "Acme Parts", MPNs: []string{"LM358N"}},
	}

	first, err := svc.Compose(context.Background(), groups, nil)
	if err != nil {
		t.Fatalf("first compose: %v", err)
	}
	second, err := svc.Compose(context.Background(), groups, nil)
	if err != nil {
		t.Fatalf("second compose: %v", err)
	}

	sortPlans(first.Vendors)
	sortPlans(second.Vendors)
	if len(first.Vendors) != len(second.Vendors) {
		t.Fatalf("vendor counts differ: %d vs %d", len(first.Vendors), len(second.Vendors))
	}
	for i := range first.Vendors {
		a, b := first.Vendors[i], second.Vendors[i]
		if a.VendorKey != b.VendorKey || a.Status != b.Status || len(a.NewParts) != len(b.NewParts) {
			t.Errorf("compose drifted between runs: %+v vs %+v", a, b)
		}
	}
}

func sortPlans(plans []VendorPlan) {
	sort.Slice(plans, func(i, j int) bool { return plans[i].VendorKey < plans[j].VendorKey })
}
