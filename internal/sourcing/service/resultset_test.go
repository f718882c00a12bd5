package service

import (
	"reflect"
	"testing"

	"github.com/trioscs/avail/internal/sourcing/entity"
)

func sighting(id, vendor, mpn string) *entity.Sighting {
	return &entity.Sighting{
		ID:         id,
		VendorName: vendor,
		MPNMatched: mpn,
		MatchType:  entity.MatchTypeExact,
		SourceType: entity.SourceTypeStock,
	}
}

func TestIndexRebuildInvariant(t *testing.T) {
	rs := NewResultSet()

	a := sighting("s1", "Acme Parts", "LM358N")
	b := sighting("s2", "Beta Components", "LM358N")
	rs.SetResults("req1", "LM358N", []*entity.Sighting{a, b})

	c := sighting("s3", "Gamma Supply", "NE555")
	rs.SetResults("req2", "NE555", []*entity.Sighting{c})

	for _, tc := range []struct {
		id    string
		reqID string
		want  *entity.Sighting
	}{
		{"s1", "req1", a},
		{"s2", "req1", b},
		{"s3", "req2", c},
	} {
		got, reqID, ok := rs.Lookup(tc.id)
		if !ok {
			t.Fatalf("lookup %s: missing", tc.id)
		}
		if got != tc.want {
			t.Errorf("lookup %s: index entry does not point at the live object", tc.id)
		}
		if reqID != tc.reqID {
			t.Errorf("lookup %s: requirement %s, want %s", tc.id, reqID, tc.reqID)
		}
	}

	// Replacing a requirement's results must drop stale entries and stale
	// selections in the same pass.
	rs.Toggle("s1")
	rs.Toggle("s2")
	replacement := sighting("s4", "Acme Parts", "LM358N")
	rs.SetResults("req1", "LM358N", []*entity.Sighting{replacement})

	if _, _, ok := rs.Lookup("s1"); ok {
		t.Error("expected s1 removed from index after replacement")
	}
	if rs.IsSelected("s1") || rs.IsSelected("s2") {
		t.Error("expected stale selections pruned")
	}
	if _, _, ok := rs.Lookup("s4"); !ok {
		t.Error("expected s4 indexed")
	}
}

func TestToggleSelection(t *testing.T) {
	rs := NewResultSet()
	rs.SetResults("req1", "LM358N", []*entity.Sighting{sighting("s1", "Acme Parts", "LM358N")})

	if on := rs.Toggle("s1"); !on {
		t.Error("first toggle should select")
	}
	if on := rs.Toggle("s1"); on {
		t.Error("second toggle should deselect")
	}
	if rs.SelectedCount() != 0 {
		t.Errorf("expected empty selection, got %d", rs.SelectedCount())
	}
	if on := rs.Toggle("nope"); on {
		t.Error("unknown id must not select")
	}
}

func TestGroupSelectedByVendorIdempotent(t *testing.T) {
	rs := NewResultSet()
	rs.SetResults("req1", "LM358N", []*entity.Sighting{
		sighting("s1", "Acme Parts", "LM358N"),
		sighting("s2", "  acme parts ", "LM358AN"),
		sighting("s3", "Beta Components", "LM358N"),
	})
	rs.Toggle("s1")
	rs.Toggle("s2")
	rs.Toggle("s3")

	first := rs.GroupSelectedByVendor()
	second := rs.GroupSelectedByVendor()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("grouping is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 vendor groups, got %d", len(first))
	}

	acme := first[0]
	if acme.VendorKey != "acme parts" {
		t.Errorf("expected normalized key %q, got %q", "acme parts", acme.VendorKey)
	}
	if !reflect.DeepEqual(acme.MPNs, []string{"LM358N", "LM358AN"}) {
		t.Errorf("expected unique MPNs in first-seen order, got %v", acme.MPNs)
	}
}

func TestGroupExcludesSentinelAndHistorical(t *testing.T) {
	rs := NewResultSet()

	noSeller := sighting("s1", "No Seller Listed", "LM358N")
	empty := sighting("s2", "   ", "LM358N")
	historical := sighting("s3", "Acme Parts", "LM358N")
	historical.IsHistorical = true
	good := sighting("s4", "Acme Parts", "LM358N")

	rs.SetResults("req1", "LM358N", []*entity.Sighting{noSeller, empty, historical, good})
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		rs.Toggle(id)
	}

	groups := rs.GroupSelectedByVendor()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d: %+v", len(groups), groups)
	}
	if groups[0].VendorKey != "acme parts" {
		t.Errorf("unexpected group %q", groups[0].VendorKey)
	}
	if len(groups[0].Sightings) != 1 || groups[0].Sightings[0] != "s4" {
		t.Errorf("expected only s4 grouped, got %v", groups[0].Sightings)
	}
}

func TestFilterPills(t *testing.T) {
	rs := NewResultSet()

	exact := sighting("s1", "Acme Parts", "LM358N")
	sub := sighting("s2", "Beta Components", "LM358AN")
	sub.MatchType = entity.MatchTypeSub
	sold := sighting("s3", "Gamma Supply", "LM358N")
	sold.SourceType = entity.SourceTypeSold
	unavailable := sighting("s4", "Delta Stock", "LM358N")
	unavailable.IsUnavailable = true

	rs.SetResults("req1", "LM358N", []*entity.Sighting{exact, sub, sold, unavailable})

	cases := []struct {
		category string
		wantIDs  []string
	}{
		{"", []string{"s1", "s2", "s3", "s4"}},
		{FilterExact, []string{"s1", "s3", "s4"}},
		{FilterSub, []string{"s2"}},
		{FilterAvailable, []string{"s1", "s2"}},
		{FilterSold, []string{"s3"}},
	}
	for _, tc := range cases {
		got := rs.Filter("req1", "", tc.category)
		var ids []string
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		if !reflect.DeepEqual(ids, tc.wantIDs) {
			t.Errorf("category %q: got %v, want %v", tc.category, ids, tc.wantIDs)
		}
	}
}

func TestFilterText(t *testing.T) {
	rs := NewResultSet()
	rs.SetResults("req1", "LM358N", []*entity.Sighting{
		sighting("s1", "Acme Parts", "LM358N"),
		sighting("s2", "Beta Components", "NE555P"),
	})

	got := rs.Filter("req1", "acme", "")
	if len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("vendor substring: got %+v", got)
	}

	got = rs.Filter("req1", "ne555", "")
	if len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("mpn substring: got %+v", got)
	}

	if got := rs.Filter("req1", "zzz", ""); len(got) != 0 {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestResolveLegacyKey(t *testing.T) {
	rs := NewResultSet()
	rs.SetResults("req1", "LM358N", []*entity.Sighting{
		sighting("s1", "Acme Parts", "LM358N"),
		sighting("s2", "Beta Components", "LM358N"),
	})

	id, ok := rs.ResolveLegacyKey("req1:1")
	if !ok || id != "s2" {
		t.Errorf("expected s2, got %q ok=%v", id, ok)
	}
	if _, ok := rs.ResolveLegacyKey("req1:9"); ok {
		t.Error("out-of-range index must not resolve")
	}
	if _, ok := rs.ResolveLegacyKey("garbage"); ok {
		t.Error("malformed key must not resolve")
	}
}
