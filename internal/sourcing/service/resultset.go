package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/trioscs/avail/internal/sourcing/entity"
)

// RequirementResults is one requirement's slice of a result set.
type RequirementResults struct {
	RequirementID string
	Label         string
	Sightings     []*entity.Sighting
}

// VendorGroup is the per-vendor rollup produced from the current selection.
type VendorGroup struct {
	VendorKey  string   `json:"vendor_key"`
	VendorName string   `json:"vendor_name"`
	MPNs       []string `json:"mpns"`
	Sightings  []string `json:"sighting_ids"`
}

type indexEntry struct {
	requirementID string
	sighting      *entity.Sighting
}

// ResultSet holds search results and the selection state over them.
// Selection is keyed by sighting id, so reordering or refreshing results
// never shifts what is selected. Not safe for concurrent use.
type ResultSet struct {
	results  map[string]*RequirementResults
	index    map[string]indexEntry
	selected map[string]struct{}
}

func NewResultSet() *ResultSet {
	return &ResultSet{
		results:  make(map[string]*RequirementResults),
		index:    make(map[string]indexEntry),
		selected: make(map[string]struct{}),
	}
}

// SetResults replaces one requirement's sightings and rebuilds the index.
// Selections pointing at sightings that no longer exist are pruned.
func (rs *ResultSet) SetResults(requirementID, label string, sightings []*entity.Sighting) {
	rs.results[requirementID] = &RequirementResults{
		RequirementID: requirementID,
		Label:         label,
		Sightings:     sightings,
	}
	rs.rebuildIndex()
}

// RemoveRequirement drops a requirement's results and rebuilds the index.
func (rs *ResultSet) RemoveRequirement(requirementID string) {
	delete(rs.results, requirementID)
	rs.rebuildIndex()
}

// rebuildIndex rederives the sighting index from the results map. Every
// sighting id gets exactly one entry pointing at the live object; stale
// selections are dropped in the same pass.
func (rs *ResultSet) rebuildIndex() {
	rs.index = make(map[string]indexEntry)
	for reqID, rr := range rs.results {
		for _, s := range rr.Sightings {
			rs.index[s.ID] = indexEntry{requirementID: reqID, sighting: s}
		}
	}
	for id := range rs.selected {
		if _, ok := rs.index[id]; !ok {
			delete(rs.selected, id)
		}
	}
}

// Lookup resolves a sighting id through the index.
func (rs *ResultSet) Lookup(sightingID string) (*entity.Sighting, string, bool) {
	e, ok := rs.index[sightingID]
	if !ok {
		return nil, "", false
	}
	return e.sighting, e.requirementID, true
}

// ResolveLegacyKey translates an old "requirementID:index" selection key to
// a sighting id. Kept for callers that still send positional keys.
func (rs *ResultSet) ResolveLegacyKey(key string) (string, bool) {
	reqID, idxStr, ok := strings.Cut(key, ":")
	if !ok {
		return "", false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return "", false
	}
	rr, ok := rs.results[reqID]
	if !ok || idx >= len(rr.Sightings) {
		return "", false
	}
	return rr.Sightings[idx].ID, true
}

// Toggle flips one sighting's membership in the selection. Unknown ids are
// ignored so a stale click cannot poison the set.
func (rs *ResultSet) Toggle(sightingID string) bool {
	if _, ok := rs.index[sightingID]; !ok {
		return false
	}
	if _, on := rs.selected[sightingID]; on {
		delete(rs.selected, sightingID)
		return false
	}
	rs.selected[sightingID] = struct{}{}
	return true
}

func (rs *ResultSet) IsSelected(sightingID string) bool {
	_, ok := rs.selected[sightingID]
	return ok
}

func (rs *ResultSet) SelectedCount() int {
	return len(rs.selected)
}

func (rs *ResultSet) ClearSelection() {
	rs.selected = make(map[string]struct{})
}

// GroupSelectedByVendor rolls the current selection up into vendor groups in
// one linear pass. Historical sightings, empty vendor names and the
// "no seller listed" sentinel never form a group. MPNs are unique per vendor
// in first-seen order. Calling it twice on the same state gives equal output.
func (rs *ResultSet) GroupSelectedByVendor() []VendorGroup {
	reqIDs := make([]string, 0, len(rs.results))
	for reqID := range rs.results {
		reqIDs = append(reqIDs, reqID)
	}
	sort.Strings(reqIDs)

	groups := make(map[string]*VendorGroup)
	var order []string

	for _, reqID := range reqIDs {
		for _, s := range rs.results[reqID].Sightings {
			if _, on := rs.selected[s.ID]; !on {
				continue
			}
			if !s.Groupable() {
				continue
			}
			key := s.VendorKey()
			g, ok := groups[key]
			if !ok {
				g = &VendorGroup{VendorKey: key, VendorName: strings.TrimSpace(s.VendorName)}
				groups[key] = g
				order = append(order, key)
			}
			if s.MPNMatched != "" && !containsString(g.MPNs, s.MPNMatched) {
				g.MPNs = append(g.MPNs, s.MPNMatched)
			}
			g.Sightings = append(g.Sightings, s.ID)
		}
	}

	out := make([]VendorGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

// Filter categories
const (
	FilterExact     = "exact"
	FilterSub       = "sub"
	FilterAvailable = "available"
	FilterSold      = "sold"
)

// Filter returns the sightings of one requirement matching a free-text query
// and an optional category pill. The underlying results are never mutated.
func (rs *ResultSet) Filter(requirementID, text, category string) []*entity.Sighting {
	rr, ok := rs.results[requirementID]
	if !ok {
		return nil
	}

	text = strings.ToLower(strings.TrimSpace(text))
	var out []*entity.Sighting
	for _, s := range rr.Sightings {
		if !matchCategory(s, category) {
			continue
		}
		if text != "" && !matchText(s, text) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchCategory(s *entity.Sighting, category string) bool {
	switch category {
	case "", "all":
		return true
	case FilterExact:
		return s.MatchType == entity.MatchTypeExact
	case FilterSub:
		return s.MatchType == entity.MatchTypeSub
	case FilterAvailable:
		return !s.IsUnavailable && s.SourceType != entity.SourceTypeSold
	case FilterSold:
		return s.SourceType == entity.SourceTypeSold
	default:
		return false
	}
}

func matchText(s *entity.Sighting, text string) bool {
	for _, field := range []string{s.VendorName, s.MPNMatched, s.Manufacturer, s.SourceType} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
