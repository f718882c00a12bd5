package entity

import (
	"strings"
	"time"
)

// Sighting is a vendor-reported availability record for a requirement.
// Sightings are never deleted; unavailable ones carry a soft flag.
type Sighting struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequirementID string `json:"requirement_id" gorm:"size:32;not null;index"`

	VendorName   string  `json:"vendor_name" gorm:"size:200"`
	VendorCardID *string `json:"vendor_card_id" gorm:"size:32"`
	MPNMatched   string  `json:"mpn_matched" gorm:"size:128"`
	Manufacturer string  `json:"manufacturer" gorm:"size:128"`
	MatchType    string  `json:"match_type" gorm:"size:10;default:exact"` // exact/sub

	UnitPrice    *float64 `json:"unit_price" gorm:"type:decimal(12,4)"`
	QtyAvailable int      `json:"qty_available" gorm:"default:0"`
	SourceType   string   `json:"source_type" gorm:"size:32"`
	Condition    string   `json:"condition" gorm:"size:20"`
	DateCode     string   `json:"date_code" gorm:"size:50"`
	LeadTime     string   `json:"lead_time" gorm:"size:50"`

	// Provenance flags: fresh search results vs material-card history.
	IsUnavailable     bool `json:"is_unavailable" gorm:"default:false"`
	IsHistorical      bool `json:"is_historical" gorm:"default:false"`
	IsMaterialHistory bool `json:"is_material_history" gorm:"default:false"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sighting) TableName() string {
	return "sightings"
}

// Match types
const (
	MatchTypeExact = "exact"
	MatchTypeSub   = "sub"
)

// Source types
const (
	SourceTypeStock     = "stock"
	SourceTypeBroker    = "broker"
	SourceTypeSold      = "sold"
	SourceTypeMarketRef = "market_ref"
)

// NoSellerListed is a sentinel vendor name emitted by some sources; grouping
// must never produce a vendor group for it.
const NoSellerListed = "no seller listed"

// VendorKey normalizes a vendor name for grouping and contact lookup.
func (s *Sighting) VendorKey() string {
	return strings.ToLower(strings.TrimSpace(s.VendorName))
}

// Groupable reports whether the sighting may join a vendor group.
func (s *Sighting) Groupable() bool {
	key := s.VendorKey()
	return key != "" && key != NoSellerListed && !s.IsHistorical
}
