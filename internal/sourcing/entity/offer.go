package entity

import "time"

// Offer is a buyer-logged, confirmed vendor quote, distinct from a raw
// sighting.
type Offer struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequirementID string `json:"requirement_id" gorm:"size:32;not null;index"`
	SightingID    *string `json:"sighting_id" gorm:"size:32"`

	VendorName   string      `json:"vendor_name" gorm:"size:200;not null"`
	Status       string      `json:"status" gorm:"size:20;default:active"`
	MPN          string      `json:"mpn" gorm:"size:128"`
	QtyAvailable int         `json:"qty_available" gorm:"default:0"`
	UnitPrice    float64     `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	LeadTime     string      `json:"lead_time" gorm:"size:50"`
	Condition    string      `json:"condition" gorm:"size:20"`
	Attachments  *JSONBArray `json:"attachments" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Offer) TableName() string {
	return "offers"
}

// Offer statuses
const (
	OfferStatusActive    = "active"
	OfferStatusExpired   = "expired"
	OfferStatusReference = "reference"
)
