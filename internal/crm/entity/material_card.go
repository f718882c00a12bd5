package entity

import "time"

// MaterialCard is the per-MPN CRM record. Its listing history feeds search
// results as material-history sightings.
type MaterialCard struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	MPN          string `json:"mpn" gorm:"size:128;not null;uniqueIndex"`
	Manufacturer string `json:"manufacturer" gorm:"size:128"`
	Description  string `json:"description" gorm:"type:text"`
	Category     string `json:"category" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Listings []MaterialListing `json:"listings,omitempty" gorm:"foreignKey:MaterialCardID"`
}

func (MaterialCard) TableName() string {
	return "material_cards"
}

// MaterialListing is one historical vendor listing for a material.
type MaterialListing struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	MaterialCardID string `json:"material_card_id" gorm:"size:32;not null;index"`

	VendorName   string   `json:"vendor_name" gorm:"size:200"`
	UnitPrice    *float64 `json:"unit_price" gorm:"type:decimal(12,4)"`
	QtyAvailable int      `json:"qty_available" gorm:"default:0"`
	SourceType   string   `json:"source_type" gorm:"size:32"`
	Condition    string   `json:"condition" gorm:"size:20"`
	DateCode     string   `json:"date_code" gorm:"size:50"`

	SeenAt    time.Time `json:"seen_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (MaterialListing) TableName() string {
	return "material_listings"
}
