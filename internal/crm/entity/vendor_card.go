package entity

import "time"

// VendorCard is the per-vendor CRM record keyed by normalized vendor name.
// The RFQ composer resolves outgoing emails through it.
type VendorCard struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	VendorKey string `json:"vendor_key" gorm:"size:200;not null;uniqueIndex"` // trimmed, lower-cased
	Name      string `json:"name" gorm:"size:200;not null"`

	Email   string `json:"email" gorm:"size:200"`
	Phone   string `json:"phone" gorm:"size:50"`
	Website string `json:"website" gorm:"size:200"`
	Country string `json:"country" gorm:"size:50"`

	Rating     *float64 `json:"rating" gorm:"type:decimal(3,1)"`
	ReplyCount int      `json:"reply_count" gorm:"default:0"`
	RFQCount   int      `json:"rfq_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (VendorCard) TableName() string {
	return "vendor_cards"
}
