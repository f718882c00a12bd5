package entity

import "time"

// RFQBatch is one dispatched batch of vendor RFQ emails.
type RFQBatch struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string `json:"requisition_id" gorm:"size:32;not null;index"`
	VendorCount   int    `json:"vendor_count" gorm:"default:0"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`

	Vendors []RFQVendorSend `json:"vendors,omitempty" gorm:"foreignKey:BatchID"`
}

func (RFQBatch) TableName() string {
	return "rfq_batches"
}

// RFQVendorSend is the per-vendor outcome of a batch dispatch.
type RFQVendorSend struct {
	ID      string `json:"id" gorm:"primaryKey;size:32"`
	BatchID string `json:"batch_id" gorm:"size:32;not null;index"`

	VendorName   string      `json:"vendor_name" gorm:"size:200;not null"`
	VendorKey    string      `json:"vendor_key" gorm:"size:200;index"`
	ContactEmail string      `json:"contact_email" gorm:"size:200"`
	Status       string      `json:"status" gorm:"size:20"`
	Parts        StringArray `json:"parts" gorm:"type:jsonb"`
	RepeatParts  StringArray `json:"repeat_parts" gorm:"type:jsonb"`

	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (RFQVendorSend) TableName() string {
	return "rfq_vendor_sends"
}

// RFQ vendor send statuses
const (
	RFQSendStatusSent      = "sent"
	RFQSendStatusNoEmail   = "no_email"
	RFQSendStatusExhausted = "exhausted"
	RFQSendStatusFailed    = "failed"
)

// RFQAsk is the "already asked" ledger: one row per (vendor, mpn) ever
// included in a dispatched RFQ. Used to partition new vs repeat parts.
type RFQAsk struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	VendorKey string    `json:"vendor_key" gorm:"size:200;not null;uniqueIndex:idx_rfq_asks_vendor_mpn"`
	MPN       string    `json:"mpn" gorm:"size:128;not null;uniqueIndex:idx_rfq_asks_vendor_mpn"`
	AskedAt   time.Time `json:"asked_at"`
}

func (RFQAsk) TableName() string {
	return "rfq_asks"
}
