package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a customer-facing quote derived from selected offers.
type Quote struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string `json:"requisition_id" gorm:"size:32;not null;index"`
	Status        string `json:"status" gorm:"size:20;default:draft"`
	Revision      int    `json:"revision" gorm:"default:1"`

	CreatedBy string     `json:"created_by" gorm:"size:32"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Notes     string     `json:"notes" gorm:"type:text"`

	Items []QuoteItem `json:"items,omitempty" gorm:"foreignKey:QuoteID"`
}

func (Quote) TableName() string {
	return "quotes"
}

// Quote statuses
const (
	QuoteStatusDraft   = "draft"
	QuoteStatusSent    = "sent"
	QuoteStatusRevised = "revised"
	QuoteStatusWon     = "won"
	QuoteStatusLost    = "lost"
)

// QuoteItem is one line of a quote. MarginPct is derived from the two prices
// and recomputed on every price edit.
type QuoteItem struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	QuoteID       string  `json:"quote_id" gorm:"size:32;not null;index"`
	RequirementID string  `json:"requirement_id" gorm:"size:32"`
	OfferID       *string `json:"offer_id" gorm:"size:32"`

	MPN        string  `json:"mpn" gorm:"size:128;not null"`
	VendorName string  `json:"vendor_name" gorm:"size:200"`
	Qty        int     `json:"qty" gorm:"default:0"`
	CostPrice  float64 `json:"cost_price" gorm:"type:decimal(12,4);default:0"`
	SellPrice  float64 `json:"sell_price" gorm:"type:decimal(12,4);default:0"`
	MarginPct  float64 `json:"margin_pct" gorm:"type:decimal(7,4);default:0"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuoteItem) TableName() string {
	return "quote_items"
}

// MarginPct computes (sell-cost)/sell*100 with 4-digit rounding. A zero sell
// price yields zero rather than a division error.
func MarginPct(cost, sell float64) float64 {
	s := decimal.NewFromFloat(sell)
	if s.IsZero() {
		return 0
	}
	c := decimal.NewFromFloat(cost)
	pct := s.Sub(c).Div(s).Mul(decimal.NewFromInt(100)).Round(4)
	f, _ := pct.Float64()
	return f
}

// Recalc refreshes the derived margin from the current prices.
func (i *QuoteItem) Recalc() {
	i.MarginPct = MarginPct(i.CostPrice, i.SellPrice)
}
