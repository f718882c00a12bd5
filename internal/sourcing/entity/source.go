package entity

import "time"

// Source is an admin-managed search source (stocking feed, broker list,
// sold-history import).
type Source struct {
	ID      string  `json:"id" gorm:"primaryKey;size:32"`
	Name    string  `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Type    string  `json:"type" gorm:"size:32;not null"` // stock/broker/sold/market_ref
	Enabled bool    `json:"enabled" gorm:"default:true"`
	Weight  float64 `json:"weight" gorm:"type:decimal(5,2);default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Source) TableName() string {
	return "sources"
}

// ScoringWeights is the single-row sourcing-score configuration.
type ScoringWeights struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	PriceWeight   float64 `json:"price_weight" gorm:"type:decimal(5,2);default:1"`
	QtyWeight     float64 `json:"qty_weight" gorm:"type:decimal(5,2);default:1"`
	FreshWeight   float64 `json:"fresh_weight" gorm:"type:decimal(5,2);default:1"`
	SpreadWeight  float64 `json:"spread_weight" gorm:"type:decimal(5,2);default:1"`
	UpdatedBy     string  `json:"updated_by" gorm:"size:32"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ScoringWeights) TableName() string {
	return "scoring_weights"
}
