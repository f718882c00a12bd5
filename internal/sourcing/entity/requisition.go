package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB generic jsonb column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// JSONBArray jsonb array column.
type JSONBArray []interface{}

func (j JSONBArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONBArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONBArray: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// StringArray jsonb string list column (substitutes, part lists).
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan StringArray: %v", value)
	}
	return json.Unmarshal(bytes, s)
}

// DeadlineASAP is a literal deadline value accepted alongside date strings.
const DeadlineASAP = "ASAP"

// Requisition is a customer sourcing request holding part requirements.
type Requisition struct {
	ID             string  `json:"id" gorm:"primaryKey;size:32"`
	Name           string  `json:"name" gorm:"size:200;not null"`
	Status         string  `json:"status" gorm:"size:20;default:draft;index"`
	Deadline       *string `json:"deadline" gorm:"size:32"` // date string or "ASAP"
	CustomerSiteID *string `json:"customer_site_id" gorm:"size:32;index"`

	// Denormalized counters kept current by search/RFQ/quote actions.
	RequirementCount int      `json:"requirement_count" gorm:"default:0"`
	SourcedCount     int      `json:"sourced_count" gorm:"default:0"`
	ReplyCount       int      `json:"reply_count" gorm:"default:0"`
	SourcingScore    *float64 `json:"sourcing_score" gorm:"type:decimal(5,2)"`

	LastSearchedAt *time.Time `json:"last_searched_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	Requirements []Requirement `json:"requirements,omitempty" gorm:"foreignKey:RequisitionID"`
}

func (Requisition) TableName() string {
	return "requisitions"
}

// Requisition statuses
const (
	ReqStatusDraft    = "draft"
	ReqStatusActive   = "active"
	ReqStatusClosed   = "closed"
	ReqStatusOffers   = "offers"
	ReqStatusQuoting  = "quoting"
	ReqStatusQuoted   = "quoted"
	ReqStatusWon      = "won"
	ReqStatusLost     = "lost"
	ReqStatusArchived = "archived"
)

// ValidDeadline accepts nil, the ASAP literal, or a YYYY-MM-DD date string.
func ValidDeadline(deadline *string) bool {
	if deadline == nil || *deadline == "" || *deadline == DeadlineASAP {
		return true
	}
	_, err := time.Parse("2006-01-02", *deadline)
	return err == nil
}
