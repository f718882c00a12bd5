package entity

import "time"

// Requirement is one part line of a requisition. A requirement belongs to
// exactly one requisition.
type Requirement struct {
	ID            string      `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID string      `json:"requisition_id" gorm:"size:32;not null;index"`
	PrimaryMPN    string      `json:"primary_mpn" gorm:"size:128;not null;index"`
	Substitutes   StringArray `json:"substitutes" gorm:"type:jsonb"` // ordered, order not significant
	TargetQty     int         `json:"target_qty" gorm:"default:0"`
	TargetPrice   *float64    `json:"target_price" gorm:"type:decimal(12,4)"`
	Condition     string      `json:"condition" gorm:"size:20"`
	DateCodes     string      `json:"date_codes" gorm:"size:100"`
	Firmware      string      `json:"firmware" gorm:"size:100"`
	HardwareCodes string      `json:"hardware_codes" gorm:"size:100"`
	Packaging     string      `json:"packaging" gorm:"size:50"`
	Notes         string      `json:"notes" gorm:"type:text"`
	SightingCount int         `json:"sighting_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sightings []Sighting `json:"sightings,omitempty" gorm:"foreignKey:RequirementID"`
}

func (Requirement) TableName() string {
	return "requirements"
}

// Condition options
const (
	ConditionNew    = "new"
	ConditionRefurb = "refurb"
	ConditionUsed   = "used"
	ConditionAny    = "any"
)

// ConditionOptions is the accepted condition enum.
var ConditionOptions = []string{ConditionNew, ConditionRefurb, ConditionUsed, ConditionAny}

// ValidCondition accepts empty or any member of ConditionOptions.
func ValidCondition(c string) bool {
	if c == "" {
		return true
	}
	for _, opt := range ConditionOptions {
		if c == opt {
			return true
		}
	}
	return false
}
