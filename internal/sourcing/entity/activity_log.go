package entity

import "time"

// ActivityLog is the best-effort audit trail. Writes never fail a request.
type ActivityLog struct {
	ID            string  `json:"id" gorm:"primaryKey;size:32"`
	RequisitionID *string `json:"requisition_id" gorm:"size:32;index"`
	EntityType    string  `json:"entity_type" gorm:"size:32;not null;index"`
	EntityID      string  `json:"entity_id" gorm:"size:32;not null;index"`
	Action        string  `json:"action" gorm:"size:50;not null"`
	Detail        string  `json:"detail" gorm:"type:text"`
	UserID        string  `json:"user_id" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
