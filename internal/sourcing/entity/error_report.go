package entity

import "time"

// ErrorReport is an error ticket raised by users or the client's catch-all
// handler, triaged through the admin screen.
type ErrorReport struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Title    string `json:"title" gorm:"size:200;not null"`
	Detail   string `json:"detail" gorm:"type:text"`
	Status   string `json:"status" gorm:"size:20;default:open;index"`
	Severity string `json:"severity" gorm:"size:20;default:error"` // info/warn/error
	PageHash string `json:"page_hash" gorm:"size:64"`              // client route hash at report time

	ReportedBy string     `json:"reported_by" gorm:"size:32"`
	TriagedBy  *string    `json:"triaged_by" gorm:"size:32"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (ErrorReport) TableName() string {
	return "error_reports"
}

// Error report statuses
const (
	ErrorStatusOpen     = "open"
	ErrorStatusTriaged  = "triaged"
	ErrorStatusResolved = "resolved"
)
