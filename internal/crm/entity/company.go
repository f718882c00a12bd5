package entity

import "time"

// Company is a CRM account with enrichment metadata.
type Company struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Name string `json:"name" gorm:"size:200;not null;index"`

	// Enrichment metadata, displayed verbatim.
	Industry        string   `json:"industry" gorm:"size:100"`
	EmployeeSize    string   `json:"employee_size" gorm:"size:32"`
	EngagementScore *float64 `json:"engagement_score" gorm:"type:decimal(5,2)"`
	Tier            string   `json:"tier" gorm:"size:20"`
	Website         string   `json:"website" gorm:"size:200"`

	EnrichedAt *time.Time `json:"enriched_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Notes      string     `json:"notes" gorm:"type:text"`

	Sites []Site `json:"sites,omitempty" gorm:"foreignKey:CompanyID"`
}

func (Company) TableName() string {
	return "companies"
}

// Site is a company location; requisitions reference a customer site.
type Site struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	CompanyID string `json:"company_id" gorm:"size:32;not null;index"`
	Name      string `json:"name" gorm:"size:200;not null"`
	Country   string `json:"country" gorm:"size:50"`
	City      string `json:"city" gorm:"size:50"`
	Address   string `json:"address" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Contacts []Contact `json:"contacts,omitempty" gorm:"foreignKey:SiteID"`
}

func (Site) TableName() string {
	return "sites"
}

// Contact is a person at a site.
type Contact struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	SiteID    string `json:"site_id" gorm:"size:32;not null;index"`
	Name      string `json:"name" gorm:"size:100;not null"`
	Title     string `json:"title" gorm:"size:100"`
	Email     string `json:"email" gorm:"size:200"`
	Phone     string `json:"phone" gorm:"size:50"`
	IsPrimary bool   `json:"is_primary" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
