package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories is the sourcing repository registry.
type Repositories struct {
	Requisition *RequisitionRepository
	Requirement *RequirementRepository
	Sighting    *SightingRepository
	Offer       *OfferRepository
	Quote       *QuoteRepository
	BuyPlan     *BuyPlanRepository
	RFQ         *RFQRepository
	Source      *SourceRepository
	ActivityLog *ActivityLogRepository
	ErrorReport *ErrorReportRepository
}

// NewRepositories wires every sourcing repository onto one gorm handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Requisition: NewRequisitionRepository(db),
		Requirement: NewRequirementRepository(db),
		Sighting:    NewSightingRepository(db),
		Offer:       NewOfferRepository(db),
		Quote:       NewQuoteRepository(db),
		BuyPlan:     NewBuyPlanRepository(db),
		RFQ:         NewRFQRepository(db),
		Source:      NewSourceRepository(db),
		ActivityLog: NewActivityLogRepository(db),
		ErrorReport: NewErrorReportRepository(db),
	}
}
