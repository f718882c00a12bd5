package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidDeadline  = fmt.Errorf("deadline must be a YYYY-MM-DD date or %q", entity.DeadlineASAP)
	ErrInvalidCondition = fmt.Errorf("condition must be one of %v", entity.ConditionOptions)
)

// RequisitionService owns requisition and requirement lifecycle.
type RequisitionService struct {
	repos    *repository.Repositories
	activity *ActivityRecorder
	logger   *zap.Logger
}

func NewRequisitionService(repos *repository.Repositories, activity *ActivityRecorder, logger *zap.Logger) *RequisitionService {
	return &RequisitionService{repos: repos, activity: activity, logger: logger}
}

func (s *RequisitionService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	return s.repos.Requisition.FindAll(ctx, page, pageSize, filters)
}

func (s *RequisitionService) Get(ctx context.Context, id string) (*entity.Requisition, error) {
	return s.repos.Requisition.FindByIDWithRequirements(ctx, id)
}

// CreateRequisitionRequest creates a requisition, optionally with part lines.
type CreateRequisitionRequest struct {
	Name           string                     `json:"name" binding:"required"`
	Deadline       *string                    `json:"deadline"`
	CustomerSiteID *string                    `json:"customer_site_id"`
	Notes          string                     `json:"notes"`
	Requirements   []CreateRequirementRequest `json:"requirements"`
}

type CreateRequirementRequest struct {
	PrimaryMPN    string   `json:"primary_mpn" binding:"required"`
	Substitutes   []string `json:"substitutes"`
	TargetQty     int      `json:"target_qty"`
	TargetPrice   *float64 `json:"target_price"`
	Condition     string   `json:"condition"`
	DateCodes     string   `json:"date_codes"`
	Firmware      string   `json:"firmware"`
	HardwareCodes string   `json:"hardware_codes"`
	Packaging     string   `json:"packaging"`
	Notes         string   `json:"notes"`
}

func (s *RequisitionService) Create(ctx context.Context, userID string, req *CreateRequisitionRequest) (*entity.Requisition, error) {
	if !entity.ValidDeadline(req.Deadline) {
		return nil, ErrInvalidDeadline
	}

	r := &entity.Requisition{
		ID:             uuid.New().String()[:32],
		Name:           req.Name,
		Status:         entity.ReqStatusDraft,
		Deadline:       req.Deadline,
		CustomerSiteID: req.CustomerSiteID,
		Notes:          req.Notes,
		CreatedBy:      userID,
	}

	for _, line := range req.Requirements {
		if !entity.ValidCondition(line.Condition) {
			return nil, ErrInvalidCondition
		}
		r.Requirements = append(r.Requirements, entity.Requirement{
			ID:            uuid.New().String()[:32],
			RequisitionID: r.ID,
			PrimaryMPN:    line.PrimaryMPN,
			Substitutes:   line.Substitutes,
			TargetQty:     line.TargetQty,
			TargetPrice:   line.TargetPrice,
			Condition:     line.Condition,
			DateCodes:     line.DateCodes,
			Firmware:      line.Firmware,
			HardwareCodes: line.HardwareCodes,
			Packaging:     line.Packaging,
			Notes:         line.Notes,
		})
	}
	r.RequirementCount = len(r.Requirements)

	if err := s.repos.Requisition.Create(ctx, r); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, r.ID, "requisition", r.ID, "created", r.Name, userID)
	return r, nil
}

// UpdateRequisitionRequest applies a partial update; nil fields are untouched.
type UpdateRequisitionRequest struct {
	Name           *string `json:"name"`
	Deadline       *string `json:"deadline"`
	CustomerSiteID *string `json:"customer_site_id"`
	Notes          *string `json:"notes"`
}

func (s *RequisitionService) Update(ctx context.Context, id string, req *UpdateRequisitionRequest) (*entity.Requisition, error) {
	r, err := s.repos.Requisition.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Deadline != nil {
		if !entity.ValidDeadline(req.Deadline) {
			return nil, ErrInvalidDeadline
		}
		r.Deadline = req.Deadline
	}
	if req.CustomerSiteID != nil {
		r.CustomerSiteID = req.CustomerSiteID
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}

	if err := s.repos.Requisition.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Archive soft-hides a requisition from default listings.
func (s *RequisitionService) Archive(ctx context.Context, id, userID string) error {
	r, err := s.repos.Requisition.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Requisition.UpdateStatus(ctx, r.ID, entity.ReqStatusArchived); err != nil {
		return err
	}
	s.activity.Record(ctx, r.ID, "requisition", r.ID, "archived", "", userID)
	return nil
}

// Clone copies a requisition and its requirements under a new id with fresh
// counters. Sightings, offers and quotes do not carry over.
func (s *RequisitionService) Clone(ctx context.Context, id, userID string) (*entity.Requisition, error) {
	src, err := s.repos.Requisition.FindByIDWithRequirements(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := &entity.Requisition{
		ID:             uuid.New().String()[:32],
		Name:           src.Name + " (copy)",
		Status:         entity.ReqStatusDraft,
		Deadline:       src.Deadline,
		CustomerSiteID: src.CustomerSiteID,
		Notes:          src.Notes,
		CreatedBy:      userID,
	}
	for _, line := range src.Requirements {
		clone.Requirements = append(clone.Requirements, entity.Requirement{
			ID:            uuid.New().String()[:32],
			RequisitionID: clone.ID,
			PrimaryMPN:    line.PrimaryMPN,
			Substitutes:   line.Substitutes,
			TargetQty:     line.TargetQty,
			TargetPrice:   line.TargetPrice,
			Condition:     line.Condition,
			DateCodes:     line.DateCodes,
			Firmware:      line.Firmware,
			HardwareCodes: line.HardwareCodes,
			Packaging:     line.Packaging,
			Notes:         line.Notes,
		})
	}
	clone.RequirementCount = len(clone.Requirements)

	if err := s.repos.Requisition.Create(ctx, clone); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, clone.ID, "requisition", clone.ID, "cloned", "from "+src.ID, userID)
	return clone, nil
}

// AddRequirement appends one part line and bumps the counter.
func (s *RequisitionService) AddRequirement(ctx context.Context, requisitionID string, req *CreateRequirementRequest) (*entity.Requirement, error) {
	if !entity.ValidCondition(req.Condition) {
		return nil, ErrInvalidCondition
	}
	if _, err := s.repos.Requisition.FindByID(ctx, requisitionID); err != nil {
		return nil, err
	}

	line := &entity.Requirement{
		ID:            uuid.New().String()[:32],
		RequisitionID: requisitionID,
		PrimaryMPN:    req.PrimaryMPN,
		Substitutes:   req.Substitutes,
		TargetQty:     req.TargetQty,
		TargetPrice:   req.TargetPrice,
		Condition:     req.Condition,
		DateCodes:     req.DateCodes,
		Firmware:      req.Firmware,
		HardwareCodes: req.HardwareCodes,
		Packaging:     req.Packaging,
		Notes:         req.Notes,
	}
	if err := s.repos.Requirement.Create(ctx, line); err != nil {
		return nil, err
	}
	s.refreshRequirementCount(ctx, requisitionID)
	return line, nil
}

// UpdateRequirementRequest is a partial part-line update.
type UpdateRequirementRequest struct {
	PrimaryMPN    *string   `json:"primary_mpn"`
	Substitutes   *[]string `json:"substitutes"`
	TargetQty     *int      `json:"target_qty"`
	TargetPrice   *float64  `json:"target_price"`
	Condition     *string   `json:"condition"`
	DateCodes     *string   `json:"date_codes"`
	Firmware      *string   `json:"firmware"`
	HardwareCodes *string   `json:"hardware_codes"`
	Packaging     *string   `json:"packaging"`
	Notes         *string   `json:"notes"`
}

func (s *RequisitionService) UpdateRequirement(ctx context.Context, id string, req *UpdateRequirementRequest) (*entity.Requirement, error) {
	line, err := s.repos.Requirement.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.PrimaryMPN != nil {
		line.PrimaryMPN = *req.PrimaryMPN
	}
	if req.Substitutes != nil {
		line.Substitutes = *req.Substitutes
	}
	if req.TargetQty != nil {
		line.TargetQty = *req.TargetQty
	}
	if req.TargetPrice != nil {
		line.TargetPrice = req.TargetPrice
	}
	if req.Condition != nil {
		if !entity.ValidCondition(*req.Condition) {
			return nil, ErrInvalidCondition
		}
		line.Condition = *req.Condition
	}
	if req.DateCodes != nil {
		line.DateCodes = *req.DateCodes
	}
	if req.Firmware != nil {
		line.Firmware = *req.Firmware
	}
	if req.HardwareCodes != nil {
		line.HardwareCodes = *req.HardwareCodes
	}
	if req.Packaging != nil {
		line.Packaging = *req.Packaging
	}
	if req.Notes != nil {
		line.Notes = *req.Notes
	}

	if err := s.repos.Requirement.Update(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *RequisitionService) DeleteRequirement(ctx context.Context, id string) error {
	line, err := s.repos.Requirement.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Requirement.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshRequirementCount(ctx, line.RequisitionID)
	return nil
}

func (s *RequisitionService) ListRequirements(ctx context.Context, requisitionID string) ([]entity.Requirement, error) {
	return s.repos.Requirement.FindByRequisition(ctx, requisitionID)
}

func (s *RequisitionService) ListActivity(ctx context.Context, requisitionID string, limit int) ([]entity.ActivityLog, error) {
	return s.repos.ActivityLog.FindByRequisition(ctx, requisitionID, limit)
}

// refreshRequirementCount re-derives the denormalized counter, best-effort.
func (s *RequisitionService) refreshRequirementCount(ctx context.Context, requisitionID string) {
	count, err := s.repos.Requisition.CountRequirements(ctx, requisitionID)
	if err == nil {
		err = s.repos.Requisition.UpdateCounters(ctx, requisitionID, map[string]interface{}{
			"requirement_count": count,
		})
	}
	if err != nil {
		s.logger.Warn("requirement count refresh failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}
}

// RefreshStatus recomputes the requisition's badge status from downstream
// facts. Called best-effort after quote and plan transitions.
func (s *RequisitionService) RefreshStatus(ctx context.Context, requisitionID string) {
	r, err := s.repos.Requisition.FindByID(ctx, requisitionID)
	if err != nil {
		s.logger.Warn("status refresh lookup failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
		return
	}
	if r.Status == entity.ReqStatusArchived {
		return
	}

	status := r.Status
	quotes, err := s.repos.Quote.FindByRequisition(ctx, requisitionID)
	if err == nil {
		for _, q := range quotes {
			switch q.Status {
			case entity.QuoteStatusWon:
				status = entity.ReqStatusWon
			case entity.QuoteStatusLost:
				if status != entity.ReqStatusWon {
					status = entity.ReqStatusLost
				}
			case entity.QuoteStatusSent, entity.QuoteStatusRevised:
				if status != entity.ReqStatusWon && status != entity.ReqStatusLost {
					status = entity.ReqStatusQuoted
				}
			case entity.QuoteStatusDraft:
				if status == entity.ReqStatusActive || status == entity.ReqStatusOffers {
					status = entity.ReqStatusQuoting
				}
			}
		}
	}

	if status == r.Status {
		return
	}
	if err := s.repos.Requisition.UpdateStatus(ctx, requisitionID, status); err != nil {
		s.logger.Warn("status refresh write failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}
}
