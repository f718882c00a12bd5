package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// SettingsService covers the admin surface: search sources, scoring weights
// and error-report triage.
type SettingsService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewSettingsService(repos *repository.Repositories, logger *zap.Logger) *SettingsService {
	return &SettingsService{repos: repos, logger: logger}
}

func (s *SettingsService) ListSources(ctx context.Context) ([]entity.Source, error) {
	return s.repos.Source.FindAll(ctx)
}

// CreateSourceRequest registers a search source.
type CreateSourceRequest struct {
	Name    string  `json:"name" binding:"required"`
	Type    string  `json:"type" binding:"required"`
	Enabled *bool   `json:"enabled"`
	Weight  float64 `json:"weight"`
	Notes   string  `json:"notes"`
}

func (s *SettingsService) CreateSource(ctx context.Context, req *CreateSourceRequest) (*entity.Source, error) {
	src := &entity.Source{
		ID:      uuid.New().String()[:32],
		Name:    req.Name,
		Type:    req.Type,
		Enabled: true,
		Weight:  req.Weight,
		Notes:   req.Notes,
	}
	if req.Enabled != nil {
		src.Enabled = *req.Enabled
	}
	if src.Weight == 0 {
		src.Weight = 1
	}

	if err := s.repos.Source.Create(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// UpdateSourceRequest is a partial source update.
type UpdateSourceRequest struct {
	Name    *string  `json:"name"`
	Type    *string  `json:"type"`
	Enabled *bool    `json:"enabled"`
	Weight  *float64 `json:"weight"`
	Notes   *string  `json:"notes"`
}

func (s *SettingsService) UpdateSource(ctx context.Context, id string, req *UpdateSourceRequest) (*entity.Source, error) {
	src, err := s.repos.Source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		src.Name = *req.Name
	}
	if req.Type != nil {
		src.Type = *req.Type
	}
	if req.Enabled != nil {
		src.Enabled = *req.Enabled
	}
	if req.Weight != nil {
		src.Weight = *req.Weight
	}
	if req.Notes != nil {
		src.Notes = *req.Notes
	}

	if err := s.repos.Source.Update(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *SettingsService) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.repos.Source.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repos.Source.Delete(ctx, id)
}

func (s *SettingsService) GetWeights(ctx context.Context) (*entity.ScoringWeights, error) {
	return s.repos.Source.GetWeights(ctx)
}

// UpdateWeightsRequest replaces the scoring weights.
type UpdateWeightsRequest struct {
	PriceWeight  *float64 `json:"price_weight"`
	QtyWeight    *float64 `json:"qty_weight"`
	FreshWeight  *float64 `json:"fresh_weight"`
	SpreadWeight *float64 `json:"spread_weight"`
}

func (s *SettingsService) UpdateWeights(ctx context.Context, userID string, req *UpdateWeightsRequest) (*entity.ScoringWeights, error) {
	w, err := s.repos.Source.GetWeights(ctx)
	if err != nil {
		return nil, err
	}

	if req.PriceWeight != nil {
		w.PriceWeight = *req.PriceWeight
	}
	if req.QtyWeight != nil {
		w.QtyWeight = *req.QtyWeight
	}
	if req.FreshWeight != nil {
		w.FreshWeight = *req.FreshWeight
	}
	if req.SpreadWeight != nil {
		w.SpreadWeight = *req.SpreadWeight
	}
	w.UpdatedBy = userID
	w.UpdatedAt = time.Now()

	if err := s.repos.Source.SaveWeights(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *SettingsService) ListErrorReports(ctx context.Context, page, pageSize int, status string) ([]entity.ErrorReport, int64, error) {
	return s.repos.ErrorReport.FindAll(ctx, page, pageSize, status)
}

// CreateErrorReportRequest files a triage ticket.
type CreateErrorReportRequest struct {
	Title    string `json:"title" binding:"required"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
	PageHash string `json:"page_hash"`
}

func (s *SettingsService) CreateErrorReport(ctx context.Context, userID string, req *CreateErrorReportRequest) (*entity.ErrorReport, error) {
	report := &entity.ErrorReport{
		ID:         uuid.New().String()[:32],
		Title:      req.Title,
		Detail:     req.Detail,
		Severity:   req.Severity,
		PageHash:   req.PageHash,
		Status:     entity.ErrorStatusOpen,
		ReportedBy: userID,
	}
	if report.Severity == "" {
		report.Severity = "error"
	}
	if err := s.repos.ErrorReport.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// UpdateErrorReportStatus moves a ticket through open → triaged → resolved.
func (s *SettingsService) UpdateErrorReportStatus(ctx context.Context, id, status, userID string) (*entity.ErrorReport, error) {
	switch status {
	case entity.ErrorStatusOpen, entity.ErrorStatusTriaged, entity.ErrorStatusResolved:
	default:
		return nil, fmt.Errorf("unknown report status %q", status)
	}

	report, err := s.repos.ErrorReport.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Status = status
	switch status {
	case entity.ErrorStatusTriaged:
		report.TriagedBy = &userID
	case entity.ErrorStatusResolved:
		now := time.Now()
		report.ResolvedAt = &now
	}
	if err := s.repos.ErrorReport.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}
