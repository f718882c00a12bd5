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

// SourceConnector is one pluggable availability source. Connectors search a
// single MPN and return raw hits; persistence and scoring stay here.
type SourceConnector interface {
	Name() string
	Search(ctx context.Context, mpn string) ([]SourceHit, error)
}

// SourceHit is one raw availability record from a connector.
type SourceHit struct {
	VendorName   string
	MPN          string
	Manufacturer string
	UnitPrice    *float64
	QtyAvailable int
	SourceType   string
	Condition    string
	DateCode     string
	LeadTime     string
}

// MaterialHistoryProvider surfaces previously-seen listings for an MPN from
// the CRM material cards, shown alongside fresh results.
type MaterialHistoryProvider interface {
	HistoryForMPN(ctx context.Context, mpn string) ([]SourceHit, error)
}

// SearchService runs availability searches and owns the sighting lifecycle.
type SearchService struct {
	repos      *repository.Repositories
	connectors map[string]SourceConnector
	history    MaterialHistoryProvider
	activity   *ActivityRecorder
	logger     *zap.Logger
}

func NewSearchService(repos *repository.Repositories, activity *ActivityRecorder, logger *zap.Logger) *SearchService {
	return &SearchService{
		repos:      repos,
		connectors: make(map[string]SourceConnector),
		activity:   activity,
		logger:     logger,
	}
}

// RegisterConnector binds a connector under its source name.
func (s *SearchService) RegisterConnector(c SourceConnector) {
	s.connectors[c.Name()] = c
}

func (s *SearchService) SetHistoryProvider(p MaterialHistoryProvider) {
	s.history = p
}

// RunResult summarizes one search run.
type RunResult struct {
	RequisitionID string `json:"requisition_id"`
	SightingCount int    `json:"sighting_count"`
	SourcedCount  int    `json:"sourced_count"`
}

// Run searches every enabled source for each requirement's primary MPN and
// substitutes, persists the sightings, refreshes the requisition counters and
// advances a draft requisition to active. Connector failures are logged and
// skipped; the run itself only fails on persistence errors.
func (s *SearchService) Run(ctx context.Context, requisitionID, userID string) (*RunResult, error) {
	req, err := s.repos.Requisition.FindByIDWithRequirements(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	sources, err := s.repos.Source.FindEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled sources: %w", err)
	}

	total := 0
	for i := range req.Requirements {
		line := &req.Requirements[i]
		mpns := append([]string{line.PrimaryMPN}, line.Substitutes...)

		var sightings []entity.Sighting
		for _, src := range sources {
			connector, ok := s.connectors[src.Name]
			if !ok {
				continue
			}
			for _, mpn := range mpns {
				hits, err := connector.Search(ctx, mpn)
				if err != nil {
					s.logger.Warn("source search failed",
						zap.String("source", src.Name),
						zap.String("mpn", mpn),
						zap.Error(err))
					continue
				}
				sightings = append(sightings, s.toSightings(line, mpn, hits)...)
			}
		}

		if s.history != nil {
			hits, err := s.history.HistoryForMPN(ctx, line.PrimaryMPN)
			if err != nil {
				s.logger.Warn("material history lookup failed",
					zap.String("mpn", line.PrimaryMPN), zap.Error(err))
			} else {
				hist := s.toSightings(line, line.PrimaryMPN, hits)
				for i := range hist {
					hist[i].IsMaterialHistory = true
					hist[i].IsHistorical = true
				}
				sightings = append(sightings, hist...)
			}
		}

		if err := s.repos.Sighting.CreateBatch(ctx, sightings); err != nil {
			return nil, fmt.Errorf("failed to persist sightings: %w", err)
		}
		total += len(sightings)

		if err := s.repos.Requirement.UpdateSightingCount(ctx, line.ID); err != nil {
			s.logger.Warn("sighting count refresh failed",
				zap.String("requirement_id", line.ID), zap.Error(err))
		}
	}

	sourced, err := s.repos.Sighting.CountDistinctSourcedRequirements(ctx, requisitionID)
	if err != nil {
		s.logger.Warn("sourced count query failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}

	now := time.Now()
	counters := map[string]interface{}{
		"sourced_count":    sourced,
		"last_searched_at": &now,
	}
	if err := s.repos.Requisition.UpdateCounters(ctx, requisitionID, counters); err != nil {
		s.logger.Warn("requisition counter refresh failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}

	if req.Status == entity.ReqStatusDraft {
		if err := s.repos.Requisition.UpdateStatus(ctx, requisitionID, entity.ReqStatusActive); err != nil {
			s.logger.Warn("requisition activation failed",
				zap.String("requisition_id", requisitionID), zap.Error(err))
		}
	}

	s.activity.Record(ctx, requisitionID, "requisition", requisitionID, "searched",
		fmt.Sprintf("%d sightings", total), userID)

	return &RunResult{
		RequisitionID: requisitionID,
		SightingCount: total,
		SourcedCount:  int(sourced),
	}, nil
}

func (s *SearchService) toSightings(line *entity.Requirement, searchedMPN string, hits []SourceHit) []entity.Sighting {
	out := make([]entity.Sighting, 0, len(hits))
	for _, h := range hits {
		matchType := entity.MatchTypeExact
		if searchedMPN != line.PrimaryMPN {
			matchType = entity.MatchTypeSub
		}
		mpn := h.MPN
		if mpn == "" {
			mpn = searchedMPN
		}
		out = append(out, entity.Sighting{
			ID:            uuid.New().String()[:32],
			RequirementID: line.ID,
			VendorName:    h.VendorName,
			MPNMatched:    mpn,
			Manufacturer:  h.Manufacturer,
			MatchType:     matchType,
			UnitPrice:     h.UnitPrice,
			QtyAvailable:  h.QtyAvailable,
			SourceType:    h.SourceType,
			Condition:     h.Condition,
			DateCode:      h.DateCode,
			LeadTime:      h.LeadTime,
		})
	}
	return out
}

// MarkUnavailable flips the soft flag once the DB write succeeds; callers
// must not render the change optimistically.
func (s *SearchService) MarkUnavailable(ctx context.Context, sightingID string, unavailable bool, userID string) error {
	if err := s.repos.Sighting.MarkUnavailable(ctx, sightingID, unavailable); err != nil {
		return err
	}
	s.activity.Record(ctx, "", "sighting", sightingID, "availability_changed",
		fmt.Sprintf("unavailable=%t", unavailable), userID)
	return nil
}

func (s *SearchService) ListSightings(ctx context.Context, requirementID string) ([]entity.Sighting, error) {
	return s.repos.Sighting.FindByRequirement(ctx, requirementID)
}

// BuildResultSet loads the requisition's current sightings into a fresh
// in-memory result set keyed by requirement.
func (s *SearchService) BuildResultSet(ctx context.Context, requisitionID string) (*ResultSet, error) {
	req, err := s.repos.Requisition.FindByIDWithRequirements(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	rs := NewResultSet()
	for i := range req.Requirements {
		line := &req.Requirements[i]
		sightings, err := s.repos.Sighting.FindByRequirement(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		ptrs := make([]*entity.Sighting, len(sightings))
		for j := range sightings {
			ptrs[j] = &sightings[j]
		}
		rs.SetResults(line.ID, line.PrimaryMPN, ptrs)
	}
	return rs, nil
}
