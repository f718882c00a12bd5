package service

import (
	"context"
	"hash/fnv"
	"time"

	sourcing "github.com/trioscs/avail/internal/sourcing/service"
)

// EnrichmentStoreAdapter exposes the company table through the enrichment
// job's store port.
type EnrichmentStoreAdapter struct {
	svc *CRMService
}

func NewEnrichmentStore(svc *CRMService) *EnrichmentStoreAdapter {
	return &EnrichmentStoreAdapter{svc: svc}
}

func (a *EnrichmentStoreAdapter) NextCandidates(ctx context.Context, limit int) ([]sourcing.EnrichmentCandidate, error) {
	companies, err := a.svc.repos.Company.FindUnenriched(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]sourcing.EnrichmentCandidate, 0, len(companies))
	for _, c := range companies {
		out = append(out, sourcing.EnrichmentCandidate{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (a *EnrichmentStoreAdapter) CountRemaining(ctx context.Context) (int64, error) {
	return a.svc.repos.Company.CountUnenriched(ctx)
}

func (a *EnrichmentStoreAdapter) Apply(ctx context.Context, id string, fields sourcing.EnrichmentFields) error {
	company, err := a.svc.repos.Company.FindByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	company.Industry = fields.Industry
	company.EmployeeSize = fields.EmployeeSize
	score := fields.EngagementScore
	company.EngagementScore = &score
	company.Tier = fields.Tier
	company.EnrichedAt = &now
	return a.svc.repos.Company.Update(ctx, company)
}

var (
	industryBuckets = []string{"Electronics Manufacturing", "Industrial Automation", "Telecom", "Medical Devices", "Automotive"}
	sizeBuckets     = []string{"1-50", "51-200", "201-1000", "1000+"}
	tierBuckets     = []string{"bronze", "silver", "gold"}
)

// DeterministicEnricher fills company metadata from a stable hash of the
// name, so repeated runs produce identical output.
type DeterministicEnricher struct{}

func (DeterministicEnricher) Enrich(_ context.Context, c sourcing.EnrichmentCandidate) (sourcing.EnrichmentFields, error) {
	h := fnv.New32a()
	h.Write([]byte(c.Name))
	sum := h.Sum32()

	return sourcing.EnrichmentFields{
		Industry:        industryBuckets[sum%uint32(len(industryBuckets))],
		EmployeeSize:    sizeBuckets[(sum>>8)%uint32(len(sizeBuckets))],
		EngagementScore: float64(sum%1000) / 10,
		Tier:            tierBuckets[(sum>>16)%uint32(len(tierBuckets))],
	}, nil
}

// ListingConnector is a search connector backed by the CRM material
// listings, so vendor-reported stock shows up alongside external feeds. The
// name must match an enabled source row.
type ListingConnector struct {
	name string
	svc  *CRMService
}

func NewListingConnector(name string, svc *CRMService) *ListingConnector {
	return &ListingConnector{name: name, svc: svc}
}

func (c *ListingConnector) Name() string { return c.name }

func (c *ListingConnector) Search(ctx context.Context, mpn string) ([]sourcing.SourceHit, error) {
	listings, err := c.svc.ListMaterialHistory(ctx, mpn)
	if err != nil {
		return nil, err
	}
	out := make([]sourcing.SourceHit, 0, len(listings))
	for _, l := range listings {
		out = append(out, sourcing.SourceHit{
			VendorName:   l.VendorName,
			MPN:          mpn,
			UnitPrice:    l.UnitPrice,
			QtyAvailable: l.QtyAvailable,
			SourceType:   l.SourceType,
			Condition:    l.Condition,
			DateCode:     l.DateCode,
		})
	}
	return out, nil
}

// HistoryProviderAdapter surfaces material listing history as search hits.
type HistoryProviderAdapter struct {
	svc *CRMService
}

func NewHistoryProvider(svc *CRMService) *HistoryProviderAdapter {
	return &HistoryProviderAdapter{svc: svc}
}

func (a *HistoryProviderAdapter) HistoryForMPN(ctx context.Context, mpn string) ([]sourcing.SourceHit, error) {
	listings, err := a.svc.ListMaterialHistory(ctx, mpn)
	if err != nil {
		return nil, err
	}
	out := make([]sourcing.SourceHit, 0, len(listings))
	for _, l := range listings {
		out = append(out, sourcing.SourceHit{
			VendorName:   l.VendorName,
			MPN:          mpn,
			UnitPrice:    l.UnitPrice,
			QtyAvailable: l.QtyAvailable,
			SourceType:   l.SourceType,
			Condition:    l.Condition,
			DateCode:     l.DateCode,
		})
	}
	return out, nil
}
