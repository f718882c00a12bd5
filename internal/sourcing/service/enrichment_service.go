package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trioscs/avail/internal/shared/async"
	"go.uber.org/zap"
)

// EnrichmentCandidate is one record still missing enrichment metadata.
type EnrichmentCandidate struct {
	ID   string
	Name string
}

// EnrichmentFields is the deterministic fill applied to a candidate.
type EnrichmentFields struct {
	Industry        string
	EmployeeSize    string
	EngagementScore float64
	Tier            string
}

// EnrichmentStore abstracts the CRM backing tables so this service doesn't
// depend on the crm packages directly.
type EnrichmentStore interface {
	NextCandidates(ctx context.Context, limit int) ([]EnrichmentCandidate, error)
	CountRemaining(ctx context.Context) (int64, error)
	Apply(ctx context.Context, id string, fields EnrichmentFields) error
}

// Enricher computes the fill for one candidate.
type Enricher interface {
	Enrich(ctx context.Context, candidate EnrichmentCandidate) (EnrichmentFields, error)
}

// EnrichmentProgress is the poll-able job state.
type EnrichmentProgress struct {
	Running   bool  `json:"running"`
	Processed int   `json:"processed"`
	Failed    int   `json:"failed"`
	Remaining int64 `json:"remaining"`
}

var ErrEnrichmentRunning = errors.New("enrichment job is already running")

const enrichmentBatchSize = 20

// EnrichmentService runs the background company-fill job. One job at a time;
// progress is mutex-guarded and polled over REST. Progress changes are
// broadcast through a debouncer so a burst of per-row updates collapses into
// one log line.
type EnrichmentService struct {
	store    EnrichmentStore
	enricher Enricher
	logger   *zap.Logger

	mu       sync.Mutex
	progress EnrichmentProgress
	cancel   context.CancelFunc

	broadcast *async.Debouncer[EnrichmentProgress]
}

func NewEnrichmentService(store EnrichmentStore, enricher Enricher, logger *zap.Logger) *EnrichmentService {
	s := &EnrichmentService{
		store:    store,
		enricher: enricher,
		logger:   logger,
	}
	s.broadcast = async.NewDebouncer(500*time.Millisecond, func(p EnrichmentProgress) {
		logger.Info("enrichment progress",
			zap.Int("processed", p.Processed),
			zap.Int("failed", p.Failed),
			zap.Int64("remaining", p.Remaining))
	})
	return s
}

// Start launches the fill job. Returns ErrEnrichmentRunning if one is active.
func (s *EnrichmentService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.progress.Running {
		s.mu.Unlock()
		return ErrEnrichmentRunning
	}

	remaining, err := s.store.CountRemaining(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.progress = EnrichmentProgress{Running: true, Remaining: remaining}
	s.mu.Unlock()

	go s.run(jobCtx)
	return nil
}

// Stop cancels the running job, if any.
func (s *EnrichmentService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *EnrichmentService) Progress() EnrichmentProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *EnrichmentService) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.progress.Running = false
		s.mu.Unlock()
		s.broadcast.Flush()
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		candidates, err := s.store.NextCandidates(ctx, enrichmentBatchSize)
		if err != nil {
			s.logger.Warn("enrichment candidate query failed", zap.Error(err))
			return
		}
		if len(candidates) == 0 {
			return
		}

		for _, c := range candidates {
			if ctx.Err() != nil {
				return
			}

			fields, err := s.enricher.Enrich(ctx, c)
			if err == nil {
				err = s.store.Apply(ctx, c.ID, fields)
			}

			s.mu.Lock()
			if err != nil {
				s.progress.Failed++
				s.logger.Warn("enrichment failed",
					zap.String("id", c.ID), zap.Error(err))
			} else {
				s.progress.Processed++
			}
			if s.progress.Remaining > 0 {
				s.progress.Remaining--
			}
			snapshot := s.progress
			s.mu.Unlock()

			s.broadcast.Call(snapshot)
		}
	}
}
