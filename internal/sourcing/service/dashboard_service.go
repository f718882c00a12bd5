package service

import (
	"context"
	"sync"
	"time"

	"github.com/trioscs/avail/internal/shared/async"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// DashboardSnapshot is the performance overview payload.
type DashboardSnapshot struct {
	OpenRequisitions int64                `json:"open_requisitions"`
	PendingApprovals int64                `json:"pending_approvals"`
	ActivePlans      int64                `json:"active_plans"`
	RecentActivity   []entity.ActivityLog `json:"recent_activity"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

// DashboardService serves a cached snapshot refreshed through a
// last-fetch-wins loader, so overlapping refreshes never deliver stale data
// over fresh.
type DashboardService struct {
	repos  *repository.Repositories
	logger *zap.Logger

	loader *async.LatestLoader[*DashboardSnapshot]

	mu       sync.RWMutex
	snapshot *DashboardSnapshot
}

func NewDashboardService(repos *repository.Repositories, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		repos:  repos,
		logger: logger,
		loader: async.NewLatestLoader[*DashboardSnapshot](),
	}
}

// Refresh kicks off a snapshot rebuild. Only the newest refresh lands.
func (s *DashboardService) Refresh(ctx context.Context) {
	s.loader.Load(context.WithoutCancel(ctx), s.build, func(snap *DashboardSnapshot, err error) {
		if err != nil {
			s.logger.Warn("dashboard refresh failed", zap.Error(err))
			return
		}
		s.mu.Lock()
		s.snapshot = snap
		s.mu.Unlock()
	})
}

// Snapshot returns the cached snapshot, building one synchronously on first
// use.
func (s *DashboardService) Snapshot(ctx context.Context) (*DashboardSnapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	snap, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

func (s *DashboardService) build(ctx context.Context) (*DashboardSnapshot, error) {
	snap := &DashboardSnapshot{GeneratedAt: time.Now()}

	_, open, err := s.repos.Requisition.FindAll(ctx, 1, 1, map[string]string{"status": entity.ReqStatusActive})
	if err != nil {
		return nil, err
	}
	snap.OpenRequisitions = open

	_, pending, err := s.repos.BuyPlan.FindAll(ctx, 1, 1, map[string]string{"status": entity.PlanStatusPendingApproval})
	if err != nil {
		return nil, err
	}
	snap.PendingApprovals = pending

	_, entered, err := s.repos.BuyPlan.FindAll(ctx, 1, 1, map[string]string{"status": entity.PlanStatusPOEntered})
	if err != nil {
		return nil, err
	}
	_, approved, err := s.repos.BuyPlan.FindAll(ctx, 1, 1, map[string]string{"status": entity.PlanStatusApproved})
	if err != nil {
		return nil, err
	}
	snap.ActivePlans = entered + approved

	activity, err := s.repos.ActivityLog.FindRecent(ctx, 20)
	if err != nil {
		return nil, err
	}
	snap.RecentActivity = activity

	return snap, nil
}
