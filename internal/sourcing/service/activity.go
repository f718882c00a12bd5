package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// ActivityRecorder writes audit-trail rows best-effort: a failed write is
// logged and discarded, never returned to the caller.
type ActivityRecorder struct {
	repo   *repository.ActivityLogRepository
	logger *zap.Logger
}

func NewActivityRecorder(repo *repository.ActivityLogRepository, logger *zap.Logger) *ActivityRecorder {
	return &ActivityRecorder{repo: repo, logger: logger}
}

// Record logs one action against an entity. requisitionID may be empty.
func (a *ActivityRecorder) Record(ctx context.Context, requisitionID, entityType, entityID, action, detail, userID string) {
	log := &entity.ActivityLog{
		ID:         uuid.New().String()[:32],
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
		UserID:     userID,
	}
	if requisitionID != "" {
		log.RequisitionID = &requisitionID
	}
	if err := a.repo.Create(ctx, log); err != nil {
		a.logger.Warn("activity log write failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}
