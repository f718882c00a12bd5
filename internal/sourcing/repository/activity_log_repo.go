package repository

import (
	"context"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, log *entity.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *ActivityLogRepository) FindByRequisition(ctx context.Context, requisitionID string, limit int) ([]entity.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []entity.ActivityLog
	err := r.db.WithContext(ctx).
		Where("requisition_id = ?", requisitionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *ActivityLogRepository) FindRecent(ctx context.Context, limit int) ([]entity.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []entity.ActivityLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
