package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type RequirementRepository struct {
	db *gorm.DB
}

func NewRequirementRepository(db *gorm.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

func (r *RequirementRepository) FindByRequisition(ctx context.Context, requisitionID string) ([]entity.Requirement, error) {
	var items []entity.Requirement
	err := r.db.WithContext(ctx).
		Where("requisition_id = ?", requisitionID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *RequirementRepository) FindByID(ctx context.Context, id string) (*entity.Requirement, error) {
	var req entity.Requirement
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequirementRepository) Create(ctx context.Context, req *entity.Requirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequirementRepository) Update(ctx context.Context, req *entity.Requirement) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequirementRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Requirement{}).Error
}

// UpdateSightingCount refreshes the denormalized sighting counter.
func (r *RequirementRepository) UpdateSightingCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Exec(
		"UPDATE requirements SET sighting_count = (SELECT COUNT(*) FROM sightings WHERE requirement_id = ?) WHERE id = ?",
		id, id).Error
}
