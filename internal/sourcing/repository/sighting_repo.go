package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type SightingRepository struct {
	db *gorm.DB
}

func NewSightingRepository(db *gorm.DB) *SightingRepository {
	return &SightingRepository{db: db}
}

func (r *SightingRepository) FindByRequirement(ctx context.Context, requirementID string) ([]entity.Sighting, error) {
	var items []entity.Sighting
	err := r.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByRequisition loads all sightings of a requisition's requirements.
func (r *SightingRepository) FindByRequisition(ctx context.Context, requisitionID string) ([]entity.Sighting, error) {
	var items []entity.Sighting
	err := r.db.WithContext(ctx).
		Joins("JOIN requirements ON requirements.id = sightings.requirement_id").
		Where("requirements.requisition_id = ?", requisitionID).
		Order("sightings.created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *SightingRepository) FindByID(ctx context.Context, id string) (*entity.Sighting, error) {
	var s entity.Sighting
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SightingRepository) CreateBatch(ctx context.Context, sightings []entity.Sighting) error {
	if len(sightings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sightings).Error
}

// MarkUnavailable flips the soft flag. Sightings are never deleted.
func (r *SightingRepository) MarkUnavailable(ctx context.Context, id string, unavailable bool) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Sighting{}).
		Where("id = ?", id).
		Update("is_unavailable", unavailable)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SightingRepository) CountDistinctSourcedRequirements(ctx context.Context, requisitionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Sighting{}).
		Joins("JOIN requirements ON requirements.id = sightings.requirement_id").
		Where("requirements.requisition_id = ? AND sightings.is_unavailable = false", requisitionID).
		Distinct("sightings.requirement_id").
		Count(&count).Error
	return count, err
}
