package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) FindByRequisition(ctx context.Context, requisitionID string) ([]entity.Offer, error) {
	var items []entity.Offer
	err := r.db.WithContext(ctx).
		Joins("JOIN requirements ON requirements.id = offers.requirement_id").
		Where("requirements.requisition_id = ?", requisitionID).
		Order("offers.created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *OfferRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Offer, error) {
	var items []entity.Offer
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

func (r *OfferRepository) FindByID(ctx context.Context, id string) (*entity.Offer, error) {
	var o entity.Offer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepository) Create(ctx context.Context, offer *entity.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *OfferRepository) Update(ctx context.Context, offer *entity.Offer) error {
	return r.db.WithContext(ctx).Save(offer).Error
}

func (r *OfferRepository) CountByRequisition(ctx context.Context, requisitionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Offer{}).
		Joins("JOIN requirements ON requirements.id = offers.requirement_id").
		Where("requirements.requisition_id = ?", requisitionID).
		Count(&count).Error
	return count, err
}
