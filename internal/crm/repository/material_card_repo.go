package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/crm/entity"
	"gorm.io/gorm"
)

type MaterialCardRepository struct {
	db *gorm.DB
}

func NewMaterialCardRepository(db *gorm.DB) *MaterialCardRepository {
	return &MaterialCardRepository{db: db}
}

func (r *MaterialCardRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.MaterialCard, int64, error) {
	var items []entity.MaterialCard
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MaterialCard{})
	if search != "" {
		query = query.Where("mpn ILIKE ? OR manufacturer ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("mpn ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *MaterialCardRepository) FindByID(ctx context.Context, id string) (*entity.MaterialCard, error) {
	var card entity.MaterialCard
	err := r.db.WithContext(ctx).
		Preload("Listings", func(db *gorm.DB) *gorm.DB {
			return db.Order("material_listings.seen_at DESC")
		}).
		Where("id = ?", id).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *MaterialCardRepository) FindByMPN(ctx context.Context, mpn string) (*entity.MaterialCard, error) {
	var card entity.MaterialCard
	err := r.db.WithContext(ctx).
		Where("mpn = ?", mpn).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *MaterialCardRepository) Create(ctx context.Context, card *entity.MaterialCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *MaterialCardRepository) Update(ctx context.Context, card *entity.MaterialCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// FindListings returns the historical listings for one MPN, newest first.
func (r *MaterialCardRepository) FindListings(ctx context.Context, mpn string) ([]entity.MaterialListing, error) {
	var items []entity.MaterialListing
	err := r.db.WithContext(ctx).
		Joins("JOIN material_cards ON material_cards.id = material_listings.material_card_id").
		Where("material_cards.mpn = ?", mpn).
		Order("material_listings.seen_at DESC").
		Find(&items).Error
	return items, err
}

func (r *MaterialCardRepository) CreateListing(ctx context.Context, listing *entity.MaterialListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}
