package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/crm/entity"
	"gorm.io/gorm"
)

type VendorCardRepository struct {
	db *gorm.DB
}

func NewVendorCardRepository(db *gorm.DB) *VendorCardRepository {
	return &VendorCardRepository{db: db}
}

func (r *VendorCardRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.VendorCard, int64, error) {
	var items []entity.VendorCard
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.VendorCard{})
	if search != "" {
		query = query.Where("name ILIKE ? OR vendor_key ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("name ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByKey looks up a card by normalized vendor name.
func (r *VendorCardRepository) FindByKey(ctx context.Context, vendorKey string) (*entity.VendorCard, error) {
	var card entity.VendorCard
	err := r.db.WithContext(ctx).
		Where("vendor_key = ?", vendorKey).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *VendorCardRepository) FindByID(ctx context.Context, id string) (*entity.VendorCard, error) {
	var card entity.VendorCard
	err := r.db.WithContext(ctx).
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

func (r *VendorCardRepository) Create(ctx context.Context, card *entity.VendorCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *VendorCardRepository) Update(ctx context.Context, card *entity.VendorCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

// BumpRFQCount counts a dispatched RFQ against the vendor.
func (r *VendorCardRepository) BumpRFQCount(ctx context.Context, vendorKey string) error {
	return r.db.WithContext(ctx).
		Model(&entity.VendorCard{}).
		Where("vendor_key = ?", vendorKey).
		Update("rfq_count", gorm.Expr("rfq_count + 1")).Error
}
