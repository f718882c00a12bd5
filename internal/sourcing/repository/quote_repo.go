package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) FindByRequisition(ctx context.Context, requisitionID string) ([]entity.Quote, error) {
	var items []entity.Quote
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("quote_items.sort_order ASC")
		}).
		Where("requisition_id = ?", requisitionID).
		Order("revision DESC").
		Find(&items).Error
	return items, err
}

func (r *QuoteRepository) FindByID(ctx context.Context, id string) (*entity.Quote, error) {
	var q entity.Quote
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("quote_items.sort_order ASC")
		}).
		Where("id = ?", id).
		First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// Create persists the quote together with its items.
func (r *QuoteRepository) Create(ctx context.Context, quote *entity.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) Update(ctx context.Context, quote *entity.Quote) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

func (r *QuoteRepository) FindItem(ctx context.Context, itemID string) (*entity.QuoteItem, error) {
	var item entity.QuoteItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *QuoteRepository) UpdateItem(ctx context.Context, item *entity.QuoteItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}
