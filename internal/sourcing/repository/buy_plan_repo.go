package repository

import (
	"context"
	"errors"
	"time"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type BuyPlanRepository struct {
	db *gorm.DB
}

func NewBuyPlanRepository(db *gorm.DB) *BuyPlanRepository {
	return &BuyPlanRepository{db: db}
}

func (r *BuyPlanRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.BuyPlan, int64, error) {
	var items []entity.BuyPlan
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BuyPlan{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if reqID := filters["requisition_id"]; reqID != "" {
		query = query.Where("requisition_id = ?", reqID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("buy_plan_items.sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *BuyPlanRepository) FindByID(ctx context.Context, id string) (*entity.BuyPlan, error) {
	var plan entity.BuyPlan
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("buy_plan_items.sort_order ASC")
		}).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Create persists the plan together with its items.
func (r *BuyPlanRepository) Create(ctx context.Context, plan *entity.BuyPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *BuyPlanRepository) Update(ctx context.Context, plan *entity.BuyPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// SavePONumber writes one line's PO text and stamps the save time.
func (r *BuyPlanRepository) SavePONumber(ctx context.Context, itemID, poNumber string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.BuyPlanItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"po_number":   poNumber,
			"po_saved_at": &now,
			"po_verified": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPOVerified merges a verification flag for one line.
func (r *BuyPlanRepository) SetPOVerified(ctx context.Context, itemID string, verified bool) error {
	return r.db.WithContext(ctx).
		Model(&entity.BuyPlanItem{}).
		Where("id = ?", itemID).
		Update("po_verified", verified).Error
}
