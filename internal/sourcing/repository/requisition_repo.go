package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type RequisitionRepository struct {
	db *gorm.DB
}

func NewRequisitionRepository(db *gorm.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// FindAll lists requisitions with status/search filters and sorting.
// Archived rows are excluded unless explicitly requested.
func (r *RequisitionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	var items []entity.Requisition
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Requisition{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", entity.ReqStatusArchived)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	switch filters["sort"] {
	case "deadline":
		order = "deadline ASC NULLS LAST"
	case "name":
		order = "name ASC"
	case "score":
		order = "sourcing_score DESC NULLS LAST"
	}

	offset := (page - 1) * pageSize
	err := query.
		Order(order).
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *RequisitionRepository) FindByID(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
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

// FindByIDWithRequirements preloads the part lines.
func (r *RequisitionRepository) FindByIDWithRequirements(ctx context.Context, id string) (*entity.Requisition, error) {
	var req entity.Requisition
	err := r.db.WithContext(ctx).
		Preload("Requirements").
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

func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequisitionRepository) Update(ctx context.Context, req *entity.Requisition) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// UpdateStatus flips only the status column (the badge-refresh path).
func (r *RequisitionRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Requisition{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateCounters refreshes the denormalized list counters.
func (r *RequisitionRepository) UpdateCounters(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&entity.Requisition{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *RequisitionRepository) CountRequirements(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Requirement{}).
		Where("requisition_id = ?", id).
		Count(&count).Error
	return count, err
}
