package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type ErrorReportRepository struct {
	db *gorm.DB
}

func NewErrorReportRepository(db *gorm.DB) *ErrorReportRepository {
	return &ErrorReportRepository{db: db}
}

func (r *ErrorReportRepository) FindAll(ctx context.Context, page, pageSize int, status string) ([]entity.ErrorReport, int64, error) {
	var items []entity.ErrorReport
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ErrorReport{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

func (r *ErrorReportRepository) FindByID(ctx context.Context, id string) (*entity.ErrorReport, error) {
	var report entity.ErrorReport
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (r *ErrorReportRepository) Create(ctx context.Context, report *entity.ErrorReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ErrorReportRepository) Update(ctx context.Context, report *entity.ErrorReport) error {
	return r.db.WithContext(ctx).Save(report).Error
}
