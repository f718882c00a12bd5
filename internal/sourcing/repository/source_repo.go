package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
)

type SourceRepository struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func (r *SourceRepository) FindAll(ctx context.Context) ([]entity.Source, error) {
	var items []entity.Source
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *SourceRepository) FindEnabled(ctx context.Context) ([]entity.Source, error) {
	var items []entity.Source
	err := r.db.WithContext(ctx).
		Where("enabled = true").
		Order("weight DESC, name ASC").
		Find(&items).Error
	return items, err
}

func (r *SourceRepository) FindByID(ctx context.Context, id string) (*entity.Source, error) {
	var s entity.Source
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

func (r *SourceRepository) Create(ctx context.Context, source *entity.Source) error {
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *SourceRepository) Update(ctx context.Context, source *entity.Source) error {
	return r.db.WithContext(ctx).Save(source).Error
}

func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Source{}).Error
}

// GetWeights returns the singleton scoring-weights row, creating defaults on
// first read.
func (r *SourceRepository) GetWeights(ctx context.Context) (*entity.ScoringWeights, error) {
	var w entity.ScoringWeights
	err := r.db.WithContext(ctx).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = entity.ScoringWeights{
			ID:           "default",
			PriceWeight:  1,
			QtyWeight:    1,
			FreshWeight:  1,
			SpreadWeight: 1,
		}
		if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *SourceRepository) SaveWeights(ctx context.Context, w *entity.ScoringWeights) error {
	return r.db.WithContext(ctx).Save(w).Error
}
