package repository

import (
	"context"
	"errors"

	"github.com/trioscs/avail/internal/crm/entity"
	"gorm.io/gorm"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.Company, int64, error) {
	var items []entity.Company
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Company{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
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

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*entity.Company, error) {
	var company entity.Company
	err := r.db.WithContext(ctx).
		Preload("Sites.Contacts").
		Where("id = ?", id).
		First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *CompanyRepository) Update(ctx context.Context, company *entity.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// FindUnenriched returns companies still missing enrichment metadata.
func (r *CompanyRepository) FindUnenriched(ctx context.Context, limit int) ([]entity.Company, error) {
	var items []entity.Company
	err := r.db.WithContext(ctx).
		Where("enriched_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *CompanyRepository) CountUnenriched(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Company{}).
		Where("enriched_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *CompanyRepository) CreateSite(ctx context.Context, site *entity.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

func (r *CompanyRepository) FindSite(ctx context.Context, id string) (*entity.Site, error) {
	var site entity.Site
	err := r.db.WithContext(ctx).
		Preload("Contacts").
		Where("id = ?", id).
		First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &site, nil
}

func (r *CompanyRepository) CreateContact(ctx context.Context, contact *entity.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *CompanyRepository) DeleteContact(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Contact{}).Error
}
