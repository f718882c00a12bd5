package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RFQRepository struct {
	db *gorm.DB
}

func NewRFQRepository(db *gorm.DB) *RFQRepository {
	return &RFQRepository{db: db}
}

// CreateBatch persists a dispatched batch with its per-vendor rows.
func (r *RFQRepository) CreateBatch(ctx context.Context, batch *entity.RFQBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *RFQRepository) FindBatchesByRequisition(ctx context.Context, requisitionID string) ([]entity.RFQBatch, error) {
	var items []entity.RFQBatch
	err := r.db.WithContext(ctx).
		Preload("Vendors").
		Where("requisition_id = ?", requisitionID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// AskedMPNs returns the subset of mpns already asked of a vendor.
func (r *RFQRepository) AskedMPNs(ctx context.Context, vendorKey string, mpns []string) (map[string]bool, error) {
	if len(mpns) == 0 {
		return map[string]bool{}, nil
	}
	var rows []entity.RFQAsk
	err := r.db.WithContext(ctx).
		Where("vendor_key = ? AND mpn IN ?", vendorKey, mpns).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	asked := make(map[string]bool, len(rows))
	for _, row := range rows {
		asked[row.MPN] = true
	}
	return asked, nil
}

// RecordAsks upserts ledger rows for the dispatched parts.
func (r *RFQRepository) RecordAsks(ctx context.Context, vendorKey string, mpns []string) error {
	if len(mpns) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]entity.RFQAsk, 0, len(mpns))
	for _, mpn := range mpns {
		rows = append(rows, entity.RFQAsk{
			ID:        uuid.New().String()[:32],
			VendorKey: vendorKey,
			MPN:       mpn,
			AskedAt:   now,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_key"}, {Name: "mpn"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}
