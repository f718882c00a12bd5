package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// ErrStorageNotConfigured is returned by attachment operations when no
// object store is wired.
var ErrStorageNotConfigured = errors.New("object storage not configured")

// OfferService logs buyer-confirmed vendor quotes against requirements.
type OfferService struct {
	repos    *repository.Repositories
	activity *ActivityRecorder
	logger   *zap.Logger

	minioClient *minio.Client
	bucketName  string
}

func NewOfferService(repos *repository.Repositories, activity *ActivityRecorder, logger *zap.Logger) *OfferService {
	return &OfferService{repos: repos, activity: activity, logger: logger}
}

// SetObjectStore wires the attachment bucket.
func (s *OfferService) SetObjectStore(client *minio.Client, bucket string) {
	s.minioClient = client
	s.bucketName = bucket
}

func (s *OfferService) ListByRequisition(ctx context.Context, requisitionID string) ([]entity.Offer, error) {
	return s.repos.Offer.FindByRequisition(ctx, requisitionID)
}

func (s *OfferService) Get(ctx context.Context, id string) (*entity.Offer, error) {
	return s.repos.Offer.FindByID(ctx, id)
}

// CreateOfferRequest logs one confirmed vendor offer. A sighting reference is
// optional: offers can come straight from an RFQ reply.
type CreateOfferRequest struct {
	RequirementID string  `json:"requirement_id" binding:"required"`
	SightingID    *string `json:"sighting_id"`
	VendorName    string  `json:"vendor_name" binding:"required"`
	MPN           string  `json:"mpn"`
	QtyAvailable  int     `json:"qty_available"`
	UnitPrice     float64 `json:"unit_price" binding:"required"`
	LeadTime      string  `json:"lead_time"`
	Condition     string  `json:"condition"`
	Notes         string  `json:"notes"`
}

func (s *OfferService) Create(ctx context.Context, userID string, req *CreateOfferRequest) (*entity.Offer, error) {
	line, err := s.repos.Requirement.FindByID(ctx, req.RequirementID)
	if err != nil {
		return nil, err
	}
	if !entity.ValidCondition(req.Condition) {
		return nil, ErrInvalidCondition
	}

	offer := &entity.Offer{
		ID:            uuid.New().String()[:32],
		RequirementID: req.RequirementID,
		SightingID:    req.SightingID,
		VendorName:    req.VendorName,
		Status:        entity.OfferStatusActive,
		MPN:           req.MPN,
		QtyAvailable:  req.QtyAvailable,
		UnitPrice:     req.UnitPrice,
		LeadTime:      req.LeadTime,
		Condition:     req.Condition,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	if offer.MPN == "" {
		offer.MPN = line.PrimaryMPN
	}

	if err := s.repos.Offer.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, line.RequisitionID, "offer", offer.ID, "created", offer.VendorName, userID)
	s.refreshReplyCount(ctx, line.RequisitionID)
	s.advanceToOffers(ctx, line.RequisitionID)
	return offer, nil
}

// advanceToOffers moves a searched requisition into the offers stage on its
// first logged reply, best-effort. Later stages are never rolled back.
func (s *OfferService) advanceToOffers(ctx context.Context, requisitionID string) {
	r, err := s.repos.Requisition.FindByID(ctx, requisitionID)
	if err == nil && (r.Status == entity.ReqStatusDraft || r.Status == entity.ReqStatusActive) {
		err = s.repos.Requisition.UpdateStatus(ctx, requisitionID, entity.ReqStatusOffers)
	}
	if err != nil {
		s.logger.Warn("offer stage advance failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}
}

// UpdateOfferRequest is a partial offer update.
type UpdateOfferRequest struct {
	Status       *string  `json:"status"`
	QtyAvailable *int     `json:"qty_available"`
	UnitPrice    *float64 `json:"unit_price"`
	LeadTime     *string  `json:"lead_time"`
	Condition    *string  `json:"condition"`
	Notes        *string  `json:"notes"`
}

func (s *OfferService) Update(ctx context.Context, id string, req *UpdateOfferRequest) (*entity.Offer, error) {
	offer, err := s.repos.Offer.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		offer.Status = *req.Status
	}
	if req.QtyAvailable != nil {
		offer.QtyAvailable = *req.QtyAvailable
	}
	if req.UnitPrice != nil {
		offer.UnitPrice = *req.UnitPrice
	}
	if req.LeadTime != nil {
		offer.LeadTime = *req.LeadTime
	}
	if req.Condition != nil {
		if !entity.ValidCondition(*req.Condition) {
			return nil, ErrInvalidCondition
		}
		offer.Condition = *req.Condition
	}
	if req.Notes != nil {
		offer.Notes = *req.Notes
	}

	if err := s.repos.Offer.Update(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// OfferAttachment is one stored file reference in the offer's jsonb list.
type OfferAttachment struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	UploadedBy  string `json:"uploaded_by"`
	UploadedAt  string `json:"uploaded_at"`
}

// UploadAttachment stores a vendor quote document against the offer and
// appends its reference to the attachment list.
func (s *OfferService) UploadAttachment(ctx context.Context, id, userID string, reader io.Reader, fileName string, fileSize int64, contentType string) (*entity.Offer, error) {
	if s.minioClient == nil {
		return nil, ErrStorageNotConfigured
	}

	offer, err := s.repos.Offer.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("offers/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(fileName))
	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	att := map[string]interface{}{
		"name":         fileName,
		"path":         objectName,
		"size":         fileSize,
		"content_type": contentType,
		"uploaded_by":  userID,
		"uploaded_at":  time.Now().Format(time.RFC3339),
	}
	if offer.Attachments == nil {
		offer.Attachments = &entity.JSONBArray{}
	}
	*offer.Attachments = append(*offer.Attachments, att)

	if err := s.repos.Offer.Update(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// DownloadAttachment streams the n-th attachment of the offer.
func (s *OfferService) DownloadAttachment(ctx context.Context, id string, index int) (io.ReadCloser, *OfferAttachment, error) {
	offer, err := s.repos.Offer.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if offer.Attachments == nil || index < 0 || index >= len(*offer.Attachments) {
		return nil, nil, repository.ErrNotFound
	}
	raw, ok := (*offer.Attachments)[index].(map[string]interface{})
	if !ok {
		return nil, nil, repository.ErrNotFound
	}

	att := &OfferAttachment{}
	if v, ok := raw["name"].(string); ok {
		att.Name = v
	}
	if v, ok := raw["path"].(string); ok {
		att.Path = v
	}
	if v, ok := raw["size"].(float64); ok {
		att.Size = int64(v)
	}
	if v, ok := raw["content_type"].(string); ok {
		att.ContentType = v
	}

	if s.minioClient == nil {
		return nil, att, ErrStorageNotConfigured
	}
	object, err := s.minioClient.GetObject(ctx, s.bucketName, att.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get attachment: %w", err)
	}
	return object, att, nil
}

// refreshReplyCount re-derives the requisition reply counter, best-effort.
func (s *OfferService) refreshReplyCount(ctx context.Context, requisitionID string) {
	count, err := s.repos.Offer.CountByRequisition(ctx, requisitionID)
	if err == nil {
		err = s.repos.Requisition.UpdateCounters(ctx, requisitionID, map[string]interface{}{
			"reply_count": count,
		})
	}
	if err != nil {
		s.logger.Warn("reply count refresh failed",
			zap.String("requisition_id", requisitionID), zap.Error(err))
	}
}
