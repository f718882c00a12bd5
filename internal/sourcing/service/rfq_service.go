package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"go.uber.org/zap"
)

// ContactResolver maps a normalized vendor key to an RFQ contact email.
// Backed by the CRM vendor cards in production; faked in tests.
type ContactResolver interface {
	EmailForVendor(ctx context.Context, vendorKey string) (string, error)
}

// RFQCountBumper counts a dispatched RFQ against a vendor card, best-effort.
type RFQCountBumper interface {
	BumpRFQCount(ctx context.Context, vendorKey string) error
}

// MailSender is the outbound port used for RFQ emails.
type MailSender interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// AskedLedger is the "already asked" (vendor, mpn) ledger.
type AskedLedger interface {
	AskedMPNs(ctx context.Context, vendorKey string, mpns []string) (map[string]bool, error)
	RecordAsks(ctx context.Context, vendorKey string, mpns []string) error
}

const contactCacheTTL = 30 * time.Minute

// RFQService composes and dispatches RFQ batches.
type RFQService struct {
	repos    *repository.Repositories
	contacts ContactResolver
	ledger   AskedLedger
	bumper   RFQCountBumper
	mail     MailSender
	rdb      *redis.Client
	activity *ActivityRecorder
	logger   *zap.Logger
}

func NewRFQService(repos *repository.Repositories, contacts ContactResolver, activity *ActivityRecorder, logger *zap.Logger) *RFQService {
	s := &RFQService{
		repos:    repos,
		contacts: contacts,
		activity: activity,
		logger:   logger,
	}
	if repos != nil {
		s.ledger = repos.RFQ
	}
	return s
}

// SetAskedLedger overrides the ledger backend.
func (s *RFQService) SetAskedLedger(l AskedLedger) {
	s.ledger = l
}

// SetMailSender injects the mail gateway.
func (s *RFQService) SetMailSender(m MailSender) {
	s.mail = m
}

// SetRedis enables the contact-email lookup cache.
func (s *RFQService) SetRedis(rdb *redis.Client) {
	s.rdb = rdb
}

// SetRFQCountBumper injects the vendor-card counter.
func (s *RFQService) SetRFQCountBumper(b RFQCountBumper) {
	s.bumper = b
}

// VendorPlan is the composed per-vendor RFQ before dispatch.
type VendorPlan struct {
	VendorKey    string   `json:"vendor_key"`
	VendorName   string   `json:"vendor_name"`
	ContactEmail string   `json:"contact_email"`
	Status       string   `json:"status"`
	NewParts     []string `json:"new_parts"`
	RepeatParts  []string `json:"repeat_parts"`
	ListingParts []string `json:"listing_parts"`
	OtherParts   []string `json:"other_parts"`
}

// ComposeProgress reports contact-resolution progress while composing.
type ComposeProgress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ComposeResult is the full composed batch.
type ComposeResult struct {
	Vendors  []VendorPlan    `json:"vendors"`
	Progress ComposeProgress `json:"progress"`
}

// Compose resolves contacts and partitions parts for each vendor group.
// Contact lookups run in parallel, one goroutine per vendor; a failed lookup
// marks that vendor "no email found" and never aborts the batch. Composing is
// stateless: calling it again redoes lookup and partition from scratch.
func (s *RFQService) Compose(ctx context.Context, groups []VendorGroup, listingMPNs map[string]map[string]bool) (*ComposeResult, error) {
	plans := make([]VendorPlan, len(groups))
	var progress ComposeProgress
	progress.Total = len(groups)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, g := range groups {
		wg.Add(1)
		go func(i int, g VendorGroup) {
			defer wg.Done()

			plan := VendorPlan{
				VendorKey:  g.VendorKey,
				VendorName: g.VendorName,
			}

			email, err := s.resolveEmail(ctx, g.VendorKey)
			if err != nil || email == "" {
				if err != nil {
					s.logger.Warn("contact lookup failed",
						zap.String("vendor_key", g.VendorKey), zap.Error(err))
				}
				plan.Status = entity.RFQSendStatusNoEmail
			} else {
				plan.ContactEmail = email
			}

			asked, err := s.ledger.AskedMPNs(ctx, g.VendorKey, g.MPNs)
			if err != nil {
				s.logger.Warn("ask ledger lookup failed",
					zap.String("vendor_key", g.VendorKey), zap.Error(err))
				asked = map[string]bool{}
			}

			vendorListings := listingMPNs[g.VendorKey]
			for _, mpn := range g.MPNs {
				if asked[mpn] {
					plan.RepeatParts = append(plan.RepeatParts, mpn)
				} else {
					plan.NewParts = append(plan.NewParts, mpn)
				}
				if vendorListings[mpn] {
					plan.ListingParts = append(plan.ListingParts, mpn)
				} else {
					plan.OtherParts = append(plan.OtherParts, mpn)
				}
			}

			if plan.Status == "" && len(plan.NewParts) == 0 {
				plan.Status = entity.RFQSendStatusExhausted
			}

			mu.Lock()
			plans[i] = plan
			progress.Done++
			mu.Unlock()
		}(i, g)
	}
	wg.Wait()

	return &ComposeResult{Vendors: plans, Progress: progress}, nil
}

// resolveEmail checks the redis cache before hitting the resolver.
func (s *RFQService) resolveEmail(ctx context.Context, vendorKey string) (string, error) {
	cacheKey := "rfq:contact:" + vendorKey
	if s.rdb != nil {
		if email, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			return email, nil
		}
	}

	email, err := s.contacts.EmailForVendor(ctx, vendorKey)
	if err != nil {
		return "", err
	}

	if s.rdb != nil && email != "" {
		if err := s.rdb.Set(ctx, cacheKey, email, contactCacheTTL).Err(); err != nil {
			s.logger.Debug("contact cache write failed",
				zap.String("vendor_key", vendorKey), zap.Error(err))
		}
	}
	return email, nil
}

// DispatchRequest selects which composed vendors actually go out.
type DispatchRequest struct {
	RequisitionID string       `json:"requisition_id" binding:"required"`
	Vendors       []VendorPlan `json:"vendors" binding:"required"`
	SendAnyway    []string     `json:"send_anyway"` // vendor keys overriding exhaustion
	Subject       string       `json:"subject"`
	Body          string       `json:"body"`
}

// Dispatch sends the batch: persists the batch with per-vendor rows, records
// ledger asks, bumps vendor RFQ counters and emails each vendor best-effort.
// Exhausted vendors are skipped unless listed in SendAnyway.
func (s *RFQService) Dispatch(ctx context.Context, userID string, req *DispatchRequest) (*entity.RFQBatch, error) {
	override := make(map[string]bool, len(req.SendAnyway))
	for _, key := range req.SendAnyway {
		override[key] = true
	}

	batch := &entity.RFQBatch{
		ID:            uuid.New().String()[:32],
		RequisitionID: req.RequisitionID,
		CreatedBy:     userID,
	}

	now := time.Now()
	for _, plan := range req.Vendors {
		send := entity.RFQVendorSend{
			ID:           uuid.New().String()[:32],
			BatchID:      batch.ID,
			VendorName:   plan.VendorName,
			VendorKey:    plan.VendorKey,
			ContactEmail: plan.ContactEmail,
			Parts:        plan.NewParts,
			RepeatParts:  plan.RepeatParts,
		}

		switch {
		case plan.Status == entity.RFQSendStatusNoEmail:
			send.Status = entity.RFQSendStatusNoEmail
		case plan.Status == entity.RFQSendStatusExhausted && !override[plan.VendorKey]:
			send.Status = entity.RFQSendStatusExhausted
		default:
			send.Status = entity.RFQSendStatusSent
			send.SentAt = &now
			if override[plan.VendorKey] && len(send.Parts) == 0 {
				send.Parts = plan.RepeatParts
			}
		}

		batch.Vendors = append(batch.Vendors, send)
	}

	sentCount := 0
	for _, v := range batch.Vendors {
		if v.Status == entity.RFQSendStatusSent {
			sentCount++
		}
	}
	batch.VendorCount = sentCount

	if err := s.repos.RFQ.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist rfq batch: %w", err)
	}

	for i := range batch.Vendors {
		v := &batch.Vendors[i]
		if v.Status != entity.RFQSendStatusSent {
			continue
		}

		if err := s.ledger.RecordAsks(ctx, v.VendorKey, v.Parts); err != nil {
			s.logger.Warn("ask ledger write failed",
				zap.String("vendor_key", v.VendorKey), zap.Error(err))
		}
		if s.bumper != nil {
			if err := s.bumper.BumpRFQCount(ctx, v.VendorKey); err != nil {
				s.logger.Debug("vendor rfq count bump failed",
					zap.String("vendor_key", v.VendorKey), zap.Error(err))
			}
		}
		if s.mail != nil && v.ContactEmail != "" {
			if err := s.mail.SendMail(ctx, v.ContactEmail, req.Subject, req.Body); err != nil {
				s.logger.Warn("rfq mail send failed",
					zap.String("vendor_key", v.VendorKey), zap.Error(err))
				v.Status = entity.RFQSendStatusFailed
			}
		}
	}

	s.activity.Record(ctx, req.RequisitionID, "rfq_batch", batch.ID, "dispatched",
		fmt.Sprintf("%d vendors", sentCount), userID)

	return batch, nil
}

func (s *RFQService) ListBatches(ctx context.Context, requisitionID string) ([]entity.RFQBatch, error) {
	return s.repos.RFQ.FindBatchesByRequisition(ctx, requisitionID)
}
