package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// QuoteService builds customer quotes from offers and tracks their lifecycle.
type QuoteService struct {
	repos    *repository.Repositories
	activity *ActivityRecorder
	reqSvc   *RequisitionService
	logger   *zap.Logger
}

func NewQuoteService(repos *repository.Repositories, reqSvc *RequisitionService, activity *ActivityRecorder, logger *zap.Logger) *QuoteService {
	return &QuoteService{repos: repos, reqSvc: reqSvc, activity: activity, logger: logger}
}

func (s *QuoteService) List(ctx context.Context, requisitionID string) ([]entity.Quote, error) {
	return s.repos.Quote.FindByRequisition(ctx, requisitionID)
}

func (s *QuoteService) Get(ctx context.Context, id string) (*entity.Quote, error) {
	return s.repos.Quote.FindByID(ctx, id)
}

// CreateQuoteRequest builds a draft quote from selected offers.
type CreateQuoteRequest struct {
	RequisitionID string           `json:"requisition_id" binding:"required"`
	Lines         []QuoteLineInput `json:"lines" binding:"required"`
	Notes         string           `json:"notes"`
}

type QuoteLineInput struct {
	OfferID   string  `json:"offer_id" binding:"required"`
	Qty       int     `json:"qty"`
	SellPrice float64 `json:"sell_price"`
}

// CreateFromOffers snapshots offer cost data into quote lines. Margin is
// derived per line; later offer edits do not flow back into the quote.
func (s *QuoteService) CreateFromOffers(ctx context.Context, userID string, req *CreateQuoteRequest) (*entity.Quote, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("quote needs at least one line")
	}

	offerIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		offerIDs = append(offerIDs, line.OfferID)
	}
	offers, err := s.repos.Offer.FindByIDs(ctx, offerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Offer, len(offers))
	for i := range offers {
		byID[offers[i].ID] = &offers[i]
	}

	quote := &entity.Quote{
		ID:            uuid.New().String()[:32],
		RequisitionID: req.RequisitionID,
		Status:        entity.QuoteStatusDraft,
		Revision:      1,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}

	for i, line := range req.Lines {
		offer, ok := byID[line.OfferID]
		if !ok {
			return nil, fmt.Errorf("offer %s: %w", line.OfferID, repository.ErrNotFound)
		}
		qty := line.Qty
		if qty == 0 {
			qty = offer.QtyAvailable
		}
		offerID := offer.ID
		item := entity.QuoteItem{
			ID:            uuid.New().String()[:32],
			QuoteID:       quote.ID,
			RequirementID: offer.RequirementID,
			OfferID:       &offerID,
			MPN:           offer.MPN,
			VendorName:    offer.VendorName,
			Qty:           qty,
			CostPrice:     offer.UnitPrice,
			SellPrice:     line.SellPrice,
			SortOrder:     i + 1,
		}
		item.Recalc()
		quote.Items = append(quote.Items, item)
	}

	if err := s.repos.Quote.Create(ctx, quote); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, req.RequisitionID, "quote", quote.ID, "created",
		fmt.Sprintf("%d lines", len(quote.Items)), userID)
	s.reqSvc.RefreshStatus(ctx, req.RequisitionID)
	return quote, nil
}

// UpdateItemPricesRequest edits one line's prices; margin is recomputed.
type UpdateItemPricesRequest struct {
	CostPrice *float64 `json:"cost_price"`
	SellPrice *float64 `json:"sell_price"`
	Qty       *int     `json:"qty"`
}

func (s *QuoteService) UpdateItemPrices(ctx context.Context, itemID string, req *UpdateItemPricesRequest) (*entity.QuoteItem, error) {
	item, err := s.repos.Quote.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if req.CostPrice != nil {
		item.CostPrice = *req.CostPrice
	}
	if req.SellPrice != nil {
		item.SellPrice = *req.SellPrice
	}
	if req.Qty != nil {
		item.Qty = *req.Qty
	}
	item.Recalc()

	if err := s.repos.Quote.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Send marks a draft or revised quote sent to the customer.
func (s *QuoteService) Send(ctx context.Context, id, userID string) (*entity.Quote, error) {
	quote, err := s.repos.Quote.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != entity.QuoteStatusDraft && quote.Status != entity.QuoteStatusRevised {
		return nil, fmt.Errorf("quote in status %s cannot be sent", quote.Status)
	}

	now := time.Now()
	quote.Status = entity.QuoteStatusSent
	quote.SentAt = &now
	if err := s.repos.Quote.Update(ctx, quote); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, quote.RequisitionID, "quote", quote.ID, "sent", "", userID)
	s.reqSvc.RefreshStatus(ctx, quote.RequisitionID)
	return quote, nil
}

// Revise bumps the revision on a sent quote and reopens it for edits.
func (s *QuoteService) Revise(ctx context.Context, id, userID string) (*entity.Quote, error) {
	quote, err := s.repos.Quote.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != entity.QuoteStatusSent {
		return nil, fmt.Errorf("only sent quotes can be revised")
	}

	quote.Status = entity.QuoteStatusRevised
	quote.Revision++
	if err := s.repos.Quote.Update(ctx, quote); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, quote.RequisitionID, "quote", quote.ID, "revised",
		fmt.Sprintf("revision %d", quote.Revision), userID)
	return quote, nil
}

// MarkWon closes the quote as won; the buy plan is submitted separately.
func (s *QuoteService) MarkWon(ctx context.Context, id, userID string) (*entity.Quote, error) {
	return s.close(ctx, id, userID, entity.QuoteStatusWon)
}

func (s *QuoteService) MarkLost(ctx context.Context, id, userID string) (*entity.Quote, error) {
	return s.close(ctx, id, userID, entity.QuoteStatusLost)
}

func (s *QuoteService) close(ctx context.Context, id, userID, status string) (*entity.Quote, error) {
	quote, err := s.repos.Quote.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != entity.QuoteStatusSent && quote.Status != entity.QuoteStatusRevised {
		return nil, fmt.Errorf("quote in status %s cannot be closed", quote.Status)
	}

	quote.Status = status
	if err := s.repos.Quote.Update(ctx, quote); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, quote.RequisitionID, "quote", quote.ID, status, "", userID)
	s.reqSvc.RefreshStatus(ctx, quote.RequisitionID)
	return quote, nil
}

// ExportXLSX renders the quote's line items as a spreadsheet.
func (s *QuoteService) ExportXLSX(ctx context.Context, id string) (*bytes.Buffer, string, error) {
	quote, err := s.repos.Quote.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Quote"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"MPN", "Vendor", "Qty", "Cost Price", "Sell Price", "Margin %", "Line Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, item := range quote.Items {
		values := []interface{}{
			item.MPN,
			item.VendorName,
			item.Qty,
			item.CostPrice,
			item.SellPrice,
			item.MarginPct,
			float64(item.Qty) * item.SellPrice,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render xlsx: %w", err)
	}
	filename := fmt.Sprintf("quote-%s-r%d.xlsx", quote.ID[:8], quote.Revision)
	return buf, filename, nil
}
