package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/trioscs/avail/internal/crm/entity"
	"github.com/trioscs/avail/internal/crm/repository"
	"go.uber.org/zap"
)

var ErrInvalidEmail = errors.New("invalid email address")

// CRMService owns companies, sites, contacts, vendor cards and material
// cards.
type CRMService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewCRMService(repos *repository.Repositories, logger *zap.Logger) *CRMService {
	return &CRMService{repos: repos, logger: logger}
}

// === Companies ===

func (s *CRMService) ListCompanies(ctx context.Context, page, pageSize int, search string) ([]entity.Company, int64, error) {
	return s.repos.Company.FindAll(ctx, page, pageSize, search)
}

func (s *CRMService) GetCompany(ctx context.Context, id string) (*entity.Company, error) {
	return s.repos.Company.FindByID(ctx, id)
}

type CreateCompanyRequest struct {
	Name    string `json:"name" binding:"required"`
	Website string `json:"website"`
	Notes   string `json:"notes"`
}

func (s *CRMService) CreateCompany(ctx context.Context, req *CreateCompanyRequest) (*entity.Company, error) {
	company := &entity.Company{
		ID:      uuid.New().String()[:32],
		Name:    req.Name,
		Website: req.Website,
		Notes:   req.Notes,
	}
	if err := s.repos.Company.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

type UpdateCompanyRequest struct {
	Name         *string `json:"name"`
	Industry     *string `json:"industry"`
	EmployeeSize *string `json:"employee_size"`
	Tier         *string `json:"tier"`
	Website      *string `json:"website"`
	Notes        *string `json:"notes"`
}

func (s *CRMService) UpdateCompany(ctx context.Context, id string, req *UpdateCompanyRequest) (*entity.Company, error) {
	company, err := s.repos.Company.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.Industry != nil {
		company.Industry = *req.Industry
	}
	if req.EmployeeSize != nil {
		company.EmployeeSize = *req.EmployeeSize
	}
	if req.Tier != nil {
		company.Tier = *req.Tier
	}
	if req.Website != nil {
		company.Website = *req.Website
	}
	if req.Notes != nil {
		company.Notes = *req.Notes
	}

	if err := s.repos.Company.Update(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// === Sites & contacts ===

type CreateSiteRequest struct {
	Name    string `json:"name" binding:"required"`
	Country string `json:"country"`
	City    string `json:"city"`
	Address string `json:"address"`
}

func (s *CRMService) CreateSite(ctx context.Context, companyID string, req *CreateSiteRequest) (*entity.Site, error) {
	if _, err := s.repos.Company.FindByID(ctx, companyID); err != nil {
		return nil, err
	}
	site := &entity.Site{
		ID:        uuid.New().String()[:32],
		CompanyID: companyID,
		Name:      req.Name,
		Country:   req.Country,
		City:      req.City,
		Address:   req.Address,
	}
	if err := s.repos.Company.CreateSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

type CreateContactRequest struct {
	Name      string `json:"name" binding:"required"`
	Title     string `json:"title"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsPrimary bool   `json:"is_primary"`
}

func (s *CRMService) CreateContact(ctx context.Context, siteID string, req *CreateContactRequest) (*entity.Contact, error) {
	if _, err := s.repos.Company.FindSite(ctx, siteID); err != nil {
		return nil, err
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	contact := &entity.Contact{
		ID:        uuid.New().String()[:32],
		SiteID:    siteID,
		Name:      req.Name,
		Title:     req.Title,
		Email:     req.Email,
		Phone:     req.Phone,
		IsPrimary: req.IsPrimary,
	}
	if err := s.repos.Company.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *CRMService) DeleteContact(ctx context.Context, id string) error {
	return s.repos.Company.DeleteContact(ctx, id)
}

// === Vendor cards ===

func (s *CRMService) ListVendorCards(ctx context.Context, page, pageSize int, search string) ([]entity.VendorCard, int64, error) {
	return s.repos.Vendor.FindAll(ctx, page, pageSize, search)
}

func (s *CRMService) GetVendorCard(ctx context.Context, id string) (*entity.VendorCard, error) {
	return s.repos.Vendor.FindByID(ctx, id)
}

type UpsertVendorCardRequest struct {
	Name    string   `json:"name" binding:"required"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Website string   `json:"website"`
	Country string   `json:"country"`
	Rating  *float64 `json:"rating"`
	Notes   string   `json:"notes"`
}

// UpsertVendorCard creates or updates the card for a vendor name. The key is
// the trimmed, lower-cased name, matching the grouping normalization.
func (s *CRMService) UpsertVendorCard(ctx context.Context, req *UpsertVendorCardRequest) (*entity.VendorCard, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	key := strings.ToLower(strings.TrimSpace(req.Name))
	if key == "" {
		return nil, fmt.Errorf("vendor name must not be blank")
	}

	card, err := s.repos.Vendor.FindByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		card = &entity.VendorCard{
			ID:        uuid.New().String()[:32],
			VendorKey: key,
			Name:      strings.TrimSpace(req.Name),
			Email:     req.Email,
			Phone:     req.Phone,
			Website:   req.Website,
			Country:   req.Country,
			Rating:    req.Rating,
			Notes:     req.Notes,
		}
		if err := s.repos.Vendor.Create(ctx, card); err != nil {
			return nil, err
		}
		return card, nil
	}
	if err != nil {
		return nil, err
	}

	card.Name = strings.TrimSpace(req.Name)
	if req.Email != "" {
		card.Email = req.Email
	}
	if req.Phone != "" {
		card.Phone = req.Phone
	}
	if req.Website != "" {
		card.Website = req.Website
	}
	if req.Country != "" {
		card.Country = req.Country
	}
	if req.Rating != nil {
		card.Rating = req.Rating
	}
	if req.Notes != "" {
		card.Notes = req.Notes
	}
	if err := s.repos.Vendor.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// EmailForVendor resolves the RFQ contact email for a normalized vendor key.
// Satisfies the composer's contact resolver port.
func (s *CRMService) EmailForVendor(ctx context.Context, vendorKey string) (string, error) {
	card, err := s.repos.Vendor.FindByKey(ctx, vendorKey)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return card.Email, nil
}

// BumpRFQCount counts a dispatched RFQ against the vendor card.
func (s *CRMService) BumpRFQCount(ctx context.Context, vendorKey string) error {
	return s.repos.Vendor.BumpRFQCount(ctx, vendorKey)
}

// === Material cards ===

func (s *CRMService) ListMaterialCards(ctx context.Context, page, pageSize int, search string) ([]entity.MaterialCard, int64, error) {
	return s.repos.Material.FindAll(ctx, page, pageSize, search)
}

func (s *CRMService) GetMaterialCard(ctx context.Context, id string) (*entity.MaterialCard, error) {
	return s.repos.Material.FindByID(ctx, id)
}

type UpsertMaterialCardRequest struct {
	MPN          string `json:"mpn" binding:"required"`
	Manufacturer string `json:"manufacturer"`
	Description  string `json:"description"`
	Category     string `json:"category"`
}

func (s *CRMService) UpsertMaterialCard(ctx context.Context, req *UpsertMaterialCardRequest) (*entity.MaterialCard, error) {
	card, err := s.repos.Material.FindByMPN(ctx, req.MPN)
	if errors.Is(err, repository.ErrNotFound) {
		card = &entity.MaterialCard{
			ID:           uuid.New().String()[:32],
			MPN:          req.MPN,
			Manufacturer: req.Manufacturer,
			Description:  req.Description,
			Category:     req.Category,
		}
		if err := s.repos.Material.Create(ctx, card); err != nil {
			return nil, err
		}
		return card, nil
	}
	if err != nil {
		return nil, err
	}

	if req.Manufacturer != "" {
		card.Manufacturer = req.Manufacturer
	}
	if req.Description != "" {
		card.Description = req.Description
	}
	if req.Category != "" {
		card.Category = req.Category
	}
	if err := s.repos.Material.Update(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// ListMaterialHistory returns the listing history for one MPN, newest first.
func (s *CRMService) ListMaterialHistory(ctx context.Context, mpn string) ([]entity.MaterialListing, error) {
	return s.repos.Material.FindListings(ctx, mpn)
}
