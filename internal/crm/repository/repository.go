package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories is the CRM repository registry.
type Repositories struct {
	Company  *CompanyRepository
	Vendor   *VendorCardRepository
	Material *MaterialCardRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Company:  NewCompanyRepository(db),
		Vendor:   NewVendorCardRepository(db),
		Material: NewMaterialCardRepository(db),
	}
}
