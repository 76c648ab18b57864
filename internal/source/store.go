// Package source loads render inputs from the order database.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/smallbiznis/docrender/pkg/db"
	"github.com/smallbiznis/docrender/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound          = errors.New("order_not_found")
	ErrClientNotFound         = errors.New("client_not_found")
	ErrCompanyProfileNotFound = errors.New("company_profile_not_found")
)

type Params struct {
	fx.In

	DB  *gorm.DB `optional:"true"`
	Log *zap.Logger
}

// Store reads orders, clients and the issuing company profile. With no
// database configured every lookup fails with db.ErrDisabled.
type Store struct {
	db        *gorm.DB
	log       *zap.Logger
	orders    repository.Repository[Order]
	clients   repository.Repository[Client]
	companies repository.Repository[CompanyProfile]
}

func NewStore(p Params) *Store {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: p.DB, log: log.Named("source.store")}
	if p.DB != nil {
		s.orders = repository.ProvideStore[Order](p.DB)
		s.clients = repository.ProvideStore[Client](p.DB)
		s.companies = repository.ProvideStore[CompanyProfile](p.DB)
	}
	return s
}

func (s *Store) Enabled() bool { return s.db != nil }

// LoadInvoiceRequest assembles an invoice request for orderID. The invoice
// number is the order id.
func (s *Store) LoadInvoiceRequest(ctx context.Context, orderID int64) (domain.InvoiceRequest, error) {
	order, company, err := s.loadOrderAndCompany(ctx, orderID)
	if err != nil {
		return domain.InvoiceRequest{}, err
	}

	client := domain.Client{}
	if order.ClientID != 0 {
		row, err := s.clients.FindByID(ctx, order.ClientID)
		if err != nil {
			return domain.InvoiceRequest{}, err
		}
		if row == nil {
			return domain.InvoiceRequest{}, fmt.Errorf("%w: %d", ErrClientNotFound, order.ClientID)
		}
		client = toClient(*row)
	}

	return domain.InvoiceRequest{
		Number:    order.ID,
		IssueDate: order.CreatedAt,
		Order:     order,
		Company:   company,
		Client:    client,
	}, nil
}

// LoadWarrantyRequest assembles a warranty request for orderID.
func (s *Store) LoadWarrantyRequest(ctx context.Context, orderID int64) (domain.WarrantyRequest, error) {
	order, company, err := s.loadOrderAndCompany(ctx, orderID)
	if err != nil {
		return domain.WarrantyRequest{}, err
	}
	return domain.WarrantyRequest{
		PurchaseDate: order.CreatedAt,
		Order:        order,
		Company:      company,
	}, nil
}

func (s *Store) loadOrderAndCompany(ctx context.Context, orderID int64) (domain.Order, domain.CompanyProfile, error) {
	if s.db == nil {
		return domain.Order{}, domain.CompanyProfile{}, db.ErrDisabled
	}

	row, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, domain.CompanyProfile{}, err
	}
	if row == nil {
		return domain.Order{}, domain.CompanyProfile{}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	order, err := toOrder(*row)
	if err != nil {
		s.log.Warn("order items unreadable", zap.Int64("order_id", orderID), zap.Error(err))
		return domain.Order{}, domain.CompanyProfile{}, err
	}

	company, err := s.companyProfile(ctx)
	if err != nil {
		return domain.Order{}, domain.CompanyProfile{}, err
	}
	return order, company, nil
}

// companyProfile returns the profile with the lowest id; installations keep
// a single row.
func (s *Store) companyProfile(ctx context.Context) (domain.CompanyProfile, error) {
	var row CompanyProfile
	err := s.db.WithContext(ctx).Order("id ASC").First(&row).Error
	if db.IsNotFound(err) {
		return domain.CompanyProfile{}, ErrCompanyProfileNotFound
	}
	if err != nil {
		return domain.CompanyProfile{}, err
	}
	return toCompany(row), nil
}

func toOrder(row Order) (domain.Order, error) {
	items, err := domain.NormalizeItems([]byte(row.Items))
	if err != nil {
		return domain.Order{}, err
	}
	return domain.Order{
		ID:          row.ID,
		WarehouseID: row.WarehouseID,
		ClientID:    row.ClientID,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt,
		PaymentType: row.PaymentType,
		Items:       items,
	}, nil
}

func toCompany(row CompanyProfile) domain.CompanyProfile {
	return domain.CompanyProfile{
		CompanyName:    row.CompanyName,
		UIC:            row.UIC,
		VATNumber:      row.VATNumber,
		Email:          row.Email,
		Phone:          row.Phone,
		Address:        row.Address,
		City:           row.City,
		PostalCode:     row.PostalCode,
		Country:        row.Country,
		Representative: row.Representative,
		Notes:          row.Notes,
		Logo:           row.Logo,
	}
}

func toClient(row Client) domain.Client {
	return domain.Client{
		IsCompany:   row.IsCompany,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		CompanyName: row.CompanyName,
		Bulstat:     row.Bulstat,
		Email:       row.Email,
		Phone:       row.Phone,
		Address:     row.Address,
	}
}
