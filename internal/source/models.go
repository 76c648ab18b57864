package source

import (
	"time"

	"gorm.io/datatypes"
)

// Order is the subset of the orders table the renderers read.
type Order struct {
	ID          int64          `gorm:"primaryKey;autoIncrement:false"`
	WarehouseID int64          `gorm:"column:warehouse_id"`
	ClientID    int64          `gorm:"column:client_id;index"`
	Status      string         `gorm:"column:status"`
	PaymentType string         `gorm:"column:payment_type"`
	Items       datatypes.JSON `gorm:"column:items"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (Order) TableName() string { return "orders" }

type CompanyProfile struct {
	ID             int64  `gorm:"primaryKey"`
	CompanyName    string `gorm:"column:company_name"`
	UIC            string `gorm:"column:uic"`
	VATNumber      string `gorm:"column:vat_number"`
	Email          string `gorm:"column:email"`
	Phone          string `gorm:"column:phone"`
	Address        string `gorm:"column:address"`
	City           string `gorm:"column:city"`
	PostalCode     string `gorm:"column:postal_code"`
	Country        string `gorm:"column:country"`
	Representative string `gorm:"column:representative"`
	Notes          string `gorm:"column:notes"`
	Logo           string `gorm:"column:logo"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

type Client struct {
	ID          int64  `gorm:"primaryKey"`
	IsCompany   bool   `gorm:"column:is_company"`
	FirstName   string `gorm:"column:first_name"`
	LastName    string `gorm:"column:last_name"`
	CompanyName string `gorm:"column:company_name"`
	Bulstat     string `gorm:"column:bulstat"`
	Email       string `gorm:"column:email"`
	Phone       string `gorm:"column:phone"`
	Address     string `gorm:"column:address"`
}

func (Client) TableName() string { return "clients" }
