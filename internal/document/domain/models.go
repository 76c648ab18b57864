// Package domain contains the value types consumed and produced by the document engine.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DocumentKind identifies which renderer produced a document.
type DocumentKind string

const (
	DocumentKindInvoice  DocumentKind = "invoice"
	DocumentKindWarranty DocumentKind = "warranty"
)

// Order is the order record supplied by the order-processing collaborator.
type Order struct {
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouseId,omitempty"`
	ClientID    int64     `json:"clientId,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	PaymentType string    `json:"paymentType,omitempty"`
	Items       Items     `json:"items"`
}

// OrderItem is one line item of an order.
type OrderItem struct {
	ProductID    int64           `json:"productId,omitempty"`
	Name         string          `json:"name"`
	SerialNumber string          `json:"sn,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
	Warranty     int             `json:"warranty,omitempty"`
}

// LineTotal returns quantity × unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// Description returns the display name, followed by the serial number when present.
func (i OrderItem) Description() string {
	name := strings.TrimSpace(i.Name)
	sn := strings.TrimSpace(i.SerialNumber)
	if sn == "" {
		return name
	}
	return name + "\nS/N: " + sn
}

// Items is the canonical in-memory list of order items.
//
// Upstream callers send items either as a JSON array or as a string holding a
// JSON-encoded array. Both decode into the same value.
type Items []OrderItem

// UnmarshalJSON accepts a JSON array, a JSON string containing an array, or null.
func (it *Items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*it = Items{}
		return nil
	}
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return NewError(CodeInvalidItems, "items string is not valid JSON", err)
		}
		return it.decodeArray([]byte(encoded))
	}
	return it.decodeArray(data)
}

func (it *Items) decodeArray(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*it = Items{}
		return nil
	}
	var list []OrderItem
	if err := json.Unmarshal(data, &list); err != nil {
		return NewError(CodeInvalidItems, "items must be a JSON array", err)
	}
	if list == nil {
		list = []OrderItem{}
	}
	*it = list
	return nil
}

// NormalizeItems converts any supported representation of order items into Items.
func NormalizeItems(raw any) (Items, error) {
	switch v := raw.(type) {
	case nil:
		return Items{}, nil
	case Items:
		return v, nil
	case []OrderItem:
		return Items(v), nil
	case string:
		var out Items
		if err := out.decodeArray([]byte(v)); err != nil {
			return nil, err
		}
		return out, nil
	case []byte:
		var out Items
		if err := out.UnmarshalJSON(v); err != nil {
			return nil, err
		}
		return out, nil
	case json.RawMessage:
		var out Items
		if err := out.UnmarshalJSON(v); err != nil {
			return nil, err
		}
		return out, nil
	case []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, NewError(CodeInvalidItems, "items could not be encoded", err)
		}
		var out Items
		if err := out.decodeArray(encoded); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, NewError(CodeInvalidItems, fmt.Sprintf("unsupported items type %T", raw), nil)
	}
}

// CompanyProfile describes the issuing company.
type CompanyProfile struct {
	CompanyName    string `json:"companyName"`
	UIC            string `json:"uic"`
	VATNumber      string `json:"vatNumber,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	PostalCode     string `json:"postalCode,omitempty"`
	Country        string `json:"country,omitempty"`
	Representative string `json:"representative,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Logo           string `json:"logo"`
}

// AddressLine joins the non-empty address parts.
func (c CompanyProfile) AddressLine() string {
	city := strings.TrimSpace(strings.TrimSpace(c.PostalCode) + " " + strings.TrimSpace(c.City))
	return joinNonEmpty(", ", c.Address, city, c.Country)
}

// IssuerName is the name printed under the issuer signature.
func (c CompanyProfile) IssuerName() string {
	if name := strings.TrimSpace(c.Representative); name != "" {
		return name
	}
	return strings.TrimSpace(c.CompanyName)
}

// Client is the invoice recipient.
type Client struct {
	IsCompany   bool   `json:"isCompany"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Bulstat     string `json:"bulstat,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// DisplayName is the company name for company clients and "first last" otherwise.
func (c Client) DisplayName() string {
	if c.IsCompany {
		if name := strings.TrimSpace(c.CompanyName); name != "" {
			return name
		}
	}
	return joinNonEmpty(" ", c.FirstName, c.LastName)
}

// RenderedDocument is the reference to a persisted PDF. It is produced fresh
// by every build and never mutated afterwards.
type RenderedDocument struct {
	ID        snowflake.ID `json:"id"`
	Kind      DocumentKind `json:"kind"`
	FileName  string       `json:"fileName"`
	URL       string       `json:"url"`
	FSPath    string       `json:"fsPath"`
	Pages     int          `json:"pages"`
	Copy      bool         `json:"copy"`
	CreatedAt time.Time    `json:"createdAt"`
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
