package domain

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ErrorLogger receives failures the engine recovers from or reports.
type ErrorLogger interface {
	LogError(ctx context.Context, err error, fields ...zap.Field)
}

// NopErrorLogger discards everything.
type NopErrorLogger struct{}

func (NopErrorLogger) LogError(context.Context, error, ...zap.Field) {}

// InvoiceRequest asks for an invoice build.
type InvoiceRequest struct {
	Number    int64          `json:"number"`
	IssueDate time.Time      `json:"issueDate"`
	Order     Order          `json:"order"`
	Company   CompanyProfile `json:"company"`
	Client    Client         `json:"client"`
}

// InvoiceVariants selects which invoice files to produce.
type InvoiceVariants struct {
	Original bool
	Copy     bool
}

// InvoiceSet holds the documents of one invoice build. Absent variants are nil.
type InvoiceSet struct {
	Original *RenderedDocument `json:"original,omitempty"`
	Copy     *RenderedDocument `json:"copy,omitempty"`
}

// WarrantyRequest asks for a warranty card build.
type WarrantyRequest struct {
	PurchaseDate time.Time      `json:"purchaseDate"`
	Order        Order          `json:"order"`
	Company      CompanyProfile `json:"company"`
}

type Service interface {
	GenerateInvoice(ctx context.Context, req InvoiceRequest, copy bool) (RenderedDocument, error)
	GenerateInvoiceSet(ctx context.Context, req InvoiceRequest, variants InvoiceVariants) (InvoiceSet, error)
	GenerateWarranty(ctx context.Context, req WarrantyRequest) (RenderedDocument, error)
}
