package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/docrender/internal/document/domain"
)

type renderInvoiceRequest struct {
	Number    int64                 `json:"number"`
	IssueDate time.Time             `json:"issueDate"`
	Order     domain.Order          `json:"order"`
	Company   domain.CompanyProfile `json:"company"`
	Client    domain.Client         `json:"client"`
	Variants  []string              `json:"variants"`
}

type renderWarrantyRequest struct {
	PurchaseDate time.Time             `json:"purchaseDate"`
	Order        domain.Order          `json:"order"`
	Company      domain.CompanyProfile `json:"company"`
}

type documentResponse struct {
	ID        string              `json:"id"`
	Kind      domain.DocumentKind `json:"kind"`
	FileName  string              `json:"fileName"`
	URL       string              `json:"url"`
	Pages     int                 `json:"pages"`
	Copy      bool                `json:"copy"`
	CreatedAt time.Time           `json:"createdAt"`
}

type invoiceSetResponse struct {
	Original *documentResponse `json:"original,omitempty"`
	Copy     *documentResponse `json:"copy,omitempty"`
}

func toDocumentResponse(doc domain.RenderedDocument) documentResponse {
	return documentResponse{
		ID:        doc.ID.String(),
		Kind:      doc.Kind,
		FileName:  doc.FileName,
		URL:       doc.URL,
		Pages:     doc.Pages,
		Copy:      doc.Copy,
		CreatedAt: doc.CreatedAt,
	}
}

func toInvoiceSetResponse(set domain.InvoiceSet) invoiceSetResponse {
	var resp invoiceSetResponse
	if set.Original != nil {
		doc := toDocumentResponse(*set.Original)
		resp.Original = &doc
	}
	if set.Copy != nil {
		doc := toDocumentResponse(*set.Copy)
		resp.Copy = &doc
	}
	return resp
}

// parseVariants accepts "original", "copy" and "both". An empty selection
// means both.
func parseVariants(values []string) (domain.InvoiceVariants, error) {
	var v domain.InvoiceVariants
	for _, raw := range values {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "original":
			v.Original = true
		case "copy":
			v.Copy = true
		case "both", "":
			v.Original, v.Copy = true, true
		default:
			return domain.InvoiceVariants{}, newValidationError("variants", "invalid_variant", "variant must be original, copy or both")
		}
	}
	if !v.Original && !v.Copy {
		v.Original, v.Copy = true, true
	}
	return v, nil
}

func (s *Server) RenderInvoice(c *gin.Context) {
	var req renderInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if domain.Code(err) != "" {
			AbortWithError(c, err)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	variants, err := parseVariants(req.Variants)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	set, err := s.docs.GenerateInvoiceSet(c.Request.Context(), domain.InvoiceRequest{
		Number:    req.Number,
		IssueDate: req.IssueDate,
		Order:     req.Order,
		Company:   req.Company,
		Client:    req.Client,
	}, variants)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toInvoiceSetResponse(set)})
}

func (s *Server) RenderWarranty(c *gin.Context) {
	var req renderWarrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if domain.Code(err) != "" {
			AbortWithError(c, err)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.docs.GenerateWarranty(c.Request.Context(), domain.WarrantyRequest{
		PurchaseDate: req.PurchaseDate,
		Order:        req.Order,
		Company:      req.Company,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toDocumentResponse(doc)})
}
