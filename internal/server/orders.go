package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/docrender/internal/document/domain"
	"go.uber.org/zap"
)

func (s *Server) RenderOrderInvoice(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	variants, err := parseVariants(c.QueryArray("variant"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.orders.Enabled() {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	release, err := s.lockOrder(ctx, domain.DocumentKindInvoice, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer release()

	req, err := s.orders.LoadInvoiceRequest(ctx, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	set, err := s.docs.GenerateInvoiceSet(ctx, req, variants)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toInvoiceSetResponse(set)})
}

func (s *Server) RenderOrderWarranty(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.orders.Enabled() {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	ctx := c.Request.Context()
	release, err := s.lockOrder(ctx, domain.DocumentKindWarranty, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer release()

	req, err := s.orders.LoadWarrantyRequest(ctx, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.docs.GenerateWarranty(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toDocumentResponse(doc)})
}

// lockOrder leases the order for one document kind. Locker failures are
// logged and the build proceeds unlocked.
func (s *Server) lockOrder(ctx context.Context, kind domain.DocumentKind, orderID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	token, ok, err := s.locker.TryLockOrder(ctx, string(kind), orderID)
	if err != nil {
		s.log.Warn("order lock unavailable",
			zap.String("document_kind", string(kind)),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrRenderInProgress
	}
	return func() {
		if err := s.locker.ReleaseOrder(context.WithoutCancel(ctx), string(kind), orderID, token); err != nil {
			s.log.Warn("order lock release failed",
				zap.String("document_kind", string(kind)),
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
		}
	}, nil
}
