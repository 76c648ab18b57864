package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/docrender/internal/clock"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/invoice"
	"github.com/smallbiznis/docrender/internal/document/layout"
	"github.com/smallbiznis/docrender/internal/document/warranty"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/observability/logger"
	"github.com/smallbiznis/docrender/internal/observability/metrics"
	"github.com/smallbiznis/docrender/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SettingsSource yields the documents configuration snapshot for one build.
type SettingsSource interface {
	Get() config.DocumentsConfig
}

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Store    *media.Store
	Logos    docimage.Source
	Fonts    canvas.FontSet
	Settings SettingsSource
	Clock    clock.Clock        `optional:"true"`
	ErrLog   domain.ErrorLogger `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
}

type canvasFactory func(page layout.Page, fonts canvas.FontSet, meta canvas.Metadata) canvas.Canvas

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	store    *media.Store
	fonts    canvas.FontSet
	settings SettingsSource
	errLog   domain.ErrorLogger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	invoices   *invoice.Renderer
	warranties *warranty.Renderer

	newCanvas canvasFactory
	clock     clock.Clock
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	errLog := p.ErrLog
	if errLog == nil {
		errLog = domain.NopErrorLogger{}
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:        log.Named("document.service"),
		genID:      p.GenID,
		store:      p.Store,
		fonts:      p.Fonts,
		settings:   p.Settings,
		errLog:     errLog,
		metrics:    p.Metrics,
		tracer:     otel.Tracer("docrender/document"),
		invoices:   invoice.NewRenderer(p.Logos, log),
		warranties: warranty.NewRenderer(p.Logos, errLog, log),
		newCanvas: func(page layout.Page, fonts canvas.FontSet, meta canvas.Metadata) canvas.Canvas {
			return canvas.NewPDF(page, fonts, meta)
		},
		clock: clk,
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// GenerateInvoice builds and stores one invoice variant.
func (s *Service) GenerateInvoice(ctx context.Context, req domain.InvoiceRequest, copy bool) (domain.RenderedDocument, error) {
	ctx, span := s.startSpan(ctx, "document.GenerateInvoice", domain.DocumentKindInvoice, req.Order.ID)
	defer span.End()
	span.SetAttributes(attribute.Bool("document.copy", copy))

	start := time.Now()
	if err := s.checkInvoice(req); err != nil {
		s.fail(ctx, span, domain.DocumentKindInvoice, req.Order.ID, err)
		return domain.RenderedDocument{}, err
	}

	doc, err := s.buildInvoice(ctx, req, copy, s.settings.Get(), s.now(), s.genID.Generate())
	if err != nil {
		s.fail(ctx, span, domain.DocumentKindInvoice, req.Order.ID, err)
		return domain.RenderedDocument{}, err
	}
	s.succeed(ctx, doc, time.Since(start))
	return doc, nil
}

// GenerateInvoiceSet builds the requested variants from one settings snapshot.
// Both variants share a timestamp and build id, so the copy's file name is the
// original's plus "-copy". When the copy fails the stored original is removed
// again.
func (s *Service) GenerateInvoiceSet(ctx context.Context, req domain.InvoiceRequest, variants domain.InvoiceVariants) (domain.InvoiceSet, error) {
	ctx, span := s.startSpan(ctx, "document.GenerateInvoiceSet", domain.DocumentKindInvoice, req.Order.ID)
	defer span.End()

	if !variants.Original && !variants.Copy {
		variants = domain.InvoiceVariants{Original: true, Copy: true}
	}
	span.SetAttributes(
		attribute.Bool("document.original", variants.Original),
		attribute.Bool("document.copy", variants.Copy),
	)

	if err := s.checkInvoice(req); err != nil {
		s.fail(ctx, span, domain.DocumentKindInvoice, req.Order.ID, err)
		return domain.InvoiceSet{}, err
	}

	cfg := s.settings.Get()
	now := s.now()
	build := s.genID.Generate()
	var set domain.InvoiceSet

	if variants.Original {
		start := time.Now()
		doc, err := s.buildInvoice(ctx, req, false, cfg, now, build)
		if err != nil {
			s.fail(ctx, span, domain.DocumentKindInvoice, req.Order.ID, err)
			return domain.InvoiceSet{}, err
		}
		s.succeed(ctx, doc, time.Since(start))
		set.Original = &doc
	}

	if variants.Copy {
		start := time.Now()
		doc, err := s.buildInvoice(ctx, req, true, cfg, now, build)
		if err != nil {
			if set.Original != nil {
				s.discard(ctx, *set.Original)
			}
			s.fail(ctx, span, domain.DocumentKindInvoice, req.Order.ID, err)
			return domain.InvoiceSet{}, err
		}
		s.succeed(ctx, doc, time.Since(start))
		set.Copy = &doc
	}
	return set, nil
}

// GenerateWarranty builds and stores a warranty card.
func (s *Service) GenerateWarranty(ctx context.Context, req domain.WarrantyRequest) (domain.RenderedDocument, error) {
	ctx, span := s.startSpan(ctx, "document.GenerateWarranty", domain.DocumentKindWarranty, req.Order.ID)
	defer span.End()

	start := time.Now()
	if s.fonts.Empty() {
		s.fail(ctx, span, domain.DocumentKindWarranty, req.Order.ID, domain.ErrFontMissing)
		return domain.RenderedDocument{}, domain.ErrFontMissing
	}

	cfg := s.settings.Get()
	now := s.now()
	in := warranty.Input{
		Order:        req.Order,
		Company:      req.Company,
		PurchaseDate: req.PurchaseDate,
		Settings:     warranty.Settings{RepairLogRows: cfg.RepairLogRows},
	}
	orderID := warranty.FormatOrderID(req.Order.ID)
	meta := canvas.Metadata{
		Title:   "Warranty card " + orderID,
		Author:  req.Company.CompanyName,
		Subject: "Warranty card for order " + orderID,
		Created: now,
	}

	data, pages, err := s.render(ctx, meta, func(c canvas.Canvas) (int, error) {
		res, err := s.warranties.Render(ctx, c, in)
		return res.Pages, err
	})
	if err != nil {
		s.fail(ctx, span, domain.DocumentKindWarranty, req.Order.ID, err)
		return domain.RenderedDocument{}, err
	}

	doc, err := s.persist(cfg.WarrantyDir, fileName("warranty", orderID, now, s.genID.Generate(), false), data, domain.DocumentKindWarranty, pages, false, now)
	if err != nil {
		s.fail(ctx, span, domain.DocumentKindWarranty, req.Order.ID, err)
		return domain.RenderedDocument{}, err
	}
	s.succeed(ctx, doc, time.Since(start))
	return doc, nil
}

func (s *Service) checkInvoice(req domain.InvoiceRequest) error {
	if err := invoice.Validate(req.Company); err != nil {
		return err
	}
	if s.fonts.Empty() {
		return domain.ErrFontMissing
	}
	return nil
}

func (s *Service) buildInvoice(ctx context.Context, req domain.InvoiceRequest, copy bool, cfg config.DocumentsConfig, now time.Time, build snowflake.ID) (domain.RenderedDocument, error) {
	number := req.Number
	if number == 0 {
		number = req.Order.ID
	}
	in := invoice.Input{
		Number:    number,
		IssueDate: req.IssueDate,
		Copy:      copy,
		Order:     req.Order,
		Company:   req.Company,
		Client:    req.Client,
		Settings: invoice.Settings{
			VATRate:         cfg.VATRate,
			EURRate:         cfg.EURRate,
			Currency:        cfg.Currency,
			EURCurrency:     cfg.EURCurrency,
			PaymentLabels:   cfg.PaymentLabels,
			LegalDisclaimer: cfg.LegalDisclaimer,
		},
	}
	formatted := invoice.FormatNumber(number)
	meta := canvas.Metadata{
		Title:   "Invoice " + formatted,
		Author:  req.Company.CompanyName,
		Subject: "Invoice " + formatted + " for order " + fmt.Sprint(req.Order.ID),
		Created: now,
	}

	data, pages, err := s.render(ctx, meta, func(c canvas.Canvas) (int, error) {
		res, err := s.invoices.Render(ctx, c, in)
		return res.Pages, err
	})
	if err != nil {
		return domain.RenderedDocument{}, err
	}
	return s.persist(cfg.InvoiceDir, fileName("invoice", formatted, now, build, copy), data, domain.DocumentKindInvoice, pages, copy, now)
}

// render runs draw on a fresh canvas and returns the finished PDF bytes.
// Nothing touches the media store until drawing has fully succeeded.
func (s *Service) render(ctx context.Context, meta canvas.Metadata, draw func(canvas.Canvas) (int, error)) (data []byte, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.errLog.LogError(ctx, fmt.Errorf("render panic: %v", r), zap.Stack("stack"))
			data, pages, err = nil, 0, domain.ErrRenderFailed
		}
	}()

	c := s.newCanvas(layout.A4, s.fonts, meta)
	pages, err = draw(c)
	if err != nil {
		if domain.Code(err) == "" {
			err = domain.NewError(domain.CodeRenderFailed, "document could not be generated", err)
		}
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := c.Output(&buf); err != nil {
		return nil, 0, domain.NewError(domain.CodeRenderFailed, "document output failed", err)
	}
	return buf.Bytes(), pages, nil
}

func (s *Service) persist(subdir, name string, data []byte, kind domain.DocumentKind, pages int, copy bool, now time.Time) (domain.RenderedDocument, error) {
	ref, err := s.store.Write(subdir, name, data)
	if err != nil {
		return domain.RenderedDocument{}, domain.NewError(domain.CodeStorage, "document could not be stored", err)
	}
	return domain.RenderedDocument{
		ID:        s.genID.Generate(),
		Kind:      kind,
		FileName:  name,
		URL:       ref.URL,
		FSPath:    ref.FSPath,
		Pages:     pages,
		Copy:      copy,
		CreatedAt: now,
	}, nil
}

func (s *Service) discard(ctx context.Context, doc domain.RenderedDocument) {
	if err := s.store.Remove(media.Ref{URL: doc.URL, FSPath: doc.FSPath}); err != nil {
		s.errLog.LogError(ctx, err, zap.String("url", doc.URL))
	}
}

// fileName builds "<kind>-<id>-<unix>-<build>[-copy].pdf". The build id keeps
// repeated builds within the same second apart.
func fileName(kind, id string, at time.Time, build snowflake.ID, copy bool) string {
	base := slug.Make(fmt.Sprintf("%s %s %d %s", kind, id, at.Unix(), build.Base36()))
	if copy {
		base += "-copy"
	}
	return base + ".pdf"
}

func (s *Service) startSpan(ctx context.Context, name string, kind domain.DocumentKind, orderID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("document.kind", string(kind)),
		attribute.Int64("order.id", orderID),
	)...))
}

func (s *Service) succeed(ctx context.Context, doc domain.RenderedDocument, elapsed time.Duration) {
	s.metrics.RecordDocumentRendered(ctx, string(doc.Kind), doc.Pages, elapsed)
	logger.WithContext(ctx, s.log).Info("document generated",
		zap.String("document_kind", string(doc.Kind)),
		zap.String("url", doc.URL),
		zap.Int("pages", doc.Pages),
		zap.Bool("copy", doc.Copy),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
}

func (s *Service) fail(ctx context.Context, span trace.Span, kind domain.DocumentKind, orderID int64, err error) {
	code := domain.Code(err)
	if code == "" {
		code = domain.CodeRenderFailed
	}
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, code)
	s.metrics.RecordDocumentFailed(ctx, string(kind), code)

	log := logger.WithDocument(logger.WithContext(ctx, s.log), string(kind), orderID)
	if domain.IsPrecondition(err) {
		log.Info("document rejected", zap.String("error_code", code), zap.Error(err))
		return
	}
	s.errLog.LogError(ctx, err, zap.String("document_kind", string(kind)), zap.Int64("order_id", orderID))
}
