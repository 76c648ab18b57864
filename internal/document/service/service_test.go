package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docrender/internal/clock"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/canvas/canvastest"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/layout"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC) // unix 1700000000

type stubLogos struct{ err error }

func (s stubLogos) Load(context.Context, string) (docimage.Image, error) {
	if s.err != nil {
		return docimage.Image{}, s.err
	}
	return docimage.Image{Data: []byte("png"), Type: docimage.TypePNG}, nil
}

type captureLogger struct {
	mu   sync.Mutex
	errs []error
}

func (c *captureLogger) LogError(_ context.Context, err error, _ ...zap.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// panicCanvas blows up on the first text draw.
type panicCanvas struct{ *canvastest.Recorder }

func (panicCanvas) TextBox(float64, float64, string, layout.TextOptions) float64 {
	panic("backend exploded")
}

type fixture struct {
	svc      *Service
	fs       afero.Fs
	errs     *captureLogger
	canvases []*canvastest.Recorder
}

func newFixture(t *testing.T, logos docimage.Source) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{fs: afero.NewMemMapFs(), errs: &captureLogger{}}
	f.svc = newService(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Store:    media.NewStore(f.fs, "/srv/media", "/media", nil),
		Logos:    logos,
		Fonts:    canvas.FontSet{Regular: []byte("regular"), Bold: []byte("bold")},
		Settings: config.NewStaticDocumentsConfigHolder(config.DefaultDocumentsConfig()),
		Clock:    clock.NewFakeClock(fixedNow),
		ErrLog:   f.errs,
	})
	f.svc.newCanvas = func(page layout.Page, _ canvas.FontSet, _ canvas.Metadata) canvas.Canvas {
		rec := canvastest.New(page)
		f.canvases = append(f.canvases, rec)
		return rec
	}
	return f
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := afero.Exists(f.fs, p)
	require.NoError(t, err)
	return ok
}

// stored maps a document back to its path inside the media filesystem.
func (f *fixture) stored(doc domain.RenderedDocument) string {
	return strings.TrimPrefix(doc.FSPath, "/srv/media")
}

func (f *fixture) files(t *testing.T, dir string) []string {
	t.Helper()
	ok, err := afero.DirExists(f.fs, dir)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	infos, err := afero.ReadDir(f.fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

var (
	invoiceName  = regexp.MustCompile(`^invoice-0000000042-1700000000-[0-9a-z]+\.pdf$`)
	warrantyName = regexp.MustCompile(`^warranty-000007-1700000000-[0-9a-z]+\.pdf$`)
)

func invoiceRequest() domain.InvoiceRequest {
	return domain.InvoiceRequest{
		Number: 42,
		Order: domain.Order{
			ID:          7,
			CreatedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			PaymentType: "cash",
			Items: domain.Items{
				{Name: "Laptop", SerialNumber: "SN1", Price: decimal.NewFromInt(120), Quantity: 1, Warranty: 12},
			},
		},
		Company: domain.CompanyProfile{
			CompanyName: "Acme Trading Ltd",
			UIC:         "204567891",
			Logo:        "/media/logos/acme.png",
		},
		Client: domain.Client{FirstName: "Ivan", LastName: "Petrov"},
	}
}

func TestGenerateInvoiceSetNamesCopySeparately(t *testing.T) {
	f := newFixture(t, stubLogos{})

	set, err := f.svc.GenerateInvoiceSet(context.Background(), invoiceRequest(), domain.InvoiceVariants{})
	require.NoError(t, err)
	require.NotNil(t, set.Original)
	require.NotNil(t, set.Copy)

	assert.Regexp(t, invoiceName, set.Original.FileName)
	assert.Equal(t, "/media/invoices/"+set.Original.FileName, set.Original.URL)
	assert.Equal(t, "/srv/media/invoices/"+set.Original.FileName, set.Original.FSPath)
	assert.Equal(t, strings.TrimSuffix(set.Original.URL, ".pdf")+"-copy.pdf", set.Copy.URL)
	assert.False(t, set.Original.Copy)
	assert.True(t, set.Copy.Copy)
	assert.NotEqual(t, set.Original.ID, set.Copy.ID)
	assert.Equal(t, domain.DocumentKindInvoice, set.Copy.Kind)
	assert.Equal(t, 1, set.Original.Pages)

	assert.True(t, f.exists(t, f.stored(*set.Original)))
	assert.True(t, f.exists(t, f.stored(*set.Copy)))

	require.Len(t, f.canvases, 2)
	assert.Equal(t, 1, f.canvases[0].Count("ORIGINAL"))
	assert.Equal(t, 1, f.canvases[1].Count("COPY"))

	data, err := afero.ReadFile(f.fs, f.stored(*set.Copy))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-recorded\n", string(data))
}

func TestGenerateInvoiceSetSingleVariant(t *testing.T) {
	f := newFixture(t, stubLogos{})
	set, err := f.svc.GenerateInvoiceSet(context.Background(), invoiceRequest(), domain.InvoiceVariants{Copy: true})
	require.NoError(t, err)
	assert.Nil(t, set.Original)
	require.NotNil(t, set.Copy)
	assert.Len(t, f.canvases, 1)
}

func TestGenerateInvoiceMissingUICWritesNothing(t *testing.T) {
	f := newFixture(t, stubLogos{})
	req := invoiceRequest()
	req.Company.UIC = "  "

	_, err := f.svc.GenerateInvoice(context.Background(), req, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCompanyUIC)
	assert.Equal(t, domain.CodeMissingCompanyUIC, domain.Code(err))

	_, err = f.svc.GenerateInvoiceSet(context.Background(), req, domain.InvoiceVariants{})
	assert.ErrorIs(t, err, domain.ErrMissingCompanyUIC)

	assert.Empty(t, f.canvases)
	assert.False(t, f.exists(t, "/invoices"))
	assert.Empty(t, f.errs.errs, "precondition failures are not error-logged")
}

func TestGenerateInvoiceNumberFallsBackToOrderID(t *testing.T) {
	f := newFixture(t, stubLogos{})
	req := invoiceRequest()
	req.Number = 0

	doc, err := f.svc.GenerateInvoice(context.Background(), req, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.FileName, "invoice-0000000007-1700000000-"), doc.FileName)
	assert.Equal(t, 1, f.canvases[0].Count("No. 0000000007"))
}

func TestRepeatedBuildsInSameSecondStoreSeparateFiles(t *testing.T) {
	f := newFixture(t, stubLogos{})
	ctx := context.Background()

	first, err := f.svc.GenerateInvoice(ctx, invoiceRequest(), false)
	require.NoError(t, err)
	second, err := f.svc.GenerateInvoice(ctx, invoiceRequest(), false)
	require.NoError(t, err)
	assert.NotEqual(t, first.URL, second.URL)
	assert.Regexp(t, invoiceName, second.FileName)

	setA, err := f.svc.GenerateInvoiceSet(ctx, invoiceRequest(), domain.InvoiceVariants{})
	require.NoError(t, err)
	setB, err := f.svc.GenerateInvoiceSet(ctx, invoiceRequest(), domain.InvoiceVariants{})
	require.NoError(t, err)
	assert.NotEqual(t, setA.Copy.URL, setB.Copy.URL)

	warrantyReq := domain.WarrantyRequest{Order: invoiceRequest().Order, Company: invoiceRequest().Company}
	w1, err := f.svc.GenerateWarranty(ctx, warrantyReq)
	require.NoError(t, err)
	w2, err := f.svc.GenerateWarranty(ctx, warrantyReq)
	require.NoError(t, err)
	assert.NotEqual(t, w1.URL, w2.URL)

	assert.Len(t, f.files(t, "/invoices"), 6)
	assert.Len(t, f.files(t, "/warranties"), 2)
}

func TestGenerateInvoiceSetRemovesOriginalWhenCopyFails(t *testing.T) {
	f := newFixture(t, stubLogos{})
	calls := 0
	f.svc.newCanvas = func(page layout.Page, _ canvas.FontSet, _ canvas.Metadata) canvas.Canvas {
		calls++
		rec := canvastest.New(page)
		if calls == 2 {
			rec.OutputErr = errors.New("disk gone")
		}
		return rec
	}

	_, err := f.svc.GenerateInvoiceSet(context.Background(), invoiceRequest(), domain.InvoiceVariants{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.Empty(t, f.files(t, "/invoices"))
}

func TestGenerateInvoiceLogoFailureAborts(t *testing.T) {
	f := newFixture(t, stubLogos{err: errors.New("404")})
	_, err := f.svc.GenerateInvoice(context.Background(), invoiceRequest(), false)
	assert.ErrorIs(t, err, domain.ErrLogoUnavailable)
	assert.False(t, f.exists(t, "/invoices"))
	assert.Len(t, f.errs.errs, 1)
}

func TestRenderPanicBecomesRenderFailed(t *testing.T) {
	f := newFixture(t, stubLogos{})
	f.svc.newCanvas = func(page layout.Page, _ canvas.FontSet, _ canvas.Metadata) canvas.Canvas {
		return panicCanvas{canvastest.New(page)}
	}

	_, err := f.svc.GenerateWarranty(context.Background(), domain.WarrantyRequest{
		Order:   invoiceRequest().Order,
		Company: invoiceRequest().Company,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.False(t, f.exists(t, "/warranties"))
	assert.NotEmpty(t, f.errs.errs)
}

func TestGenerateWarranty(t *testing.T) {
	f := newFixture(t, stubLogos{err: errors.New("unreachable")})
	req := domain.WarrantyRequest{Order: invoiceRequest().Order, Company: invoiceRequest().Company}

	doc, err := f.svc.GenerateWarranty(context.Background(), req)
	require.NoError(t, err)
	assert.Regexp(t, warrantyName, doc.FileName)
	assert.Equal(t, "/media/warranties/"+doc.FileName, doc.URL)
	assert.Equal(t, domain.DocumentKindWarranty, doc.Kind)
	assert.Equal(t, 1, doc.Pages)
	assert.True(t, f.exists(t, f.stored(doc)))
	assert.Len(t, f.errs.errs, 1, "logo failure is logged, not returned")
	assert.Contains(t, f.canvases[0].AllText(), "15.01.2025")
}

func TestMissingFonts(t *testing.T) {
	f := newFixture(t, stubLogos{})
	f.svc.fonts = canvas.FontSet{}

	_, err := f.svc.GenerateInvoice(context.Background(), invoiceRequest(), false)
	assert.ErrorIs(t, err, domain.ErrFontMissing)
	_, err = f.svc.GenerateWarranty(context.Background(), domain.WarrantyRequest{Order: invoiceRequest().Order})
	assert.ErrorIs(t, err, domain.ErrFontMissing)
	assert.Empty(t, f.canvases)
}

func TestFileName(t *testing.T) {
	build := snowflake.ID(1295)
	assert.Equal(t, "invoice-0000000001-1700000000-zz.pdf", fileName("invoice", "0000000001", fixedNow, build, false))
	assert.Equal(t, "invoice-0000000001-1700000000-zz-copy.pdf", fileName("invoice", "0000000001", fixedNow, build, true))
	assert.NotEqual(t, fileName("invoice", "0000000001", fixedNow, 1, false), fileName("invoice", "0000000001", fixedNow, 2, false))
}
