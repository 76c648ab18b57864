package warranty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docrender/internal/document/canvas/canvastest"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

func order(n int) domain.Order {
	items := make(domain.Items, n)
	for i := range items {
		items[i] = domain.OrderItem{
			Name:         fmt.Sprintf("Laptop %d", i+1),
			SerialNumber: fmt.Sprintf("SN%04d", i),
			Price:        decimal.NewFromInt(1000),
			Quantity:     1,
			Warranty:     (i % 3) * 12,
		}
	}
	return domain.Order{
		ID:        7,
		CreatedAt: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Items:     items,
	}
}

func profile() domain.CompanyProfile {
	return domain.CompanyProfile{
		CompanyName: "Acme Trading Ltd",
		UIC:         "204567891",
		Address:     "12 Vitosha Blvd",
		City:        "Sofia",
		Phone:       "+359 2 000 000",
		Logo:        "/media/logos/acme.png",
	}
}

func TestRenderWarrantyCard(t *testing.T) {
	rec := canvastest.New(layout.A4)
	r := NewRenderer(stubLogos{}, nil, zap.NewNop())

	res, err := r.Render(context.Background(), rec, Input{Order: order(3), Company: profile()})
	require.NoError(t, err)
	assert.True(t, res.LogoDrawn)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{"1 / 1"}, res.PageLabels)
	require.Len(t, res.Rows, 3)

	text := rec.AllText()
	assert.Contains(t, text, "WARRANTY CARD")
	assert.Contains(t, text, "Order No. 000007")
	assert.Contains(t, text, "Purchase date: 15.01.2024")
	assert.Contains(t, text, "Acme Trading Ltd | 12 Vitosha Blvd, Sofia | +359 2 000 000")
	assert.Contains(t, text, "SN0001")
	assert.Contains(t, text, "15.01.2025")
	assert.Contains(t, text, "15.01.2026")
	assert.Equal(t, 2, rec.Count(Placeholder), "months and expiry of the item without warranty")
}

func TestRenderRepairLogRows(t *testing.T) {
	rec := canvastest.New(layout.A4)
	r := NewRenderer(stubLogos{}, nil, nil)

	_, err := r.Render(context.Background(), rec, Input{Order: order(1), Company: profile(), Settings: Settings{RepairLogRows: 5}})
	require.NoError(t, err)

	cols := len(layout.RepairLogGrid.Columns)
	strokes := 0
	for _, rect := range rec.Pages[0].Rects {
		if !rect.Fill {
			strokes++
			assert.Equal(t, float64(layout.RepairLogRowHeight), rect.H)
		}
	}
	assert.Equal(t, 5*cols, strokes)
	assert.Equal(t, 1, rec.Count("Repair description"))
}

func TestRenderDefaultsRepairLogRows(t *testing.T) {
	rec := canvastest.New(layout.A4)
	_, err := NewRenderer(stubLogos{}, nil, nil).Render(context.Background(), rec, Input{Order: order(0), Company: profile()})
	require.NoError(t, err)

	strokes := 0
	for _, rect := range rec.Pages[0].Rects {
		if !rect.Fill {
			strokes++
		}
	}
	assert.Equal(t, DefaultRepairLogRows*len(layout.RepairLogGrid.Columns), strokes)
}

func TestRenderSwallowsLogoFailure(t *testing.T) {
	errs := &captureLogger{}
	rec := canvastest.New(layout.A4)
	r := NewRenderer(stubLogos{err: errors.New("fetch failed")}, errs, nil)

	res, err := r.Render(context.Background(), rec, Input{Order: order(2), Company: profile()})
	require.NoError(t, err)
	assert.False(t, res.LogoDrawn)
	assert.Empty(t, rec.Pages[0].Images)
	require.Len(t, errs.errs, 1)

	errs = &captureLogger{}
	rec = canvastest.New(layout.A4)
	rec.ImageErr = errors.New("corrupt")
	res, err = NewRenderer(stubLogos{}, errs, nil).Render(context.Background(), rec, Input{Order: order(2), Company: profile()})
	require.NoError(t, err)
	assert.False(t, res.LogoDrawn)
	assert.Len(t, errs.errs, 1)
}

func TestRenderWithoutLogo(t *testing.T) {
	errs := &captureLogger{}
	co := profile()
	co.Logo = ""
	rec := canvastest.New(layout.A4)

	res, err := NewRenderer(stubLogos{}, errs, nil).Render(context.Background(), rec, Input{Order: order(1), Company: co})
	require.NoError(t, err)
	assert.False(t, res.LogoDrawn)
	assert.Empty(t, errs.errs)
}

func TestRenderPurchaseDateOverride(t *testing.T) {
	rec := canvastest.New(layout.A4)
	in := Input{Order: order(2), Company: profile(), PurchaseDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}

	_, err := NewRenderer(stubLogos{}, nil, nil).Render(context.Background(), rec, in)
	require.NoError(t, err)
	assert.Contains(t, rec.AllText(), "Purchase date: 01.06.2024")
	assert.Contains(t, rec.AllText(), "01.06.2025")
}

func TestRenderStampsEveryPage(t *testing.T) {
	r := NewRenderer(stubLogos{}, nil, nil)

	var (
		rec *canvastest.Recorder
		res Result
	)
	for n := 1; n < 500; n++ {
		rec = canvastest.New(layout.A4)
		var err error
		res, err = r.Render(context.Background(), rec, Input{Order: order(n), Company: profile()})
		require.NoError(t, err)
		if res.Pages >= 3 {
			break
		}
	}
	require.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"1 / 3", "2 / 3", "3 / 3"}, res.PageLabels)

	for i, label := range res.PageLabels {
		found := false
		for _, tx := range rec.Pages[i].Texts {
			if tx.Text == label {
				found = true
				assert.Greater(t, tx.Y, layout.A4.Limit(0))
				assert.Less(t, tx.Y+tx.Height, layout.A4.Height)
			}
		}
		assert.True(t, found, "page %d has no stamp", i+1)
	}
}

func TestRenderItemRowsPaginate(t *testing.T) {
	rec := canvastest.New(layout.A4)
	in := Input{Order: order(120), Company: profile()}
	res, err := NewRenderer(stubLogos{}, nil, nil).Render(context.Background(), rec, in)
	require.NoError(t, err)
	require.Len(t, res.Rows, 120)
	assert.Greater(t, res.Pages, 1)

	limit := layout.A4.Limit(0)
	for i, row := range res.Rows {
		want := layout.RowHeight(rec, layout.WarrantyItemsGrid, ItemCells(i, in.Order.Items[i], in.Order.CreatedAt), layout.Body)
		assert.Equal(t, want, row.Height)
		assert.LessOrEqual(t, row.Top+row.Height, limit)
		if i > 0 && row.Page == res.Rows[i-1].Page {
			assert.GreaterOrEqual(t, row.Top, res.Rows[i-1].Top+res.Rows[i-1].Height)
		}
	}
}

func TestRenderLongNotesPaginate(t *testing.T) {
	co := profile()
	paragraphs := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("Clause %d. %s", i+1, strings.TrimSpace(strings.Repeat("The warranty does not cover mechanical damage or misuse. ", 12))))
	}
	co.Notes = strings.Join(paragraphs, "\r\n\r\n\r\n")

	rec := canvastest.New(layout.A4)
	res, err := NewRenderer(stubLogos{}, nil, nil).Render(context.Background(), rec, Input{Order: order(4), Company: co})
	require.NoError(t, err)
	assert.Greater(t, res.Pages, 1)

	limit := layout.A4.Limit(0)
	var drawn []string
	for _, page := range rec.Pages {
		for _, tx := range page.Texts {
			if tx.Y > limit {
				continue
			}
			assert.LessOrEqual(t, tx.Y+tx.Height, limit+1e-6, tx.Text)
			if tx.Opts.Align == layout.AlignJustify {
				drawn = append(drawn, tx.Lines...)
			}
		}
	}

	var want []string
	for _, p := range strings.Split(NormalizeNotes(co.Notes), "\n") {
		want = append(want, rec.Lines(p, layout.TextOptions{Width: layout.A4.ContentWidth(), Align: layout.AlignJustify, Style: layout.Body})...)
	}
	assert.Equal(t, want, drawn)
}
