// Package warranty lays out warranty cards on a canvas.
package warranty

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/layout"
	"go.uber.org/zap"
)

const (
	DefaultRepairLogRows = 8

	logoMaxW = 120
	logoMaxH = 50

	sectionGap = 16
	columnGap  = 20

	// pageLabelOffset is the distance of the page stamp below the content limit.
	pageLabelOffset = 18
	// fitEpsilon absorbs float error when counting lines that fit.
	fitEpsilon = 1e-6
)

// Settings are the tunable values read once per build.
type Settings struct {
	RepairLogRows int
}

// DefaultSettings returns the built-in warranty settings.
func DefaultSettings() Settings {
	return Settings{RepairLogRows: DefaultRepairLogRows}
}

// Input is everything one warranty build reads. PurchaseDate defaults to the
// order creation time.
type Input struct {
	Order        domain.Order
	Company      domain.CompanyProfile
	PurchaseDate time.Time
	Settings     Settings
}

// RowPlacement is where one item row was drawn.
type RowPlacement struct {
	Page   int     `json:"page"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Result describes a finished layout.
type Result struct {
	Pages      int            `json:"pages"`
	PageLabels []string       `json:"pageLabels"`
	Rows       []RowPlacement `json:"rows"`
	LogoDrawn  bool           `json:"logoDrawn"`
}

// FormatOrderID zero pads an order id to six digits.
func FormatOrderID(id int64) string {
	return fmt.Sprintf("%06d", id)
}

type Renderer struct {
	logos  docimage.Source
	errLog domain.ErrorLogger
	log    *zap.Logger
}

func NewRenderer(logos docimage.Source, errLog domain.ErrorLogger, log *zap.Logger) *Renderer {
	if errLog == nil {
		errLog = domain.NopErrorLogger{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{logos: logos, errLog: errLog, log: log.Named("document.warranty")}
}

type build struct {
	ctx  context.Context
	c    canvas.Canvas
	page layout.Page
	in   Input
}

// Render draws the warranty card onto c and stamps page numbers.
func (r *Renderer) Render(ctx context.Context, c canvas.Canvas, in Input) (Result, error) {
	if in.PurchaseDate.IsZero() {
		in.PurchaseDate = in.Order.CreatedAt
	}
	if in.Settings.RepairLogRows <= 0 {
		in.Settings.RepairLogRows = DefaultRepairLogRows
	}
	b := &build{ctx: ctx, c: c, page: c.Page(), in: in}

	var res Result
	cur, logo := r.header(b, layout.Top(b.page))
	res.LogoDrawn = logo

	cur, res.Rows = r.items(b, cur)
	cur = r.repairLog(b, cur)
	r.notes(b, cur)

	res.PageLabels = r.stampPages(b)
	res.Pages = c.PageCount()

	if err := c.Err(); err != nil {
		return Result{}, domain.NewError(domain.CodeRenderFailed, "drawing failed", err)
	}
	r.log.Debug("warranty laid out",
		zap.Int64("order_id", in.Order.ID),
		zap.Int("items", len(in.Order.Items)),
		zap.Int("pages", res.Pages),
	)
	return res, nil
}

func (r *Renderer) header(b *build, cur layout.Cursor) (layout.Cursor, bool) {
	left := b.page.MarginLeft
	width := b.page.ContentWidth()

	logoBottom := cur
	drawn := false
	if src := strings.TrimSpace(b.in.Company.Logo); src != "" && r.logos != nil {
		img, err := r.logos.Load(b.ctx, src)
		if err == nil {
			var h float64
			_, h, err = b.c.Image("logo", img.Data, img.Type, left, cur.Y, logoMaxW, logoMaxH)
			if err == nil {
				logoBottom = cur.Advance(h)
				drawn = true
			}
		}
		if err != nil {
			r.errLog.LogError(b.ctx, err,
				zap.String("document", string(domain.DocumentKindWarranty)),
				zap.Int64("order_id", b.in.Order.ID),
				zap.String("logo", src),
			)
		}
	}

	x := left + logoMaxW + columnGap
	opts := layout.TextOptions{Width: width - logoMaxW - columnGap, Align: layout.AlignRight}
	text := cur
	opts.Style = layout.Title
	text = text.Advance(b.c.TextBox(x, text.Y, "WARRANTY CARD", opts))
	opts.Style = layout.Body
	text = text.Advance(b.c.TextBox(x, text.Y, "Order No. "+FormatOrderID(b.in.Order.ID), opts))
	text = text.Advance(b.c.TextBox(x, text.Y, "Purchase date: "+b.in.PurchaseDate.Format(DateLayout), opts))

	cur = logoBottom.Max(text).Advance(sectionGap / 2)
	if contact := ContactLine(b.in.Company); contact != "" {
		b.c.SetTextShade(canvas.ShadeMuted)
		cur = cur.Advance(b.c.TextBox(left, cur.Y, contact, layout.TextOptions{Width: width, Style: layout.Small}))
		b.c.SetTextShade(canvas.ShadeBlack)
		cur = cur.Advance(4)
	}
	b.c.Line(left, cur.Y, left+width, cur.Y)
	return cur.Advance(sectionGap), drawn
}

// ContactLine joins the company name, address and contact details.
func ContactLine(co domain.CompanyProfile) string {
	parts := []string{co.CompanyName, co.AddressLine(), co.Phone, co.Email}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

// ItemCells formats one warranty table row.
func ItemCells(i int, it domain.OrderItem, purchase time.Time) []string {
	months := Placeholder
	if it.Warranty > 0 {
		months = strconv.Itoa(it.Warranty)
	}
	serial := strings.TrimSpace(it.SerialNumber)
	if serial == "" {
		serial = Placeholder
	}
	return []string{
		strconv.Itoa(i + 1),
		strings.TrimSpace(it.Name),
		serial,
		months,
		ExpiryLabel(purchase, it.Warranty),
	}
}

func (r *Renderer) sectionTitle(b *build, cur layout.Cursor, title string, keep float64) layout.Cursor {
	opts := layout.TextOptions{Width: b.page.ContentWidth(), Style: layout.Heading}
	h := b.c.Height(title, opts) + 4
	if layout.EnsureRoom(b.c, b.page, cur.Y, h+keep, 0) {
		cur = layout.Top(b.page)
	}
	b.c.TextBox(b.page.MarginLeft, cur.Y, title, opts)
	return cur.Advance(h)
}

func (r *Renderer) items(b *build, cur layout.Cursor) (layout.Cursor, []RowPlacement) {
	g := layout.WarrantyItemsGrid
	left := b.page.MarginLeft
	head := layout.RowHeight(b.c, g, g.Titles(), layout.BodyB)

	cur = r.sectionTitle(b, cur, "Products", head)
	cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))

	rows := make([]RowPlacement, 0, len(b.in.Order.Items))
	for i, it := range b.in.Order.Items {
		cells := ItemCells(i, it, b.in.PurchaseDate)
		h := layout.RowHeight(b.c, g, cells, layout.Body)
		if layout.EnsureRoom(b.c, b.page, cur.Y, h, 0) {
			cur = layout.Top(b.page)
			cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))
		}
		canvas.TableRow(b.c, g, left, cur.Y, cells, layout.Body)
		b.c.Line(left, cur.Y+h, left+g.Width(), cur.Y+h)
		rows = append(rows, RowPlacement{Page: b.c.PageCount(), Top: cur.Y, Height: h})
		cur = cur.Advance(h)
	}
	return cur.Advance(sectionGap), rows
}

func (r *Renderer) repairLog(b *build, cur layout.Cursor) layout.Cursor {
	g := layout.RepairLogGrid
	left := b.page.MarginLeft
	head := layout.RowHeight(b.c, g, g.Titles(), layout.BodyB)

	cur = r.sectionTitle(b, cur, "Repair log", head+layout.RepairLogRowHeight)
	cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))

	for i := 0; i < b.in.Settings.RepairLogRows; i++ {
		if layout.EnsureRoom(b.c, b.page, cur.Y, layout.RepairLogRowHeight, 0) {
			cur = layout.Top(b.page)
			cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))
		}
		for col := range g.Columns {
			b.c.StrokeRect(g.X(left, col), cur.Y, g.Columns[col].Width, layout.RepairLogRowHeight)
		}
		cur = cur.Advance(layout.RepairLogRowHeight)
	}
	return cur.Advance(sectionGap)
}

// notes renders the company notes justified. Paragraphs that do not fit are
// split at a wrapped line boundary and continued on the next page.
func (r *Renderer) notes(b *build, cur layout.Cursor) layout.Cursor {
	notes := NormalizeNotes(b.in.Company.Notes)
	if notes == "" {
		return cur
	}
	opts := layout.TextOptions{Width: b.page.ContentWidth(), Align: layout.AlignJustify, Style: layout.Body}
	lh := opts.Style.LineHeight()
	left := b.page.MarginLeft

	cur = r.sectionTitle(b, cur, "Notes", lh)
	for _, para := range strings.Split(notes, "\n") {
		rest := para
		for {
			if layout.EnsureRoom(b.c, b.page, cur.Y, lh, 0) {
				cur = layout.Top(b.page)
			}
			lines := b.c.Lines(rest, opts)
			fit := int((b.page.Limit(0)-cur.Y)/lh + fitEpsilon)
			if fit >= len(lines) {
				cur = cur.Advance(b.c.TextBox(left, cur.Y, rest, opts))
				break
			}
			head, tail := SplitLines(rest, lines, fit)
			cur = cur.Advance(b.c.TextBox(left, cur.Y, head, opts))
			rest = tail
		}
	}
	return cur
}

// SplitLines returns the source text covered by the first n wrapped lines of
// para and the remainder. Wrapping consumes exactly one space at each break
// that happened at a word boundary.
func SplitLines(para string, lines []string, n int) (head, tail string) {
	pos := 0
	end := 0
	for i := 0; i < n && i < len(lines); i++ {
		pos += len(lines[i])
		end = pos
		if pos < len(para) && para[pos] == ' ' {
			pos++
		}
	}
	if pos > len(para) {
		pos = len(para)
	}
	if end > len(para) {
		end = len(para)
	}
	return para[:end], para[pos:]
}

func (r *Renderer) stampPages(b *build) []string {
	n := b.c.PageCount()
	labels := make([]string, 0, n)
	opts := layout.TextOptions{Width: b.page.ContentWidth(), Align: layout.AlignCenter, Style: layout.Small}
	y := b.page.Limit(0) + pageLabelOffset

	b.c.SetTextShade(canvas.ShadeMuted)
	for i := 1; i <= n; i++ {
		label := fmt.Sprintf("%d / %d", i, n)
		b.c.SetPage(i)
		b.c.TextBox(b.page.MarginLeft, y, label, opts)
		labels = append(labels, label)
	}
	b.c.SetTextShade(canvas.ShadeBlack)
	b.c.SetPage(n)
	return labels
}
