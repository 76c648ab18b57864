// Package invoice lays out invoices on a canvas.
package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/domain"
	docimage "github.com/smallbiznis/docrender/internal/document/image"
	"github.com/smallbiznis/docrender/internal/document/layout"
	"go.uber.org/zap"
)

const (
	DateLayout = "02.01.2006"

	logoMaxW = 150
	logoMaxH = 60

	sectionGap   = 16
	columnGap    = 20
	rowReserve   = 0.0
	signatureGap = 28
)

// DefaultDisclaimer is printed centered at the bottom of every invoice.
const DefaultDisclaimer = "This invoice is valid without a seal and signature under the Accountancy Act."

// Settings are the tunable values read once per build.
type Settings struct {
	VATRate         decimal.Decimal
	EURRate         decimal.Decimal
	Currency        string
	EURCurrency     string
	PaymentLabels   map[string]string
	LegalDisclaimer string
}

// DefaultSettings returns the built-in invoice settings.
func DefaultSettings() Settings {
	return Settings{
		VATRate:         DefaultVATRate,
		EURRate:         DefaultEURRate,
		Currency:        "BGN",
		EURCurrency:     "EUR",
		PaymentLabels:   DefaultPaymentLabels,
		LegalDisclaimer: DefaultDisclaimer,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.VATRate.IsZero() && s.EURRate.IsZero() {
		s.VATRate, s.EURRate = def.VATRate, def.EURRate
	}
	if s.Currency == "" {
		s.Currency = def.Currency
	}
	if s.EURCurrency == "" {
		s.EURCurrency = def.EURCurrency
	}
	if s.PaymentLabels == nil {
		s.PaymentLabels = def.PaymentLabels
	}
	return s
}

// Input is everything one invoice build reads.
type Input struct {
	Number    int64
	IssueDate time.Time
	Copy      bool
	Order     domain.Order
	Company   domain.CompanyProfile
	Client    domain.Client
	Settings  Settings
}

// RowPlacement is where one item row was drawn.
type RowPlacement struct {
	Page   int     `json:"page"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Result describes a finished layout.
type Result struct {
	Pages  int            `json:"pages"`
	Totals Totals         `json:"totals"`
	Rows   []RowPlacement `json:"rows"`
}

// FormatNumber zero pads an invoice number to ten digits.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%010d", n)
}

// Validate checks the company fields every invoice must carry.
func Validate(company domain.CompanyProfile) error {
	switch {
	case strings.TrimSpace(company.Logo) == "":
		return domain.ErrMissingLogo
	case strings.TrimSpace(company.CompanyName) == "":
		return domain.ErrMissingCompanyName
	case strings.TrimSpace(company.UIC) == "":
		return domain.ErrMissingCompanyUIC
	}
	return nil
}

type Renderer struct {
	logos docimage.Source
	log   *zap.Logger
}

func NewRenderer(logos docimage.Source, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{logos: logos, log: log.Named("document.invoice")}
}

// build carries the state of one Render call.
type build struct {
	ctx  context.Context
	c    canvas.Canvas
	page layout.Page
	in   Input
	set  Settings
}

// Render draws the whole invoice onto c. The canvas is left open; the caller
// writes it out.
func (r *Renderer) Render(ctx context.Context, c canvas.Canvas, in Input) (Result, error) {
	if err := Validate(in.Company); err != nil {
		return Result{}, err
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = in.Order.CreatedAt
	}

	b := &build{ctx: ctx, c: c, page: c.Page(), in: in, set: in.Settings.withDefaults()}

	cur, err := r.header(b, layout.Top(b.page))
	if err != nil {
		return Result{}, err
	}
	cur = r.parties(b, cur)

	cur, rows, gross := r.items(b, cur)
	totals := ComputeTotals(gross, b.set.VATRate, b.set.EURRate)

	cur = r.totals(b, cur, totals)
	r.footer(b, cur)

	if err := c.Err(); err != nil {
		return Result{}, domain.NewError(domain.CodeRenderFailed, "drawing failed", err)
	}

	r.log.Debug("invoice laid out",
		zap.Int64("number", in.Number),
		zap.Bool("copy", in.Copy),
		zap.Int("items", len(in.Order.Items)),
		zap.Int("pages", c.PageCount()),
	)
	return Result{Pages: c.PageCount(), Totals: totals, Rows: rows}, nil
}

func (r *Renderer) header(b *build, cur layout.Cursor) (layout.Cursor, error) {
	left := b.page.MarginLeft
	width := b.page.ContentWidth()

	if r.logos == nil {
		return cur, domain.NewError(domain.CodeLogoUnavailable, "no logo source configured", nil)
	}
	img, err := r.logos.Load(b.ctx, b.in.Company.Logo)
	if err != nil {
		return cur, domain.NewError(domain.CodeLogoUnavailable, "load company logo", err)
	}
	_, h, err := b.c.Image("logo", img.Data, img.Type, left, cur.Y, logoMaxW, logoMaxH)
	if err != nil {
		return cur, domain.NewError(domain.CodeLogoUnavailable, "embed company logo", err)
	}
	logoBottom := cur.Advance(h)

	marker := "ORIGINAL"
	if b.in.Copy {
		marker = "COPY"
	}
	right := layout.TextOptions{Width: width - logoMaxW - columnGap, Align: layout.AlignRight}
	x := left + logoMaxW + columnGap

	text := cur
	right.Style = layout.Title
	text = text.Advance(b.c.TextBox(x, text.Y, "INVOICE", right))
	right.Style = layout.Heading
	text = text.Advance(b.c.TextBox(x, text.Y, marker, right))
	right.Style = layout.Body
	text = text.Advance(b.c.TextBox(x, text.Y, "No. "+FormatNumber(b.in.Number), right))
	text = text.Advance(b.c.TextBox(x, text.Y, "Date of issue: "+b.in.IssueDate.Format(DateLayout), right))

	cur = logoBottom.Max(text).Advance(sectionGap / 2)
	b.c.Line(left, cur.Y, left+width, cur.Y)
	return cur.Advance(sectionGap / 2), nil
}

func partyBlock(width float64) canvas.PairBlock {
	return canvas.PairBlock{
		LabelWidth: 70,
		ValueWidth: width - 70 - 6,
		Gap:        6,
		RowGap:     2,
		LabelAlign: layout.AlignLeft,
		ValueAlign: layout.AlignLeft,
		Label:      layout.Body,
		Value:      layout.Body,
	}
}

// SupplierPairs lists the supplier lines printed on an invoice.
func SupplierPairs(co domain.CompanyProfile) []canvas.Pair {
	pairs := []canvas.Pair{
		{Label: "Name", Value: co.CompanyName},
		{Label: "UIC", Value: co.UIC},
	}
	if v := strings.TrimSpace(co.VATNumber); v != "" {
		pairs = append(pairs, canvas.Pair{Label: "VAT No.", Value: v})
	}
	pairs = append(pairs, canvas.Pair{Label: "Address", Value: co.AddressLine()})
	if v := strings.TrimSpace(co.Representative); v != "" {
		pairs = append(pairs, canvas.Pair{Label: "Representative", Value: v})
	}
	return pairs
}

// CustomerPairs lists the customer lines; companies and individuals differ.
func CustomerPairs(cl domain.Client) []canvas.Pair {
	if cl.IsCompany {
		return []canvas.Pair{
			{Label: "Name", Value: cl.DisplayName()},
			{Label: "Reg. No.", Value: cl.Bulstat},
			{Label: "Address", Value: cl.Address},
		}
	}
	return []canvas.Pair{
		{Label: "Name", Value: cl.DisplayName()},
		{Label: "Email", Value: cl.Email},
		{Label: "Phone", Value: cl.Phone},
	}
}

func (r *Renderer) parties(b *build, cur layout.Cursor) layout.Cursor {
	left := b.page.MarginLeft
	colW := (b.page.ContentWidth() - columnGap) / 2
	heading := layout.TextOptions{Width: colW, Style: layout.Heading}
	block := partyBlock(colW)

	supplier := cur.Advance(b.c.TextBox(left, cur.Y, "Supplier", heading) + 4)
	supplier = block.Draw(b.c, left, supplier, SupplierPairs(b.in.Company))

	rightX := left + colW + columnGap
	customer := cur.Advance(b.c.TextBox(rightX, cur.Y, "Customer", heading) + 4)
	customer = block.Draw(b.c, rightX, customer, CustomerPairs(b.in.Client))

	return supplier.Max(customer).Advance(sectionGap)
}

// ItemCells formats one table row.
func ItemCells(i int, it domain.OrderItem) []string {
	return []string{
		strconv.Itoa(i + 1),
		it.Description(),
		strconv.FormatInt(it.Quantity, 10),
		it.Price.StringFixed(2),
		it.LineTotal().StringFixed(2),
	}
}

func (r *Renderer) items(b *build, cur layout.Cursor) (layout.Cursor, []RowPlacement, decimal.Decimal) {
	g := layout.InvoiceItemsGrid
	left := b.page.MarginLeft
	items := b.in.Order.Items

	head := layout.RowHeight(b.c, g, g.Titles(), layout.BodyB)
	first := head
	if len(items) > 0 {
		first += layout.RowHeight(b.c, g, ItemCells(0, items[0]), layout.Body)
	}
	if layout.EnsureRoom(b.c, b.page, cur.Y, first, rowReserve) {
		cur = layout.Top(b.page)
	}
	cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))

	// The last row keeps room for the gap and the totals so they never start a
	// page alone.
	lastReserve := r.totalsHeight(b, Totals{}) + sectionGap

	rows := make([]RowPlacement, 0, len(items))
	gross := decimal.Zero
	for i, it := range items {
		cells := ItemCells(i, it)
		h := layout.RowHeight(b.c, g, cells, layout.Body)

		reserve := rowReserve
		if i == len(items)-1 {
			reserve = lastReserve
		}
		if layout.EnsureRoom(b.c, b.page, cur.Y, h, reserve) {
			cur = layout.Top(b.page)
			cur = cur.Advance(canvas.TableHeader(b.c, g, left, cur.Y))
		}

		canvas.TableRow(b.c, g, left, cur.Y, cells, layout.Body)
		b.c.Line(left, cur.Y+h, left+g.Width(), cur.Y+h)
		rows = append(rows, RowPlacement{Page: b.c.PageCount(), Top: cur.Y, Height: h})

		gross = gross.Add(it.LineTotal())
		cur = cur.Advance(h)
	}
	return cur.Advance(sectionGap), rows, gross
}

var totalsBlock = canvas.PairBlock{
	LabelWidth: 170,
	ValueWidth: 110,
	Gap:        10,
	RowGap:     4,
	LabelAlign: layout.AlignRight,
	ValueAlign: layout.AlignRight,
	Label:      layout.Body,
	Value:      layout.BodyB,
}

func (b *build) money(v decimal.Decimal, currency string) string {
	return v.StringFixed(2) + " " + currency
}

// totalsPairs returns the lines above the emphasized total and the lines
// below it.
func (r *Renderer) totalsPairs(b *build, t Totals) (above []canvas.Pair, total canvas.Pair, below []canvas.Pair) {
	vatPct := b.set.VATRate.Mul(decimal.NewFromInt(100)).Round(2).String()
	above = []canvas.Pair{
		{Label: "Payment method", Value: PaymentLabel(b.in.Order.PaymentType, b.set.PaymentLabels)},
		{Label: "Tax base", Value: b.money(t.Subtotal, b.set.Currency)},
		{Label: "VAT " + vatPct + "%", Value: b.money(t.VAT, b.set.Currency)},
	}
	total = canvas.Pair{Label: "Total", Value: b.money(t.Gross, b.set.Currency)}
	below = []canvas.Pair{
		{Label: "Total in " + b.set.EURCurrency, Value: b.money(t.EUR, b.set.EURCurrency)},
	}
	return above, total, below
}

func totalBlock() canvas.PairBlock {
	tb := totalsBlock
	tb.Label = layout.Total
	tb.Value = layout.Total
	return tb
}

func (r *Renderer) totalsHeight(b *build, t Totals) float64 {
	above, total, below := r.totalsPairs(b, t)
	return totalsBlock.Height(b.c, above) +
		totalBlock().Height(b.c, []canvas.Pair{total}) + 4 +
		totalsBlock.Height(b.c, below)
}

func (r *Renderer) totals(b *build, cur layout.Cursor, t Totals) layout.Cursor {
	if layout.EnsureRoom(b.c, b.page, cur.Y, r.totalsHeight(b, t), 0) {
		cur = layout.Top(b.page)
	}
	above, total, below := r.totalsPairs(b, t)
	width := totalsBlock.LabelWidth + totalsBlock.Gap + totalsBlock.ValueWidth
	x := b.page.MarginLeft + b.page.ContentWidth() - width

	cur = totalsBlock.Draw(b.c, x, cur, above)

	tb := totalBlock()
	h := tb.PairHeight(b.c, total)
	b.c.FillRect(x, cur.Y-2, width, h+4, canvas.ShadeTotal)
	cur = tb.Draw(b.c, x, cur, []canvas.Pair{total}).Advance(4)

	cur = totalsBlock.Draw(b.c, x, cur, below)
	return cur.Advance(sectionGap)
}

func (r *Renderer) footerHeight(b *build, colW float64) float64 {
	label := layout.TextOptions{Width: colW, Style: layout.Body}
	name := layout.TextOptions{Width: colW, Style: layout.BodyB}
	sig := max(
		b.c.Height("Received by:", label)+b.c.Height(b.in.Client.DisplayName(), name),
		b.c.Height("Issued by:", label)+b.c.Height(b.in.Company.IssuerName(), name),
	) + signatureGap + layout.Small.LineHeight()

	disclaimer := layout.TextOptions{Width: b.page.ContentWidth(), Align: layout.AlignCenter, Style: layout.Small}
	return sig + sectionGap + b.c.Height(b.set.LegalDisclaimer, disclaimer)
}

func (r *Renderer) footer(b *build, cur layout.Cursor) layout.Cursor {
	left := b.page.MarginLeft
	colW := (b.page.ContentWidth() - columnGap) / 2
	if layout.EnsureRoom(b.c, b.page, cur.Y, r.footerHeight(b, colW), 0) {
		cur = layout.Top(b.page)
	}

	recipient := signature(b.c, left, cur, colW, "Received by:", b.in.Client.DisplayName())
	issuer := signature(b.c, left+colW+columnGap, cur, colW, "Issued by:", b.in.Company.IssuerName())
	cur = recipient.Max(issuer).Advance(sectionGap)

	if d := strings.TrimSpace(b.set.LegalDisclaimer); d != "" {
		b.c.SetTextShade(canvas.ShadeMuted)
		cur = cur.Advance(b.c.TextBox(left, cur.Y, d, layout.TextOptions{
			Width: b.page.ContentWidth(),
			Align: layout.AlignCenter,
			Style: layout.Small,
		}))
		b.c.SetTextShade(canvas.ShadeBlack)
	}
	return cur
}

func signature(c canvas.Canvas, x float64, cur layout.Cursor, w float64, label, name string) layout.Cursor {
	c.SetTextShade(canvas.ShadeMuted)
	cur = cur.Advance(c.TextBox(x, cur.Y, label, layout.TextOptions{Width: w, Style: layout.Body}))
	c.SetTextShade(canvas.ShadeBlack)
	cur = cur.Advance(c.TextBox(x, cur.Y, name, layout.TextOptions{Width: w, Style: layout.BodyB}))
	cur = cur.Advance(signatureGap)
	c.Line(x, cur.Y, x+w*0.8, cur.Y)
	c.SetTextShade(canvas.ShadeMuted)
	cur = cur.Advance(c.TextBox(x, cur.Y, "(signature)", layout.TextOptions{Width: w * 0.8, Align: layout.AlignCenter, Style: layout.Small}))
	c.SetTextShade(canvas.ShadeBlack)
	return cur
}
