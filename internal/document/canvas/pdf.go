package canvas

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/smallbiznis/docrender/internal/document/layout"
)

const (
	embeddedFamily = "docfont"
	coreFamily     = "Helvetica"
	ruleWidth      = 0.5
)

// Metadata is written to the PDF info dictionary.
type Metadata struct {
	Title   string
	Author  string
	Subject string
	Created time.Time
}

// PDF is a Canvas backed by go-pdf/fpdf. One PDF is one document build and
// must not be shared between goroutines.
type PDF struct {
	doc    *fpdf.Fpdf
	page   layout.Page
	family string
	utf8   bool
	tr     func(string) string
}

// NewPDF creates a document with its first page already added. Automatic page
// breaks are disabled: callers place every block themselves.
func NewPDF(page layout.Page, fonts FontSet, meta Metadata) *PDF {
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	doc.SetMargins(page.MarginLeft, page.MarginTop, page.MarginRight)
	doc.SetAutoPageBreak(false, page.MarginBottom)
	doc.SetCellMargin(0)
	doc.SetLineWidth(ruleWidth)

	c := &PDF{doc: doc, page: page, family: coreFamily, tr: func(s string) string { return s }}
	if !fonts.Empty() {
		doc.AddUTF8FontFromBytes(embeddedFamily, "", fonts.Regular)
		doc.AddUTF8FontFromBytes(embeddedFamily, "B", fonts.Bold)
		c.family = embeddedFamily
		c.utf8 = true
	} else {
		c.tr = doc.UnicodeTranslatorFromDescriptor("")
	}

	if meta.Title != "" {
		doc.SetTitle(meta.Title, true)
	}
	if meta.Author != "" {
		doc.SetAuthor(meta.Author, true)
	}
	if meta.Subject != "" {
		doc.SetSubject(meta.Subject, true)
	}
	doc.SetCreator("docrender", true)
	if !meta.Created.IsZero() {
		doc.SetCreationDate(meta.Created)
		doc.SetModificationDate(meta.Created)
	}

	doc.AddPage()
	c.setStyle(layout.Body)
	return c
}

func (c *PDF) Page() layout.Page { return c.page }

func (c *PDF) AddPage() { c.doc.AddPage() }

func (c *PDF) PageCount() int { return c.doc.PageCount() }

func (c *PDF) SetPage(n int) { c.doc.SetPage(n) }

func (c *PDF) Err() error { return c.doc.Error() }

func (c *PDF) Output(w io.Writer) error { return c.doc.Output(w) }

func (c *PDF) setStyle(s layout.TextStyle) {
	style := ""
	if s.Bold {
		style = "B"
	}
	c.doc.SetFont(c.family, style, s.Size)
}

// Height implements layout.Measurer.
func (c *PDF) Height(text string, opts layout.TextOptions) float64 {
	return float64(len(c.Lines(text, opts))) * opts.Style.LineHeight()
}

// Lines wraps text the way fpdf's MultiCell does: explicit newlines always
// break, otherwise the line breaks at the last space once the accumulated
// glyph width exceeds the box, or mid-word when there is no space. The last
// chunk is always emitted, so empty text is one line.
func (c *PDF) Lines(text string, opts layout.TextOptions) []string {
	c.setStyle(opts.Style)
	glyphs := c.glyphs(text)

	nb := len(glyphs)
	if c.utf8 {
		for nb > 0 && glyphs[nb-1] == "\n" {
			nb--
		}
	} else if nb > 0 && glyphs[nb-1] == "\n" {
		nb--
	}
	glyphs = glyphs[:nb]

	_, fontSize := c.doc.GetFontSize()
	wmax := int(math.Ceil((opts.Width - 2*c.doc.GetCellMargin()) * 1000 / fontSize))

	var lines []string
	sep, i, j, l := -1, 0, 0, 0
	for i < nb {
		g := glyphs[i]
		if g == "\n" {
			lines = append(lines, strings.Join(glyphs[j:i], ""))
			i++
			sep, j, l = -1, i, 0
			continue
		}
		if g == " " {
			sep = i
		}
		l += c.glyphWidth(g)
		if l > wmax {
			if sep == -1 {
				if i == j {
					i++
				}
				lines = append(lines, strings.Join(glyphs[j:i], ""))
			} else {
				lines = append(lines, strings.Join(glyphs[j:sep], ""))
				i = sep + 1
			}
			sep, j, l = -1, i, 0
		} else {
			i++
		}
	}
	return append(lines, strings.Join(glyphs[j:i], ""))
}

// glyphs splits text into runes. MultiCell iterates over runes for embedded
// fonts and over cp1252 bytes for core fonts; the translator maps every rune
// to exactly one byte, so both walk the same sequence.
func (c *PDF) glyphs(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func (c *PDF) glyphWidth(g string) int {
	if c.utf8 {
		return c.doc.GetStringSymbolWidth(g)
	}
	return c.doc.GetStringSymbolWidth(c.tr(g))
}

// TextBox implements Canvas.
func (c *PDF) TextBox(x, y float64, text string, opts layout.TextOptions) float64 {
	h := c.Height(text, opts)
	c.setStyle(opts.Style)
	c.doc.SetXY(x, y)
	align := string(opts.Align)
	if align == "" {
		align = string(layout.AlignLeft)
	}
	body := strings.ReplaceAll(text, "\r", "")
	if !c.utf8 {
		body = c.tr(body)
	}
	c.doc.MultiCell(opts.Width, opts.Style.LineHeight(), body, "", align, false)
	return h
}

func (c *PDF) SetTextShade(s Shade) {
	c.doc.SetTextColor(int(s), int(s), int(s))
}

func (c *PDF) Line(x1, y1, x2, y2 float64) {
	c.doc.SetDrawColor(int(ShadeRule), int(ShadeRule), int(ShadeRule))
	c.doc.Line(x1, y1, x2, y2)
}

func (c *PDF) StrokeRect(x, y, w, h float64) {
	c.doc.SetDrawColor(int(ShadeMuted), int(ShadeMuted), int(ShadeMuted))
	c.doc.Rect(x, y, w, h, "D")
}

func (c *PDF) FillRect(x, y, w, h float64, s Shade) {
	c.doc.SetFillColor(int(s), int(s), int(s))
	c.doc.Rect(x, y, w, h, "F")
}

// Image implements Canvas. A failed registration is reported and cleared so
// the rest of the document can still be produced.
func (c *PDF) Image(name string, data []byte, imageType string, x, y, maxW, maxH float64) (float64, float64, error) {
	if err := c.doc.Error(); err != nil {
		return 0, 0, err
	}
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	info := c.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := c.doc.Error(); err != nil {
		c.doc.ClearError()
		return 0, 0, fmt.Errorf("register image %s: %w", name, err)
	}
	if info == nil {
		return 0, 0, fmt.Errorf("register image %s: no image info", name)
	}

	w, h := fitBox(info.Width(), info.Height(), maxW, maxH)
	c.doc.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if err := c.doc.Error(); err != nil {
		c.doc.ClearError()
		return 0, 0, fmt.Errorf("place image %s: %w", name, err)
	}
	return w, h, nil
}

func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := math.Min(maxW/w, maxH/h)
	return w * scale, h * scale
}
