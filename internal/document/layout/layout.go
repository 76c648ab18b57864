// Package layout holds the fixed geometry of generated documents and the pure
// helpers that decide where blocks go: row height measurement, the explicit
// vertical cursor and the page-break check.
package layout

// Align is a horizontal text alignment understood by the drawing backend.
type Align string

const (
	AlignLeft    Align = "L"
	AlignCenter  Align = "C"
	AlignRight   Align = "R"
	AlignJustify Align = "J"
)

// lineSpacing is the line height as a multiple of the font size.
const lineSpacing = 1.25

// TextStyle selects the font variant and size in points.
type TextStyle struct {
	Bold bool
	Size float64
}

// LineHeight is the height of one rendered line of text.
func (s TextStyle) LineHeight() float64 {
	return s.Size * lineSpacing
}

var (
	Title   = TextStyle{Bold: true, Size: 18}
	Heading = TextStyle{Bold: true, Size: 10}
	Body    = TextStyle{Size: 9}
	BodyB   = TextStyle{Bold: true, Size: 9}
	Small   = TextStyle{Size: 7.5}
	Total   = TextStyle{Bold: true, Size: 11}
)

// TextOptions describes how a block of text is wrapped.
type TextOptions struct {
	Width float64
	Align Align
	Style TextStyle
}

// Measurer returns the rendered height of text wrapped to opts.Width. It must
// agree exactly with what the drawing backend produces for the same input.
type Measurer interface {
	Height(text string, opts TextOptions) float64
}

// Page is the page geometry in points.
type Page struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
}

// A4 portrait in points.
var A4 = Page{
	Width:        595.28,
	Height:       841.89,
	MarginTop:    40,
	MarginBottom: 50,
	MarginLeft:   40,
	MarginRight:  40,
}

// ContentWidth is the printable width between the side margins.
func (p Page) ContentWidth() float64 {
	return p.Width - p.MarginLeft - p.MarginRight
}

// Limit is the lowest y content may reach, given a bottom reserve.
func (p Page) Limit(reserveBottom float64) float64 {
	return p.Height - p.MarginBottom - reserveBottom
}

// Cursor is the vertical draw position. Drawing helpers take a cursor and
// return the advanced one.
type Cursor struct {
	Y float64
}

// Top returns a cursor at the top margin of p.
func Top(p Page) Cursor {
	return Cursor{Y: p.MarginTop}
}

// Advance moves the cursor down by dy.
func (c Cursor) Advance(dy float64) Cursor {
	return Cursor{Y: c.Y + dy}
}

// Max returns the lower of the two positions on the page.
func (c Cursor) Max(o Cursor) Cursor {
	if o.Y > c.Y {
		return o
	}
	return c
}
