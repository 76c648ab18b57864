// Package canvas is the drawing surface documents are rendered on.
//
// Renderers depend on the Canvas interface only; PDF implements it on top of
// go-pdf/fpdf and canvastest.Recorder records calls for layout tests.
package canvas

import (
	"io"

	"github.com/smallbiznis/docrender/internal/document/layout"
)

// Shade is a gray level from 0 (black) to 255 (white).
type Shade int

const (
	ShadeBlack  Shade = 0
	ShadeMuted  Shade = 110
	ShadeRule   Shade = 190
	ShadeHeader Shade = 235
	ShadeTotal  Shade = 245
)

// Canvas is the subset of drawing primitives used by the renderers.
// Coordinates are points from the top-left corner of the current page.
type Canvas interface {
	layout.Measurer
	layout.Pager

	// Page returns the page geometry.
	Page() layout.Page
	// PageCount returns the number of pages added so far.
	PageCount() int
	// SetPage switches drawing to an existing one-based page.
	SetPage(n int)

	// Lines returns the wrapped lines exactly as TextBox would draw them.
	Lines(text string, opts layout.TextOptions) []string
	// TextBox draws wrapped text with its top-left corner at (x, y) and
	// returns the height used, which equals Height(text, opts).
	TextBox(x, y float64, text string, opts layout.TextOptions) float64
	SetTextShade(s Shade)

	Line(x1, y1, x2, y2 float64)
	StrokeRect(x, y, w, h float64)
	FillRect(x, y, w, h float64, s Shade)

	// Image places an image scaled to fit into maxW×maxH, keeping its aspect
	// ratio, and returns the drawn size. imageType is "PNG" or "JPG".
	Image(name string, data []byte, imageType string, x, y, maxW, maxH float64) (w, h float64, err error)

	// Err reports the first drawing error, if any.
	Err() error
	// Output closes the document and writes it to w.
	Output(w io.Writer) error
}
