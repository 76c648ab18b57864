// Package canvastest provides a deterministic in-memory Canvas for layout
// tests.
package canvastest

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/docrender/internal/document/canvas"
	"github.com/smallbiznis/docrender/internal/document/layout"
)

// GlyphWidth is the advance of every glyph as a fraction of the font size.
const GlyphWidth = 0.5

// Text is one TextBox call.
type Text struct {
	X, Y   float64
	Height float64
	Text   string
	Lines  []string
	Opts   layout.TextOptions
	Shade  canvas.Shade
}

// Rect is one FillRect or StrokeRect call.
type Rect struct {
	X, Y, W, H float64
	Fill       bool
	Shade      canvas.Shade
}

// Image is one successful Image call.
type Image struct {
	Name       string
	Type       string
	X, Y, W, H float64
}

// Page holds everything drawn on one page.
type Page struct {
	Texts  []Text
	Rects  []Rect
	Lines  int
	Images []Image
}

// Recorder implements canvas.Canvas without producing PDF output. Text is
// measured at GlyphWidth × size per rune and wrapped greedily at spaces.
type Recorder struct {
	Pages []*Page

	// ImageErr, when set, is returned by every Image call.
	ImageErr error
	// OutputErr, when set, is returned by Output.
	OutputErr error
	// Written counts Output calls.
	Written int

	page    layout.Page
	current int
	shade   canvas.Shade
}

var _ canvas.Canvas = (*Recorder)(nil)

// New returns a Recorder with its first page added.
func New(page layout.Page) *Recorder {
	r := &Recorder{page: page}
	r.AddPage()
	return r
}

func (r *Recorder) Page() layout.Page { return r.page }

func (r *Recorder) AddPage() {
	r.Pages = append(r.Pages, &Page{})
	r.current = len(r.Pages)
}

func (r *Recorder) PageCount() int { return len(r.Pages) }

func (r *Recorder) SetPage(n int) {
	if n >= 1 && n <= len(r.Pages) {
		r.current = n
	}
}

func (r *Recorder) cur() *Page { return r.Pages[r.current-1] }

func (r *Recorder) Height(text string, opts layout.TextOptions) float64 {
	return float64(len(r.Lines(text, opts))) * opts.Style.LineHeight()
}

func (r *Recorder) Lines(text string, opts layout.TextOptions) []string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r", ""), "\n")
	maxRunes := int(opts.Width / (GlyphWidth * opts.Style.Size))
	if maxRunes < 1 {
		maxRunes = 1
	}

	var out []string
	for _, para := range strings.Split(text, "\n") {
		out = append(out, wrap(para, maxRunes)...)
	}
	return out
}

func wrap(para string, maxRunes int) []string {
	if utf8.RuneCountInString(para) <= maxRunes {
		return []string{para}
	}
	var out []string
	line := ""
	for _, word := range strings.Split(para, " ") {
		for utf8.RuneCountInString(word) > maxRunes {
			if line != "" {
				out = append(out, line)
				line = ""
			}
			runes := []rune(word)
			out = append(out, string(runes[:maxRunes]))
			word = string(runes[maxRunes:])
		}
		switch {
		case line == "":
			line = word
		case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= maxRunes:
			line += " " + word
		default:
			out = append(out, line)
			line = word
		}
	}
	return append(out, line)
}

func (r *Recorder) TextBox(x, y float64, text string, opts layout.TextOptions) float64 {
	lines := r.Lines(text, opts)
	h := float64(len(lines)) * opts.Style.LineHeight()
	p := r.cur()
	p.Texts = append(p.Texts, Text{X: x, Y: y, Height: h, Text: text, Lines: lines, Opts: opts, Shade: r.shade})
	return h
}

func (r *Recorder) SetTextShade(s canvas.Shade) { r.shade = s }

func (r *Recorder) Line(x1, y1, x2, y2 float64) { r.cur().Lines++ }

func (r *Recorder) StrokeRect(x, y, w, h float64) {
	p := r.cur()
	p.Rects = append(p.Rects, Rect{X: x, Y: y, W: w, H: h})
}

func (r *Recorder) FillRect(x, y, w, h float64, s canvas.Shade) {
	p := r.cur()
	p.Rects = append(p.Rects, Rect{X: x, Y: y, W: w, H: h, Fill: true, Shade: s})
}

func (r *Recorder) Image(name string, data []byte, imageType string, x, y, maxW, maxH float64) (float64, float64, error) {
	if r.ImageErr != nil {
		return 0, 0, r.ImageErr
	}
	p := r.cur()
	p.Images = append(p.Images, Image{Name: name, Type: imageType, X: x, Y: y, W: maxW, H: maxH})
	return maxW, maxH, nil
}

func (r *Recorder) Err() error { return nil }

func (r *Recorder) Output(w io.Writer) error {
	if r.OutputErr != nil {
		return r.OutputErr
	}
	r.Written++
	_, err := io.WriteString(w, "%PDF-recorded\n")
	return err
}

// FindText returns the page (one-based) and entry of the first TextBox whose
// text contains sub, or 0 when none does.
func (r *Recorder) FindText(sub string) (int, Text) {
	for i, p := range r.Pages {
		for _, t := range p.Texts {
			if strings.Contains(t.Text, sub) {
				return i + 1, t
			}
		}
	}
	return 0, Text{}
}

// Count returns how many TextBox calls across all pages contain sub.
func (r *Recorder) Count(sub string) int {
	n := 0
	for _, p := range r.Pages {
		for _, t := range p.Texts {
			if strings.Contains(t.Text, sub) {
				n++
			}
		}
	}
	return n
}

// AllText joins every drawn text in order, one entry per line.
func (r *Recorder) AllText() string {
	var b strings.Builder
	for _, p := range r.Pages {
		for _, t := range p.Texts {
			b.WriteString(t.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
