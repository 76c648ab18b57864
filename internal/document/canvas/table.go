package canvas

import "github.com/smallbiznis/docrender/internal/document/layout"

// TableHeader draws the shaded title row of g at y and returns its height.
func TableHeader(c Canvas, g layout.Grid, left, y float64) float64 {
	titles := g.Titles()
	h := layout.RowHeight(c, g, titles, layout.BodyB)
	c.FillRect(left, y, g.Width(), h, ShadeHeader)
	TableRow(c, g, left, y, titles, layout.BodyB)
	c.Line(left, y+h, left+g.Width(), y+h)
	return h
}

// TableRow draws cells at a shared row top. Every cell starts at y plus the
// grid padding; the caller measures the row and draws the rule.
func TableRow(c Canvas, g layout.Grid, left, y float64, cells []string, style layout.TextStyle) {
	for i, text := range cells {
		if i >= len(g.Columns) {
			break
		}
		c.TextBox(g.X(left, i)+g.CellPadding, y+g.CellPadding, text, layout.TextOptions{
			Width: g.TextWidth(i),
			Align: g.Columns[i].Align,
			Style: style,
		})
	}
}

// Pair is one label/value line of an information or totals block.
type Pair struct {
	Label string
	Value string
}

// PairBlock describes how label/value pairs are laid out.
type PairBlock struct {
	LabelWidth float64
	ValueWidth float64
	Gap        float64
	RowGap     float64
	LabelAlign layout.Align
	ValueAlign layout.Align
	Label      layout.TextStyle
	Value      layout.TextStyle
}

func (b PairBlock) labelOpts() layout.TextOptions {
	return layout.TextOptions{Width: b.LabelWidth, Align: b.LabelAlign, Style: b.Label}
}

func (b PairBlock) valueOpts() layout.TextOptions {
	return layout.TextOptions{Width: b.ValueWidth, Align: b.ValueAlign, Style: b.Value}
}

// PairHeight is the height of one pair: the taller of label and value.
func (b PairBlock) PairHeight(m layout.Measurer, p Pair) float64 {
	return max(m.Height(p.Label, b.labelOpts()), m.Height(p.Value, b.valueOpts()))
}

// Height measures all pairs including the gaps between them.
func (b PairBlock) Height(m layout.Measurer, pairs []Pair) float64 {
	var h float64
	for _, p := range pairs {
		h += b.PairHeight(m, p) + b.RowGap
	}
	return h
}

// Draw renders pairs starting at (x, y) and returns the cursor below them.
func (b PairBlock) Draw(c Canvas, x float64, cur layout.Cursor, pairs []Pair) layout.Cursor {
	for _, p := range pairs {
		h := b.PairHeight(c, p)
		c.SetTextShade(ShadeMuted)
		c.TextBox(x, cur.Y, p.Label, b.labelOpts())
		c.SetTextShade(ShadeBlack)
		c.TextBox(x+b.LabelWidth+b.Gap, cur.Y, p.Value, b.valueOpts())
		cur = cur.Advance(h + b.RowGap)
	}
	return cur
}
