package layout

// Column is one column of a fixed table layout.
type Column struct {
	Key   string
	Title string
	Width float64
	Align Align
}

// Grid is a fixed column table. CellPadding is applied above and below the
// tallest cell of each row and inside each cell horizontally.
type Grid struct {
	Columns     []Column
	CellPadding float64
}

// Width is the sum of the column widths.
func (g Grid) Width() float64 {
	var w float64
	for _, c := range g.Columns {
		w += c.Width
	}
	return w
}

// X returns the left edge of column i for a table starting at left.
func (g Grid) X(left float64, i int) float64 {
	x := left
	for j := 0; j < i && j < len(g.Columns); j++ {
		x += g.Columns[j].Width
	}
	return x
}

// TextWidth is the wrap width available to text in column i.
func (g Grid) TextWidth(i int) float64 {
	w := g.Columns[i].Width - 2*g.CellPadding
	if w < 1 {
		return 1
	}
	return w
}

// Titles returns the header titles in column order.
func (g Grid) Titles() []string {
	out := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		out[i] = c.Title
	}
	return out
}

// RowHeight measures every cell and returns the tallest plus vertical padding.
// Cells beyond the column count are ignored.
func RowHeight(m Measurer, g Grid, cells []string, style TextStyle) float64 {
	var tallest float64
	for i, text := range cells {
		if i >= len(g.Columns) {
			break
		}
		h := m.Height(text, TextOptions{
			Width: g.TextWidth(i),
			Align: g.Columns[i].Align,
			Style: style,
		})
		if h > tallest {
			tallest = h
		}
	}
	if tallest == 0 {
		tallest = style.LineHeight()
	}
	return tallest + 2*g.CellPadding
}

// Fixed tables. Widths add up to A4.ContentWidth() rounded down.
var (
	InvoiceItemsGrid = Grid{
		CellPadding: 4,
		Columns: []Column{
			{Key: "no", Title: "#", Width: 25, Align: AlignCenter},
			{Key: "description", Title: "Description", Width: 235, Align: AlignLeft},
			{Key: "quantity", Title: "Qty", Width: 45, Align: AlignRight},
			{Key: "price", Title: "Unit price", Width: 100, Align: AlignRight},
			{Key: "total", Title: "Amount", Width: 110, Align: AlignRight},
		},
	}

	WarrantyItemsGrid = Grid{
		CellPadding: 4,
		Columns: []Column{
			{Key: "no", Title: "#", Width: 25, Align: AlignCenter},
			{Key: "product", Title: "Product", Width: 215, Align: AlignLeft},
			{Key: "serial", Title: "Serial number", Width: 120, Align: AlignLeft},
			{Key: "warranty", Title: "Warranty (months)", Width: 70, Align: AlignCenter},
			{Key: "expiry", Title: "Valid until", Width: 85, Align: AlignCenter},
		},
	}

	RepairLogGrid = Grid{
		CellPadding: 4,
		Columns: []Column{
			{Key: "date", Title: "Date", Width: 80, Align: AlignCenter},
			{Key: "description", Title: "Repair description", Width: 235, Align: AlignLeft},
			{Key: "technician", Title: "Technician", Width: 110, Align: AlignLeft},
			{Key: "signature", Title: "Signature", Width: 90, Align: AlignCenter},
		},
	}
)

// RepairLogRowHeight is the fixed height of an empty repair log row.
const RepairLogRowHeight = 22
