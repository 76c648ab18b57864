package layout

// Pager starts new pages.
type Pager interface {
	AddPage()
}

// Fits reports whether a block of blockHeight starting at y ends above the
// page limit once reserveBottom is kept free.
func Fits(page Page, y, blockHeight, reserveBottom float64) bool {
	return y+blockHeight <= page.Limit(reserveBottom)
}

// EnsureRoom starts a new page when the block would overflow and reports
// whether it did. It never moves the caller's cursor: after a break the caller
// resets its position itself (usually to Top(page)).
func EnsureRoom(p Pager, page Page, y, blockHeight, reserveBottom float64) bool {
	if Fits(page, y, blockHeight, reserveBottom) {
		return false
	}
	p.AddPage()
	return true
}
