package repository

// MaxPageSize caps the rows any paged query returns.
const MaxPageSize = 100

// Page selects a window of a result set.
type Page struct {
	Number int
	Size   int
}

// normalize clamps the page to sane bounds and returns LIMIT/OFFSET values.
func (p Page) normalize(defaultSize int) (Page, int, int) {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p, p.Size, (p.Number - 1) * p.Size
}
