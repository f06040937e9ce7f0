package db

// Page selects one page of a list. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane values, using defaultSize when unset.
func (p Page) Normalize(defaultSize int) Page {
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > 500 {
		p.Size = 500
	}
	if p.Number < 1 {
		p.Number = 1
	}
	return p
}

// Offset is the row offset for LIMIT/OFFSET queries.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// List is one page of results plus the unpaged total.
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"per_page"`
}

// NewList wraps items for page p.
func NewList[T any](items []T, total int, p Page) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Total: total, Page: p.Number, Size: p.Size}
}

// Pages is the number of pages needed for Total.
func (l List[T]) Pages() int {
	if l.Size <= 0 {
		return 1
	}
	n := (l.Total + l.Size - 1) / l.Size
	if n < 1 {
		return 1
	}
	return n
}

// HasPrev reports whether a previous page exists.
func (l List[T]) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a next page exists.
func (l List[T]) HasNext() bool { return l.Page < l.Pages() }

// PrevPage is the previous page number.
func (l List[T]) PrevPage() int { return l.Page - 1 }

// NextPage is the next page number.
func (l List[T]) NextPage() int { return l.Page + 1 }
