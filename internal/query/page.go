package query

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// Paginate cuts a 1-based page out of items. Out-of-range pages are empty,
// never an error.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	pages := (total + size - 1) / size

	// pages past the end are cut before multiplying so huge page numbers
	// cannot overflow
	start := total
	if page <= pages {
		start = (page - 1) * size
	}
	end := start + size
	if end > total {
		end = total
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return Page[T]{
		Items:    out,
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    pages,
	}
}
