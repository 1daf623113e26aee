package models

// Page is one page of a paginated listing.
type Page[T any] struct {
	Docs  []T   `json:"docs"`
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

// NewPage fills in the page count from total and limit.
func NewPage[T any](docs []T, total int64, limit, page int) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Docs: docs, Total: total, Limit: limit, Page: page, Pages: pages}
}

// MapPage converts the documents of a page, keeping its counters.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Docs))
	for _, d := range p.Docs {
		out = append(out, fn(d))
	}
	return Page[U]{Docs: out, Total: p.Total, Limit: p.Limit, Page: p.Page, Pages: p.Pages}
}
