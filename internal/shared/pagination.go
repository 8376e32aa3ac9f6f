package shared

// PageLink is one entry of a pager. Gap entries render as an ellipsis.
type PageLink struct {
	Number  int
	Current bool
	Gap     bool
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata. A non-positive perPage means
// everything fits on one page.
func NewPagination(page, perPage, total int) Pagination {
	if page <= 0 {
		page = 1
	}
	totalPages := 1
	if perPage > 0 && total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Prev returns the previous page number.
func (p Pagination) Prev() int { return p.Page - 1 }

// Next returns the next page number.
func (p Pagination) Next() int { return p.Page + 1 }

// Links returns the first and last page, and the pages within radius of the
// current one, with gaps in between.
func (p Pagination) Links(radius int) []PageLink {
	if p.TotalPages <= 1 {
		return nil
	}
	var links []PageLink
	last := 0
	for n := 1; n <= p.TotalPages; n++ {
		near := n >= p.Page-radius && n <= p.Page+radius
		if n != 1 && n != p.TotalPages && !near {
			continue
		}
		if last != 0 && n-last > 1 {
			links = append(links, PageLink{Gap: true})
		}
		links = append(links, PageLink{Number: n, Current: n == p.Page})
		last = n
	}
	return links
}
