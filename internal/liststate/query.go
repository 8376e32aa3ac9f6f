package liststate

import "time"

// Sort directions as understood by the backend.
const (
	SortAsc  = 1
	SortDesc = -1
)

// Pagination is the wire form of the requested page. CurrentPage is zero based.
type Pagination struct {
	PageSize    int `json:"pageSize"`
	CurrentPage int `json:"currentPage"`
}

// Filter is an opaque attribute filter passed straight through to the backend.
type Filter map[string]any

// Projection maps a field name to an inclusion flag.
type Projection map[string]int

// Sort maps a field name to a direction.
type Sort map[string]int

// Query is the list request sent to the data service. It is built fresh for
// every fetch and never stored.
type Query struct {
	Pagination *Pagination `json:"pagination"`
	Filter     Filter      `json:"filter"`
	Select     Projection  `json:"select"`
	Sort       Sort        `json:"sort"`
}

// Fields returns the projected field names, useful for logging.
func (p Projection) Fields() []string {
	fields := make([]string, 0, len(p))
	for f, on := range p {
		if on != 0 {
			fields = append(fields, f)
		}
	}
	return fields
}

func (f Filter) clone() Filter {
	if f == nil {
		return nil
	}
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (s Sort) clone() Sort {
	out := make(Sort, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DateRange builds the filter value for a createdAt style range. Zero bounds
// are left open.
func DateRange(from, to time.Time) map[string]any {
	rng := make(map[string]any, 2)
	if !from.IsZero() {
		rng["$gte"] = from.UTC().Format(time.RFC3339)
	}
	if !to.IsZero() {
		rng["$lte"] = to.UTC().Format(time.RFC3339)
	}
	return rng
}
