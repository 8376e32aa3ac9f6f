package listview

import (
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// Column renders one cell of a row.
type Column[T liststate.Record] struct {
	Header string
	// SortKey enables sorting on the backend field; empty disables it.
	SortKey string
	Value   func(T) string
}

// Option is a choice of a select filter.
type Option struct {
	Value string
	Label string
}

// FilterKind selects how a filter is rendered and parsed.
type FilterKind string

const (
	FilterSelect    FilterKind = "select"
	FilterDateRange FilterKind = "date_range"
)

// FilterField is one filter control of a screen.
type FilterField struct {
	Key     string
	Label   string
	Kind    FilterKind
	Options []Option
}

// BulkUpdate is a named patch offered as a bulk action.
type BulkUpdate struct {
	Key   string
	Label string
	Patch liststate.Patch
}

// Screen describes a list screen for one record type.
type Screen[T liststate.Record] struct {
	// Name is the registry and metrics name, and the reload topic.
	Name  string
	Title string
	// Path is where the screen is mounted, e.g. "/zones".
	Path string
	// Resource is the backend collection, e.g. "zone".
	Resource    string
	Config      liststate.Config
	Columns     []Column[T]
	Filters     []FilterField
	BulkUpdates []BulkUpdate
	// CreatePath and EditPath link to the record form when set.
	CreatePath string
	EditPath   func(T) string
}

func (s Screen[T]) bulkUpdate(key string) (BulkUpdate, bool) {
	for _, b := range s.BulkUpdates {
		if b.Key == key {
			return b, true
		}
	}
	return BulkUpdate{}, false
}

func (s Screen[T]) filter(key string) (FilterField, bool) {
	for _, f := range s.Filters {
		if f.Key == key {
			return f, true
		}
	}
	return FilterField{}, false
}

func (s Screen[T]) sortable(field string) bool {
	for _, c := range s.Columns {
		if c.SortKey != "" && c.SortKey == field {
			return true
		}
	}
	return false
}
