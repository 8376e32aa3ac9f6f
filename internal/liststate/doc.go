// Package liststate implements the list screen state of the admin console:
// a paginated, searchable, sortable, filterable, multi-selectable view of a
// backend collection with confirmation-gated bulk mutations.
//
// A Controller is parametrized per screen by its record type, a DataService
// and a Config. The page query parameter is the only page-state channel:
// actions write it through the Navigator and the caller feeds parameter
// changes back through OnPageParam, which performs the fetch. Every producer
// of the visible list takes a request token so that a slower, older response
// never overwrites a newer one.
package liststate
