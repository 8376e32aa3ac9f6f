// Package newsletters lists newsletter subscribers.
package newsletters

import (
	"time"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
)

// Newsletter is a subscribed email address.
type Newsletter struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements liststate.Record.
func (n Newsletter) RecordID() string { return n.ID }

// Screen returns the subscriber list screen.
func Screen() listview.Screen[Newsletter] {
	return listview.Screen[Newsletter]{
		Name:     "newsletters",
		Title:    "Newsletter subscribers",
		Path:     "/newsletters",
		Resource: "newsletter",
		Config: liststate.Config{
			PageSize:    5,
			Select:      liststate.Projection{"email": 1, "createdAt": 1},
			DefaultSort: liststate.Sort{"createdAt": liststate.SortDesc},
		},
		Columns: []listview.Column[Newsletter]{
			{Header: "Email", SortKey: "email", Value: func(n Newsletter) string { return n.Email }},
			{Header: "Subscribed", SortKey: "createdAt", Value: func(n Newsletter) string { return n.CreatedAt.Format("02 Jan 2006 15:04") }},
		},
		Filters: []listview.FilterField{
			{Key: "createdAt", Label: "Subscribed", Kind: listview.FilterDateRange},
		},
	}
}
