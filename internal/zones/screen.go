package zones

import (
	"strconv"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
)

// Screen returns the zone list screen.
func Screen() listview.Screen[Zone] {
	divisions := make([]listview.Option, 0, len(Divisions))
	for _, d := range Divisions {
		divisions = append(divisions, listview.Option{Value: d, Label: d})
	}
	return listview.Screen[Zone]{
		Name:     "zones",
		Title:    "Zones",
		Path:     "/zones",
		Resource: "zone",
		Config: liststate.Config{
			PageSize:    10,
			Select:      liststate.Projection{"name": 1, "division": 1, "area": 1, "priority": 1, "status": 1, "createdAt": 1},
			DefaultSort: liststate.Sort{"createdAt": liststate.SortDesc},
		},
		Columns: []listview.Column[Zone]{
			{Header: "Name", SortKey: "name", Value: func(z Zone) string { return z.Name }},
			{Header: "Division", SortKey: "division", Value: func(z Zone) string { return z.Division }},
			{Header: "Area", Value: func(z Zone) string { return z.Area }},
			{Header: "Priority", SortKey: "priority", Value: func(z Zone) string { return strconv.Itoa(z.Priority) }},
			{Header: "Status", Value: func(z Zone) string { return z.Status }},
			{Header: "Created", SortKey: "createdAt", Value: func(z Zone) string { return z.CreatedAt.Format("02 Jan 2006") }},
		},
		Filters: []listview.FilterField{
			{Key: "status", Label: "Status", Kind: listview.FilterSelect, Options: []listview.Option{
				{Value: StatusPublish, Label: "Published"},
				{Value: StatusDraft, Label: "Draft"},
			}},
			{Key: "division", Label: "Division", Kind: listview.FilterSelect, Options: divisions},
		},
		BulkUpdates: []listview.BulkUpdate{
			{Key: "publish", Label: "Publish", Patch: liststate.Patch{"status": StatusPublish}},
			{Key: "draft", Label: "Move to draft", Patch: liststate.Patch{"status": StatusDraft}},
		},
	}
}
