// Package banners lists storefront banners and edits them.
package banners

import (
	"time"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
)

// Banner is a storefront banner.
type Banner struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image"`
	MobileImage string    `json:"mobileImage,omitempty"`
	BannerType  string    `json:"bannerType"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordID implements liststate.Record.
func (b Banner) RecordID() string { return b.ID }

// Resource is the backend collection of banners.
const Resource = "banner"

// Types are the placements a banner can target.
var Types = []listview.Option{
	{Value: "home", Label: "Home Banner"},
	{Value: "allTickets", Label: "All Tickets Banner"},
	{Value: "login", Label: "Login Banner"},
}

// Screen returns the banner list screen.
func Screen() listview.Screen[Banner] {
	return listview.Screen[Banner]{
		Name:     "banners",
		Title:    "Banners",
		Path:     "/banners",
		Resource: Resource,
		Config: liststate.Config{
			PageSize:    10,
			Select:      liststate.Projection{"name": 1, "image": 1, "bannerType": 1, "url": 1, "createdAt": 1},
			DefaultSort: liststate.Sort{"createdAt": liststate.SortDesc},
		},
		Columns: []listview.Column[Banner]{
			{Header: "Name", SortKey: "name", Value: func(b Banner) string { return b.Name }},
			{Header: "Placement", SortKey: "bannerType", Value: func(b Banner) string { return typeLabel(b.BannerType) }},
			{Header: "Link", Value: func(b Banner) string { return b.URL }},
			{Header: "Created", SortKey: "createdAt", Value: func(b Banner) string { return b.CreatedAt.Format("02 Jan 2006") }},
		},
		Filters: []listview.FilterField{
			{Key: "bannerType", Label: "Placement", Kind: listview.FilterSelect, Options: Types},
		},
		CreatePath: "/banners/new",
		EditPath:   func(b Banner) string { return "/banners/edit/" + b.ID },
	}
}

func typeLabel(v string) string {
	for _, t := range Types {
		if t.Value == v {
			return t.Label
		}
	}
	return v
}
