// Package discounts lists percentage discounts.
package discounts

import (
	"strconv"
	"time"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
)

// DiscountPercent is a percentage discount of a given type.
type DiscountPercent struct {
	ID              string    `json:"_id"`
	DiscountType    string    `json:"discountType"`
	DiscountPercent float64   `json:"discountPercent"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RecordID implements liststate.Record.
func (d DiscountPercent) RecordID() string { return d.ID }

// Types offered by the discount type filter.
var Types = []listview.Option{
	{Value: "online", Label: "Online payment"},
	{Value: "cashOnDelivery", Label: "Cash on delivery"},
	{Value: "membership", Label: "Membership"},
}

// Screen returns the discount list screen.
func Screen() listview.Screen[DiscountPercent] {
	return listview.Screen[DiscountPercent]{
		Name:     "discounts",
		Title:    "Discounts",
		Path:     "/discounts",
		Resource: "discount-percent",
		Config: liststate.Config{
			PageSize:    5,
			Select:      liststate.Projection{"discountType": 1, "discountPercent": 1, "createdAt": 1},
			DefaultSort: liststate.Sort{"createdAt": liststate.SortDesc},
		},
		Columns: []listview.Column[DiscountPercent]{
			{Header: "Type", SortKey: "discountType", Value: func(d DiscountPercent) string { return typeLabel(d.DiscountType) }},
			{Header: "Percent", SortKey: "discountPercent", Value: func(d DiscountPercent) string {
				return strconv.FormatFloat(d.DiscountPercent, 'f', -1, 64) + "%"
			}},
			{Header: "Created", SortKey: "createdAt", Value: func(d DiscountPercent) string { return d.CreatedAt.Format("02 Jan 2006") }},
		},
		Filters: []listview.FilterField{
			{Key: "discountType", Label: "Type", Kind: listview.FilterSelect, Options: Types},
			{Key: "createdAt", Label: "Created", Kind: listview.FilterDateRange},
		},
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
