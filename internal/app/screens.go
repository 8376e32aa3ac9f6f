package app

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/banners"
	"github.com/odyssey-erp/storefront-admin/internal/discounts"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
	"github.com/odyssey-erp/storefront-admin/internal/newsletters"
	"github.com/odyssey-erp/storefront-admin/internal/zones"
)

// ScreenRoute is a list screen mounted under Path.
type ScreenRoute struct {
	Path  string
	Title string
	Mount func(r chi.Router)
}

// Screens builds the list screens of the console. bannerForm is mounted next
// to the banner list when set.
func Screens(deps listview.Deps, client *backend.Client, bannerForm *banners.FormHandler) []ScreenRoute {
	zoneScreen := zones.Screen()
	zoneList := listview.NewHandler(deps, zoneScreen, listview.BackendService[zones.Zone](client, zoneScreen.Resource))

	newsletterScreen := newsletters.Screen()
	newsletterList := listview.NewHandler(deps, newsletterScreen, listview.BackendService[newsletters.Newsletter](client, newsletterScreen.Resource))

	discountScreen := discounts.Screen()
	discountList := listview.NewHandler(deps, discountScreen, listview.BackendService[discounts.DiscountPercent](client, discountScreen.Resource))

	bannerScreen := banners.Screen()
	bannerList := listview.NewHandler(deps, bannerScreen, listview.BackendService[banners.Banner](client, bannerScreen.Resource))

	return []ScreenRoute{
		{Path: zoneScreen.Path, Title: zoneScreen.Title, Mount: zoneList.MountRoutes},
		{Path: newsletterScreen.Path, Title: newsletterScreen.Title, Mount: newsletterList.MountRoutes},
		{Path: discountScreen.Path, Title: discountScreen.Title, Mount: discountList.MountRoutes},
		{Path: bannerScreen.Path, Title: bannerScreen.Title, Mount: func(r chi.Router) {
			bannerList.MountRoutes(r)
			if bannerForm != nil {
				bannerForm.MountRoutes(r)
			}
		}},
	}
}
