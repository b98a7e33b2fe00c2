package controllers

import (
	"context"

	"catalogadmin/lookup"
	"catalogadmin/models"
)

func categoryName(c models.Category) string { return c.Name }

func brandName(b models.Brand) string { return b.Name }

// TrackNames keeps the lookup in step with the category and brand lists so
// product rows can show names for their references.
func (api *API) TrackNames() {
	if api.Names == nil {
		return
	}

	if api.Categories != nil {
		api.Categories.Controller().OnRefresh(func(ctx context.Context, items []models.Category) {
			api.Names.Store(ctx, models.ResourceCategory, lookup.Index(items, categoryName))
		})
	}

	if api.Brands != nil {
		api.Brands.Controller().OnRefresh(func(ctx context.Context, items []models.Brand) {
			api.Names.Store(ctx, models.ResourceBrand, lookup.Index(items, brandName))
		})
	}
}

// WarmNames loads the names cached by a previous run, so product rows have
// names before the first category and brand refresh.
func (api *API) WarmNames(ctx context.Context) {
	if api.Names == nil {
		return
	}

	for _, resource := range []string{models.ResourceCategory, models.ResourceBrand} {
		n, err := api.Names.Warm(ctx, resource)
		if err != nil {
			api.Log.Warnf("Failed to warm %s names: %v", resource, err)
			continue
		}
		if n > 0 {
			api.Log.Infof("Warmed %d %s names from redis", n, resource)
		}
	}
}
