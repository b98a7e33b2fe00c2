package controllers

import (
	"context"

	"catalogadmin/editcache"
	"catalogadmin/models"
)

// ProductView is the product snapshot plus the names of the categories and
// brands the listed products reference.
type ProductView struct {
	editcache.View[models.Product]
	CategoryNames map[string]string `json:"categoryNames"`
	BrandNames    map[string]string `json:"brandNames"`
}

func (api *API) productView(ctx context.Context, v editcache.View[models.Product]) interface{} {
	pv := ProductView{
		View:          v,
		CategoryNames: map[string]string{},
		BrandNames:    map[string]string{},
	}
	if api.Names == nil {
		return pv
	}

	resolve := func(p models.Product) {
		if p.Category != "" {
			if _, ok := pv.CategoryNames[p.Category]; !ok {
				if name, found := api.Names.Resolve(ctx, models.ResourceCategory, p.Category); found {
					pv.CategoryNames[p.Category] = name
				}
			}
		}
		if p.Brand != "" {
			if _, ok := pv.BrandNames[p.Brand]; !ok {
				if name, found := api.Names.Resolve(ctx, models.ResourceBrand, p.Brand); found {
					pv.BrandNames[p.Brand] = name
				}
			}
		}
	}

	for _, p := range v.Items {
		resolve(p)
	}
	for _, d := range v.Drafts {
		if d.Editing {
			resolve(d.Data)
		}
	}
	if v.Adding {
		resolve(v.NewRow)
	}

	return pv
}

// ProductsView makes the products handler send ProductView snapshots.
func (api *API) ProductsView() {
	if api.Products != nil {
		api.Products.WithView(api.productView)
	}
}
