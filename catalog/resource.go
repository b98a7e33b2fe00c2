package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"catalogadmin/models"

	"github.com/sirupsen/logrus"
)

// Endpoints are the backend paths of one resource. Get, Update and Delete
// are prefixes that the escaped id is appended to.
type Endpoints struct {
	List   string
	Filter string
	Get    string
	Create string
	Update string
	Delete string
}

var (
	CategoryEndpoints = Endpoints{
		List:   "/api/category/get-all-category",
		Filter: "/api/category/get-all",
		Get:    "/api/category/get-category/",
		Create: "/api/category/create-category",
		Update: "/api/category/update-category/",
		Delete: "/api/category/delete-category/",
	}
	BrandEndpoints = Endpoints{
		List:   "/api/brand/get-all-brand",
		Filter: "/api/brand/get-all",
		Get:    "/api/brand/get-brand/",
		Create: "/api/brand/create-brand",
		Update: "/api/brand/update-brand/",
		Delete: "/api/brand/delete-brand/",
	}
	ProductEndpoints = Endpoints{
		List:   "/api/product/get-all-product",
		Filter: "/api/product/get-all",
		Get:    "/api/product/get-product/",
		Create: "/api/product/create-product",
		Update: "/api/product/update-product/",
		Delete: "/api/product/delete-product/",
	}
)

// Repository is the CRUD contract the edit cache drives.
type Repository[T models.Entity] interface {
	ListAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, draft T) (T, error)
	Update(ctx context.Context, id string, patch T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Filter is passed through to the backend's filtered list endpoint.
type Filter struct {
	Page     int
	PageSize int
	Name     string
}

func (f Filter) values() url.Values {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}

	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	if f.Name != "" {
		v.Set("filterName", f.Name)
	}
	return v
}

type Page[T any] struct {
	Items    []T `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Resource is the HTTP implementation of Repository for one resource type.
type Resource[T models.Entity] struct {
	client    *Client
	name      string
	endpoints Endpoints
}

func NewResource[T models.Entity](client *Client, name string, endpoints Endpoints) *Resource[T] {
	return &Resource[T]{client: client, name: name, endpoints: endpoints}
}

func NewCategories(client *Client) *Resource[models.Category] {
	return NewResource[models.Category](client, models.ResourceCategory, CategoryEndpoints)
}

func NewBrands(client *Client) *Resource[models.Brand] {
	return NewResource[models.Brand](client, models.ResourceBrand, BrandEndpoints)
}

func NewProducts(client *Client) *Resource[models.Product] {
	return NewResource[models.Product](client, models.ResourceProduct, ProductEndpoints)
}

func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) ListAll(ctx context.Context) ([]T, error) {
	data, err := r.client.do(ctx, call{resource: r.name, op: OpList, method: http.MethodGet, path: r.endpoints.List})
	if err != nil {
		return nil, err
	}

	var items []T
	if err := decode(data, &items); err != nil {
		return nil, r.decodeError(OpList, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T]) ListFiltered(ctx context.Context, f Filter) (Page[T], error) {
	var page Page[T]
	data, err := r.client.do(ctx, call{resource: r.name, op: OpFilter, method: http.MethodGet, path: r.endpoints.Filter, query: f.values()})
	if err != nil {
		return page, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &page.Items)
		page.Total = len(page.Items)
	} else {
		err = json.Unmarshal(trimmed, &page)
	}
	if err != nil {
		return Page[T]{}, r.decodeError(OpFilter, err)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func (r *Resource[T]) GetByID(ctx context.Context, id string) (T, error) {
	var out T
	if id == "" {
		return out, ErrEmptyID
	}

	data, err := r.client.do(ctx, call{resource: r.name, op: OpGet, method: http.MethodGet, path: r.endpoints.Get + url.PathEscape(id), id: id})
	if err != nil {
		return out, err
	}
	if err := decode(data, &out); err != nil {
		return out, r.decodeError(OpGet, err)
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, draft T) (T, error) {
	var out T
	data, err := r.client.do(ctx, call{resource: r.name, op: OpCreate, method: http.MethodPost, path: r.endpoints.Create, body: draft})
	if err != nil {
		return out, err
	}
	if err := decode(data, &out); err != nil {
		return out, r.decodeError(OpCreate, err)
	}
	return out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, patch T) (T, error) {
	var out T
	if id == "" {
		return out, ErrEmptyID
	}

	data, err := r.client.do(ctx, call{resource: r.name, op: OpUpdate, method: http.MethodPut, path: r.endpoints.Update + url.PathEscape(id), id: id, body: patch})
	if err != nil {
		return out, err
	}
	if err := decode(data, &out); err != nil {
		return out, r.decodeError(OpUpdate, err)
	}
	return out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	_, err := r.client.do(ctx, call{resource: r.name, op: OpDelete, method: http.MethodDelete, path: r.endpoints.Delete + url.PathEscape(id), id: id})
	return err
}

func (r *Resource[T]) decodeError(op string, err error) error {
	r.client.log.WithFields(logrus.Fields{"resource": r.name, "op": op}).Errorf("catalog: failed to decode response: %v", err)
	return &ServerError{Resource: r.name, Op: op, Status: http.StatusOK, Message: "malformed response: " + err.Error()}
}

// decode accepts both {"data": ...} envelopes and raw bodies; the backend uses
// the envelope for list/get/create and answers updates with the bare entity.
func decode(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
			if bytes.Equal(env.Data, []byte("null")) {
				return nil
			}
			return json.Unmarshal(env.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}
