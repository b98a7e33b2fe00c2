package models

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

type Product struct {
	Id          string          `json:"_id,omitempty"`
	Name        string          `json:"name" validate:"required,min=3"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Sold        int             `json:"sold" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Brand       string          `json:"brand" validate:"required"`
	Image       string          `json:"image" validate:"required"`
}

var errNegativePrice = errors.New("price must not be negative")

func (p Product) EntityID() string { return p.Id }

func (p Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.Price.IsNegative() {
		return errNegativePrice
	}

	return nil
}

func (p Product) ExportHeader() []string {
	return []string{"ID", "Name", "Description", "Price", "Stock", "Sold", "Category", "Brand", "Image"}
}

func (p Product) ExportRow() []interface{} {
	return []interface{}{
		p.Id,
		p.Name,
		p.Description,
		fmt.Sprintf("$%s", humanize.Commaf(p.Price.InexactFloat64())),
		humanize.Comma(int64(p.Stock)),
		humanize.Comma(int64(p.Sold)),
		p.Category,
		p.Brand,
		p.Image,
	}
}
