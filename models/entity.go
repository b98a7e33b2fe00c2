package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Resource names used in routes, logs, metrics and the audit journal.
const (
	ResourceCategory = "category"
	ResourceBrand    = "brand"
	ResourceProduct  = "product"
)

// Entity is a catalog record identified by a backend-assigned id.
type Entity interface {
	EntityID() string
	Validate() error
}

// Exportable entities can be written as spreadsheet rows.
type Exportable interface {
	ExportHeader() []string
	ExportRow() []interface{}
}

var validate = validator.New()

func init() {
	// the backend expects prices as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldErrors lists the fields rejected by an entity's Validate.
func FieldErrors(err error) []FieldError {
	if errors.Is(err, errNegativePrice) {
		return []FieldError{{Field: "price", Message: "negative-price"}}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "missing-" + field
		case "min":
			msg = field + "-too-short"
		case "gte":
			msg = "negative-" + field
		default:
			msg = "invalid-" + field
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}
