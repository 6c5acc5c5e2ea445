// Package validation wraps the shared go-playground validator.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// compare decimals with the numeric tags (gt, gte, ...)
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// Error carries the failing field -> tag pairs.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "Formato inválido (" + strings.Join(parts, ", ") + ")"
}

// Invalid builds an Error for a single field.
func Invalid(field, tag string) *Error {
	return &Error{Fields: map[string]string{field: tag}}
}

// DecimalFits checks d against a numeric(precision, scale) column. It
// returns "scale" when d has more significant decimals than the column
// keeps, "max" when its absolute value does not fit, and "" otherwise.
func DecimalFits(d decimal.Decimal, precision, scale int32) string {
	if !d.Equal(d.Truncate(scale)) {
		return "scale"
	}
	limit := decimal.New(1, precision-scale)
	if d.Abs().GreaterThanOrEqual(limit) {
		return "max"
	}
	return ""
}

// Struct validates s and returns *Error on failure.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, ve := range verrs {
		out.Fields[fieldPath(ve)] = ve.Tag()
	}
	return out
}

// fieldPath drops the top-level struct name: "items[0].amount".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
