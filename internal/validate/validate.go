// Package validate adapts go-playground/validator to echo and turns field
// errors into apperr validation failures keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
)

var messages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"oneof":    "%s must be one of [%s]",
	"uuid":     "%s must be a valid UUID",
	"url":      "%s must be a valid URL",
	"dive":     "%s is invalid",
}

// Validator implements echo.Validator
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns nil or an *apperr.Error of kind validation
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request: %v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return apperr.ValidationFields(fields)
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid: %s", fe.Field(), fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(tmpl, fe.Field())
}

// Bind decodes the request into req and validates it
func Bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return c.Validate(req)
}
