package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator reporting fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationDetails turns decode and validation errors into a
// field -> message map for the 400 response.
func validationDetails(err error) map[string]string {
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	switch {
	case errors.As(err, &ute):
		return map[string]string{ute.Field: "has the wrong type"}
	case errors.As(err, &se):
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = fieldMessage(fe)
		}
		return out
	}

	var fe fieldError
	if errors.As(err, &fe) {
		return map[string]string{fe.field: fe.msg}
	}
	return map[string]string{"payload": err.Error()}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "min":
		return "must be at least " + p
	case "lte", "max":
		return "must be at most " + p
	case "datetime":
		return "must match the layout " + p
	case "timezone":
		return "must be an IANA time zone name"
	case "excluded_with":
		return "cannot be combined with " + p
	case "uuid":
		return "must be a valid UUID"
	}
	return fmt.Sprintf("failed the %q check", fe.Tag())
}

// fieldError reports a field that passed tag validation but could not be
// converted into a domain value.
type fieldError struct {
	field string
	msg   string
}

func (e fieldError) Error() string { return e.field + ": " + e.msg }
