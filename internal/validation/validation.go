// Package validation turns go-playground/validator failures into the
// field -> messages map returned with 422 responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ms-events/internal/utils"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, ok := utils.ParseDate(fl.Field().String())
		return ok
	})
	// filled rejects a present but blank value, which required lets through on pointers.
	_ = v.RegisterValidation("filled", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{validate: v}
}

// Struct validates s and returns a *utils.ValidationError, or nil.
func (v *Validator) Struct(s interface{}) *utils.ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	out := utils.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("body", err.Error())
		return out
	}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	attr := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required", "filled":
		return fmt.Sprintf("The %s field is required.", attr)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", attr)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", attr, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", attr, fe.Param())
	case "date":
		return fmt.Sprintf("The %s field must be a valid date.", attr)
	default:
		return fmt.Sprintf("The %s field is invalid.", attr)
	}
}

// After is the message for an end date that does not follow its start.
func After(field, other string) string {
	return fmt.Sprintf("The %s field must be a date after %s.",
		strings.ReplaceAll(field, "_", " "), strings.ReplaceAll(other, "_", " "))
}
