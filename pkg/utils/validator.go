package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

// usernameRe mirrors the accepted account name alphabet: word characters
// plus the @ . + - punctuation.
var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator wraps the go-playground validator instance.
type Validator struct {
	validator *validator.Validate
}

// NewValidator returns a Validator with the custom rules registered.
// Field names in error output come from json tags.
func NewValidator() *Validator {
	v := validator.New()

	CustomValidation(v)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// Validate checks the input struct and returns per-field error messages,
// or nil when the struct is valid.
func (v *Validator) Validate(str interface{}) FieldErrors {
	err := v.validator.Struct(str)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		fe := FieldErrors{}
		fe.Add("non_field_errors", "Invalid input.")
		return fe
	}
	fe := FieldErrors{}
	for _, e := range validationErrors {
		fe.Add(e.Field(), getErrorMessage(e))
	}
	return fe
}

// getErrorMessage maps a failed validation tag to a human-readable message.
func getErrorMessage(e validator.FieldError) string {
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch e.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if numeric {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprintf("%v", e.Value()))
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "slugfmt":
		return "Enter a valid slug consisting of lowercase letters, numbers, underscores or hyphens."
	default:
		return fmt.Sprintf("Invalid value for %s.", e.Field())
	}
}

// CustomValidation registers the domain-specific tags.
func CustomValidation(v *validator.Validate) {
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	v.RegisterValidation("slugfmt", func(fl validator.FieldLevel) bool {
		return slug.IsSlug(fl.Field().String())
	})
}
