// ==============================================================================
// VALIDATOR PACKAGE - pkg/validator/validator.go
// ==============================================================================
package validator

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	localPhoneRe = regexp.MustCompile(`^[0-9]{11}$`)
	year4Re      = regexp.MustCompile(`^\d{4}$`)
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	// Report json field names so the client can match errors to inputs.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.registerCustomValidations()
	return v
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		// Format validation errors
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, e := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"Field '%s' failed validation '%s'",
					e.Field(),
					e.Tag(),
				))
			}
			return fmt.Errorf("validation failed: %v", errMessages)
		}
		return err
	}
	return nil
}

// ValidateStructured returns a map of field -> error message for frontend usage
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "email":
					msg = "Invalid email address"
				case "min":
					if e.Kind() == reflect.Slice {
						msg = fmt.Sprintf("Select at least %s", e.Param())
					} else {
						msg = fmt.Sprintf("Must be at least %s characters", e.Param())
					}
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				case "oneof":
					msg = fmt.Sprintf("Must be one of: %s", e.Param())
				case "local_phone":
					msg = "Enter a valid phone number"
				case "year4":
					msg = "Enter a valid 4-digit year"
				case "money":
					msg = "Must be a positive amount"
				case "url":
					msg = "Must be a valid URL"
				}
				errs[e.Field()] = msg
			}
		} else {
			errs["_global"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// FieldErrors maps json field names to messages. Services return it so
// handlers can render per-field errors.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Check is ValidateStructured returning an error value.
func (v *Validator) Check(i interface{}) error {
	if errs := v.ValidateStructured(i); errs != nil {
		return FieldErrors(errs)
	}
	return nil
}

func (v *Validator) registerCustomValidations() {
	// Register decimal.Decimal to be validated as float64 for gt/lt checks
	v.validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if val, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := val.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// 11 digits once spaces are stripped, e.g. "0803 123 4567".
	_ = v.validate.RegisterValidation("local_phone", func(fl validator.FieldLevel) bool {
		phone := strings.Join(strings.Fields(fl.Field().String()), "")
		return localPhoneRe.MatchString(phone)
	})

	_ = v.validate.RegisterValidation("year4", func(fl validator.FieldLevel) bool {
		return year4Re.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	// money runs after the custom type func, so the field arrives as float64.
	_ = v.validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			return fl.Field().Float() > 0
		case reflect.String:
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive()
		}
		return false
	})
}

// Sanitize cleans string input to prevent XSS attacks
func Sanitize(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}
