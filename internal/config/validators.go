package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

func newValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := registerExclusive(validate); err != nil {
		return nil, err
	}

	if err := validate.RegisterValidation("size", validateSize); err != nil {
		return nil, fmt.Errorf("registering size validation: %w", err)
	}

	return validate, nil
}

// registerExclusive adds a custom validator ensuring fields are mutually exclusive,
// and reports fields by their flag label.
func registerExclusive(validate *validator.Validate) error {
	if err := validate.RegisterValidation("exclusive", validateExclusive); err != nil {
		return fmt.Errorf("registering exclusive validation: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		const splitSize = 2

		name := strings.SplitN(fld.Tag.Get("label"), ",", splitSize)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	return nil
}

// validateExclusive checks that the field and each named field are not set together.
// Returns false if the field and any of the others have non-zero values.
func validateExclusive(fl validator.FieldLevel) bool {
	if fl.Field().IsZero() {
		return true
	}

	for _, name := range strings.Fields(fl.Param()) {
		other := fl.Parent().FieldByName(name)
		if other.IsValid() && !other.IsZero() {
			return false
		}
	}

	return true
}

// validateSize checks that a string parses as a byte size.
func validateSize(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}

	_, err := humanize.ParseBytes(fl.Field().String())

	return err == nil
}

// describe renders validation errors as one line per field.
func describe(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validating configuration: %w", err)
	}

	messages := make([]string, 0, len(errs))

	for _, fe := range errs {
		switch fe.Tag() {
		case "exclusive":
			messages = append(messages, fmt.Sprintf("%s is mutually exclusive with the other password sources", fe.Field()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		case "min", "max":
			messages = append(messages, fmt.Sprintf("%s must be within bounds (%s %s), got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		case "size":
			messages = append(messages, fmt.Sprintf("%s must be a size such as 64MiB, got %q", fe.Field(), fe.Value()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag()))
		}
	}

	return fmt.Errorf("validating configuration: %s", strings.Join(messages, "; "))
}
