package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
)

var (
	validate *validator.Validate
	once     sync.Once

	phonePattern = regexp.MustCompile(`^\+?\d+$`)
)

// Get returns a singleton validator instance
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// Report JSON field names instead of struct field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("notblank", validators.NotBlank)
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsPhoneNumber(fl.Field().String())
		})
	})
	return validate
}

// RegisterStructRule attaches a struct-level rule to the shared validator.
func RegisterStructRule(fn validator.StructLevelFunc, types ...interface{}) {
	Get().RegisterStructValidation(fn, types...)
}

// IsPhoneNumber reports whether s is digits with an optional leading '+'.
func IsPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// FieldError is a single failed rule, keyed by JSON field name.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects every failed rule of one struct.
type Errors []FieldError

// Error implements the error interface.
func (e Errors) Error() string {
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fmt.Sprintf("field '%s' %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// Unwrap lets callers match with errors.Is(err, apperrors.ErrValidation).
func (e Errors) Unwrap() error {
	return apperrors.ErrValidation
}

// Fields returns the failed messages keyed by field for inline display.
func (e Errors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, exists := out[fe.Field]; !exists {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Validate validates a struct and returns formatted errors
func Validate(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	out := make(Errors, 0, len(validationErrors))
	for _, e := range validationErrors {
		out = append(out, FieldError{Field: e.Field(), Message: getErrorMessage(e)})
	}
	return out
}

// getErrorMessage returns a user-friendly error message for a validation tag
func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "driver_required":
		return "is required when no existing driver is selected"
	case "phone":
		return "must contain only digits and an optional leading +"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("validation tag '%s' with value '%v' failed", e.Tag(), e.Value())
	}
}
