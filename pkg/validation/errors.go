package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError collects one message per invalid field
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error lists the field messages in field order.
func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + v.Errors[field]
	}
	return strings.Join(parts, "; ")
}

// NewValidationError converts validator failures into field messages
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	v := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		v.Errors[fe.Field()] = describe(fe)
	}
	return v
}

// tagMessages maps a validator tag to a message format taking the field
// name and the tag parameter. Formats that ignore the parameter consume it
// with %.0s.
var tagMessages = map[string]string{
	"required":      "%s is required%.0s",
	"min":           "%s must be at least %s characters long",
	"max":           "%s must be at most %s characters long",
	"len":           "%s must be exactly %s characters long",
	"gt":            "%s must be greater than %s",
	"gte":           "%s must be greater than or equal to %s",
	"datetime":      "%s must be a date formatted as %s",
	"national_code": "%s must be exactly 10 digits%.0s",
	"phone":         "%s must be a valid phone number%.0s",
	"claim_status":  "%s must be one of pending, approved, rejected or fraud_suspected%.0s",
}

func describe(fe validator.FieldError) string {
	format, ok := tagMessages[fe.Tag()]
	if !ok {
		return fe.Field() + " is invalid"
	}
	return fmt.Sprintf(format, fe.Field(), fe.Param())
}

// AddError records message for field, replacing any earlier one
func (v *ValidationError) AddError(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string]string)
	}
	v.Errors[field] = message
}

// HasErrors reports whether any field failed
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// GetFieldError returns the message recorded for field
func (v *ValidationError) GetFieldError(field string) (string, bool) {
	msg, ok := v.Errors[field]
	return msg, ok
}
