package validation

import (
	"errors"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	nationalCodePattern = regexp.MustCompile(`^[0-9]{10}$`)
	phonePattern        = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,16}$`)
)

// Validator returns the shared validator with the custom tags registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("national_code", func(fl validator.FieldLevel) bool {
			return nationalCodePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("claim_status", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "pending", "approved", "rejected", "fraud_suspected":
				return true
			}
			return false
		})
	})
	return validate
}

// ValidateStruct validates s and converts failures into a *ValidationError
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}
