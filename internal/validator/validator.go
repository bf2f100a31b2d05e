package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator bundles struct-tag validation with the business validator.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all custom rules registered.
func New() *Validator {
	business := NewBusinessValidator()

	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct-tag validation on any request struct.
func (v *Validator) Validate(s interface{}) error {
	if errs := v.business.Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

// GetBusinessValidator exposes the business rule validator.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
