// Package validator adapts go-playground/validator to echo's Validator hook.
package validator

import (
	domainerrors "passport/internal/domain/errors"

	"github.com/go-playground/validator/v10"
)

// RequestValidator validates bound request structs via struct tags.
type RequestValidator struct {
	validate *validator.Validate
}

// New creates the validator used by the echo server.
func New() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate implements echo.Validator. Tag violations surface as a single
// validation error carrying the offending fields.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	return nil
}
