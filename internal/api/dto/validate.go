package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/service-queue/pkg/util"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and converts failures into a field-level
// validation error.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := map[string]any{}
	for _, fieldErr := range invalid {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return apperrors.NewValidationError("invalid payload", details)
}
