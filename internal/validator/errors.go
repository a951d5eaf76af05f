package validator

import (
	apperrors "github.com/SAP-F-2025/proctor-service/internal/errors"
)

// The validator reports in the same shape the handlers render.
type (
	ValidationError  = apperrors.ValidationError
	ValidationErrors = apperrors.ValidationErrors
)

func ToValidationErrors(err error) ValidationErrors {
	return apperrors.ToValidationErrors(err)
}
