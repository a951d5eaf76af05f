package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/validator"
)

const notAvailable = "N/A"

// validateRequest runs struct tag validation and folds the result into the
// service error taxonomy.
func validateRequest(v *validator.Validator, req interface{}) error {
	if err := v.Validate(req); err != nil {
		var errs ValidationErrors
		if errors.As(err, &errs) {
			return validationFailed(errs)
		}
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return validationFailed(ValidationErrors{*NewValidationError(field, "is required", value)})
	}
	return nil
}

// initials returns the uppercased first letter of every word in s.
func initials(s string) string {
	var b strings.Builder
	for _, word := range strings.Fields(s) {
		for _, r := range word {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	return b.String()
}
