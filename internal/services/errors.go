package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/proctor-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")
	ErrUpstream         = errors.New("upstream failure")

	// Session specific errors
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyCompleted = errors.New("session not found or already completed")
	ErrInvalidViolation        = errors.New("invalid violation data")
	ErrSelfieUploadFailed      = errors.New("failed to save selfie")
	ErrResultsNotSubmitted     = errors.New("submission time not found")

	// Test specific errors
	ErrTestNotFound        = errors.New("test not found")
	ErrSampleTestProtected = errors.New("cannot delete the sample test")
	ErrInvalidDuration     = errors.New("duration must be a positive number")
	ErrInvalidSchedule     = errors.New("invalid datetime format for schedule")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrDuplicateStudent   = errors.New("student id already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Unwrap() error {
	return ErrForbidden
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// validationFailed wraps field errors so both IsValidation and errors.As
// for ValidationErrors see them.
func validationFailed(errs ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, errs)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrResultsNotSubmitted)
}

// IsUnauthorized checks if error represents missing or bad credentials
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials)
}

// IsForbidden checks if the caller is known but not allowed
func IsForbidden(err error) bool {
	var pe *PermissionError
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSampleTestProtected) ||
		errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidViolation) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidSchedule) {
		return true
	}
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionAlreadyCompleted) ||
		errors.Is(err, ErrDuplicateStudent)
}

// IsUpstream checks if a collaborator such as the blob store failed
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrSelfieUploadFailed)
}
