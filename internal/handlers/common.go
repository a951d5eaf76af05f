package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest records that a handler accepted a request, with the caller's address.
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"remote_addr", c.ClientIP()}, h.contextFields(c, additionalFields)...)
	h.requestLogger(c).Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.requestLogger(c).LogError(err, message, h.contextFields(c, additionalFields)...)
}

func (h *BaseHandler) LogInfo(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Info(message, h.contextFields(c, additionalFields)...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Warn(message, h.contextFields(c, additionalFields)...)
}

// requestLogger already carries request_id, method and path when ContextLogger ran.
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.LoggerFromContext(c, h.logger)
}

func (h *BaseHandler) contextFields(c *gin.Context, additional []interface{}) []interface{} {
	return append([]interface{}{"user_id", h.extractUserID(c)}, additional...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get(ctxUserID); exists {
		return userID
	}
	return nil
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response and logs it
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}, additionalFields ...interface{}) {
	fields := []interface{}{"status_code", statusCode}
	fields = append(fields, additionalFields...)
	h.LogInfo(c, message, fields...)

	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// RespondBadPayload is the reply for a body that does not bind
func (h *BaseHandler) RespondBadPayload(c *gin.Context, err error) {
	h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
}

// handleServiceError maps the service error classes onto HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", err)
	case errors.Is(err, services.ErrTestNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Test not found", err)
	case errors.Is(err, services.ErrStudentNotFound), errors.Is(err, services.ErrUserNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Student not found", err)
	case errors.Is(err, services.ErrResultsNotSubmitted):
		h.RespondWithError(c, http.StatusNotFound, "Exam has not been submitted", err)
	case errors.Is(err, services.ErrSessionAlreadyCompleted):
		h.RespondWithError(c, http.StatusConflict, "Session already submitted", err)
	case errors.Is(err, services.ErrDuplicateStudent):
		h.RespondWithError(c, http.StatusConflict, "Student ID already exists", err)
	case errors.Is(err, services.ErrSampleTestProtected):
		h.RespondWithError(c, http.StatusForbidden, "The sample test cannot be deleted", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		h.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
	case errors.Is(err, services.ErrInvalidViolation):
		h.RespondWithError(c, http.StatusBadRequest, "Missing session_id or violation type", err)
	case errors.Is(err, services.ErrInvalidDuration):
		h.RespondWithError(c, http.StatusBadRequest, "Duration must be a positive number of minutes", err)
	case errors.Is(err, services.ErrInvalidSchedule):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid scheduled date/time format", err)
	case errors.Is(err, services.ErrSelfieUploadFailed):
		h.RespondWithError(c, http.StatusBadGateway, "Failed to store selfie", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusUnauthorized, "Authentication required", err)
	case services.IsForbidden(err):
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Conflict", err)
	case services.IsUpstream(err):
		h.RespondWithError(c, http.StatusBadGateway, "Upstream dependency failed", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
