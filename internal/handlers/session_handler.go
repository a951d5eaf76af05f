package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// SessionHandler serves the exam-taking endpoints used by the student client
type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession opens a proctored session for the calling student
// @Router /exam/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	identity := currentIdentity(c)
	h.LogRequest(c, "Starting exam session", "test_id", req.TestID)

	resp, err := h.sessionService.Start(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitSession records the final answers and closes the session
// @Router /exam/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	h.LogRequest(c, "Submitting exam session", "session_id", req.SessionID, "answers", len(req.Answers))

	if err := h.sessionService.Submit(c.Request.Context(), currentIdentity(c).UserID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Exam submitted successfully",
		"session_id": req.SessionID,
	})
}

// LogEvent appends a proctoring log line to a session
// @Router /log_event [post]
func (h *SessionHandler) LogEvent(c *gin.Context) {
	var req services.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	if err := h.sessionService.RecordLog(c.Request.Context(), currentIdentity(c).UserID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event logged"})
}

// ReportViolation locks the session and records the violation as a warning
// @Router /exam/violation [post]
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	var req services.ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	h.LogRequest(c, "Violation reported", "session_id", req.SessionID, "type", req.Type)

	if err := h.sessionService.RecordViolation(c.Request.Context(), currentIdentity(c).UserID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Violation recorded",
		"examLocked": true,
	})
}

// UploadSelfie stores a base64 selfie against the session
// @Router /exam/selfie [post]
func (h *SessionHandler) UploadSelfie(c *gin.Context) {
	var req services.SelfieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}
	if req.SessionID == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Missing session_id", nil)
		return
	}

	image, err := decodeImage(req.Selfie)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid selfie image", err)
		return
	}

	path, err := h.sessionService.AttachSelfie(c.Request.Context(), currentIdentity(c).UserID, req.SessionID, image)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Selfie stored",
		"selfie_path": path,
	})
}

// GetSubmissionSummary returns the post-submit summary screen data
// @Router /submission/summary/{session_id} [get]
func (h *SessionHandler) GetSubmissionSummary(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	summary, err := h.sessionService.GetSummary(c.Request.Context(), currentIdentity(c).UserID, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetResults returns the graded result, or the pending notice while gated
// @Router /student/results/{session_id} [get]
func (h *SessionHandler) GetResults(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	result, err := h.sessionService.GetStudentResult(c.Request.Context(), currentIdentity(c).UserID, sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
