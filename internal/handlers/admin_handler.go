package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	csvExportFilename  = "all_session_logs.csv"
	xlsxExportFilename = "all_session_logs.xlsx"
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AdminHandler serves monitoring, review and catalog management for administrators
type AdminHandler struct {
	BaseHandler
	adminService   services.AdminService
	catalogService services.CatalogService
	userService    services.UserService
}

func NewAdminHandler(
	adminService services.AdminService,
	catalogService services.CatalogService,
	userService services.UserService,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:    NewBaseHandler(logger),
		adminService:   adminService,
		catalogService: catalogService,
		userService:    userService,
	}
}

// ===== MONITORING =====

// GetSummary
// @Router /admin/summary [get]
func (h *AdminHandler) GetSummary(c *gin.Context) {
	summary, err := h.adminService.Summary(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetExamOptions lists {id, name} pairs for the session filter
// @Router /admin/exams [get]
func (h *AdminHandler) GetExamOptions(c *gin.Context) {
	options, err := h.catalogService.ExamOptions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// GetActiveSessions lists live sessions, optionally for one test
// @Router /admin/sessions [get]
func (h *AdminHandler) GetActiveSessions(c *gin.Context) {
	testID := strings.TrimSpace(c.Query("courseId"))

	rows, err := h.adminService.ActiveSessions(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetSessionDetail
// @Router /admin/session/{session_id} [get]
func (h *AdminHandler) GetSessionDetail(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	detail, err := h.adminService.SessionDetail(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ===== EXPORT =====

// ExportLogsCSV streams every completed session as one CSV row
// @Router /admin/export-all-logs-csv [get]
func (h *AdminHandler) ExportLogsCSV(c *gin.Context) {
	rows, err := h.adminService.ExportRows(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(services.ExportHeader)
	for _, row := range rows {
		_ = w.Write(row.Record())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to render export", err)
		return
	}

	h.LogInfo(c, "Exported session logs", "format", "csv", "rows", len(rows))
	c.Header("Content-Disposition", `attachment; filename="`+csvExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportLogsXLSX renders the same rows as a workbook
// @Router /admin/export-all-logs-xlsx [get]
func (h *AdminHandler) ExportLogsXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.adminService.ExportWorkbook(c.Request.Context(), &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Exported session logs", "format", "xlsx", "bytes", buf.Len())
	c.Header("Content-Disposition", `attachment; filename="`+xlsxExportFilename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ===== REVIEW =====

// GetGradedSubmissions
// @Router /admin/submissions [get]
func (h *AdminHandler) GetGradedSubmissions(c *gin.Context) {
	submissions, err := h.adminService.GradedSubmissions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// ReviewSubmission
// @Router /admin/review/{session_id} [get]
func (h *AdminHandler) ReviewSubmission(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}

	review, err := h.adminService.Review(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// ===== CATALOG =====

// CreateTest
// @Router /admin/create_test [post]
func (h *AdminHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	h.LogRequest(c, "Creating test", "title", req.Title, "questions", len(req.Questions))

	test, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Test created successfully", test, "test_id", test.TestID)
}

// GetTest returns the full definition including mcq answers
// @Router /admin/test/{test_id} [get]
func (h *AdminHandler) GetTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "test_id")
	if testID == "" {
		return
	}

	test, err := h.catalogService.GetByID(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// DeleteTest removes a test and every submission made against it
// @Router /admin/test/{test_id} [delete]
func (h *AdminHandler) DeleteTest(c *gin.Context) {
	testID := ParseStringIDParam(c, "test_id")
	if testID == "" {
		return
	}

	result, err := h.catalogService.Delete(c.Request.Context(), testID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Test deleted successfully", result,
		"test_id", testID, "removed_submissions", result.RemovedSubmissions)
}

// ===== STUDENTS =====

// CreateStudent
// @Router /admin/students [post]
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req services.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadPayload(c, err)
		return
	}

	student, err := h.userService.CreateStudent(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Student created successfully", student, "student_id", student.UserID)
}

// ListStudents
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.userService.ListStudents(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// DeleteStudent removes a student and their submissions
// @Router /admin/students/{student_id} [delete]
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	studentID := ParseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	result, err := h.userService.DeleteStudent(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Student deleted successfully", result,
		"student_id", studentID, "removed_submissions", result.RemovedSubmissions)
}
