package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	authHandler    *AuthHandler
	studentHandler *StudentHandler
	sessionHandler *SessionHandler
	adminHandler   *AdminHandler

	auth         Authenticator
	eventLimiter *RateLimiter
	metrics      gin.HandlerFunc
}

// NewHandlerManager wires the handlers. limiter and metricsHandler may be nil.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	auth Authenticator,
	limiter *RateLimiter,
	metricsHandler gin.HandlerFunc,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:    NewAuthHandler(serviceManager.User(), auth, logger),
		studentHandler: NewStudentHandler(serviceManager.Catalog(), logger),
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		adminHandler: NewAdminHandler(
			serviceManager.Admin(),
			serviceManager.Catalog(),
			serviceManager.User(),
			logger,
		),
		auth:         auth,
		eventLimiter: limiter,
		metrics:      metricsHandler,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "proctor-service",
		})
	})
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics)
	}

	throttle := hm.eventLimiter.Middleware()

	api := router.Group("/api")
	{
		api.POST("/student/login", hm.authHandler.StudentLogin)
		api.POST("/admin/login", hm.authHandler.AdminLogin)

		student := api.Group("", Authenticate(hm.auth), RequireRole(models.RoleStudent))
		{
			student.POST("/student/logout", hm.authHandler.Logout)
			student.GET("/student/dashboard", hm.studentHandler.GetDashboard)
			student.GET("/student/results/:session_id", hm.sessionHandler.GetResults)
			student.GET("/exam/details/:test_id", hm.studentHandler.GetExamDetails)

			// Session lifecycle
			student.POST("/exam/start", hm.sessionHandler.StartSession)
			student.POST("/exam/submit", hm.sessionHandler.SubmitSession)
			student.POST("/exam/selfie", hm.sessionHandler.UploadSelfie)
			student.GET("/submission/summary/:session_id", hm.sessionHandler.GetSubmissionSummary)

			// Proctoring signals. Only the chatty log stream is throttled so
			// a flood of log events can never hold back a violation lock.
			student.POST("/log_event", throttle, hm.sessionHandler.LogEvent)
			student.POST("/exam/violation", hm.sessionHandler.ReportViolation)
		}

		admin := api.Group("/admin", Authenticate(hm.auth), RequireRole(models.RoleAdmin))
		{
			admin.POST("/logout", hm.authHandler.Logout)

			// Monitoring
			admin.GET("/summary", hm.adminHandler.GetSummary)
			admin.GET("/exams", hm.adminHandler.GetExamOptions)
			admin.GET("/sessions", hm.adminHandler.GetActiveSessions)
			admin.GET("/session/:session_id", hm.adminHandler.GetSessionDetail)

			// Export
			admin.GET("/export-all-logs-csv", hm.adminHandler.ExportLogsCSV)
			admin.GET("/export-all-logs-xlsx", hm.adminHandler.ExportLogsXLSX)

			// Review
			admin.GET("/submissions", hm.adminHandler.GetGradedSubmissions)
			admin.GET("/review/:session_id", hm.adminHandler.ReviewSubmission)

			// Catalog
			admin.POST("/create_test", hm.adminHandler.CreateTest)
			admin.GET("/test/:test_id", hm.adminHandler.GetTest)
			admin.DELETE("/test/:test_id", hm.adminHandler.DeleteTest)

			// Students
			admin.POST("/students", hm.adminHandler.CreateStudent)
			admin.GET("/students", hm.adminHandler.ListStudents)
			admin.DELETE("/students/:student_id", hm.adminHandler.DeleteStudent)
		}
	}
}
