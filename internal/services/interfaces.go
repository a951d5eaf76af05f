package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// SessionService owns every state transition of a Submission. Every call
// acts for studentID and only touches sessions that student owns.
type SessionService interface {
	Start(ctx context.Context, studentID string, req *StartSessionRequest) (*StartSessionResponse, error)
	RecordLog(ctx context.Context, studentID string, req *LogEventRequest) error
	RecordViolation(ctx context.Context, studentID string, req *ViolationRequest) error
	AttachSelfie(ctx context.Context, studentID, sessionID string, image []byte) (string, error)
	Submit(ctx context.Context, studentID string, req *SubmitRequest) error

	GetSummary(ctx context.Context, studentID, sessionID string) (*SubmissionSummary, error)
	GetStudentResult(ctx context.Context, studentID, sessionID string) (*StudentResult, error)
}

// CatalogService manages test definitions.
type CatalogService interface {
	Create(ctx context.Context, req *CreateTestRequest) (*models.Test, error)
	GetByID(ctx context.Context, testID string) (*models.Test, error)
	GetForStudent(ctx context.Context, testID string) (*models.Test, error)
	ListForStudent(ctx context.Context, studentID string) (*StudentDashboard, error)
	ExamOptions(ctx context.Context) ([]ExamOption, error)
	Delete(ctx context.Context, testID string) (*DeleteResult, error)
	EnsureSampleTest(ctx context.Context) error
}

type UserService interface {
	CreateStudent(ctx context.Context, req *CreateStudentRequest) (*models.User, error)
	ListStudents(ctx context.Context) ([]*models.User, error)
	DeleteStudent(ctx context.Context, studentID string) (*DeleteResult, error)

	AuthenticateStudent(ctx context.Context, req *StudentLoginRequest) (*Identity, error)
	AuthenticateAdmin(ctx context.Context, req *AdminLoginRequest) (*Identity, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

// AdminService builds the read-only operational views.
type AdminService interface {
	Summary(ctx context.Context) (*AdminSummary, error)
	ActiveSessions(ctx context.Context, testID string) ([]ActiveSessionRow, error)
	SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error)
	ExportRows(ctx context.Context) ([]ExportRow, error)
	ExportWorkbook(ctx context.Context, w io.Writer) error
	GradedSubmissions(ctx context.Context) ([]GradedSubmission, error)
	Review(ctx context.Context, sessionID string) (*SubmissionReview, error)
}

// MetricsRecorder counts lifecycle events. The prometheus metrics in
// pkg/monitoring satisfy it.
type MetricsRecorder interface {
	RecordLifecycle(event string)
}

type nopMetrics struct{}

func (nopMetrics) RecordLifecycle(string) {}
