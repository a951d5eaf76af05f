package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/grading"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
)

// ===== AUTH DTOs =====

type StudentLoginRequest struct {
	StudentID string `json:"studentId" validate:"required,max=255"`
	FullName  string `json:"fullName" validate:"required,max=100"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

// Identity is what an authenticated caller is allowed to act as.
type Identity struct {
	UserID   string          `json:"user_id"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// ===== SESSION DTOs =====

type StartSessionRequest struct {
	TestID string `json:"test_id" validate:"required,max=64"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	// Resumed is set when single-session enforcement returned an existing session.
	Resumed bool `json:"resumed"`
}

type SubmitRequest struct {
	SessionID string          `json:"session_id" validate:"required"`
	Answers   []models.Answer `json:"answers" validate:"required"`
}

type LogEventRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	LogType    string `json:"log_type" validate:"omitempty,log_type"`
	LogMessage string `json:"log_message"`
}

type ViolationRequest struct {
	SessionID         string `json:"session_id"`
	Type              string `json:"type"`
	Reason            string `json:"reason"`
	TabSwitchCount    int    `json:"tabSwitchCount" validate:"min=0"`
	MultiFaceDetected bool   `json:"multiFaceDetected"`
}

type SelfieRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	// Selfie is a base64 image, optionally as a data URL.
	Selfie string `json:"selfie" validate:"required"`
}

type SubmissionSummary struct {
	ExamName           string `json:"exam_name"`
	EndTime            string `json:"end_time"`
	QuestionsAttempted int    `json:"questions_attempted"`
	TotalQuestions     int    `json:"total_questions"`
	Warnings           int    `json:"warnings"`
}

type RemainingTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// StudentResult is either the pending notice or the graded result, told
// apart by ResultsAvailable.
type StudentResult struct {
	ResultsAvailable bool             `json:"results_available"`
	State            visibility.State `json:"state"`
	SessionID        string           `json:"session_id"`

	SubmissionTime       time.Time `json:"submission_time"`
	ResultsAvailableTime time.Time `json:"results_available_time"`
	// Display renderings of the two timestamps above
	SubmissionTimeDisplay       string `json:"submission_time_display"`
	ResultsAvailableTimeDisplay string `json:"results_available_time_display"`

	RemainingTime *RemainingTime `json:"remaining_time,omitempty"`

	ExamName    string                 `json:"exam_name,omitempty"`
	ExamCode    string                 `json:"exam_code,omitempty"`
	StudentName string                 `json:"student_name,omitempty"`
	Score       string                 `json:"score,omitempty"`
	Answers     []grading.AnswerResult `json:"answers,omitempty"`
}

// ===== CATALOG DTOs =====

type CreateTestRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	// Duration in minutes; browsers post it as a string, API clients as a number.
	Duration          json.Number       `json:"duration" validate:"required"`
	Questions         []models.Question `json:"questions"`
	ScheduledDatetime string            `json:"scheduled_datetime"`
}

type TestCard struct {
	TestID            string     `json:"test_id"`
	Name              string     `json:"name"`
	Code              string     `json:"code"`
	DurationSeconds   int        `json:"duration_seconds"`
	QuestionCount     int        `json:"question_count"`
	ScheduledDatetime *time.Time `json:"scheduled_datetime,omitempty"`
	ScheduledDisplay  string     `json:"scheduled_display,omitempty"`
}

type CompletedTestCard struct {
	TestCard
	SubmissionID   string     `json:"submission_id"`
	SubmissionTime *time.Time `json:"submission_time,omitempty"`
	// ResultsAvailable is the visibility decision at the time of the listing
	ResultsAvailable bool `json:"results_available"`
}

type StudentDashboard struct {
	StudentName string              `json:"student_name"`
	Available   []TestCard          `json:"available"`
	Upcoming    []TestCard          `json:"upcoming"`
	Completed   []CompletedTestCard `json:"completed"`
}

type ExamOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DeleteResult struct {
	ID                 string `json:"id"`
	RemovedSubmissions int64  `json:"removed_submissions"`
}

// ===== USER DTOs =====

type CreateStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,max=255"`
	FullName  string `json:"full_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// ===== ADMIN DTOs =====

type AdminSummary struct {
	ActiveSessions int64 `json:"activeSessions"`
	PendingAlerts  int64 `json:"pendingAlerts"`
}

type ActiveSessionRow struct {
	ID          string                  `json:"id"`
	StudentName string                  `json:"studentName"`
	ExamName    string                  `json:"examName"`
	Status      models.SubmissionStatus `json:"status"`
	Time        string                  `json:"time"`
	ExamLocked  bool                    `json:"examLocked"`
}

type SessionDetail struct {
	SessionID     string                  `json:"sessionId"`
	StudentName   string                  `json:"studentName"`
	StudentID     string                  `json:"studentId"`
	ExamName      string                  `json:"examName"`
	ExamCode      string                  `json:"examCode"`
	StartTime     string                  `json:"startTime"`
	EndTime       string                  `json:"endTime"`
	Status        models.SubmissionStatus `json:"status"`
	ExamLocked    bool                    `json:"examLocked"`
	LockReason    *string                 `json:"lockReason,omitempty"`
	Alerts        []models.LogEvent       `json:"alerts"`
	DownloadLinks []string                `json:"downloadLinks"`
}

// ExportRow is one completed session in the log export.
type ExportRow struct {
	SessionID    string
	StudentName  string
	StudentID    string
	ExamName     string
	StartTime    string
	EndTime      string
	WarningCount int
	LogMessages  string
}

// ExportHeader names the ExportRow columns in order.
var ExportHeader = []string{
	"Session ID", "Student Name", "Student ID", "Exam Name",
	"Start Time", "End Time", "Warning Count", "Log Details",
}

func (r ExportRow) Record() []string {
	return []string{
		r.SessionID, r.StudentName, r.StudentID, r.ExamName,
		r.StartTime, r.EndTime, strconv.Itoa(r.WarningCount), r.LogMessages,
	}
}

type GradedSubmission struct {
	SessionID   string                 `json:"session_id"`
	StudentID   string                 `json:"student_id"`
	TestID      string                 `json:"test_id"`
	StartTime   time.Time              `json:"start_time"`
	EndTime     *time.Time             `json:"end_time,omitempty"`
	StudentName string                 `json:"student_name"`
	ExamName    string                 `json:"exam_name"`
	ExamLocked  bool                   `json:"exam_locked"`
	Logs        []models.LogEvent      `json:"logs"`
	Answers     []grading.AnswerResult `json:"answers"`
	Score       string                 `json:"score"`
}

type SubmissionReview struct {
	SessionID   string                 `json:"session_id"`
	ExamName    string                 `json:"exam_name"`
	ExamCode    string                 `json:"exam_code"`
	StudentName string                 `json:"student_name"`
	StudentID   string                 `json:"student_id"`
	Score       string                 `json:"score"`
	SelfiePath  *string                `json:"selfie_path"`
	ExamLocked  bool                   `json:"exam_locked"`
	LockReason  *string                `json:"lock_reason,omitempty"`
	Answers     []grading.AnswerResult `json:"answers"`
	Logs        []models.LogEvent      `json:"logs"`
}
