package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/grading"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/storage"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/SAP-F-2025/proctor-service/internal/validator"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
)

const selfieTimeLayout = "20060102150405"

type sessionService struct {
	repo      *repositories.Repositories
	blobStore storage.BlobStore
	notifier  NotificationEventService
	validator *validator.Validator
	gate      *visibility.Gate
	zone      *utils.DisplayZone
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
	ops       *ServiceLogger

	enforceSingleActive bool
}

func NewSessionService(deps Dependencies, gate *visibility.Gate, notifier NotificationEventService) SessionService {
	deps.withDefaults()
	return &sessionService{
		repo:                deps.Repos,
		blobStore:           deps.BlobStore,
		notifier:            notifier,
		validator:           deps.Validator,
		gate:                gate,
		zone:                deps.DisplayZone,
		now:                 deps.Clock,
		newID:               deps.NewID,
		logger:              deps.Logger,
		ops:                 NewServiceLogger(deps.Logger, "session"),
		enforceSingleActive: deps.EnforceSingleActiveSession,
	}
}

// ===== LIFECYCLE TRANSITIONS =====

func (s *sessionService) Start(ctx context.Context, studentID string, req *StartSessionRequest) (resp *StartSessionResponse, err error) {
	op := s.ops.WithOperation(ctx, "start_session", studentID)
	defer func() {
		if resp != nil {
			op.LogResult(resp.SessionID, "session", err)
		} else {
			op.LogResult("", "session", err)
		}
	}()

	if studentID == "" {
		return nil, ErrUnauthorized
	}
	if err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}

	if _, err := s.repo.User.GetByID(ctx, studentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	exists, err := s.repo.Test.Exists(ctx, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	if s.enforceSingleActive {
		if active, err := s.activeSession(ctx, studentID, req.TestID); err != nil || active != nil {
			return active, err
		}
	}

	submission := &models.Submission{
		SessionID: s.newID(),
		StudentID: studentID,
		TestID:    req.TestID,
		StartTime: s.now().UTC(),
		Status:    models.SubmissionActive,
		Answers:   []models.Answer{},
		Logs:      []models.LogEvent{},
	}

	if err := s.repo.Submission.Create(ctx, submission); err != nil {
		// Another request opened a session between the check and the insert
		if s.enforceSingleActive && repositories.IsDuplicateKeyError(err) {
			if active, lookupErr := s.activeSession(ctx, studentID, req.TestID); lookupErr == nil && active != nil {
				return active, nil
			}
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Exam session started",
		"session_id", submission.SessionID,
		"student_id", studentID,
		"test_id", req.TestID)

	s.notifier.NotifySessionStarted(ctx, submission)

	return &StartSessionResponse{SessionID: submission.SessionID}, nil
}

func (s *sessionService) activeSession(ctx context.Context, studentID, testID string) (*StartSessionResponse, error) {
	active, err := s.repo.Submission.GetActive(ctx, studentID, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	s.logger.Info("Resuming active exam session",
		"session_id", active.SessionID,
		"student_id", studentID,
		"test_id", testID)
	return &StartSessionResponse{SessionID: active.SessionID, Resumed: true}, nil
}

// sessionWriteError maps a failed keyed write onto service errors.
func sessionWriteError(err error, studentID, sessionID, action string) error {
	switch {
	case repositories.IsNotFoundError(err):
		return ErrSessionNotFound
	case repositories.IsNotOwnerError(err):
		return NewPermissionError(studentID, sessionID, "session", action, "session belongs to another student")
	case repositories.IsConditionFailedError(err):
		return ErrSessionAlreadyCompleted
	}
	return fmt.Errorf("failed to %s: %w", strings.ReplaceAll(action, "_", " "), err)
}

// ownedSession loads a session for a read on behalf of studentID.
func (s *sessionService) ownedSession(ctx context.Context, studentID, sessionID, action string) (*models.Submission, error) {
	if studentID == "" {
		return nil, ErrUnauthorized
	}
	submission, err := s.repo.Submission.GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if submission.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "session", action, "session belongs to another student")
	}
	return submission, nil
}

func (s *sessionService) RecordLog(ctx context.Context, studentID string, req *LogEventRequest) error {
	if studentID == "" {
		return ErrUnauthorized
	}
	if err := validateRequest(s.validator, req); err != nil {
		return err
	}

	logType := models.LogType(req.LogType)
	if logType == "" {
		logType = models.LogInfo
	}

	event := models.LogEvent{
		Timestamp: s.now().UTC(),
		Type:      logType,
		Message:   req.LogMessage,
	}

	if err := s.repo.Submission.AppendLog(ctx, repositories.OwnedSession(req.SessionID, studentID), event); err != nil {
		return sessionWriteError(err, studentID, req.SessionID, "append_log")
	}

	s.logger.Debug("Proctoring event recorded",
		"session_id", req.SessionID,
		"log_type", logType)
	return nil
}

// RecordViolation appends the violation and locks the session in one store
// write. Repeated violations keep appending and overwrite the lock fields.
func (s *sessionService) RecordViolation(ctx context.Context, studentID string, req *ViolationRequest) (err error) {
	op := s.ops.WithOperation(ctx, "record_violation", studentID)
	defer func() { op.LogResult(req.SessionID, "session", err) }()

	if studentID == "" {
		return ErrUnauthorized
	}
	if req.SessionID == "" || req.Type == "" {
		return fmt.Errorf("%w: session_id and type are required", ErrInvalidViolation)
	}
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidViolation, err)
	}

	now := s.now().UTC()
	message := req.Reason
	if message == "" {
		message = req.Type
	}

	update := repositories.ViolationUpdate{
		Event: models.LogEvent{
			Timestamp:         now,
			Type:              models.LogExamViolation,
			Message:           message,
			ViolationType:     req.Type,
			Reason:            req.Reason,
			TabSwitchCount:    req.TabSwitchCount,
			MultiFaceDetected: req.MultiFaceDetected,
			ExamLocked:        true,
		},
		LockReason:    req.Reason,
		LockTimestamp: now,
	}

	if err := s.repo.Submission.AppendViolation(ctx, repositories.OwnedSession(req.SessionID, studentID), update); err != nil {
		return sessionWriteError(err, studentID, req.SessionID, "record_violation")
	}

	s.logger.Warn("Exam locked after violation",
		"session_id", req.SessionID,
		"violation_type", req.Type,
		"reason", req.Reason)

	s.notifier.NotifySessionLocked(ctx, events.SessionLockedEvent{
		SessionID:         req.SessionID,
		ViolationType:     req.Type,
		Reason:            req.Reason,
		TabSwitchCount:    req.TabSwitchCount,
		MultiFaceDetected: req.MultiFaceDetected,
		LockedAt:          now,
	})
	return nil
}

// AttachSelfie stores the image and records its path. An unknown session
// and a blob store failure are reported the same way; another student's
// session is refused before anything is stored.
func (s *sessionService) AttachSelfie(ctx context.Context, studentID, sessionID string, image []byte) (string, error) {
	if err := requireID("session_id", sessionID); err != nil {
		return "", err
	}

	if _, err := s.ownedSession(ctx, studentID, sessionID, "attach_selfie"); err != nil {
		if IsForbidden(err) || IsUnauthorized(err) {
			return "", err
		}
		s.logger.Warn("Selfie for unknown session", "session_id", sessionID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSelfieUploadFailed, err)
	}

	name := fmt.Sprintf("selfie_%s_%s.jpeg", sessionID, s.now().UTC().Format(selfieTimeLayout))
	path, err := s.blobStore.Store(ctx, name, image, "image/jpeg")
	if err != nil {
		s.logger.Error("Failed to store selfie", "session_id", sessionID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSelfieUploadFailed, err)
	}

	if err := s.repo.Submission.SetSelfiePath(ctx, repositories.OwnedSession(sessionID, studentID), path); err != nil {
		// the blob is already written and nothing references it now
		s.logger.Error("Failed to record selfie path, stored blob is orphaned",
			"session_id", sessionID,
			"orphaned_path", path,
			"error", err)
		return "", fmt.Errorf("%w: %w", ErrSelfieUploadFailed, err)
	}

	s.logger.Info("Selfie stored", "session_id", sessionID, "path", path)
	return path, nil
}

// Submit closes an active session. Only the first submit wins; later ones
// get ErrSessionAlreadyCompleted and change nothing.
func (s *sessionService) Submit(ctx context.Context, studentID string, req *SubmitRequest) (err error) {
	op := s.ops.WithOperation(ctx, "submit_session", studentID)
	defer func() { op.LogResult(req.SessionID, "session", err) }()

	if studentID == "" {
		return ErrUnauthorized
	}
	if err := validateRequest(s.validator, req); err != nil {
		return err
	}

	endTime := s.now().UTC()
	if err := s.repo.Submission.Complete(ctx, repositories.OwnedSession(req.SessionID, studentID), req.Answers, endTime); err != nil {
		return sessionWriteError(err, studentID, req.SessionID, "complete_session")
	}

	s.logger.Info("Exam submitted",
		"session_id", req.SessionID,
		"answers", len(req.Answers))

	submission, err := s.repo.Submission.GetByID(ctx, req.SessionID)
	if err != nil {
		s.logger.Warn("Submitted session not readable for notification",
			"session_id", req.SessionID,
			"error", err)
		return nil
	}
	s.notifier.NotifySessionSubmitted(ctx, submission)
	return nil
}

// ===== READ PATHS =====

func (s *sessionService) GetSummary(ctx context.Context, studentID, sessionID string) (*SubmissionSummary, error) {
	submission, err := s.ownedSession(ctx, studentID, sessionID, "view_summary")
	if err != nil {
		return nil, err
	}

	summary := &SubmissionSummary{
		ExamName:           notAvailable,
		EndTime:            s.zone.FormatPtr(submission.EndTime, utils.LayoutDateTime, notAvailable),
		QuestionsAttempted: submission.AttemptedCount(),
		Warnings:           submission.WarningCount(),
	}

	test, err := s.repo.Test.GetByID(ctx, submission.TestID)
	switch {
	case err == nil:
		summary.ExamName = test.Name
		summary.TotalQuestions = len(test.Questions)
	case !repositories.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	return summary, nil
}

func (s *sessionService) GetStudentResult(ctx context.Context, studentID, sessionID string) (*StudentResult, error) {
	submission, err := s.ownedSession(ctx, studentID, sessionID, "view_results")
	if err != nil {
		return nil, err
	}

	decision := s.gate.Check(submission)
	if decision.State == visibility.StateNotYetSubmitted {
		return nil, ErrResultsNotSubmitted
	}

	result := &StudentResult{
		State:                       decision.State,
		SessionID:                   sessionID,
		SubmissionTime:              *decision.SubmittedAt,
		ResultsAvailableTime:        *decision.AvailableAt,
		SubmissionTimeDisplay:       s.zone.Format(*decision.SubmittedAt, utils.LayoutLong),
		ResultsAvailableTimeDisplay: s.zone.Format(*decision.AvailableAt, utils.LayoutLong),
	}

	if !decision.IsAvailable() {
		result.RemainingTime = &RemainingTime{
			Hours:   decision.RemainingHours,
			Minutes: decision.RemainingMinutes,
		}
		return result, nil
	}

	test, err := s.repo.Test.GetByID(ctx, submission.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	student, err := s.repo.User.GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	graded := grading.Grade(test, submission).Redacted()

	result.ResultsAvailable = true
	result.ExamName = test.Name
	result.ExamCode = test.Code
	result.StudentName = student.FullName
	result.Score = graded.Score
	result.Answers = graded.Answers
	return result, nil
}
