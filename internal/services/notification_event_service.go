package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// NotificationEventService tells downstream consumers about lifecycle
// changes. Publishing is best effort: a failed publish is logged and never
// fails the operation that triggered it.
type NotificationEventService interface {
	NotifySessionStarted(ctx context.Context, submission *models.Submission)
	NotifySessionSubmitted(ctx context.Context, submission *models.Submission)
	NotifySessionLocked(ctx context.Context, payload events.SessionLockedEvent)

	NotifyTestCreated(ctx context.Context, test *models.Test)
	NotifyTestDeleted(ctx context.Context, testID string, removed int64)
	NotifyStudentDeleted(ctx context.Context, studentID string, removed int64)
}

type notificationEventService struct {
	eventPublisher events.EventPublisher
	metrics        MetricsRecorder
	logger         *slog.Logger
	now            func() time.Time
}

func NewNotificationEventService(
	eventPublisher events.EventPublisher,
	metrics MetricsRecorder,
	logger *slog.Logger,
	clock func() time.Time,
) NotificationEventService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &notificationEventService{
		eventPublisher: eventPublisher,
		metrics:        metrics,
		logger:         logger,
		now:            clock,
	}
}

// ===== SESSION NOTIFICATIONS =====

func (s *notificationEventService) NotifySessionStarted(ctx context.Context, submission *models.Submission) {
	s.publish(ctx, events.NewSessionStartedEvent(
		submission.SessionID,
		submission.StudentID,
		submission.TestID,
		submission.StartTime,
	))
}

func (s *notificationEventService) NotifySessionSubmitted(ctx context.Context, submission *models.Submission) {
	submittedAt := s.now().UTC()
	if submission.EndTime != nil {
		submittedAt = *submission.EndTime
	}

	s.publish(ctx, events.NewEvent(events.EventSessionSubmitted, submittedAt, events.SessionSubmittedEvent{
		SessionID:   submission.SessionID,
		StudentID:   submission.StudentID,
		TestID:      submission.TestID,
		SubmittedAt: submittedAt,
		AnswerCount: len(submission.Answers),
		Attempted:   submission.AttemptedCount(),
	}))
}

func (s *notificationEventService) NotifySessionLocked(ctx context.Context, payload events.SessionLockedEvent) {
	s.publish(ctx, events.NewSessionLockedEvent(payload))
}

// ===== CATALOG AND USER NOTIFICATIONS =====

func (s *notificationEventService) NotifyTestCreated(ctx context.Context, test *models.Test) {
	s.publish(ctx, events.NewEvent(events.EventTestCreated, s.now().UTC(), events.TestCreatedEvent{
		TestID:            test.TestID,
		Name:              test.Name,
		Code:              test.Code,
		QuestionCount:     len(test.Questions),
		ScheduledDatetime: test.ScheduledDatetime,
	}))
}

func (s *notificationEventService) NotifyTestDeleted(ctx context.Context, testID string, removed int64) {
	s.publish(ctx, events.NewEvent(events.EventTestDeleted, s.now().UTC(), events.TestDeletedEvent{
		TestID:             testID,
		RemovedSubmissions: removed,
	}))
}

func (s *notificationEventService) NotifyStudentDeleted(ctx context.Context, studentID string, removed int64) {
	s.publish(ctx, events.NewEvent(events.EventStudentDeleted, s.now().UTC(), events.StudentDeletedEvent{
		StudentID:          studentID,
		RemovedSubmissions: removed,
	}))
}

func (s *notificationEventService) publish(ctx context.Context, event *events.Event) {
	s.metrics.RecordLifecycle(string(event.Type))

	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish lifecycle event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}
