package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// SessionKey addresses one session for a mutation. A non-empty StudentID
// makes ownership part of the match, so the check and the write are one
// store operation.
type SessionKey struct {
	SessionID string
	StudentID string
}

// AnySession matches the session whoever owns it.
func AnySession(sessionID string) SessionKey {
	return SessionKey{SessionID: sessionID}
}

// OwnedSession matches the session only when it belongs to studentID.
func OwnedSession(sessionID, studentID string) SessionKey {
	return SessionKey{SessionID: sessionID, StudentID: studentID}
}

// Owns reports whether a session owned by studentID satisfies the key.
func (k SessionKey) Owns(studentID string) bool {
	return k.StudentID == "" || k.StudentID == studentID
}

// SubmissionRepository interface for exam sessions. Every mutation is a
// single atomic operation keyed by session id; callers never read, modify
// and write back a submission.
type SubmissionRepository interface {
	// Create inserts a new session. With single-active-session enforcement
	// a second active session for the same student and test fails with
	// ErrDuplicateKey.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, sessionID string) (*models.Submission, error)
	GetActive(ctx context.Context, studentID, testID string) (*models.Submission, error)
	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, error)

	// The mutations below return ErrNotFound for an unknown session and
	// ErrNotOwner when the key names a student the session does not belong
	// to. Neither case writes anything.

	// AppendLog appends to logs regardless of status or lock state.
	AppendLog(ctx context.Context, key SessionKey, event models.LogEvent) error
	// AppendViolation appends the violation entry and sets the lock fields
	// in the same write.
	AppendViolation(ctx context.Context, key SessionKey, update ViolationUpdate) error
	SetSelfiePath(ctx context.Context, key SessionKey, path string) error

	// Complete moves an active session to completed. A session that is no
	// longer active gives ErrConditionFailed.
	Complete(ctx context.Context, key SessionKey, answers []models.Answer, endTime time.Time) error

	ActiveSummary(ctx context.Context) (*ActiveSummary, error)
}
