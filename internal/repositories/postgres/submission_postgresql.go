package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const appendLogsExpr = "COALESCE(logs, '[]'::jsonb) || ?::jsonb"

type SubmissionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if submission.Answers == nil {
		submission.Answers = datatypes.JSONSlice[models.Answer]{}
	}
	if submission.Logs == nil {
		submission.Logs = datatypes.JSONSlice[models.LogEvent]{}
	}
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, sessionID string) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).First(&submission, "session_id = ?", sessionID).Error; err != nil {
		return nil, translateError(err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetActive(ctx context.Context, studentID, testID string) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).
		Where("student_id = ? AND test_id = ? AND status = ?", studentID, testID, models.SubmissionActive).
		Order("start_time DESC").
		First(&submission).Error; err != nil {
		return nil, translateError(err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, error) {
	var submissions []*models.Submission

	query := s.db.WithContext(ctx).Model(&models.Submission{})
	query = s.helpers.ApplySubmissionFilters(query, filters)
	query = s.helpers.ApplySort(query, filters.SortBy, filters.SortOrder)

	if err := query.Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// keyed scopes an update to the session the key addresses, owner included.
func (s *SubmissionPostgreSQL) keyed(ctx context.Context, key repositories.SessionKey) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Submission{}).Where("session_id = ?", key.SessionID)
	if key.StudentID != "" {
		query = query.Where("student_id = ?", key.StudentID)
	}
	return query
}

// explainMiss tells why a keyed update matched no row. It runs after the
// write and never changes the outcome of it.
func (s *SubmissionPostgreSQL) explainMiss(ctx context.Context, key repositories.SessionKey) error {
	var owner struct{ StudentID string }
	err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("student_id").
		Where("session_id = ?", key.SessionID).
		Take(&owner).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case err != nil:
		return fmt.Errorf("failed to check submission: %w", err)
	case !key.Owns(owner.StudentID):
		return repositories.ErrNotOwner
	}
	return repositories.ErrConditionFailed
}

func (s *SubmissionPostgreSQL) AppendLog(ctx context.Context, key repositories.SessionKey, event models.LogEvent) error {
	payload, err := jsonbArray(event)
	if err != nil {
		return err
	}

	res := s.keyed(ctx, key).Update("logs", gorm.Expr(appendLogsExpr, payload))
	if res.Error != nil {
		return fmt.Errorf("failed to append log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.explainMiss(ctx, key)
	}
	return nil
}

func (s *SubmissionPostgreSQL) AppendViolation(ctx context.Context, key repositories.SessionKey, update repositories.ViolationUpdate) error {
	payload, err := jsonbArray(update.Event)
	if err != nil {
		return err
	}

	res := s.keyed(ctx, key).Updates(map[string]interface{}{
		"logs":           gorm.Expr(appendLogsExpr, payload),
		"exam_locked":    true,
		"lock_reason":    update.LockReason,
		"lock_timestamp": update.LockTimestamp,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to record violation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.explainMiss(ctx, key)
	}
	return nil
}

func (s *SubmissionPostgreSQL) SetSelfiePath(ctx context.Context, key repositories.SessionKey, path string) error {
	res := s.keyed(ctx, key).Update("selfie_path", path)
	if res.Error != nil {
		return fmt.Errorf("failed to set selfie path: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.explainMiss(ctx, key)
	}
	return nil
}

func (s *SubmissionPostgreSQL) Complete(ctx context.Context, key repositories.SessionKey, answers []models.Answer, endTime time.Time) error {
	if answers == nil {
		answers = []models.Answer{}
	}

	res := s.keyed(ctx, key).
		Where("status = ?", models.SubmissionActive).
		Updates(map[string]interface{}{
			"status":   models.SubmissionCompleted,
			"answers":  datatypes.JSONSlice[models.Answer](answers),
			"end_time": endTime,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.explainMiss(ctx, key)
	}
	return nil
}

func (s *SubmissionPostgreSQL) ActiveSummary(ctx context.Context) (*repositories.ActiveSummary, error) {
	var summary repositories.ActiveSummary
	if err := s.db.WithContext(ctx).Model(&models.Submission{}).
		Select("COUNT(*) AS active_sessions, COALESCE(SUM(jsonb_array_length(COALESCE(logs, '[]'::jsonb))), 0) AS pending_alerts").
		Where("status = ?", models.SubmissionActive).
		Scan(&summary).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize active sessions: %w", err)
	}
	return &summary, nil
}
