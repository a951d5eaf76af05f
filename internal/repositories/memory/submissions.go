package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"gorm.io/datatypes"
)

type submissionTable struct {
	db *DB
}

func (t *submissionTable) Create(_ context.Context, submission *models.Submission) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	if _, exists := t.db.submissions[submission.SessionID]; exists {
		return repositories.ErrDuplicateKey
	}
	if t.db.enforceSingleActive && submission.Status == models.SubmissionActive {
		if t.findActive(submission.StudentID, submission.TestID) != nil {
			return repositories.ErrDuplicateKey
		}
	}
	t.db.submissions[submission.SessionID] = submission.Clone()
	return nil
}

func (t *submissionTable) GetByID(_ context.Context, sessionID string) (*models.Submission, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	sub, ok := t.db.submissions[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return sub.Clone(), nil
}

func (t *submissionTable) GetActive(_ context.Context, studentID, testID string) (*models.Submission, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	sub := t.findActive(studentID, testID)
	if sub == nil {
		return nil, repositories.ErrNotFound
	}
	return sub.Clone(), nil
}

// findActive returns the newest active session; callers hold the lock.
func (t *submissionTable) findActive(studentID, testID string) *models.Submission {
	var found *models.Submission
	for _, sub := range t.db.submissions {
		if sub.StudentID != studentID || sub.TestID != testID || sub.Status != models.SubmissionActive {
			continue
		}
		if found == nil || sub.StartTime.After(found.StartTime) {
			found = sub
		}
	}
	return found
}

func (t *submissionTable) List(_ context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	var result []*models.Submission
	for _, sub := range t.db.submissions {
		if filters.Status != nil && sub.Status != *filters.Status {
			continue
		}
		if filters.StudentID != "" && sub.StudentID != filters.StudentID {
			continue
		}
		if filters.TestID != "" && sub.TestID != filters.TestID {
			continue
		}
		result = append(result, sub.Clone())
	}

	sortSubmissions(result, filters.SortBy, filters.SortOrder == "asc")
	return result, nil
}

func sortSubmissions(subs []*models.Submission, sortBy string, ascending bool) {
	key := func(s *models.Submission) (time.Time, bool) {
		if sortBy == "end_time" {
			if s.EndTime == nil {
				return time.Time{}, false
			}
			return *s.EndTime, true
		}
		return s.StartTime, true
	}

	sort.SliceStable(subs, func(i, j int) bool {
		ti, okI := key(subs[i])
		tj, okJ := key(subs[j])
		if okI != okJ {
			// missing values sort last either way
			return okI
		}
		if ti.Equal(tj) {
			return subs[i].SessionID < subs[j].SessionID
		}
		if ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
}

// match finds the session the key addresses; callers hold the write lock.
func (t *submissionTable) match(key repositories.SessionKey) (*models.Submission, error) {
	sub, ok := t.db.submissions[key.SessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if !key.Owns(sub.StudentID) {
		return nil, repositories.ErrNotOwner
	}
	return sub, nil
}

func (t *submissionTable) AppendLog(_ context.Context, key repositories.SessionKey, event models.LogEvent) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	sub, err := t.match(key)
	if err != nil {
		return err
	}
	sub.Logs = append(sub.Logs, event)
	return nil
}

func (t *submissionTable) AppendViolation(_ context.Context, key repositories.SessionKey, update repositories.ViolationUpdate) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	sub, err := t.match(key)
	if err != nil {
		return err
	}
	reason := update.LockReason
	at := update.LockTimestamp

	sub.Logs = append(sub.Logs, update.Event)
	sub.ExamLocked = true
	sub.LockReason = &reason
	sub.LockTimestamp = &at
	return nil
}

func (t *submissionTable) SetSelfiePath(_ context.Context, key repositories.SessionKey, path string) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	sub, err := t.match(key)
	if err != nil {
		return err
	}
	sub.SelfiePath = &path
	return nil
}

func (t *submissionTable) Complete(_ context.Context, key repositories.SessionKey, answers []models.Answer, endTime time.Time) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	sub, err := t.match(key)
	if err != nil {
		return err
	}
	if sub.Status != models.SubmissionActive {
		return repositories.ErrConditionFailed
	}

	stored := (&models.Submission{Answers: datatypes.JSONSlice[models.Answer](answers)}).Clone().Answers
	sub.Status = models.SubmissionCompleted
	sub.Answers = stored
	sub.EndTime = &endTime
	return nil
}

func (t *submissionTable) ActiveSummary(_ context.Context) (*repositories.ActiveSummary, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	var summary repositories.ActiveSummary
	for _, sub := range t.db.submissions {
		if sub.Status != models.SubmissionActive {
			continue
		}
		summary.ActiveSessions++
		summary.PendingAlerts += int64(len(sub.Logs))
	}
	return &summary, nil
}
