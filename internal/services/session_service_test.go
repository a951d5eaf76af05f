package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/grading"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an empty active session", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)

		id := f.start(t, "S1", "T1")

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionActive, sub.Status)
		assert.Equal(t, baseTime, sub.StartTime)
		assert.Empty(t, sub.Answers)
		assert.Empty(t, sub.Logs)
		assert.Nil(t, sub.EndTime)

		assert.Len(t, f.publisher.EventsOfType(events.EventSessionStarted), 1)
	})

	t.Run("unknown student", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)

		_, err := f.services.Session().Start(ctx, "nobody", &StartSessionRequest{TestID: "T1"})
		assert.ErrorIs(t, err, ErrStudentNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("unknown test", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)

		_, err := f.services.Session().Start(ctx, "S1", &StartSessionRequest{TestID: "missing"})
		assert.ErrorIs(t, err, ErrTestNotFound)
	})

	t.Run("missing test id", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)

		_, err := f.services.Session().Start(ctx, "S1", &StartSessionRequest{})
		assert.True(t, IsValidation(err))
	})

	t.Run("permissive mode allows parallel sessions", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)

		first := f.start(t, "S1", "T1")
		second := f.start(t, "S1", "T1")
		assert.NotEqual(t, first, second)
	})

	t.Run("single active session returns the existing one", func(t *testing.T) {
		f := newFixture(t, func(d *Dependencies) { d.EnforceSingleActiveSession = true })
		f.seed(t)

		first, err := f.services.Session().Start(ctx, "S1", &StartSessionRequest{TestID: "T1"})
		require.NoError(t, err)
		assert.False(t, first.Resumed)

		second, err := f.services.Session().Start(ctx, "S1", &StartSessionRequest{TestID: "T1"})
		require.NoError(t, err)
		assert.True(t, second.Resumed)
		assert.Equal(t, first.SessionID, second.SessionID)

		require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: first.SessionID, Answers: []models.Answer{}}))
		third := f.start(t, "S1", "T1")
		assert.NotEqual(t, first.SessionID, third)
	})

	t.Run("single active session under concurrent starts", func(t *testing.T) {
		f := newFixture(t, func(d *Dependencies) { d.EnforceSingleActiveSession = true })
		f.seed(t)

		const workers = 20
		ids := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp, err := f.services.Session().Start(ctx, "S1", &StartSessionRequest{TestID: "T1"})
				if assert.NoError(t, err) {
					ids[i] = resp.SessionID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})
}

func TestSessionService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("completes once", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		f.clock.Advance(5 * time.Minute)
		require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{
			SessionID: id,
			Answers:   []models.Answer{answer("Q1", "A")},
		}))

		f.clock.Advance(time.Minute)
		err := f.services.Session().Submit(ctx, "S1", &SubmitRequest{
			SessionID: id,
			Answers:   []models.Answer{answer("Q1", "B")},
		})
		assert.ErrorIs(t, err, ErrSessionAlreadyCompleted)
		assert.True(t, IsConflict(err))

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionCompleted, sub.Status)
		require.Len(t, sub.Answers, 1)
		assert.Equal(t, "A", *sub.Answers[0].Answer)
		require.NotNil(t, sub.EndTime)
		assert.Equal(t, baseTime.Add(5*time.Minute), *sub.EndTime)

		submitted := f.publisher.EventsOfType(events.EventSessionSubmitted)
		require.Len(t, submitted, 1)
		payload, ok := submitted[0].Data.(events.SessionSubmittedEvent)
		require.True(t, ok)
		assert.Equal(t, 1, payload.Attempted)
	})

	t.Run("concurrent submits have one winner", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		const workers = 10
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded, conflicts := 0, 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := f.services.Session().Submit(ctx, "S1", &SubmitRequest{
					SessionID: id,
					Answers:   []models.Answer{answer("Q1", fmt.Sprintf("answer-%d", i))},
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if IsConflict(err) {
					conflicts++
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, workers-1, conflicts)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		err := f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: "ghost", Answers: []models.Answer{}})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("answers are required", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		err := f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: id})
		assert.True(t, IsValidation(err))
	})

	t.Run("lock does not block submit", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		require.NoError(t, f.services.Session().RecordViolation(ctx, "S1", &ViolationRequest{SessionID: id, Type: "tab_switch", Reason: "left the tab"}))
		assert.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: id, Answers: []models.Answer{}}))
	})
}

func TestSessionService_RecordLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	id := f.start(t, "S1", "T1")

	require.NoError(t, f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogMessage: "camera on"}))
	require.NoError(t, f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogType: "warning", LogMessage: "looked away"}))

	sub, err := f.repos.Submission.GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, sub.Logs, 2)
	assert.Equal(t, models.LogInfo, sub.Logs[0].Type)
	assert.Equal(t, models.LogWarning, sub.Logs[1].Type)
	assert.Equal(t, baseTime, sub.Logs[1].Timestamp)

	t.Run("logs keep growing after completion", func(t *testing.T) {
		require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: id, Answers: []models.Answer{}}))
		require.NoError(t, f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogType: "error", LogMessage: "late"}))

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Len(t, sub.Logs, 3)
	})

	t.Run("unknown session", func(t *testing.T) {
		err := f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: "ghost"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("malformed log type", func(t *testing.T) {
		err := f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogType: "Not A Type"})
		assert.True(t, IsValidation(err))
	})
}

func TestSessionService_RecordViolation(t *testing.T) {
	ctx := context.Background()

	t.Run("every violation appends one entry and locks", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		for i := 1; i <= 3; i++ {
			f.clock.Advance(time.Second)
			require.NoError(t, f.services.Session().RecordViolation(ctx, "S1", &ViolationRequest{
				SessionID:      id,
				Type:           "tab_switch",
				Reason:         fmt.Sprintf("switch %d", i),
				TabSwitchCount: i,
			}))

			sub, err := f.repos.Submission.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Len(t, sub.Logs, i)
			assert.True(t, sub.ExamLocked)
			require.NotNil(t, sub.LockReason)
			assert.Equal(t, fmt.Sprintf("switch %d", i), *sub.LockReason)
			require.NotNil(t, sub.LockTimestamp)
			assert.Equal(t, f.clock.Now(), *sub.LockTimestamp)

			last := sub.Logs[len(sub.Logs)-1]
			assert.Equal(t, models.LogExamViolation, last.Type)
			assert.Equal(t, i, last.TabSwitchCount)
			assert.True(t, last.ExamLocked)
			assert.Equal(t, *sub.LockTimestamp, last.Timestamp)
		}

		assert.Len(t, f.publisher.EventsOfType(events.EventSessionLocked), 3)
	})

	t.Run("missing type is invalid", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		err := f.services.Session().RecordViolation(ctx, "S1", &ViolationRequest{SessionID: id, Reason: "no type"})
		assert.ErrorIs(t, err, ErrInvalidViolation)
		assert.True(t, IsValidation(err))

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, sub.ExamLocked)
		assert.Empty(t, sub.Logs)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		err := f.services.Session().RecordViolation(ctx, "S1", &ViolationRequest{SessionID: "ghost", Type: "multi_face"})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("completed sessions can still be locked", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")
		require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{SessionID: id, Answers: []models.Answer{}}))

		require.NoError(t, f.services.Session().RecordViolation(ctx, "S1", &ViolationRequest{SessionID: id, Type: "multi_face", MultiFaceDetected: true}))

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, sub.ExamLocked)
		assert.Equal(t, models.SubmissionCompleted, sub.Status)
		assert.Equal(t, "multi_face", sub.Logs[0].Message)
	})
}

func TestSessionService_AttachSelfie(t *testing.T) {
	ctx := context.Background()
	image := []byte{0xff, 0xd8, 0xff}

	t.Run("stores and records the path", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		name := fmt.Sprintf("selfie_%s_20250310090000.jpeg", id)
		f.blobs.On("Store", mock.Anything, name, image, "image/jpeg").Return("/selfies/"+name, nil).Once()

		path, err := f.services.Session().AttachSelfie(ctx, "S1", id, image)
		require.NoError(t, err)
		assert.Equal(t, "/selfies/"+name, path)

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, sub.SelfiePath)
		assert.Equal(t, path, *sub.SelfiePath)
		f.blobs.AssertExpectations(t)
	})

	t.Run("blob store failure", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t)
		id := f.start(t, "S1", "T1")

		f.blobs.On("Store", mock.Anything, mock.Anything, image, "image/jpeg").Return("", errors.New("disk full")).Once()

		_, err := f.services.Session().AttachSelfie(ctx, "S1", id, image)
		assert.ErrorIs(t, err, ErrSelfieUploadFailed)
		assert.True(t, IsUpstream(err))

		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, sub.SelfiePath)
	})

	t.Run("unknown session fails the same way", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.services.Session().AttachSelfie(ctx, "S1", "ghost", image)
		assert.ErrorIs(t, err, ErrSelfieUploadFailed)
		f.blobs.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("session removed while storing logs the orphaned blob", func(t *testing.T) {
		var buf bytes.Buffer
		f := newFixture(t, func(d *Dependencies) {
			d.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
		})
		f.seed(t)
		id := f.start(t, "S1", "T1")

		f.blobs.On("Store", mock.Anything, mock.Anything, image, "image/jpeg").
			Run(func(mock.Arguments) {
				_, err := f.repos.Test.DeleteWithSubmissions(ctx, "T1")
				require.NoError(t, err)
			}).
			Return("/selfies/orphan.jpeg", nil).Once()

		_, err := f.services.Session().AttachSelfie(ctx, "S1", id, image)
		assert.ErrorIs(t, err, ErrSelfieUploadFailed)
		assert.Contains(t, buf.String(), `"orphaned_path":"/selfies/orphan.jpeg"`)
		f.blobs.AssertExpectations(t)
	})
}

func TestSessionService_OtherStudentsSession(t *testing.T) {
	ctx := context.Background()
	image := []byte{0xff, 0xd8, 0xff}

	f := newFixture(t)
	f.seed(t)
	id := f.start(t, "S1", "T1")

	t.Run("submit", func(t *testing.T) {
		err := f.services.Session().Submit(ctx, "S2", &SubmitRequest{SessionID: id, Answers: []models.Answer{answer("Q1", "A")}})
		assert.True(t, IsForbidden(err))
	})

	t.Run("log event", func(t *testing.T) {
		err := f.services.Session().RecordLog(ctx, "S2", &LogEventRequest{SessionID: id, LogMessage: "forged"})
		assert.True(t, IsForbidden(err))
	})

	t.Run("violation", func(t *testing.T) {
		err := f.services.Session().RecordViolation(ctx, "S2", &ViolationRequest{SessionID: id, Type: "tab_switch"})
		assert.True(t, IsForbidden(err))
	})

	t.Run("selfie is refused before storing", func(t *testing.T) {
		_, err := f.services.Session().AttachSelfie(ctx, "S2", id, image)
		assert.True(t, IsForbidden(err))
		f.blobs.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("summary", func(t *testing.T) {
		_, err := f.services.Session().GetSummary(ctx, "S2", id)
		assert.True(t, IsForbidden(err))
	})

	t.Run("no identity", func(t *testing.T) {
		err := f.services.Session().Submit(ctx, "", &SubmitRequest{SessionID: id, Answers: []models.Answer{}})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("session is untouched", func(t *testing.T) {
		sub, err := f.repos.Submission.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionActive, sub.Status)
		assert.False(t, sub.ExamLocked)
		assert.Empty(t, sub.Logs)
		assert.Empty(t, sub.Answers)
		assert.Nil(t, sub.SelfiePath)
		assert.Empty(t, f.publisher.EventsOfType(events.EventSessionSubmitted))
	})
}

func TestSessionService_GetSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	id := f.start(t, "S1", "T1")

	require.NoError(t, f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogType: "warning", LogMessage: "noise"}))
	require.NoError(t, f.services.Session().RecordLog(ctx, "S1", &LogEventRequest{SessionID: id, LogMessage: "ok"}))
	require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{
		SessionID: id,
		Answers:   []models.Answer{answer("Q1", "A"), {QuestionText: "Q2"}},
	}))

	summary, err := f.services.Session().GetSummary(ctx, "S1", id)
	require.NoError(t, err)
	assert.Equal(t, "Mechanics Quiz", summary.ExamName)
	assert.Equal(t, "2025-03-10 14:30:00", summary.EndTime)
	assert.Equal(t, 1, summary.QuestionsAttempted)
	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 1, summary.Warnings)

	_, err = f.services.Session().GetSummary(ctx, "S1", "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_GetStudentResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	id := f.start(t, "S1", "T1")

	_, err := f.services.Session().GetStudentResult(ctx, "S1", id)
	assert.ErrorIs(t, err, ErrResultsNotSubmitted)

	require.NoError(t, f.services.Session().Submit(ctx, "S1", &SubmitRequest{
		SessionID: id,
		Answers:   []models.Answer{answer("Q1", "B"), answer("Q2", "F = ma")},
	}))

	t.Run("hidden right after submit", func(t *testing.T) {
		result, err := f.services.Session().GetStudentResult(ctx, "S1", id)
		require.NoError(t, err)
		assert.False(t, result.ResultsAvailable)
		assert.Equal(t, visibility.StatePending, result.State)
		require.NotNil(t, result.RemainingTime)
		assert.Equal(t, 24, result.RemainingTime.Hours)
		assert.Equal(t, 0, result.RemainingTime.Minutes)
		assert.Equal(t, baseTime.Add(24*time.Hour), result.ResultsAvailableTime)
		assert.Empty(t, result.Answers)
		assert.Empty(t, result.Score)
	})

	t.Run("one hour later", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		result, err := f.services.Session().GetStudentResult(ctx, "S1", id)
		require.NoError(t, err)
		assert.Equal(t, 23, result.RemainingTime.Hours)
	})

	t.Run("other students are refused", func(t *testing.T) {
		_, err := f.services.Session().GetStudentResult(ctx, "S2", id)
		assert.True(t, IsForbidden(err))
	})

	t.Run("visible after the delay without correct answers", func(t *testing.T) {
		f.clock.Advance(23 * time.Hour)
		result, err := f.services.Session().GetStudentResult(ctx, "S1", id)
		require.NoError(t, err)
		assert.True(t, result.ResultsAvailable)
		assert.Nil(t, result.RemainingTime)
		assert.Equal(t, "0/1", result.Score)
		assert.Equal(t, "Asha Rao", result.StudentName)
		assert.Equal(t, "MQ-T1", result.ExamCode)
		require.Len(t, result.Answers, 2)
		assert.Equal(t, grading.StatusIncorrect, result.Answers[0].Status)
		assert.Nil(t, result.Answers[0].CorrectAnswer)
		assert.Equal(t, grading.StatusPending, result.Answers[1].Status)
		assert.True(t, strings.HasPrefix(result.SubmissionTimeDisplay, "March 10, 2025"))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.services.Session().GetStudentResult(ctx, "S1", "ghost")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
