package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestStudentLogin(t *testing.T) {
	f := newAPIFixture(t, nil)

	t.Run("wrong name", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/student/login", gin.H{"studentId": "S1", "fullName": "Someone Else"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/student/login", gin.H{"studentId": "S1"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/student/login", gin.H{"studentId": "S1", "fullName": "Asha Rao"}, "")
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[LoginResponse](t, w)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "S1", resp.User.UserID)
	})
}

func TestStudentRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(http.MethodGet, "/api/student/dashboard", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/student/dashboard", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// an admin token does not open student routes
	w = f.do(http.MethodGet, "/api/student/dashboard", nil, f.adminToken())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.studentToken("S1", "Asha Rao")

	sessionID := f.startSession(token, "T1")
	require.NotEmpty(t, sessionID)

	w := f.do(http.MethodPost, "/api/log_event", gin.H{
		"session_id": sessionID, "log_type": "warning", "log_message": "Tab switched",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/exam/violation", gin.H{
		"session_id": sessionID, "type": "multiple_faces", "reason": "Two faces detected",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/exam/submit", gin.H{
		"session_id": sessionID,
		"answers": []gin.H{
			{"question_text": "Q1", "answer": "B"},
			{"question_text": "Q2", "answer": "Newton"},
		},
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("second submit conflicts", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/exam/submit", gin.H{"session_id": sessionID, "answers": []gin.H{}}, token)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("summary", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/submission/summary/"+sessionID, nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		summary := decode[services.SubmissionSummary](t, w)
		assert.Equal(t, "Mechanics Quiz", summary.ExamName)
		assert.Equal(t, 2, summary.QuestionsAttempted)
		assert.Equal(t, 2, summary.TotalQuestions)
		assert.Equal(t, 1, summary.Warnings)
	})

	t.Run("results pending then available", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/student/results/"+sessionID, nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		pending := decode[services.StudentResult](t, w)
		assert.False(t, pending.ResultsAvailable)
		assert.Equal(t, visibility.StatePending, pending.State)
		require.NotNil(t, pending.RemainingTime)
		assert.Equal(t, services.RemainingTime{Hours: 24, Minutes: 0}, *pending.RemainingTime)
		assert.Empty(t, pending.Answers)

		f.clock.Advance(24 * time.Hour)

		w = f.do(http.MethodGet, "/api/student/results/"+sessionID, nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		result := decode[services.StudentResult](t, w)
		assert.True(t, result.ResultsAvailable)
		assert.Equal(t, "0/1", result.Score)
		require.Len(t, result.Answers, 2)
		assert.Nil(t, result.Answers[0].CorrectAnswer)
	})

	t.Run("other student is forbidden", func(t *testing.T) {
		other := f.studentToken("S2", "Ben Ode")
		w := f.do(http.MethodGet, "/api/student/results/"+sessionID, nil, other)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	assert.Len(t, f.publisher.EventsOfType(events.EventSessionSubmitted), 1)
}

func TestSessionErrors(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.studentToken("S1", "Asha Rao")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"start unknown test", http.MethodPost, "/api/exam/start", gin.H{"test_id": "nope"}, http.StatusNotFound},
		{"start without test", http.MethodPost, "/api/exam/start", gin.H{}, http.StatusBadRequest},
		{"log unknown session", http.MethodPost, "/api/log_event", gin.H{"session_id": "missing", "log_message": "x"}, http.StatusNotFound},
		{"violation without type", http.MethodPost, "/api/exam/violation", gin.H{"session_id": "missing"}, http.StatusBadRequest},
		{"violation unknown session", http.MethodPost, "/api/exam/violation", gin.H{"session_id": "missing", "type": "tab_switch"}, http.StatusNotFound},
		{"submit unknown session", http.MethodPost, "/api/exam/submit", gin.H{"session_id": "missing", "answers": []gin.H{}}, http.StatusNotFound},
		{"summary unknown session", http.MethodGet, "/api/submission/summary/missing", nil, http.StatusNotFound},
		{"results unknown session", http.MethodGet, "/api/student/results/missing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body, token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestResultsBeforeSubmit(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.studentToken("S1", "Asha Rao")
	sessionID := f.startSession(token, "T1")

	w := f.do(http.MethodGet, "/api/student/results/"+sessionID, nil, token)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadSelfie(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.studentToken("S1", "Asha Rao")
	sessionID := f.startSession(token, "T1")

	t.Run("data url", func(t *testing.T) {
		image := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
		w := f.do(http.MethodPost, "/api/exam/selfie", gin.H{"session_id": sessionID, "selfie": image}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[map[string]string](t, w)
		stored, err := os.ReadFile(resp["selfie_path"])
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(stored))
	})

	t.Run("not base64", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/exam/selfie", gin.H{"session_id": sessionID, "selfie": "%%%"}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
		w := f.do(http.MethodPost, "/api/exam/selfie", gin.H{"session_id": "missing", "selfie": image}, token)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestEventThrottling(t *testing.T) {
	f := newAPIFixture(t, NewRateLimiter(0.001, 2))
	token := f.studentToken("S1", "Asha Rao")
	sessionID := f.startSession(token, "T1")

	body := gin.H{"session_id": sessionID, "log_message": "focus lost"}
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/log_event", body, token).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/log_event", body, token).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/api/log_event", body, token).Code)

	// submit is not throttled
	w := f.do(http.MethodPost, "/api/exam/submit", gin.H{"session_id": sessionID, "answers": []gin.H{}}, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestViolationAfterLogFlood(t *testing.T) {
	f := newAPIFixture(t, NewRateLimiter(5, 20))
	token := f.studentToken("S1", "Asha Rao")
	sessionID := f.startSession(token, "T1")

	body := gin.H{"session_id": sessionID, "log_message": "focus lost"}
	limited := false
	for i := 0; i < 200 && !limited; i++ {
		limited = f.do(http.MethodPost, "/api/log_event", body, token).Code == http.StatusTooManyRequests
	}
	require.True(t, limited, "log stream should be throttled")

	w := f.do(http.MethodPost, "/api/exam/violation", gin.H{
		"session_id": sessionID, "type": "tab_switch", "reason": "left the exam tab",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sub, err := f.repos.Submission.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, sub.ExamLocked)
	require.NotNil(t, sub.LockReason)
	assert.Equal(t, "left the exam tab", *sub.LockReason)
}

func TestOtherStudentsSession(t *testing.T) {
	f := newAPIFixture(t, nil)
	owner := f.studentToken("S1", "Asha Rao")
	other := f.studentToken("S2", "Ben Ode")
	sessionID := f.startSession(owner, "T1")
	image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"submit", http.MethodPost, "/api/exam/submit", gin.H{"session_id": sessionID, "answers": []gin.H{{"question_text": "Q1", "answer": "A"}}}},
		{"log event", http.MethodPost, "/api/log_event", gin.H{"session_id": sessionID, "log_message": "forged"}},
		{"violation", http.MethodPost, "/api/exam/violation", gin.H{"session_id": sessionID, "type": "tab_switch"}},
		{"selfie", http.MethodPost, "/api/exam/selfie", gin.H{"session_id": sessionID, "selfie": image}},
		{"summary", http.MethodGet, "/api/submission/summary/" + sessionID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body, other)
			assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
		})
	}

	sub, err := f.repos.Submission.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionActive, sub.Status)
	assert.False(t, sub.ExamLocked)
	assert.Empty(t, sub.Logs)
	assert.Nil(t, sub.SelfiePath)

	// the owner can still finish
	w := f.do(http.MethodPost, "/api/exam/submit", gin.H{"session_id": sessionID, "answers": []gin.H{}}, owner)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDashboardAndDetails(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.studentToken("S1", "Asha Rao")

	w := f.do(http.MethodGet, "/api/student/dashboard", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	dashboard := decode[services.StudentDashboard](t, w)
	assert.Equal(t, "Asha Rao", dashboard.StudentName)
	require.Len(t, dashboard.Available, 2)

	w = f.do(http.MethodGet, "/api/exam/details/T1", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"answer":"A"`)

	w = f.do(http.MethodGet, "/api/exam/details/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
