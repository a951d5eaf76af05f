package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/repositories/memory"
	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/SAP-F-2025/proctor-service/internal/storage"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "s3cret-pass"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type apiFixture struct {
	t         *testing.T
	repos     *repositories.Repositories
	clock     *testClock
	publisher *events.InMemoryPublisher
	selfieDir string
	router    *gin.Engine
}

func newAPIFixture(t *testing.T, limiter *RateLimiter) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &apiFixture{
		t:         t,
		repos:     memory.Open().Repositories(),
		clock:     &testClock{now: baseTime},
		publisher: events.NewInMemoryPublisher(quiet),
		selfieDir: t.TempDir(),
	}

	manager := services.NewServiceManager(services.Dependencies{
		Repos:        f.repos,
		BlobStore:    storage.NewLocalBlobStore(f.selfieDir),
		Publisher:    f.publisher,
		Logger:       quiet,
		Clock:        f.clock.Now,
		DisplayZone:  utils.MustDisplayZone("+05:30"),
		ResultsDelay: 24 * time.Hour,
	})

	ctx := context.Background()
	require.NoError(t, manager.User().EnsureAdmin(ctx, adminEmail, adminPassword))
	require.NoError(t, manager.Catalog().EnsureSampleTest(ctx))
	require.NoError(t, f.repos.User.Create(ctx, &models.User{UserID: "S1", FullName: "Asha Rao", Role: models.RoleStudent}))
	require.NoError(t, f.repos.User.Create(ctx, &models.User{UserID: "S2", FullName: "Ben Ode", Role: models.RoleStudent}))
	require.NoError(t, f.repos.Test.Create(ctx, &models.Test{
		TestID:          "T1",
		Name:            "Mechanics Quiz",
		Code:            "MQ-T1",
		DurationSeconds: 600,
		Questions: []models.Question{
			{Type: models.QuestionMCQ, Text: "Q1", Options: []string{"A", "B"}, Answer: models.StringPtr("A")},
			{Type: models.QuestionSubjective, Text: "Q2"},
		},
		CreatedAt: baseTime,
	}))

	// Tokens use wall time so advancing the exam clock never expires them.
	auth := NewTokenAuthenticator("test-secret", time.Hour, time.Now)

	logger := utils.NewNopLogger()
	f.router = gin.New()
	f.router.Use(utils.ContextLogger(logger))
	NewHandlerManager(manager, auth, limiter, nil, logger).SetupRoutes(f.router)
	return f
}

func (f *apiFixture) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) studentToken(studentID, fullName string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/student/login", gin.H{"studentId": studentID, "fullName": fullName}, "")
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	return decode[LoginResponse](f.t, w).Token
}

func (f *apiFixture) adminToken() string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/admin/login", gin.H{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	return decode[LoginResponse](f.t, w).Token
}

func (f *apiFixture) startSession(token, testID string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/exam/start", gin.H{"test_id": testID}, token)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	return decode[services.StartSessionResponse](f.t, w).SessionID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
