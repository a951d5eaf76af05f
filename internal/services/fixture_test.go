package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/events"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/repositories/memory"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockBlobStore is a mock implementation of storage.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, name, data, contentType)
	return args.String(0), args.Error(1)
}

type fixture struct {
	repos     *repositories.Repositories
	clock     *fakeClock
	publisher *events.InMemoryPublisher
	blobs     *MockBlobStore
	services  ServiceManager
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, configure ...func(*Dependencies)) *fixture {
	t.Helper()

	opts := Dependencies{}
	for _, c := range configure {
		c(&opts)
	}
	enforce := opts.EnforceSingleActiveSession

	f := &fixture{
		repos:     memory.Open(memory.WithSingleActiveSession(enforce)).Repositories(),
		clock:     &fakeClock{now: baseTime},
		publisher: events.NewInMemoryPublisher(quietLogger()),
		blobs:     &MockBlobStore{},
	}

	deps := Dependencies{
		Repos:        f.repos,
		BlobStore:    f.blobs,
		Publisher:    f.publisher,
		Logger:       quietLogger(),
		Clock:        f.clock.Now,
		DisplayZone:  utils.MustDisplayZone("+05:30"),
		ResultsDelay: 24 * time.Hour,
	}
	for _, c := range configure {
		c(&deps)
	}
	f.services = NewServiceManager(deps)
	return f
}

// seed adds one student and one test with an mcq and a subjective question.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.repos.User.Create(ctx, &models.User{
		UserID:   "S1",
		FullName: "Asha Rao",
		Role:     models.RoleStudent,
	}))
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
}

func (f *fixture) start(t *testing.T, studentID, testID string) string {
	t.Helper()
	resp, err := f.services.Session().Start(context.Background(), studentID, &StartSessionRequest{TestID: testID})
	require.NoError(t, err)
	return resp.SessionID
}

func answer(text, value string) models.Answer {
	return models.Answer{QuestionText: text, Answer: models.StringPtr(value)}
}
