package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/utils"
	"github.com/SAP-F-2025/proctor-service/internal/validator"
	"github.com/SAP-F-2025/proctor-service/internal/visibility"
)

type catalogService struct {
	repo      *repositories.Repositories
	notifier  NotificationEventService
	validator *validator.Validator
	gate      *visibility.Gate
	zone      *utils.DisplayZone
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewCatalogService(deps Dependencies, gate *visibility.Gate, notifier NotificationEventService) CatalogService {
	deps.withDefaults()
	return &catalogService{
		repo:      deps.Repos,
		notifier:  notifier,
		validator: deps.Validator,
		gate:      gate,
		zone:      deps.DisplayZone,
		now:       deps.Clock,
		newID:     deps.NewID,
		logger:    deps.Logger,
		ops:       NewServiceLogger(deps.Logger, "catalog"),
	}
}

// SampleTest is the practice test every student can take at any time.
func SampleTest(createdAt time.Time) *models.Test {
	return &models.Test{
		TestID:          models.SampleTestID,
		Name:            "Sample Physics Test",
		Code:            "PHY-DUMMY",
		DurationSeconds: 600,
		Questions: []models.Question{
			{
				Type:    models.QuestionMCQ,
				Text:    "What is the unit of force?",
				Options: []string{"Newton", "Watt", "Joule", "Pascal"},
				Answer:  models.StringPtr("Newton"),
			},
			{
				Type: models.QuestionSubjective,
				Text: "Explain Newton's Second Law of Motion.",
			},
		},
		CreatedAt: createdAt,
	}
}

// ===== TEST DEFINITIONS =====

func (s *catalogService) Create(ctx context.Context, req *CreateTestRequest) (test *models.Test, err error) {
	op := s.ops.WithOperation(ctx, "create_test", "admin")
	defer func() {
		id := ""
		if test != nil {
			id = test.TestID
		}
		op.LogResult(id, "test", err)
	}()

	if err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, requireID("title", req.Title)
	}

	minutes, err := req.Duration.Int64()
	if err != nil || minutes <= 0 {
		return nil, ErrInvalidDuration
	}

	if errs := s.validator.Test().ValidateQuestions(req.Questions); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	var scheduled *time.Time
	if raw := strings.TrimSpace(req.ScheduledDatetime); raw != "" {
		at, err := utils.ParseScheduleTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		scheduled = &at
	}

	id := s.newID()
	if len(id) > 8 {
		id = id[:8]
	}
	prefix := id
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}

	questions := make([]models.Question, len(req.Questions))
	for i, q := range req.Questions {
		q.Text = strings.TrimSpace(q.Text)
		questions[i] = q
	}

	test = &models.Test{
		TestID:            id,
		Name:              title,
		Code:              initials(title) + "-" + strings.ToUpper(prefix),
		DurationSeconds:   int(minutes) * 60,
		Questions:         questions,
		ScheduledDatetime: scheduled,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.repo.Test.Create(ctx, test); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: test id %s", ErrConflict, id)
		}
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created",
		"test_id", test.TestID,
		"code", test.Code,
		"questions", len(test.Questions))

	s.notifier.NotifyTestCreated(ctx, test)
	return test, nil
}

func (s *catalogService) GetByID(ctx context.Context, testID string) (*models.Test, error) {
	test, err := s.repo.Test.GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetForStudent returns the test without the mcq answers.
func (s *catalogService) GetForStudent(ctx context.Context, testID string) (*models.Test, error) {
	test, err := s.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	return test.StudentView(), nil
}

func (s *catalogService) ExamOptions(ctx context.Context) ([]ExamOption, error) {
	tests, err := s.repo.Test.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	options := make([]ExamOption, 0, len(tests))
	for _, t := range tests {
		options = append(options, ExamOption{ID: t.TestID, Name: t.Name})
	}
	return options, nil
}

func (s *catalogService) Delete(ctx context.Context, testID string) (result *DeleteResult, err error) {
	op := s.ops.WithOperation(ctx, "delete_test", "admin")
	defer func() { op.LogResult(testID, "test", err) }()

	if testID == models.SampleTestID {
		return nil, ErrSampleTestProtected
	}

	removed, err := s.repo.Test.DeleteWithSubmissions(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to delete test: %w", err)
	}

	s.logger.Info("Test deleted",
		"test_id", testID,
		"removed_submissions", removed)

	s.notifier.NotifyTestDeleted(ctx, testID, removed)
	return &DeleteResult{ID: testID, RemovedSubmissions: removed}, nil
}

// EnsureSampleTest seeds the sample test once. Running it again is a no-op.
func (s *catalogService) EnsureSampleTest(ctx context.Context) error {
	exists, err := s.repo.Test.Exists(ctx, models.SampleTestID)
	if err != nil {
		return fmt.Errorf("failed to check sample test: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.repo.Test.Create(ctx, SampleTest(s.now().UTC())); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create sample test: %w", err)
	}

	s.logger.Info("Sample test created", "test_id", models.SampleTestID)
	return nil
}

// ===== STUDENT DASHBOARD =====

// ListForStudent splits the catalog into what the student can take now,
// what is scheduled later and what they already completed. Tests the
// student completed are left out of the first two lists; the sample test
// always leads the available list.
func (s *catalogService) ListForStudent(ctx context.Context, studentID string) (*StudentDashboard, error) {
	student, err := s.repo.User.GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	tests, err := s.repo.Test.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	completedStatus := models.SubmissionCompleted
	submissions, err := s.repo.Submission.List(ctx, repositories.SubmissionFilters{
		StudentID: studentID,
		Status:    &completedStatus,
		SortBy:    "end_time",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	dashboard := &StudentDashboard{
		StudentName: student.FullName,
		Available:   []TestCard{},
		Upcoming:    []TestCard{},
		Completed:   []CompletedTestCard{},
	}

	byID := make(map[string]*models.Test, len(tests))
	for _, t := range tests {
		byID[t.TestID] = t
	}

	completed := make(map[string]bool, len(submissions))
	for _, sub := range submissions {
		completed[sub.TestID] = true
		test, ok := byID[sub.TestID]
		if !ok {
			continue
		}
		dashboard.Completed = append(dashboard.Completed, CompletedTestCard{
			TestCard:         s.card(test),
			SubmissionID:     sub.SessionID,
			SubmissionTime:   sub.EndTime,
			ResultsAvailable: s.gate.Check(sub).IsAvailable(),
		})
	}

	now := s.now().UTC()
	for _, t := range tests {
		if t.IsSample() || completed[t.TestID] {
			continue
		}
		if t.ScheduledDatetime != nil && now.Before(*t.ScheduledDatetime) {
			dashboard.Upcoming = append(dashboard.Upcoming, s.card(t))
		} else {
			dashboard.Available = append(dashboard.Available, s.card(t))
		}
	}

	if sample, ok := byID[models.SampleTestID]; ok {
		dashboard.Available = append([]TestCard{s.card(sample)}, dashboard.Available...)
	}

	return dashboard, nil
}

func (s *catalogService) card(t *models.Test) TestCard {
	return TestCard{
		TestID:            t.TestID,
		Name:              t.Name,
		Code:              t.Code,
		DurationSeconds:   t.DurationSeconds,
		QuestionCount:     len(t.Questions),
		ScheduledDatetime: t.ScheduledDatetime,
		ScheduledDisplay:  s.zone.FormatPtr(t.ScheduledDatetime, utils.LayoutLong, ""),
	}
}
