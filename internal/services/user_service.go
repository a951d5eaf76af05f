package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"github.com/SAP-F-2025/proctor-service/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	repo      *repositories.Repositories
	notifier  NotificationEventService
	validator *validator.Validator
	now       func() time.Time
	logger    *slog.Logger
	ops       *ServiceLogger
}

func NewUserService(deps Dependencies, notifier NotificationEventService) UserService {
	deps.withDefaults()
	return &userService{
		repo:      deps.Repos,
		notifier:  notifier,
		validator: deps.Validator,
		now:       deps.Clock,
		logger:    deps.Logger,
		ops:       NewServiceLogger(deps.Logger, "user"),
	}
}

// ===== STUDENTS =====

func (s *userService) CreateStudent(ctx context.Context, req *CreateStudentRequest) (user *models.User, err error) {
	op := s.ops.WithOperation(ctx, "create_student", "admin")
	defer func() { op.LogResult(req.StudentID, "student", err) }()

	req.StudentID = strings.TrimSpace(req.StudentID)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}

	user = &models.User{
		UserID:    req.StudentID,
		FullName:  req.FullName,
		Role:      models.RoleStudent,
		Email:     req.Email,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateStudent
		}
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.logger.Info("Student created", "student_id", user.UserID)
	return user, nil
}

func (s *userService) ListStudents(ctx context.Context) ([]*models.User, error) {
	students, err := s.repo.User.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []*models.User{}
	}
	return students, nil
}

// DeleteStudent removes the student and every submission they own.
func (s *userService) DeleteStudent(ctx context.Context, studentID string) (result *DeleteResult, err error) {
	op := s.ops.WithOperation(ctx, "delete_student", "admin")
	defer func() { op.LogResult(studentID, "student", err) }()

	student, err := s.repo.User.GetByID(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, ErrStudentNotFound
	}

	removed, err := s.repo.User.DeleteWithSubmissions(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to delete student: %w", err)
	}

	s.logger.Info("Student deleted",
		"student_id", studentID,
		"removed_submissions", removed)

	s.notifier.NotifyStudentDeleted(ctx, studentID, removed)
	return &DeleteResult{ID: studentID, RemovedSubmissions: removed}, nil
}

// ===== AUTHENTICATION =====

// AuthenticateStudent matches roll number and full name, as printed on the
// admit card.
func (s *userService) AuthenticateStudent(ctx context.Context, req *StudentLoginRequest) (*Identity, error) {
	if err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, strings.TrimSpace(req.StudentID))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if user.Role != models.RoleStudent || user.FullName != strings.TrimSpace(req.FullName) {
		return nil, ErrInvalidCredentials
	}

	return &Identity{UserID: user.UserID, FullName: user.FullName, Role: user.Role}, nil
}

func (s *userService) AuthenticateAdmin(ctx context.Context, req *AdminLoginRequest) (*Identity, error) {
	if err := validateRequest(s.validator, req); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if !user.IsAdmin() || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	return &Identity{UserID: user.UserID, FullName: user.FullName, Role: user.Role}, nil
}

// EnsureAdmin seeds the admin account when it does not exist yet. An
// existing account keeps its password.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return validationFailed(ValidationErrors{
			*NewValidationError("admin", "email and password are required", email),
		})
	}

	if _, err := s.repo.User.GetByID(ctx, email); err == nil {
		return nil
	} else if !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to get admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	hashed := string(hash)

	admin := &models.User{
		UserID:       email,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		Email:        email,
		PasswordHash: &hashed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("Admin account created", "email", email)
	return nil
}
