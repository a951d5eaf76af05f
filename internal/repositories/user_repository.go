package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// UserRepository interface for user operations
type UserRepository interface {
	// Create fails with ErrDuplicateKey when the user id is taken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)

	// DeleteWithSubmissions removes the user and every submission it owns in
	// one transaction and returns the number of submissions removed.
	DeleteWithSubmissions(ctx context.Context, id string) (int64, error)
}
