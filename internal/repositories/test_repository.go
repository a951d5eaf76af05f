package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// TestRepository interface for test definitions. Tests are immutable once
// created, so there is no update.
type TestRepository interface {
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id string) (*models.Test, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Test, error)
	List(ctx context.Context) ([]*models.Test, error)
	Exists(ctx context.Context, id string) (bool, error)

	DeleteWithSubmissions(ctx context.Context, id string) (int64, error)
}
