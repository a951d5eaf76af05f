package postgres

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/cache"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"gorm.io/gorm"
)

const singleActiveIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_submissions_single_active
	ON submissions (student_id, test_id) WHERE status = 'active'`

// Migrate creates the three tables. With enforceSingleActive a partial
// unique index allows at most one active session per student and test.
func Migrate(db *gorm.DB, enforceSingleActive bool) error {
	if err := db.AutoMigrate(&models.User{}, &models.Test{}, &models.Submission{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if enforceSingleActive {
		if err := db.Exec(singleActiveIndex).Error; err != nil {
			return fmt.Errorf("failed to create single active session index: %w", err)
		}
	}
	return nil
}

// NewRepositories wires the PostgreSQL repositories. Test definitions are
// read through the cache.
func NewRepositories(db *gorm.DB, cacheService cache.CacheService, cacheTTL time.Duration) *repositories.Repositories {
	return &repositories.Repositories{
		User:       NewUserPostgreSQL(db),
		Test:       NewTestPostgreSQL(db, cacheService, cacheTTL),
		Submission: NewSubmissionPostgreSQL(db),
	}
}
