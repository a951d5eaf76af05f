package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/cache"
	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db       *gorm.DB
	cache    cache.CacheService
	cacheTTL time.Duration
}

func NewTestPostgreSQL(db *gorm.DB, cacheService cache.CacheService, cacheTTL time.Duration) repositories.TestRepository {
	if cacheService == nil {
		cacheService = cache.NewNoopCache()
	}
	return &TestPostgreSQL{
		db:       db,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

func (t *TestPostgreSQL) Create(ctx context.Context, test *models.Test) error {
	if err := t.db.WithContext(ctx).Create(test).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GetByID reads through the cache; tests never change after creation so a
// cached copy stays valid until the test is deleted.
func (t *TestPostgreSQL) GetByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	if err := t.cache.Get(ctx, cache.TestKey(id), &test); err == nil {
		return &test, nil
	}

	if err := t.db.WithContext(ctx).First(&test, "test_id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}

	_ = t.cache.Set(ctx, cache.TestKey(id), &test, t.cacheTTL)
	return &test, nil
}

func (t *TestPostgreSQL) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Test, error) {
	result := make(map[string]*models.Test, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var tests []*models.Test
	if err := t.db.WithContext(ctx).Where("test_id IN ?", ids).Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	for _, test := range tests {
		result[test.TestID] = test
	}
	return result, nil
}

func (t *TestPostgreSQL) List(ctx context.Context) ([]*models.Test, error) {
	var tests []*models.Test
	if err := t.db.WithContext(ctx).Order("created_at ASC").Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (t *TestPostgreSQL) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).Model(&models.Test{}).Where("test_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check test existence: %w", err)
	}
	return count > 0, nil
}

func (t *TestPostgreSQL) DeleteWithSubmissions(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("test_id = ?", id).Delete(&models.Test{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repositories.ErrNotFound
		}

		res = tx.Where("test_id = ?", id).Delete(&models.Submission{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}

	_ = t.cache.Delete(ctx, cache.TestKey(id))
	return removed, nil
}
