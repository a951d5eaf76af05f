package memory

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
)

type testTable struct {
	db *DB
}

func (t *testTable) Create(_ context.Context, test *models.Test) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	if _, exists := t.db.tests[test.TestID]; exists {
		return repositories.ErrDuplicateKey
	}
	t.db.tests[test.TestID] = test.Clone()
	return nil
}

func (t *testTable) GetByID(_ context.Context, id string) (*models.Test, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	test, ok := t.db.tests[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return test.Clone(), nil
}

func (t *testTable) GetByIDs(_ context.Context, ids []string) (map[string]*models.Test, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	result := make(map[string]*models.Test, len(ids))
	for _, id := range ids {
		if test, ok := t.db.tests[id]; ok {
			result[id] = test.Clone()
		}
	}
	return result, nil
}

func (t *testTable) List(_ context.Context) ([]*models.Test, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	tests := make([]*models.Test, 0, len(t.db.tests))
	for _, test := range t.db.tests {
		tests = append(tests, test.Clone())
	}
	sort.SliceStable(tests, func(i, j int) bool {
		if tests[i].CreatedAt.Equal(tests[j].CreatedAt) {
			return tests[i].TestID < tests[j].TestID
		}
		return tests[i].CreatedAt.Before(tests[j].CreatedAt)
	})
	return tests, nil
}

func (t *testTable) Exists(_ context.Context, id string) (bool, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	_, ok := t.db.tests[id]
	return ok, nil
}

func (t *testTable) DeleteWithSubmissions(_ context.Context, id string) (int64, error) {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	if _, ok := t.db.tests[id]; !ok {
		return 0, repositories.ErrNotFound
	}
	delete(t.db.tests, id)
	return t.db.deleteSubmissionsWhere(func(s *models.Submission) bool {
		return s.TestID == id
	}), nil
}
