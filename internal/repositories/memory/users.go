package memory

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
)

type userTable struct {
	db *DB
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		c.PasswordHash = &h
	}
	return &c
}

func (t *userTable) Create(_ context.Context, user *models.User) error {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	if _, exists := t.db.users[user.UserID]; exists {
		return repositories.ErrDuplicateKey
	}
	t.db.users[user.UserID] = cloneUser(user)
	return nil
}

func (t *userTable) GetByID(_ context.Context, id string) (*models.User, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	u, ok := t.db.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneUser(u), nil
}

func (t *userTable) GetByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	result := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := t.db.users[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

func (t *userTable) ListByRole(_ context.Context, role models.UserRole) ([]*models.User, error) {
	t.db.mutex.RLock()
	defer t.db.mutex.RUnlock()

	var users []*models.User
	for _, u := range t.db.users {
		if u.Role == role {
			users = append(users, cloneUser(u))
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].UserID < users[j].UserID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (t *userTable) DeleteWithSubmissions(_ context.Context, id string) (int64, error) {
	t.db.mutex.Lock()
	defer t.db.mutex.Unlock()

	if _, ok := t.db.users[id]; !ok {
		return 0, repositories.ErrNotFound
	}
	delete(t.db.users, id)
	return t.db.deleteSubmissionsWhere(func(s *models.Submission) bool {
		return s.StudentID == id
	}), nil
}
