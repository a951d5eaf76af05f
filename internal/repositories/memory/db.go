package memory

import (
	"sync"

	"github.com/SAP-F-2025/proctor-service/internal/models"
	"github.com/SAP-F-2025/proctor-service/internal/repositories"
)

type (
	// DB keeps all three tables behind one lock so cascading deletes and the
	// single-active-session check are atomic.
	DB struct {
		mutex sync.RWMutex

		users       map[string]*models.User
		tests       map[string]*models.Test
		submissions map[string]*models.Submission

		enforceSingleActive bool
	}

	Option func(*DB)
)

// WithSingleActiveSession rejects a second active session for the same
// student and test with ErrDuplicateKey.
func WithSingleActiveSession(enforce bool) Option {
	return func(db *DB) {
		db.enforceSingleActive = enforce
	}
}

func Open(opts ...Option) *DB {
	db := &DB{
		users:       make(map[string]*models.User),
		tests:       make(map[string]*models.Test),
		submissions: make(map[string]*models.Submission),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Repositories exposes the tables through the repository interfaces.
func (db *DB) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		User:       &userTable{db: db},
		Test:       &testTable{db: db},
		Submission: &submissionTable{db: db},
	}
}

func (db *DB) deleteSubmissionsWhere(match func(*models.Submission) bool) int64 {
	var removed int64
	for id, sub := range db.submissions {
		if match(sub) {
			delete(db.submissions, id)
			removed++
		}
	}
	return removed
}
