package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/repositories"
	"gorm.io/gorm"
)

// SharedHelpers holds query building shared by the repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

var submissionSortColumns = map[string]string{
	"start_time": "start_time",
	"end_time":   "end_time",
}

// ApplySubmissionFilters applies the optional filters of a submission listing
func (h *SharedHelpers) ApplySubmissionFilters(query *gorm.DB, filters repositories.SubmissionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != "" {
		query = query.Where("student_id = ?", filters.StudentID)
	}
	if filters.TestID != "" {
		query = query.Where("test_id = ?", filters.TestID)
	}
	return query
}

// ApplySort orders by a whitelisted column, newest first by default
func (h *SharedHelpers) ApplySort(query *gorm.DB, sortBy, sortOrder string) *gorm.DB {
	column, ok := submissionSortColumns[sortBy]
	if !ok {
		column = "start_time"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return query.Order(fmt.Sprintf("%s %s NULLS LAST", column, direction))
}

// translateError maps gorm errors onto the repository sentinels. The gorm
// connection must be opened with TranslateError for duplicate keys to surface.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicateKey
	}
	return err
}

// jsonbArray encodes values as a JSON array literal for use with the jsonb
// concatenation operator.
func jsonbArray[T any](values ...T) (string, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode jsonb payload: %w", err)
	}
	return string(data), nil
}
