package repositories

import (
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SubmissionFilters struct {
	Status    *models.SubmissionStatus `json:"status"`
	StudentID string                   `json:"student_id"`
	TestID    string                   `json:"test_id"`
	SortBy    string                   `json:"sort_by"`    // "start_time", "end_time"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED STATISTICS STRUCTS =====

// ActiveSummary aggregates the live sessions: how many are active and how
// many log entries they have accumulated between them.
type ActiveSummary struct {
	ActiveSessions int64 `json:"active_sessions"`
	PendingAlerts  int64 `json:"pending_alerts"`
}

// ViolationUpdate carries everything RecordViolation writes in one store call.
type ViolationUpdate struct {
	Event         models.LogEvent
	LockReason    string
	LockTimestamp time.Time
}

// Repositories groups the three record collections behind one handle.
type Repositories struct {
	User       UserRepository
	Test       TestRepository
	Submission SubmissionRepository
}
