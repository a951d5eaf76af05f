package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionActive    SubmissionStatus = "active"
	SubmissionCompleted SubmissionStatus = "completed"
)

type LogType string

const (
	LogInfo          LogType = "info"
	LogWarning       LogType = "warning"
	LogExamViolation LogType = "exam_violation"
)

type Answer struct {
	QuestionText string  `json:"question_text"`
	Answer       *string `json:"answer"`
}

// LogEvent is one proctoring log entry. Violation entries carry the extra
// violation fields; plain entries leave them empty.
type LogEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`

	ViolationType     string `json:"violation_type,omitempty"`
	Reason            string `json:"reason,omitempty"`
	TabSwitchCount    int    `json:"tab_switch_count,omitempty"`
	MultiFaceDetected bool   `json:"multi_face_detected,omitempty"`
	ExamLocked        bool   `json:"exam_locked,omitempty"`
}

type Submission struct {
	SessionID string           `json:"session_id" gorm:"primaryKey;size:64"`
	StudentID string           `json:"student_id" gorm:"not null;size:255;index"`
	TestID    string           `json:"test_id" gorm:"not null;size:64;index"`
	StartTime time.Time        `json:"start_time" gorm:"not null;index"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Status    SubmissionStatus `json:"status" gorm:"not null;size:20;default:active;index"`

	Answers datatypes.JSONSlice[Answer]   `json:"answers" gorm:"type:jsonb"`
	Logs    datatypes.JSONSlice[LogEvent] `json:"logs" gorm:"type:jsonb"`

	// Proctoring lock, advisory only
	ExamLocked    bool       `json:"exam_locked" gorm:"default:false"`
	LockReason    *string    `json:"lock_reason,omitempty" gorm:"type:text"`
	LockTimestamp *time.Time `json:"lock_timestamp,omitempty"`

	SelfiePath *string `json:"selfie_path,omitempty" gorm:"size:500"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) IsCompleted() bool {
	return s.Status == SubmissionCompleted
}

// WarningCount counts log entries of type warning.
func (s *Submission) WarningCount() int {
	n := 0
	for _, l := range s.Logs {
		if l.Type == LogWarning {
			n++
		}
	}
	return n
}

// AttemptedCount counts answers that carry a value.
func (s *Submission) AttemptedCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Answer != nil {
			n++
		}
	}
	return n
}

func (s *Submission) Clone() *Submission {
	c := *s
	c.Answers = make(datatypes.JSONSlice[Answer], len(s.Answers))
	for i, a := range s.Answers {
		if a.Answer != nil {
			v := *a.Answer
			a.Answer = &v
		}
		c.Answers[i] = a
	}
	c.Logs = append(datatypes.JSONSlice[LogEvent](nil), s.Logs...)
	if c.Logs == nil {
		c.Logs = datatypes.JSONSlice[LogEvent]{}
	}
	c.EndTime = cloneTime(s.EndTime)
	c.LockTimestamp = cloneTime(s.LockTimestamp)
	c.LockReason = cloneString(s.LockReason)
	c.SelfiePath = cloneString(s.SelfiePath)
	return &c
}
