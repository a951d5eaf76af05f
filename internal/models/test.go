package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMCQ        QuestionType = "mcq"
	QuestionSubjective QuestionType = "subjective"
)

// SampleTestID identifies the seeded practice test. It is never deleted and
// never gated by a schedule.
const SampleTestID = "dummy-test-01"

// Question text doubles as the join key between a Test and the answers of a
// Submission, so it must be unique within one Test.
type Question struct {
	Type    QuestionType `json:"type" validate:"required,question_type"`
	Text    string       `json:"text" validate:"required"`
	Options []string     `json:"options,omitempty"`
	Answer  *string      `json:"answer,omitempty"`
}

func (q Question) IsMCQ() bool {
	return q.Type == QuestionMCQ
}

type Test struct {
	TestID            string                       `json:"test_id" gorm:"primaryKey;size:64"`
	Name              string                       `json:"name" gorm:"not null;size:200"`
	Code              string                       `json:"code" gorm:"size:64"`
	DurationSeconds   int                          `json:"duration_seconds" gorm:"not null"`
	Questions         datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`
	ScheduledDatetime *time.Time                   `json:"scheduled_datetime,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
}

func (Test) TableName() string {
	return "tests"
}

func (t *Test) IsSample() bool {
	return t.TestID == SampleTestID
}

// StudentView returns a copy of the test with the correct mcq answers removed.
func (t *Test) StudentView() *Test {
	view := *t
	view.Questions = make(datatypes.JSONSlice[Question], len(t.Questions))
	for i, q := range t.Questions {
		q.Answer = nil
		view.Questions[i] = q
	}
	return &view
}

// Clone deep-copies the test so callers can hold it without sharing slices.
func (t *Test) Clone() *Test {
	c := *t
	c.Questions = make(datatypes.JSONSlice[Question], len(t.Questions))
	for i, q := range t.Questions {
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		if q.Answer != nil {
			a := *q.Answer
			q.Answer = &a
		}
		c.Questions[i] = q
	}
	if t.ScheduledDatetime != nil {
		s := *t.ScheduledDatetime
		c.ScheduledDatetime = &s
	}
	return &c
}
