package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the lifecycle events this service emits
type EventType string

const (
	// Session events
	EventSessionStarted   EventType = "session.started"
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionLocked    EventType = "session.locked"

	// Catalog events
	EventTestCreated EventType = "test.created"
	EventTestDeleted EventType = "test.deleted"

	// User events
	EventStudentDeleted EventType = "student.deleted"
)

const (
	eventSource  = "proctor-service"
	eventVersion = "1.0"
)

// Event is the envelope published for every lifecycle change
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Session event payloads

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	TestID    string    `json:"test_id"`
	StartedAt time.Time `json:"started_at"`
}

type SessionSubmittedEvent struct {
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	TestID      string    `json:"test_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	AnswerCount int       `json:"answer_count"`
	Attempted   int       `json:"attempted"`
}

type SessionLockedEvent struct {
	SessionID         string    `json:"session_id"`
	ViolationType     string    `json:"violation_type"`
	Reason            string    `json:"reason"`
	TabSwitchCount    int       `json:"tab_switch_count"`
	MultiFaceDetected bool      `json:"multi_face_detected"`
	LockedAt          time.Time `json:"locked_at"`
}

// Catalog and user event payloads

type TestCreatedEvent struct {
	TestID            string     `json:"test_id"`
	Name              string     `json:"name"`
	Code              string     `json:"code"`
	QuestionCount     int        `json:"question_count"`
	ScheduledDatetime *time.Time `json:"scheduled_datetime,omitempty"`
}

type TestDeletedEvent struct {
	TestID             string `json:"test_id"`
	RemovedSubmissions int64  `json:"removed_submissions"`
}

type StudentDeletedEvent struct {
	StudentID          string `json:"student_id"`
	RemovedSubmissions int64  `json:"removed_submissions"`
}

// Event factory functions

func NewEvent(eventType EventType, at time.Time, data interface{}) *Event {
	return &Event{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: at,
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewSessionStartedEvent(sessionID, studentID, testID string, startedAt time.Time) *Event {
	return NewEvent(EventSessionStarted, startedAt, SessionStartedEvent{
		SessionID: sessionID,
		StudentID: studentID,
		TestID:    testID,
		StartedAt: startedAt,
	})
}

func NewSessionLockedEvent(payload SessionLockedEvent) *Event {
	return NewEvent(EventSessionLocked, payload.LockedAt, payload)
}

// Key is the entity an event belongs to: the session for session events, the
// test or student otherwise. Events with the same key share a partition.
func (e *Event) Key() string {
	switch d := e.Data.(type) {
	case SessionStartedEvent:
		return d.SessionID
	case SessionSubmittedEvent:
		return d.SessionID
	case SessionLockedEvent:
		return d.SessionID
	case TestCreatedEvent:
		return d.TestID
	case TestDeletedEvent:
		return d.TestID
	case StudentDeletedEvent:
		return d.StudentID
	}
	return e.ID
}

func GenerateEventID() string {
	return uuid.NewString()
}
