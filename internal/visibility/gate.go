// Package visibility decides when a student may see the result of a
// completed submission.
package visibility

import (
	"time"

	"github.com/SAP-F-2025/proctor-service/internal/models"
)

// DefaultDelay is how long results stay hidden after submission.
const DefaultDelay = 24 * time.Hour

type State string

const (
	StateAvailable       State = "available"
	StatePending         State = "pending"
	StateNotYetSubmitted State = "not_submitted"
)

type Decision struct {
	State State `json:"state"`

	SubmittedAt *time.Time `json:"submission_time,omitempty"`
	AvailableAt *time.Time `json:"available_time,omitempty"`

	// Remaining is only set while pending, as whole hours and minutes.
	Remaining        time.Duration `json:"-"`
	RemainingHours   int           `json:"hours"`
	RemainingMinutes int           `json:"minutes"`
}

func (d Decision) IsAvailable() bool {
	return d.State == StateAvailable
}

// CanReveal applies the delay rule at the instant now. Results open once
// now - end_time >= delay.
func CanReveal(submission *models.Submission, now time.Time, delay time.Duration) Decision {
	if submission == nil || submission.EndTime == nil {
		return Decision{State: StateNotYetSubmitted}
	}

	submittedAt := submission.EndTime.UTC()
	availableAt := submittedAt.Add(delay)
	decision := Decision{
		SubmittedAt: &submittedAt,
		AvailableAt: &availableAt,
	}

	remaining := availableAt.Sub(now)
	if remaining <= 0 {
		decision.State = StateAvailable
		return decision
	}

	decision.State = StatePending
	decision.Remaining = remaining
	decision.RemainingHours = int(remaining / time.Hour)
	decision.RemainingMinutes = int((remaining % time.Hour) / time.Minute)
	return decision
}

// Gate binds the delay and a clock so callers read the time exactly once
// per decision.
type Gate struct {
	delay time.Duration
	now   func() time.Time
}

func NewGate(delay time.Duration, clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{delay: delay, now: clock}
}

func (g *Gate) Delay() time.Duration {
	return g.delay
}

func (g *Gate) Check(submission *models.Submission) Decision {
	return CanReveal(submission, g.now().UTC(), g.delay)
}
