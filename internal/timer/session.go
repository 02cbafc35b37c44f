package timer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyActive   = errors.New("a focus session is already active")
	ErrUnknownKind     = errors.New("unknown session kind")
	ErrInvalidSettings = errors.New("invalid timer settings")
	ErrClosed          = errors.New("timer engine is shut down")
)

// Kind is the type of interval a session measures.
type Kind string

const (
	KindWork       Kind = "work"
	KindShortBreak Kind = "short_break"
	KindLongBreak  Kind = "long_break"
)

// Kinds lists every valid session kind.
var Kinds = []Kind{KindWork, KindShortBreak, KindLongBreak}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWork, KindShortBreak, KindLongBreak:
		return true
	}
	return false
}

// IsBreak reports whether k is a short or long break.
func (k Kind) IsBreak() bool {
	return k == KindShortBreak || k == KindLongBreak
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Active reports whether the status is running or paused.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Session is a point-in-time copy of the engine's current session.
// Hosts only ever see Session values; mutating one has no effect on the engine.
type Session struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"task_id,omitempty"`
	Kind             Kind      `json:"kind"`
	PlannedMinutes   int       `json:"planned_minutes"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at,omitzero"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Interruptions    int       `json:"interruptions"`
	Status           Status    `json:"status"`
	Finished         bool      `json:"finished"`
}

// PlannedSeconds returns the planned duration in seconds.
func (s Session) PlannedSeconds() int {
	return s.PlannedMinutes * 60
}

// Settings holds the default duration, in minutes, of each session kind.
type Settings struct {
	WorkMinutes       int
	ShortBreakMinutes int
	LongBreakMinutes  int
}

// DefaultSettings returns the classic 25/5/15 cycle.
func DefaultSettings() Settings {
	return Settings{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
	}
}

// Validate checks that every duration is positive.
func (s Settings) Validate() error {
	if s.WorkMinutes <= 0 {
		return fmt.Errorf("%w: work duration must be positive, got %d", ErrInvalidSettings, s.WorkMinutes)
	}
	if s.ShortBreakMinutes <= 0 {
		return fmt.Errorf("%w: short break duration must be positive, got %d", ErrInvalidSettings, s.ShortBreakMinutes)
	}
	if s.LongBreakMinutes <= 0 {
		return fmt.Errorf("%w: long break duration must be positive, got %d", ErrInvalidSettings, s.LongBreakMinutes)
	}
	return nil
}

// Minutes returns the configured duration for kind.
func (s Settings) Minutes(kind Kind) (int, error) {
	switch kind {
	case KindWork:
		return s.WorkMinutes, nil
	case KindShortBreak:
		return s.ShortBreakMinutes, nil
	case KindLongBreak:
		return s.LongBreakMinutes, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// StartOptions configures a new session.
type StartOptions struct {
	TaskID string
	Kind   Kind
	// DurationMinutes overrides the configured default when positive.
	DurationMinutes int
}

// Record is what the engine hands to its Recorder when a session completes.
type Record struct {
	TaskID         string    `json:"task_id,omitempty"`
	Kind           Kind      `json:"kind"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	PlannedMinutes int       `json:"planned_minutes"`
	Interruptions  int       `json:"interruptions"`
	Finished       bool      `json:"finished"`
}

func recordOf(s Session) Record {
	return Record{
		TaskID:         s.TaskID,
		Kind:           s.Kind,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		PlannedMinutes: s.PlannedMinutes,
		Interruptions:  s.Interruptions,
		Finished:       s.Finished,
	}
}
