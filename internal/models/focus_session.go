package models

import "time"

// SessionKind is the type of interval a focus session measured.
type SessionKind string

const (
	SessionKindWork       SessionKind = "work"
	SessionKindShortBreak SessionKind = "short_break"
	SessionKindLongBreak  SessionKind = "long_break"
)

// Valid reports whether k is a known kind.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionKindWork, SessionKindShortBreak, SessionKindLongBreak:
		return true
	}
	return false
}

// FocusSession is a finished work or break interval. Rows are append-only.
type FocusSession struct {
	ID             string      `json:"id"`
	TaskID         string      `json:"task_id"`
	Kind           SessionKind `json:"kind"`
	StartedAt      time.Time   `json:"started_at"`
	EndedAt        time.Time   `json:"ended_at"`
	PlannedMinutes int         `json:"planned_minutes"`
	Interruptions  int         `json:"interruptions"`
	Finished       bool        `json:"finished"`
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CountsTowardMetrics reports whether the session adds to the daily totals.
func (s *FocusSession) CountsTowardMetrics() bool {
	return s.Finished && s.Kind == SessionKindWork
}
