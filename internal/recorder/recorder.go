// Package recorder persists finished focus sessions for the timer engine.
package recorder

import (
	"context"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

// FocusSession converts an engine record into the stored model.
func FocusSession(rec timer.Record) *models.FocusSession {
	return &models.FocusSession{
		TaskID:         rec.TaskID,
		Kind:           models.SessionKind(rec.Kind),
		StartedAt:      rec.StartedAt,
		EndedAt:        rec.EndedAt,
		PlannedMinutes: rec.PlannedMinutes,
		Interruptions:  rec.Interruptions,
		Finished:       rec.Finished,
	}
}

// StoreRecorder writes sessions straight into the local database.
type StoreRecorder struct {
	store store.Store
}

// NewStoreRecorder returns a recorder backed by s.
func NewStoreRecorder(s store.Store) *StoreRecorder {
	return &StoreRecorder{store: s}
}

// RecordSession implements timer.Recorder.
func (r *StoreRecorder) RecordSession(ctx context.Context, rec timer.Record) error {
	return r.store.RecordSession(ctx, FocusSession(rec))
}
