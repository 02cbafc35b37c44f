package recorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(taskID string) timer.Record {
	end := time.Date(2026, 3, 2, 10, 25, 0, 0, time.UTC)
	return timer.Record{
		TaskID:         taskID,
		Kind:           timer.KindWork,
		StartedAt:      end.Add(-25 * time.Minute),
		EndedAt:        end,
		PlannedMinutes: 25,
		Interruptions:  2,
		Finished:       true,
	}
}

func TestFocusSession(t *testing.T) {
	rec := sampleRecord("task-1")
	fs := FocusSession(rec)

	assert.Equal(t, "task-1", fs.TaskID)
	assert.Equal(t, models.SessionKindWork, fs.Kind)
	assert.Equal(t, rec.StartedAt, fs.StartedAt)
	assert.Equal(t, rec.EndedAt, fs.EndedAt)
	assert.Equal(t, 25, fs.PlannedMinutes)
	assert.Equal(t, 2, fs.Interruptions)
	assert.True(t, fs.Finished)
	assert.Empty(t, fs.ID)
}

func TestStoreRecorder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &models.Task{Title: "Slides"}
	require.NoError(t, s.CreateTask(ctx, task))

	r := NewStoreRecorder(s)
	require.NoError(t, r.RecordSession(ctx, sampleRecord(task.ID)))

	sessions, err := s.ListSessions(ctx, store.SessionListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, task.ID, sessions[0].TaskID)
	assert.Equal(t, 2, sessions[0].Interruptions)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ActualPomodoros)
}

func TestStoreRecorder_ImplementsEngineRecorder(t *testing.T) {
	var _ timer.Recorder = NewStoreRecorder(newTestStore(t))
	var _ timer.Recorder = NewHTTPRecorder("http://localhost", nil)
}

func TestHTTPRecorder_PostsRecord(t *testing.T) {
	var got timer.Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SessionsPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"01ABC"}`))
	}))
	defer srv.Close()

	r := NewHTTPRecorder(srv.URL+"/", srv.Client())
	rec := sampleRecord("task-9")
	require.NoError(t, r.RecordSession(context.Background(), rec))

	assert.Equal(t, "task-9", got.TaskID)
	assert.Equal(t, timer.KindWork, got.Kind)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, 25, got.PlannedMinutes)
	assert.True(t, got.Finished)
}

func TestHTTPRecorder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid kind"}`))
	}))
	defer srv.Close()

	err := NewHTTPRecorder(srv.URL, srv.Client()).RecordSession(context.Background(), sampleRecord(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid kind")
}

func TestHTTPRecorder_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPRecorder(srv.URL, srv.Client()).RecordSession(context.Background(), sampleRecord(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPRecorder_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewHTTPRecorder(srv.URL, srv.Client()).RecordSession(ctx, sampleRecord(""))
	assert.Error(t, err)
}
