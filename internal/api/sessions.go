package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

const (
	defaultSessionLimit = 10
	maxSessionLimit     = 500
)

// sessionRequest is the body of POST /api/v1/sessions. It matches the JSON
// the timer's HTTP recorder sends.
type sessionRequest struct {
	TaskID         string     `json:"task_id"`
	Kind           string     `json:"kind"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	PlannedMinutes int        `json:"planned_minutes"`
	Interruptions  int        `json:"interruptions"`
	Finished       *bool      `json:"finished"`
	Notes          string     `json:"notes"`
}

// focusSession validates the request and converts it. A missing end time
// means now; a missing finished flag means true.
func (req *sessionRequest) focusSession(now time.Time) (*models.FocusSession, error) {
	kind := models.SessionKind(req.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid kind: %q", req.Kind)
	}
	if req.StartedAt.IsZero() {
		return nil, fmt.Errorf("started_at is required")
	}
	if req.PlannedMinutes <= 0 {
		return nil, fmt.Errorf("planned_minutes must be positive")
	}
	if req.Interruptions < 0 {
		return nil, fmt.Errorf("interruptions must not be negative")
	}

	ended := now
	if req.EndedAt != nil && !req.EndedAt.IsZero() {
		ended = *req.EndedAt
	}
	if ended.Before(req.StartedAt) {
		return nil, fmt.Errorf("ended_at is before started_at")
	}
	finished := true
	if req.Finished != nil {
		finished = *req.Finished
	}

	return &models.FocusSession{
		TaskID:         req.TaskID,
		Kind:           kind,
		StartedAt:      req.StartedAt,
		EndedAt:        ended,
		PlannedMinutes: req.PlannedMinutes,
		Interruptions:  req.Interruptions,
		Finished:       finished,
		Notes:          req.Notes,
	}, nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	fs, err := req.focusSession(s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.RecordSession(r.Context(), fs); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fs)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SessionListFilter{
		TaskID: q.Get("task_id"),
		Kind:   models.SessionKind(q.Get("kind")),
		Limit:  defaultSessionLimit,
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid kind: %q", filter.Kind))
		return
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", l))
			return
		}
		filter.Limit = min(n, maxSessionLimit)
	}

	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.FocusSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// --- Metrics & analytics ---

func (s *Server) listMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d))
			return
		}
	}

	metrics, err := s.store.ListDailyMetrics(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if metrics == nil {
		metrics = []*models.DailyMetric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Load(r.Context(), s.store, s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("ai") == "true" && s.llm != nil {
		suggestions, err := s.llm.Suggest(r.Context(), d)
		if err != nil {
			slog.Warn("failed to generate AI suggestions", "error", err)
		} else {
			d.AISuggestions = suggestions
		}
	}
	writeJSON(w, http.StatusOK, d)
}
