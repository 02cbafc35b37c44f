package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/llm"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store     store.Store
	llm       *llm.Client
	dashboard *analytics.Builder
	now       func() time.Time
}

// NewServer creates a new API server.
// The llmClient may be nil if no API key is configured.
func NewServer(s store.Store, llmClient *llm.Client) *Server {
	return &Server{
		store:     s,
		llm:       llmClient,
		dashboard: analytics.NewBuilder(),
		now:       time.Now,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/tasks", s.listTasks)
	mux.HandleFunc("POST /api/v1/tasks", s.createTask)
	mux.HandleFunc("GET /api/v1/tasks/{id}", s.getTask)
	mux.HandleFunc("PUT /api/v1/tasks/{id}", s.updateTask)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", s.deleteTask)
	mux.HandleFunc("POST /api/v1/tasks/{id}/complete", s.completeTask)

	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("POST /api/v1/sessions", s.createSession)

	mux.HandleFunc("GET /api/v1/metrics", s.listMetrics)
	mux.HandleFunc("GET /api/v1/analytics/dashboard", s.getDashboard)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps "not found" errors to 404 and everything else to 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// patchString applies a string value from a JSON patch map to the target if the key is present and non-empty.
func patchString(patch map[string]any, key string, target *string) {
	if v, ok := patch[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			*target = str
		}
	}
}

// --- Tasks ---

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskListFilter{
		Category: models.TaskCategory(q.Get("category")),
		Priority: models.TaskPriority(q.Get("priority")),
		Search:   q.Get("search"),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid category: %q", filter.Category))
		return
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid priority: %q", filter.Priority))
		return
	}
	if c := q.Get("completed"); c != "" {
		completed, err := strconv.ParseBool(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid completed: %q", c))
			return
		}
		filter.Completed = &completed
	}

	tasks, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// Server-owned fields.
	t.ID = ""
	t.ActualPomodoros = 0
	t.CompletedAt = nil

	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateTask(r.Context(), &t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := applyTaskPatch(existing, patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := existing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateTask(r.Context(), existing); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// applyTaskPatch merges the keys present in patch into t. Empty strings
// leave text fields unchanged; description and due_date accept null to clear.
func applyTaskPatch(t *models.Task, patch map[string]any) error {
	patchString(patch, "title", &t.Title)

	if v, ok := patch["description"]; ok {
		switch d := v.(type) {
		case nil:
			t.Description = ""
		case string:
			t.Description = d
		default:
			return fmt.Errorf("description must be a string")
		}
	}

	var priority, category string
	patchString(patch, "priority", &priority)
	if priority != "" {
		t.Priority = models.TaskPriority(priority)
	}
	patchString(patch, "category", &category)
	if category != "" {
		t.Category = models.TaskCategory(category)
	}

	if v, ok := patch["estimated_pomodoros"]; ok {
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return fmt.Errorf("estimated_pomodoros must be an integer")
		}
		t.EstimatedPomodoros = int(n)
	}

	if v, ok := patch["completed"]; ok {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("completed must be a boolean")
		}
		t.Completed = b
	}

	if v, ok := patch["due_date"]; ok {
		switch d := v.(type) {
		case nil:
			t.DueDate = nil
		case string:
			due, err := time.Parse(time.RFC3339, d)
			if err != nil {
				return fmt.Errorf("due_date must be an RFC 3339 timestamp")
			}
			t.DueDate = &due
		default:
			return fmt.Errorf("due_date must be a string")
		}
	}

	if v, ok := patch["tags"]; ok {
		raw, ok := v.([]any)
		if !ok {
			return fmt.Errorf("tags must be an array of strings")
		}
		tags := make([]string, 0, len(raw))
		for _, item := range raw {
			tag, ok := item.(string)
			if !ok {
				return fmt.Errorf("tags must be an array of strings")
			}
			tags = append(tags, tag)
		}
		t.Tags = tags
	}
	return nil
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.CompleteTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
