package store

import (
	"context"
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// TaskListFilter specifies filters for listing tasks.
type TaskListFilter struct {
	Category  models.TaskCategory
	Priority  models.TaskPriority
	Completed *bool
	// Search matches a case-insensitive substring of title or description.
	Search string
}

// SessionListFilter specifies filters for listing focus sessions.
type SessionListFilter struct {
	TaskID       string
	Kind         models.SessionKind
	FinishedOnly bool
	Since        time.Time
	Limit        int
}

// Store defines the persistence interface for pomo.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	CompleteTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Focus sessions
	RecordSession(ctx context.Context, s *models.FocusSession) error
	ListSessions(ctx context.Context, filter SessionListFilter) ([]*models.FocusSession, error)

	// Daily metrics
	GetDailyMetric(ctx context.Context, date string) (*models.DailyMetric, error)
	ListDailyMetrics(ctx context.Context, from, to string) ([]*models.DailyMetric, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
