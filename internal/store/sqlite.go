package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/pomo/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time. The timer host records sessions from a background
	// goroutine while CLI commands may be reading.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// dbTime normalizes timestamps so stored values sort lexically.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// metricDate is the local calendar day a timestamp is counted against.
func metricDate(t time.Time) string {
	return t.In(time.Local).Format(models.DateLayout)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Tasks ---

const taskColumns = `id, title, description, due_date, priority, category, estimated_pomodoros, actual_pomodoros, completed, completed_at, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var priority, category, tags string
	var dueDate, completedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &dueDate, &priority, &category,
		&t.EstimatedPomodoros, &t.ActualPomodoros, &t.Completed, &completedAt, &tags,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = models.TaskPriority(priority)
	t.Category = models.TaskCategory(category)
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for task %s: %w", t.ID, err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	t.ApplyDefaults()
	now := dbTime(time.Now())
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Completed && t.CompletedAt == nil {
		t.CompletedAt = &now
	}

	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, nullTime(t.DueDate), string(t.Priority), string(t.Category),
		t.EstimatedPomodoros, t.ActualPomodoros, boolToInt(t.Completed), nullTime(t.CompletedAt), tags,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var conditions []string
	var args []any

	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Completed != nil {
		conditions = append(conditions, "completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if filter.Search != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask saves t. Marking a task completed stamps CompletedAt and counts
// it in the day's metrics; reopening clears CompletedAt.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var wasCompleted bool
	err = tx.QueryRowContext(ctx, "SELECT completed FROM tasks WHERE id = ?", t.ID).Scan(&wasCompleted)
	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found: %s", t.ID)
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	now := dbTime(time.Now())
	t.UpdatedAt = now
	switch {
	case t.Completed && !wasCompleted:
		t.CompletedAt = &now
	case !t.Completed:
		t.CompletedAt = nil
	}

	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, due_date=?, priority=?, category=?, estimated_pomodoros=?,
		completed=?, completed_at=?, tags=?, updated_at=?
		WHERE id=?`,
		t.Title, t.Description, nullTime(t.DueDate), string(t.Priority), string(t.Category), t.EstimatedPomodoros,
		boolToInt(t.Completed), nullTime(t.CompletedAt), tags, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if t.Completed && !wasCompleted {
		if err := upsertDailyMetric(ctx, tx, metricDate(now), metricDelta{completedTasks: 1}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CompleteTask marks a task completed. Completing an already completed task
// returns it unchanged.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Completed {
		return t, nil
	}
	t.Completed = true
	if err := s.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// --- Focus sessions ---

const sessionColumns = `id, task_id, kind, started_at, ended_at, planned_minutes, interruptions, finished, notes, created_at`

// RecordSession stores a finished interval. A finished work session also
// adds to the day's metrics and to the linked task's pomodoro count, all in
// one transaction.
func (s *SQLiteStore) RecordSession(ctx context.Context, fs *models.FocusSession) error {
	if fs.ID == "" {
		fs.ID = newULID()
	}
	fs.StartedAt = dbTime(fs.StartedAt)
	fs.EndedAt = dbTime(fs.EndedAt)
	fs.CreatedAt = dbTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if fs.TaskID != "" {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE id = ?", fs.TaskID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("record session: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("task not found: %s", fs.TaskID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO focus_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fs.ID, nullString(fs.TaskID), string(fs.Kind), fs.StartedAt, fs.EndedAt,
		fs.PlannedMinutes, fs.Interruptions, boolToInt(fs.Finished), fs.Notes, fs.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	if fs.CountsTowardMetrics() {
		delta := metricDelta{
			pomodoros:     1,
			focusMinutes:  fs.PlannedMinutes,
			interruptions: fs.Interruptions,
		}
		if err := upsertDailyMetric(ctx, tx, metricDate(fs.EndedAt), delta); err != nil {
			return err
		}
		if fs.TaskID != "" {
			_, err := tx.ExecContext(ctx,
				"UPDATE tasks SET actual_pomodoros = actual_pomodoros + 1, updated_at = ? WHERE id = ?",
				fs.CreatedAt, fs.TaskID)
			if err != nil {
				return fmt.Errorf("count task pomodoro: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionListFilter) ([]*models.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions`
	var conditions []string
	var args []any

	if filter.TaskID != "" {
		conditions = append(conditions, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.FinishedOnly {
		conditions = append(conditions, "finished = 1")
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, dbTime(filter.Since))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.FocusSession
	for rows.Next() {
		fs := &models.FocusSession{}
		var taskID sql.NullString
		var kind string
		if err := rows.Scan(&fs.ID, &taskID, &kind, &fs.StartedAt, &fs.EndedAt,
			&fs.PlannedMinutes, &fs.Interruptions, &fs.Finished, &fs.Notes, &fs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		fs.TaskID = taskID.String
		fs.Kind = models.SessionKind(kind)
		sessions = append(sessions, fs)
	}
	return sessions, rows.Err()
}

// --- Daily metrics ---

type metricDelta struct {
	pomodoros      int
	completedTasks int
	focusMinutes   int
	interruptions  int
}

func upsertDailyMetric(ctx context.Context, tx *sql.Tx, date string, d metricDelta) error {
	now := dbTime(time.Now())
	_, err := tx.ExecContext(ctx,
		`INSERT INTO daily_metrics (id, date, total_pomodoros, completed_tasks, focus_minutes, interruptions, productivity_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_pomodoros = total_pomodoros + excluded.total_pomodoros,
			completed_tasks = completed_tasks + excluded.completed_tasks,
			focus_minutes = focus_minutes + excluded.focus_minutes,
			interruptions = interruptions + excluded.interruptions,
			updated_at = excluded.updated_at`,
		newULID(), date, d.pomodoros, d.completedTasks, d.focusMinutes, d.interruptions, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert daily metric: %w", err)
	}

	var tasks, pomodoros, interruptions int
	err = tx.QueryRowContext(ctx,
		"SELECT completed_tasks, total_pomodoros, interruptions FROM daily_metrics WHERE date = ?", date,
	).Scan(&tasks, &pomodoros, &interruptions)
	if err != nil {
		return fmt.Errorf("read daily metric: %w", err)
	}
	_, err = tx.ExecContext(ctx, "UPDATE daily_metrics SET productivity_score = ? WHERE date = ?",
		models.ProductivityScore(tasks, pomodoros, interruptions), date)
	if err != nil {
		return fmt.Errorf("score daily metric: %w", err)
	}
	return nil
}

const metricColumns = `id, date, total_pomodoros, completed_tasks, focus_minutes, interruptions, productivity_score, created_at, updated_at`

func scanMetric(row rowScanner) (*models.DailyMetric, error) {
	m := &models.DailyMetric{}
	err := row.Scan(&m.ID, &m.Date, &m.TotalPomodoros, &m.CompletedTasks, &m.FocusMinutes,
		&m.Interruptions, &m.ProductivityScore, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *SQLiteStore) GetDailyMetric(ctx context.Context, date string) (*models.DailyMetric, error) {
	m, err := scanMetric(s.db.QueryRowContext(ctx, `SELECT `+metricColumns+` FROM daily_metrics WHERE date = ?`, date))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("daily metric not found: %s", date)
	}
	if err != nil {
		return nil, fmt.Errorf("get daily metric: %w", err)
	}
	return m, nil
}

// ListDailyMetrics returns metrics between from and to inclusive, oldest
// first. Either bound may be empty.
func (s *SQLiteStore) ListDailyMetrics(ctx context.Context, from, to string) ([]*models.DailyMetric, error) {
	query := `SELECT ` + metricColumns + ` FROM daily_metrics`
	var conditions []string
	var args []any
	if from != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, to)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var metrics []*models.DailyMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
