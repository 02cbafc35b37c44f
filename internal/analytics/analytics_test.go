package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

var now = time.Date(2026, 3, 6, 15, 30, 0, 0, time.Local)

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.Local)
}

func ptr(t time.Time) *time.Time { return &t }

func work(taskID string, start time.Time) *models.FocusSession {
	return &models.FocusSession{
		TaskID: taskID, Kind: models.SessionKindWork,
		StartedAt: start, EndedAt: start.Add(25 * time.Minute),
		PlannedMinutes: 25, Finished: true,
	}
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.Local), WeekStart(now))
}

func TestBuild_EmptyData(t *testing.T) {
	d := NewBuilder().Build(Input{Now: now})

	assert.Equal(t, "2026-03-06", d.Today.Date)
	assert.Zero(t, d.Today.ProductivityScore)
	assert.Empty(t, d.Week.DailyStats)
	assert.NotNil(t, d.Week.DailyStats)
	assert.Empty(t, d.Week.TopCategories)
	assert.Empty(t, d.Patterns.PeakHours)
	assert.Equal(t, "2026-03-06", d.Patterns.MostProductiveDay)
	assert.Zero(t, d.Patterns.CompletionRate)
	assert.Equal(t, []string{"Try to complete at least 4 pomodoros today to keep your momentum."}, d.Suggestions)
}

func TestBuild_Today(t *testing.T) {
	tasks := []*models.Task{
		{ID: "a", Category: models.TaskCategoryWork, Completed: true, CompletedAt: ptr(at(6, 10))},
		{ID: "b", Category: models.TaskCategoryWork, Completed: true, CompletedAt: ptr(at(5, 10))},
		{ID: "c", Category: models.TaskCategoryWork},
		{ID: "d", Category: models.TaskCategoryStudy},
	}
	metrics := []*models.DailyMetric{
		{Date: "2026-03-05", TotalPomodoros: 2, FocusMinutes: 50, ProductivityScore: 18},
		{Date: "2026-03-06", TotalPomodoros: 5, FocusMinutes: 125, Interruptions: 4, ProductivityScore: 25},
	}

	d := NewBuilder().Build(Input{Now: now, Tasks: tasks, Metrics: metrics})

	assert.Equal(t, 1, d.Today.CompletedTasks)
	assert.Equal(t, 3, d.Today.TotalTasks, "open tasks plus today's completions")
	assert.Equal(t, 5, d.Today.TotalPomodoros)
	assert.Equal(t, 125, d.Today.FocusMinutes)
	assert.Equal(t, 4, d.Today.Interruptions)
	assert.Equal(t, 8+25-8, d.Today.ProductivityScore)

	assert.Contains(t, d.Suggestions, "You've had several interruptions today. Consider turning on Do Not Disturb.")
	assert.NotContains(t, d.Suggestions, "Try to complete at least 4 pomodoros today to keep your momentum.")
}

func TestBuild_Week(t *testing.T) {
	metrics := []*models.DailyMetric{
		{Date: "2026-03-02", FocusMinutes: 100, ProductivityScore: 40},
		{Date: "2026-03-03", FocusMinutes: 150, ProductivityScore: 60},
		{Date: "2026-03-04", FocusMinutes: 50, ProductivityScore: 20},
	}

	d := NewBuilder().Build(Input{Now: now, Metrics: metrics})

	require.Len(t, d.Week.DailyStats, 3)
	assert.Equal(t, 300, d.Week.TotalFocusMinutes)
	assert.Equal(t, 150, d.Week.MaxDailyFocusMinutes)
	assert.InDelta(t, 40.0, d.Week.AverageProductivityScore, 0.001)
	assert.Equal(t, "2026-03-03", d.Patterns.MostProductiveDay)
}

func TestBuild_TopCategories(t *testing.T) {
	tasks := []*models.Task{
		{ID: "w1", Category: models.TaskCategoryWork},
		{ID: "w2", Category: models.TaskCategoryWork},
		{ID: "w3", Category: models.TaskCategoryWork, Completed: true},
		{ID: "s1", Category: models.TaskCategoryStudy, Completed: true},
		{ID: "s2", Category: models.TaskCategoryStudy, Completed: true},
		{ID: "h1", Category: models.TaskCategoryHealth},
		{ID: "p1", Category: models.TaskCategoryPersonal},
	}
	sessions := []*models.FocusSession{work("w1", at(5, 9)), work("w1", at(5, 10)), work("s1", at(5, 11)), work("", at(5, 12))}

	d := NewBuilder().Build(Input{Now: now, Tasks: tasks, Sessions: sessions})

	top := d.Week.TopCategories
	require.Len(t, top, 3)
	assert.Equal(t, models.TaskCategoryWork, top[0].Category)
	assert.Equal(t, 3, top[0].TaskCount)
	assert.Equal(t, 50, top[0].FocusMinutes)
	assert.InDelta(t, 33.33, top[0].CompletionRate, 0.01)
	assert.Equal(t, models.TaskCategoryStudy, top[1].Category)
	assert.InDelta(t, 100.0, top[1].CompletionRate, 0.001)
	// personal precedes health on ties
	assert.Equal(t, models.TaskCategoryPersonal, top[2].Category)

	assert.InDelta(t, 3.0/7*100, d.Patterns.CompletionRate, 0.001)
	assert.Contains(t, d.Suggestions, `Your "work" category has a low completion rate. Check whether those tasks are realistic.`)
}

func TestBuild_PeakHours(t *testing.T) {
	sessions := []*models.FocusSession{
		work("", at(2, 9)), work("", at(3, 9)), work("", at(4, 9)),
		work("", at(2, 14)), work("", at(3, 14)),
		work("", at(2, 8)),
		work("", at(2, 20)),
	}
	sessions[5].PlannedMinutes = 50

	d := NewBuilder().Build(Input{Now: now, Sessions: sessions})

	assert.Equal(t, []int{9, 14, 8}, d.Patterns.PeakHours)
	assert.InDelta(t, 200.0/7, d.Patterns.AverageSessionLength, 0.001)
	assert.Equal(t, "Your most productive hour is 09:00. Schedule your most important tasks then.", d.Suggestions[0])
}

func TestLoad_FromStore(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	task := &models.Task{Title: "Essay", Category: models.TaskCategoryStudy}
	require.NoError(t, s.CreateTask(ctx, task))

	current := time.Now()
	require.NoError(t, s.RecordSession(ctx, work(task.ID, current.Add(-30*time.Minute))))
	old := work("", current.AddDate(0, 0, -30))
	require.NoError(t, s.RecordSession(ctx, old))
	brk := &models.FocusSession{Kind: models.SessionKindShortBreak, StartedAt: current.Add(-5 * time.Minute), EndedAt: current, PlannedMinutes: 5, Finished: true}
	require.NoError(t, s.RecordSession(ctx, brk))

	d, err := NewBuilder().Load(ctx, s, current)
	require.NoError(t, err)

	assert.Equal(t, 1, d.Today.TotalTasks)
	assert.Len(t, d.Week.DailyStats, 1, "metrics older than a week are excluded")
	assert.InDelta(t, 25.0, d.Patterns.AverageSessionLength, 0.001, "only this week's work sessions count")
	require.Len(t, d.Week.TopCategories, 1)
	assert.Equal(t, 25, d.Week.TopCategories[0].FocusMinutes)
}
