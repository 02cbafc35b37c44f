package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// WeekDays is how many days, including today, the weekly view covers.
const WeekDays = 7

// DailyStats summarizes one day.
type DailyStats struct {
	Date              string `json:"date"`
	CompletedTasks    int    `json:"completed_tasks"`
	TotalPomodoros    int    `json:"total_pomodoros"`
	FocusMinutes      int    `json:"focus_minutes"`
	Interruptions     int    `json:"interruptions"`
	ProductivityScore int    `json:"productivity_score"`
}

// TodayStats is DailyStats plus the size of the task list.
type TodayStats struct {
	DailyStats
	TotalTasks int `json:"total_tasks"`
}

// CategoryStats summarizes the tasks of one category.
type CategoryStats struct {
	Category       models.TaskCategory `json:"category"`
	TaskCount      int                 `json:"task_count"`
	FocusMinutes   int                 `json:"focus_minutes"`
	CompletionRate float64             `json:"completion_rate"`
}

// WeekStats summarizes the last WeekDays days.
type WeekStats struct {
	DailyStats               []DailyStats    `json:"daily_stats"`
	TotalFocusMinutes        int             `json:"total_focus_minutes"`
	MaxDailyFocusMinutes     int             `json:"max_daily_focus_minutes"`
	TopCategories            []CategoryStats `json:"top_categories"`
	AverageProductivityScore float64         `json:"average_productivity_score"`
}

// Patterns describes when and how well the user works.
type Patterns struct {
	PeakHours            []int   `json:"peak_hours"`
	AverageSessionLength float64 `json:"average_session_length"`
	CompletionRate       float64 `json:"completion_rate"`
	MostProductiveDay    string  `json:"most_productive_day"`
}

// Dashboard is the full analytics view.
type Dashboard struct {
	Today         TodayStats `json:"today"`
	Week          WeekStats  `json:"week"`
	Patterns      Patterns   `json:"patterns"`
	Suggestions   []string   `json:"suggestions"`
	AISuggestions []string   `json:"ai_suggestions,omitempty"`
}

// Input is everything Build needs. Sessions should be the finished work
// sessions of the week; Metrics the daily metrics of the week.
type Input struct {
	Now      time.Time
	Tasks    []*models.Task
	Metrics  []*models.DailyMetric
	Sessions []*models.FocusSession
}

// Builder computes dashboards.
type Builder struct{}

// NewBuilder returns a new dashboard Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WeekStart returns local midnight WeekDays-1 days before now.
func WeekStart(now time.Time) time.Time {
	local := now.In(time.Local)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	return midnight.AddDate(0, 0, -(WeekDays - 1))
}

// Load reads the week's data from s and builds the dashboard.
func (b *Builder) Load(ctx context.Context, s store.Store, now time.Time) (*Dashboard, error) {
	start := WeekStart(now)

	tasks, err := s.ListTasks(ctx, store.TaskListFilter{})
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	metrics, err := s.ListDailyMetrics(ctx, start.Format(models.DateLayout), now.In(time.Local).Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	sessions, err := s.ListSessions(ctx, store.SessionListFilter{
		Kind:         models.SessionKindWork,
		FinishedOnly: true,
		Since:        start,
	})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	return b.Build(Input{Now: now, Tasks: tasks, Metrics: metrics, Sessions: sessions}), nil
}

// Build computes the dashboard from in.
func (b *Builder) Build(in Input) *Dashboard {
	today := in.Now.In(time.Local).Format(models.DateLayout)
	d := &Dashboard{}

	d.Today = todayStats(today, in.Tasks, in.Metrics)
	d.Week = weekStats(in.Tasks, in.Metrics, in.Sessions)
	d.Patterns = patterns(today, in.Tasks, in.Metrics, in.Sessions)
	d.Suggestions = suggest(d)
	return d
}

func todayStats(today string, tasks []*models.Task, metrics []*models.DailyMetric) TodayStats {
	ts := TodayStats{DailyStats: DailyStats{Date: today}}
	open := 0
	for _, t := range tasks {
		if !t.Completed {
			open++
			continue
		}
		if t.CompletedAt != nil && t.CompletedAt.In(time.Local).Format(models.DateLayout) == today {
			ts.CompletedTasks++
		}
	}
	ts.TotalTasks = open + ts.CompletedTasks

	for _, m := range metrics {
		if m.Date == today {
			ts.TotalPomodoros = m.TotalPomodoros
			ts.FocusMinutes = m.FocusMinutes
			ts.Interruptions = m.Interruptions
		}
	}
	ts.ProductivityScore = models.ProductivityScore(ts.CompletedTasks, ts.TotalPomodoros, ts.Interruptions)
	return ts
}

func weekStats(tasks []*models.Task, metrics []*models.DailyMetric, sessions []*models.FocusSession) WeekStats {
	ws := WeekStats{DailyStats: []DailyStats{}}
	scoreSum := 0
	for _, m := range metrics {
		ws.DailyStats = append(ws.DailyStats, DailyStats{
			Date:              m.Date,
			CompletedTasks:    m.CompletedTasks,
			TotalPomodoros:    m.TotalPomodoros,
			FocusMinutes:      m.FocusMinutes,
			Interruptions:     m.Interruptions,
			ProductivityScore: m.ProductivityScore,
		})
		ws.TotalFocusMinutes += m.FocusMinutes
		ws.MaxDailyFocusMinutes = max(ws.MaxDailyFocusMinutes, m.FocusMinutes)
		scoreSum += m.ProductivityScore
	}
	if len(metrics) > 0 {
		ws.AverageProductivityScore = float64(scoreSum) / float64(len(metrics))
	}
	ws.TopCategories = topCategories(tasks, sessions, 3)
	return ws
}

func topCategories(tasks []*models.Task, sessions []*models.FocusSession, n int) []CategoryStats {
	type counts struct{ total, completed, focus int }
	byCat := make(map[models.TaskCategory]*counts)
	taskCat := make(map[string]models.TaskCategory, len(tasks))
	for _, t := range tasks {
		c, ok := byCat[t.Category]
		if !ok {
			c = &counts{}
			byCat[t.Category] = c
		}
		c.total++
		if t.Completed {
			c.completed++
		}
		taskCat[t.ID] = t.Category
	}
	for _, s := range sessions {
		if cat, ok := taskCat[s.TaskID]; ok {
			byCat[cat].focus += s.PlannedMinutes
		}
	}

	var stats []CategoryStats
	for _, cat := range models.TaskCategories {
		c, ok := byCat[cat]
		if !ok {
			continue
		}
		stats = append(stats, CategoryStats{
			Category:       cat,
			TaskCount:      c.total,
			FocusMinutes:   c.focus,
			CompletionRate: percent(c.completed, c.total),
		})
	}
	// Stable keeps category order for ties.
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TaskCount > stats[j].TaskCount
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	if stats == nil {
		stats = []CategoryStats{}
	}
	return stats
}

func patterns(today string, tasks []*models.Task, metrics []*models.DailyMetric, sessions []*models.FocusSession) Patterns {
	p := Patterns{
		PeakHours:         peakHours(sessions, 3),
		MostProductiveDay: today,
	}

	if len(sessions) > 0 {
		total := 0
		for _, s := range sessions {
			total += s.PlannedMinutes
		}
		p.AverageSessionLength = float64(total) / float64(len(sessions))
	}

	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	p.CompletionRate = percent(completed, len(tasks))

	best := -1
	for _, m := range metrics {
		if m.FocusMinutes > best {
			best = m.FocusMinutes
			p.MostProductiveDay = m.Date
		}
	}
	return p
}

// peakHours returns up to n local hours with the most sessions started,
// busiest first and earlier hours first on ties.
func peakHours(sessions []*models.FocusSession, n int) []int {
	var byHour [24]int
	for _, s := range sessions {
		byHour[s.StartedAt.In(time.Local).Hour()]++
	}
	hours := make([]int, 0, 24)
	for h, c := range byHour {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return byHour[hours[i]] > byHour[hours[j]]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
