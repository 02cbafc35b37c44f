package models

import "time"

// DateLayout is the format of DailyMetric.Date.
const DateLayout = "2006-01-02"

// DailyMetric aggregates one calendar day of focus work.
type DailyMetric struct {
	ID                string    `json:"id"`
	Date              string    `json:"date"`
	TotalPomodoros    int       `json:"total_pomodoros"`
	CompletedTasks    int       `json:"completed_tasks"`
	FocusMinutes      int       `json:"focus_minutes"`
	Interruptions     int       `json:"interruptions"`
	ProductivityScore int       `json:"productivity_score"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProductivityScore rates a day from 0 to 100: 8 points per completed task,
// 5 per pomodoro, minus 2 per interruption.
func ProductivityScore(completedTasks, pomodoros, interruptions int) int {
	return min(100, max(0, completedTasks*8+pomodoros*5-interruptions*2))
}
