package analytics

import "fmt"

// Thresholds for the rule-based suggestions.
const (
	DailyPomodoroGoal      = 4
	InterruptionsWarnAbove = 3
	LowCompletionRate      = 50
)

func suggest(d *Dashboard) []string {
	suggestions := []string{}

	if len(d.Patterns.PeakHours) > 0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Your most productive hour is %02d:00. Schedule your most important tasks then.",
			d.Patterns.PeakHours[0]))
	}
	if d.Today.TotalPomodoros < DailyPomodoroGoal {
		suggestions = append(suggestions, fmt.Sprintf(
			"Try to complete at least %d pomodoros today to keep your momentum.", DailyPomodoroGoal))
	}
	if d.Today.Interruptions > InterruptionsWarnAbove {
		suggestions = append(suggestions,
			"You've had several interruptions today. Consider turning on Do Not Disturb.")
	}
	if top := d.Week.TopCategories; len(top) > 0 && top[0].CompletionRate < LowCompletionRate {
		suggestions = append(suggestions, fmt.Sprintf(
			"Your %q category has a low completion rate. Check whether those tasks are realistic.",
			top[0].Category))
	}
	return suggestions
}
