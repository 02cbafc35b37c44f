package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/output"
)

var insightsAI bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's progress and the last 7 days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(context.Background(), time.Now())
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show productivity suggestions",
	Long: `Show suggestions based on your recent focus sessions.

With --ai, the dashboard is also sent to the Anthropic API for additional
coaching suggestions. Requires anthropic.api_key or ANTHROPIC_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return insightsRun(context.Background(), time.Now())
	},
}

func init() {
	insightsCmd.Flags().BoolVar(&insightsAI, "ai", false, "Add suggestions from the Anthropic API")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(insightsCmd)
}

func loadDashboard(ctx context.Context, now time.Time) (*analytics.Dashboard, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return analytics.NewBuilder().Load(ctx, s, now)
}

func statsRun(ctx context.Context, now time.Time) error {
	d, err := loadDashboard(ctx, now)
	if err != nil {
		return err
	}

	today := d.Today
	fmt.Fprintf(ui.Out, "%s  %s\n\n", output.Cyan("Today"), today.Date)
	fmt.Fprintf(ui.Out, "  %-15s %d/%d  %s\n", "Pomodoros:", today.TotalPomodoros, analytics.DailyPomodoroGoal,
		output.ProgressBar(today.TotalPomodoros, analytics.DailyPomodoroGoal, 12))
	fmt.Fprintf(ui.Out, "  %-15s %dm\n", "Focus:", today.FocusMinutes)
	fmt.Fprintf(ui.Out, "  %-15s %d of %d\n", "Tasks done:", today.CompletedTasks, today.TotalTasks)
	fmt.Fprintf(ui.Out, "  %-15s %d\n", "Interruptions:", today.Interruptions)
	fmt.Fprintf(ui.Out, "  %-15s %s\n", "Score:", output.ScoreColor(today.ProductivityScore))

	if len(d.Week.DailyStats) > 0 {
		fmt.Fprintf(ui.Out, "\n%s  %dm focus, avg score %.0f\n\n", output.Cyan("Last 7 days"),
			d.Week.TotalFocusMinutes, d.Week.AverageProductivityScore)
		table := ui.Table([]string{"Date", "Pomodoros", "Focus", "Tasks", "Score"})
		for _, day := range d.Week.DailyStats {
			table.Append([]string{
				day.Date,
				fmt.Sprintf("%d", day.TotalPomodoros),
				fmt.Sprintf("%dm", day.FocusMinutes),
				fmt.Sprintf("%d", day.CompletedTasks),
				output.ScoreColor(day.ProductivityScore),
			})
		}
		table.Render()
	}

	if len(d.Week.TopCategories) > 0 {
		fmt.Fprintf(ui.Out, "\n%s\n\n", output.Cyan("Categories"))
		table := ui.Table([]string{"Category", "Tasks", "Focus", "Completed"})
		for _, c := range d.Week.TopCategories {
			table.Append([]string{
				string(c.Category),
				fmt.Sprintf("%d", c.TaskCount),
				fmt.Sprintf("%dm", c.FocusMinutes),
				fmt.Sprintf("%.0f%%", c.CompletionRate),
			})
		}
		table.Render()
	}

	if len(d.Patterns.PeakHours) > 0 {
		hours := make([]string, len(d.Patterns.PeakHours))
		for i, h := range d.Patterns.PeakHours {
			hours[i] = fmt.Sprintf("%02d:00", h)
		}
		fmt.Fprintf(ui.Out, "\n%s %s\n", output.Cyan("Peak hours:"), strings.Join(hours, ", "))
		fmt.Fprintf(ui.Out, "%s %.0fm\n", output.Cyan("Average session:"), d.Patterns.AverageSessionLength)
	}
	return nil
}

func insightsRun(ctx context.Context, now time.Time) error {
	d, err := loadDashboard(ctx, now)
	if err != nil {
		return err
	}

	for _, s := range d.Suggestions {
		fmt.Fprintf(ui.Out, "  - %s\n", s)
	}

	if !insightsAI {
		return nil
	}
	client := newLLMClient()
	if client == nil {
		ui.Warning("No Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
		return nil
	}

	ui.VerboseLog("Requesting suggestions from %s", viper.GetString("anthropic.model"))
	suggestions, err := client.Suggest(ctx, d)
	if err != nil {
		return fmt.Errorf("AI suggestions: %w", err)
	}
	fmt.Fprintf(ui.Out, "\n%s\n", output.Cyan("AI suggestions"))
	for _, s := range suggestions {
		fmt.Fprintf(ui.Out, "  - %s\n", s)
	}
	return nil
}
