package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

var (
	reportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export tasks, focus sessions, or daily metrics in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&reportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "tasks", "Data type: tasks, sessions, metrics")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "tasks":
		return exportTasks(ctx, s)
	case "sessions":
		return exportSessions(ctx, s)
	case "metrics":
		return exportMetrics(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: tasks, sessions, metrics)", exportType)
	}
}

func exportTasks(ctx context.Context, s store.Store) error {
	tasks, err := s.ListTasks(ctx, store.TaskListFilter{})
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return writeJSONOut(tasks)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "Title", "Category", "Priority", "Estimated", "Actual", "Completed", "Tags", "Due", "Created"})
		for _, t := range tasks {
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.Format(models.DateLayout)
			}
			w.Write([]string{t.ID, t.Title, string(t.Category), string(t.Priority),
				strconv.Itoa(t.EstimatedPomodoros), strconv.Itoa(t.ActualPomodoros),
				strconv.FormatBool(t.Completed), strings.Join(t.Tags, ";"), due,
				t.CreatedAt.Format(models.DateLayout)})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Tasks")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Title | Category | Priority | Pomodoros | Done |")
		fmt.Fprintln(ui.Out, "|-------|----------|----------|-----------|------|")
		for _, t := range tasks {
			done := ""
			if t.Completed {
				done = "x"
			}
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %d/%d | %s |\n",
				t.Title, t.Category, t.Priority, t.ActualPomodoros, t.EstimatedPomodoros, done)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportSessions(ctx context.Context, s store.Store) error {
	sessions, err := s.ListSessions(ctx, store.SessionListFilter{})
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return writeJSONOut(sessions)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"ID", "TaskID", "Kind", "Started", "Ended", "Planned", "Interruptions", "Finished"})
		for _, fs := range sessions {
			w.Write([]string{fs.ID, fs.TaskID, string(fs.Kind),
				fs.StartedAt.Format(time.RFC3339), fs.EndedAt.Format(time.RFC3339),
				strconv.Itoa(fs.PlannedMinutes), strconv.Itoa(fs.Interruptions), strconv.FormatBool(fs.Finished)})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Focus Sessions")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Started | Kind | Minutes | Interruptions |")
		fmt.Fprintln(ui.Out, "|---------|------|---------|---------------|")
		for _, fs := range sessions {
			fmt.Fprintf(ui.Out, "| %s | %s | %d | %d |\n",
				fs.StartedAt.Local().Format("2006-01-02 15:04"), fs.Kind, fs.PlannedMinutes, fs.Interruptions)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func exportMetrics(ctx context.Context, s store.Store) error {
	metrics, err := s.ListDailyMetrics(ctx, "", "")
	if err != nil {
		return err
	}

	switch reportFormat {
	case "json":
		return writeJSONOut(metrics)
	case "csv":
		w := csv.NewWriter(ui.Out)
		w.Write([]string{"Date", "Pomodoros", "CompletedTasks", "FocusMinutes", "Interruptions", "Score"})
		for _, m := range metrics {
			w.Write([]string{m.Date, strconv.Itoa(m.TotalPomodoros), strconv.Itoa(m.CompletedTasks),
				strconv.Itoa(m.FocusMinutes), strconv.Itoa(m.Interruptions), strconv.Itoa(m.ProductivityScore)})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "# Daily Metrics")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Date | Pomodoros | Tasks | Focus | Interruptions | Score |")
		fmt.Fprintln(ui.Out, "|------|-----------|-------|-------|---------------|-------|")
		for _, m := range metrics {
			fmt.Fprintf(ui.Out, "| %s | %d | %d | %dm | %d | %d |\n",
				m.Date, m.TotalPomodoros, m.CompletedTasks, m.FocusMinutes, m.Interruptions, m.ProductivityScore)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func writeJSONOut(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate reports",
	Long:  "Generate summary reports of focus activity.",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate weekly activity summary in Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportWeeklyRun(time.Now())
	},
}

func init() {
	reportCmd.AddCommand(reportWeeklyCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportWeeklyRun(now time.Time) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	d, err := analytics.NewBuilder().Load(context.Background(), s, now)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out, "# Weekly Report")
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "- Focus: %d minutes (best day %d minutes)\n", d.Week.TotalFocusMinutes, d.Week.MaxDailyFocusMinutes)
	fmt.Fprintf(ui.Out, "- Average productivity score: %.0f\n", d.Week.AverageProductivityScore)
	if d.Patterns.MostProductiveDay != "" {
		fmt.Fprintf(ui.Out, "- Most productive day: %s\n", d.Patterns.MostProductiveDay)
	}
	fmt.Fprintln(ui.Out)

	if len(d.Week.DailyStats) > 0 {
		fmt.Fprintln(ui.Out, "## Days")
		fmt.Fprintln(ui.Out)
		for _, day := range d.Week.DailyStats {
			fmt.Fprintf(ui.Out, "- %s: %d pomodoros, %d tasks, score %d\n",
				day.Date, day.TotalPomodoros, day.CompletedTasks, day.ProductivityScore)
		}
		fmt.Fprintln(ui.Out)
	}

	if len(d.Week.TopCategories) > 0 {
		fmt.Fprintln(ui.Out, "## Categories")
		fmt.Fprintln(ui.Out)
		for _, c := range d.Week.TopCategories {
			fmt.Fprintf(ui.Out, "- %s: %d tasks, %d minutes, %.0f%% complete\n",
				c.Category, c.TaskCount, c.FocusMinutes, c.CompletionRate)
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}
