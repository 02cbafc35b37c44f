package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/store"
)

var (
	sessionTask  string
	sessionLimit int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show recorded focus sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun()
	},
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent focus sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun()
	},
}

func init() {
	sessionListCmd.Flags().StringVar(&sessionTask, "task", "", "Only sessions for this task (ID or prefix)")
	sessionListCmd.Flags().IntVar(&sessionLimit, "limit", 10, "Maximum number of sessions")

	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if sessionLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	filter := store.SessionListFilter{Limit: sessionLimit}
	if sessionTask != "" {
		task, err := findTask(ctx, s, sessionTask)
		if err != nil {
			return err
		}
		filter.TaskID = task.ID
	}

	sessions, err := s.ListSessions(ctx, filter)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions recorded yet. Start one with 'pomo timer'.")
		return nil
	}

	titles := make(map[string]string)
	table := ui.Table([]string{"Started", "Kind", "Minutes", "Interruptions", "Task"})
	for _, fs := range sessions {
		title := ""
		if fs.TaskID != "" {
			title, _ = taskTitle(ctx, s, titles, fs.TaskID)
		}
		_ = table.Append([]string{
			fs.StartedAt.Local().Format("2006-01-02 15:04"),
			kindLabel(fs.Kind),
			fmt.Sprintf("%d", fs.PlannedMinutes),
			fmt.Sprintf("%d", fs.Interruptions),
			title,
		})
	}
	_ = table.Render()
	return nil
}

// taskTitle looks up a task title through a per-command cache.
func taskTitle(ctx context.Context, s store.Store, cache map[string]string, id string) (string, error) {
	if title, ok := cache[id]; ok {
		return title, nil
	}
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return "", err
	}
	cache[id] = t.Title
	return t.Title, nil
}

func kindLabel(kind models.SessionKind) string {
	switch kind {
	case models.SessionKindWork:
		return output.Green("work")
	case models.SessionKindShortBreak:
		return output.Cyan("short break")
	case models.SessionKindLongBreak:
		return output.Cyan("long break")
	default:
		return string(kind)
	}
}
