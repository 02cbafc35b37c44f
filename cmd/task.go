package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/store"
)

var (
	taskDesc      string
	taskPriority  string
	taskCategory  string
	taskPomodoros int
	taskTags      string
	taskDue       string
	taskSearch    string
	taskAI        bool
	taskAll       bool
	taskDone      bool
	taskReopen    bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  "Track the tasks your focus sessions are spent on.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new task",
	Long: `Add a new task.

Category and priority are guessed from the title when not given.
With --ai, the Anthropic API estimates pomodoros, category and priority instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskAddRun(context.Background(), strings.Join(args, " "))
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long:    "List open tasks. Use --all to include completed tasks or --done for completed only.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskShowRun(args[0])
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id> [new title]",
	Short: "Update a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskUpdateRun(args[0], strings.Join(args[1:], " "))
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDoneRun(args[0])
	},
}

var taskRmCmd = &cobra.Command{
	Use:     "rm <task-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Long:    "Delete a task. Its recorded sessions are kept without a task.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskRmRun(args[0])
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium, high, urgent")
	taskAddCmd.Flags().StringVar(&taskCategory, "category", "", "Category: work, personal, study, health")
	taskAddCmd.Flags().IntVar(&taskPomodoros, "pomodoros", 0, "Estimated pomodoros (1-20)")
	taskAddCmd.Flags().StringVar(&taskTags, "tags", "", "Comma-separated tags")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().BoolVar(&taskAI, "ai", false, "Estimate pomodoros, category and priority with the Anthropic API")

	taskListCmd.Flags().StringVar(&taskCategory, "category", "", "Filter by category")
	taskListCmd.Flags().StringVar(&taskPriority, "priority", "", "Filter by priority")
	taskListCmd.Flags().StringVar(&taskSearch, "search", "", "Filter by text in title or description")
	taskListCmd.Flags().BoolVar(&taskAll, "all", false, "Include completed tasks")
	taskListCmd.Flags().BoolVar(&taskDone, "done", false, "Show only completed tasks")

	taskUpdateCmd.Flags().StringVar(&taskDesc, "desc", "", "New description")
	taskUpdateCmd.Flags().StringVar(&taskPriority, "priority", "", "New priority")
	taskUpdateCmd.Flags().StringVar(&taskCategory, "category", "", "New category")
	taskUpdateCmd.Flags().IntVar(&taskPomodoros, "pomodoros", 0, "New estimate")
	taskUpdateCmd.Flags().StringVar(&taskTags, "tags", "", "Replace tags (comma-separated)")
	taskUpdateCmd.Flags().StringVar(&taskDue, "due", "", "New due date (YYYY-MM-DD, or 'none' to clear)")
	taskUpdateCmd.Flags().BoolVar(&taskReopen, "reopen", false, "Mark a completed task as open again")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskAddRun(ctx context.Context, title string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	task := &models.Task{
		Title:              title,
		Description:        taskDesc,
		Priority:           models.TaskPriority(taskPriority),
		Category:           models.TaskCategory(taskCategory),
		EstimatedPomodoros: taskPomodoros,
		Tags:               splitTags(taskTags),
	}
	if taskDue != "" {
		due, err := parseDue(taskDue)
		if err != nil {
			return err
		}
		task.DueDate = &due
	}

	if taskAI {
		estimateTask(ctx, task)
	}
	if task.Category == "" {
		task.Category = models.TaskCategory(classifyTaskCategory(title))
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriority(classifyTaskPriority(title))
	}

	task.ApplyDefaults()
	if err := task.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add task: %s [%s/%s, %d pomodoros]", title, task.Category, task.Priority, task.EstimatedPomodoros)
		return nil
	}

	if err := s.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	ui.Success("Created task %s: %s [%s/%s, %d pomodoros]", output.Cyan(shortID(task.ID)), title,
		task.Category, task.Priority, task.EstimatedPomodoros)
	return nil
}

// estimateTask fills the fields the user left empty from the LLM's guess.
// Failures are reported and leave the task untouched.
func estimateTask(ctx context.Context, task *models.Task) {
	client := newLLMClient()
	if client == nil {
		ui.Warning("No Anthropic API key configured; skipping --ai")
		return
	}
	est, err := client.EstimateTask(ctx, task.Title, task.Description)
	if err != nil {
		ui.Warning("AI estimate failed: %v", err)
		return
	}
	if task.EstimatedPomodoros == 0 {
		task.EstimatedPomodoros = est.EstimatedPomodoros
	}
	if task.Category == "" {
		task.Category = models.TaskCategory(est.Category)
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriority(est.Priority)
	}
	ui.VerboseLog("AI estimate: %d pomodoros, %s, %s", est.EstimatedPomodoros, est.Category, est.Priority)
}

func taskListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.TaskListFilter{
		Category: models.TaskCategory(taskCategory),
		Priority: models.TaskPriority(taskPriority),
		Search:   taskSearch,
	}
	switch {
	case taskDone:
		completed := true
		filter.Completed = &completed
	case !taskAll:
		completed := false
		filter.Completed = &completed
	}

	tasks, err := s.ListTasks(ctx, filter)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		ui.Info("No tasks found. Use 'pomo task add <title>' to create one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Category", "Priority", "Pomodoros", "Status", "Due"})
	for _, t := range tasks {
		status := "open"
		if t.Completed {
			status = "done"
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(models.DateLayout)
		}
		_ = table.Append([]string{
			shortID(t.ID),
			t.Title,
			string(t.Category),
			output.PriorityColor(string(t.Priority)),
			fmt.Sprintf("%d/%d", t.ActualPomodoros, t.EstimatedPomodoros),
			output.StatusColor(status),
			due,
		})
	}
	_ = table.Render()
	return nil
}

func taskShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := findTask(ctx, s, id)
	if err != nil {
		return err
	}

	status := "open"
	if task.Completed {
		status = "done"
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(task.ID)), task.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(status))
	fmt.Fprintf(ui.Out, "  Category:   %s\n", task.Category)
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(task.Priority)))
	fmt.Fprintf(ui.Out, "  Pomodoros:  %d/%d  %s\n", task.ActualPomodoros, task.EstimatedPomodoros,
		output.ProgressBar(task.ActualPomodoros, task.EstimatedPomodoros, 10))
	if task.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", task.Description)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(ui.Out, "  Tags:       %s\n", strings.Join(task.Tags, ", "))
	}
	if task.DueDate != nil {
		fmt.Fprintf(ui.Out, "  Due:        %s\n", task.DueDate.Local().Format(models.DateLayout))
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", task.CreatedAt.Format(time.RFC3339))
	if task.CompletedAt != nil {
		fmt.Fprintf(ui.Out, "  Completed:  %s\n", task.CompletedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", task.ID)

	sessions, err := s.ListSessions(ctx, store.SessionListFilter{TaskID: task.ID, Limit: 5})
	if err == nil && len(sessions) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "  Recent sessions:")
		for _, fs := range sessions {
			fmt.Fprintf(ui.Out, "    %s  %-11s %3dm  %d interruptions\n",
				fs.StartedAt.Local().Format("2006-01-02 15:04"), fs.Kind, fs.PlannedMinutes, fs.Interruptions)
		}
	}
	return nil
}

func taskUpdateRun(id, title string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := findTask(ctx, s, id)
	if err != nil {
		return err
	}

	changed := false
	if title != "" {
		task.Title = title
		changed = true
	}
	if taskDesc != "" {
		task.Description = taskDesc
		changed = true
	}
	if taskPriority != "" {
		task.Priority = models.TaskPriority(taskPriority)
		changed = true
	}
	if taskCategory != "" {
		task.Category = models.TaskCategory(taskCategory)
		changed = true
	}
	if taskPomodoros != 0 {
		task.EstimatedPomodoros = taskPomodoros
		changed = true
	}
	if taskTags != "" {
		task.Tags = splitTags(taskTags)
		changed = true
	}
	if taskDue != "" {
		if taskDue == "none" {
			task.DueDate = nil
		} else {
			due, err := parseDue(taskDue)
			if err != nil {
				return err
			}
			task.DueDate = &due
		}
		changed = true
	}
	if taskReopen && task.Completed {
		task.Completed = false
		changed = true
	}

	if !changed {
		return fmt.Errorf("no updates specified (use a new title, --desc, --priority, --category, --pomodoros, --tags, --due, or --reopen)")
	}
	if err := task.Validate(); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would update task %s", shortID(task.ID))
		return nil
	}

	if err := s.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	ui.Success("Updated task %s", output.Cyan(shortID(task.ID)))
	return nil
}

func taskDoneRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := findTask(ctx, s, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would complete task %s: %s", shortID(task.ID), task.Title)
		return nil
	}

	if _, err := s.CompleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	ui.Success("Completed task %s: %s", output.Cyan(shortID(task.ID)), task.Title)
	return nil
}

func taskRmRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	task, err := findTask(ctx, s, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete task %s: %s", shortID(task.ID), task.Title)
		return nil
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	ui.Success("Deleted task %s: %s", output.Cyan(shortID(task.ID)), task.Title)
	return nil
}

// findTask finds a task by full ID or prefix match.
func findTask(ctx context.Context, s store.Store, id string) (*models.Task, error) {
	// Try exact match first
	if task, err := s.GetTask(ctx, id); err == nil {
		return task, nil
	}

	upper := strings.ToUpper(id)
	tasks, err := s.ListTasks(ctx, store.TaskListFilter{})
	if err != nil {
		return nil, err
	}

	var matches []*models.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, upper) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("task not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous task ID %s: matches %d tasks", id, len(matches))
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func splitTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func parseDue(s string) (time.Time, error) {
	t, err := time.ParseInLocation(models.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
