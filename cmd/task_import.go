package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

var taskImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import tasks from a markdown file",
	Long: `Import tasks from a markdown file.

Numbered, bulleted and checklist items become tasks. Items can be grouped
under "## <category>" headings (work, personal, study, health); otherwise the
category is guessed from the title. A trailing "(N)" sets the pomodoro
estimate, and "- [x]" items are imported as completed.

Tasks whose title matches an existing task are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskImportRun(args[0])
	},
}

func init() {
	taskCmd.AddCommand(taskImportCmd)
}

// importedTask is one list item parsed from markdown.
type importedTask struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Pomodoros   int
	Completed   bool
}

func taskImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	items := parseMarkdownTasks(content)
	if len(items) == 0 {
		ui.Info("No tasks found in file.")
		return nil
	}

	// Preview table
	table := ui.Table([]string{"#", "Title", "Category", "Priority", "Pomodoros", "Done"})
	for i, item := range items {
		done := ""
		if item.Completed {
			done = "x"
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			item.Title,
			item.Category,
			item.Priority,
			fmt.Sprintf("%d", item.Pomodoros),
			done,
		})
	}
	_ = table.Render()

	if dryRun {
		ui.DryRunMsg("Would create %d tasks", len(items))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	return createImportedTasks(context.Background(), s, items)
}

// parseSubItemNumber checks if a line starts with a sub-item number like "1.1" or "2.3."
// Returns the title text and true if it's a sub-item, or empty and false otherwise.
func parseSubItemNumber(line string) (title string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	i++
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return "", false // no digits after dot: a regular "1. text" item
	}
	// Optional trailing dot (e.g., "1.1. text")
	if i < len(line) && line[i] == '.' {
		i++
	}
	if i >= len(line) || line[i] != ' ' {
		return "", false
	}
	title = strings.TrimSpace(line[i:])
	if title == "" {
		return "", false
	}
	return title, true
}

// parseListItem extracts the text of a numbered, bulleted or checklist item.
func parseListItem(line string) (title string, completed, numbered bool) {
	if len(line) <= 2 {
		return "", false, false
	}
	// Numbered: "1. text", "12. text"
	for i, c := range line {
		if c == '.' && i > 0 && i < 4 {
			return strings.TrimSpace(line[i+1:]), false, true
		}
		if c < '0' || c > '9' {
			break
		}
	}
	if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
		return "", false, false
	}
	rest := strings.TrimSpace(line[2:])
	switch {
	case strings.HasPrefix(rest, "[ ] "):
		rest = rest[4:]
	case strings.HasPrefix(rest, "[x] "), strings.HasPrefix(rest, "[X] "):
		rest = rest[4:]
		completed = true
	}
	return strings.TrimSpace(rest), completed, false
}

// splitEstimate strips a trailing "(N)" pomodoro estimate from title.
func splitEstimate(title string) (string, int) {
	if !strings.HasSuffix(title, ")") {
		return title, 0
	}
	open := strings.LastIndex(title, "(")
	if open < 0 {
		return title, 0
	}
	n, err := strconv.Atoi(title[open+1 : len(title)-1])
	if err != nil || n <= 0 {
		return title, 0
	}
	return strings.TrimSpace(title[:open]), n
}

// parseMarkdownTasks does a simple parse of markdown to extract list items as tasks.
func parseMarkdownTasks(content string) []importedTask {
	var items []importedTask
	currentCategory := ""
	lastParent := "" // title of the last top-level numbered item

	add := func(title, description string, completed bool) {
		title, pomodoros := splitEstimate(title)
		if title == "" {
			return
		}
		category := currentCategory
		if category == "" {
			category = classifyTaskCategory(title)
		}
		items = append(items, importedTask{
			Title:       title,
			Description: description,
			Category:    category,
			Priority:    classifyTaskPriority(title),
			Pomodoros:   pomodoros,
			Completed:   completed,
		})
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		// Category heading: ## <category>
		if strings.HasPrefix(line, "## ") {
			heading := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			currentCategory = ""
			if models.TaskCategory(heading).Valid() {
				currentCategory = heading
			}
			lastParent = ""
			continue
		}

		if subTitle, ok := parseSubItemNumber(line); ok {
			add(subTitle, lastParent, false)
			continue
		}

		title, completed, numbered := parseListItem(line)
		if title == "" {
			continue
		}
		if numbered {
			lastParent, _ = splitEstimate(title)
		}
		add(title, "", completed)
	}

	return items
}

// createImportedTasks creates tasks in the store, skipping titles that
// already exist or repeat within the batch.
func createImportedTasks(ctx context.Context, s store.Store, items []importedTask) error {
	existing, err := s.ListTasks(ctx, store.TaskListFilter{})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[strings.ToLower(t.Title)] = true
	}

	created, skipped := 0, 0
	for _, item := range items {
		key := strings.ToLower(item.Title)
		if seen[key] {
			ui.VerboseLog("Skipping existing task %q", item.Title)
			skipped++
			continue
		}
		seen[key] = true

		task := &models.Task{
			Title:              item.Title,
			Description:        item.Description,
			Category:           models.TaskCategory(item.Category),
			Priority:           models.TaskPriority(item.Priority),
			EstimatedPomodoros: min(item.Pomodoros, models.MaxEstimatedPomodoros),
		}
		task.ApplyDefaults()
		if err := task.Validate(); err != nil {
			ui.Warning("Skipping task %q: %v", item.Title, err)
			skipped++
			continue
		}
		if err := s.CreateTask(ctx, task); err != nil {
			ui.Warning("Failed to create task %q: %v", item.Title, err)
			skipped++
			continue
		}
		if item.Completed {
			if _, err := s.CompleteTask(ctx, task.ID); err != nil {
				ui.Warning("Created task %q but could not complete it: %v", item.Title, err)
			}
		}
		created++
	}

	ui.Success("Created %d tasks", created)
	if skipped > 0 {
		ui.Warning("Skipped %d tasks", skipped)
	}
	return nil
}
