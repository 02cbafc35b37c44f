package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// taskTestEnv resets the task flag globals and captures ui output.
func taskTestEnv(t *testing.T) (store.Store, *bytes.Buffer) {
	t.Helper()
	testEnv(t)
	resetTaskFlags()
	t.Cleanup(resetTaskFlags)

	var buf bytes.Buffer
	ui.Out = &buf

	s, err := getStore()
	require.NoError(t, err)
	return s, &buf
}

func resetTaskFlags() {
	taskDesc, taskPriority, taskCategory = "", "", ""
	taskPomodoros = 0
	taskTags, taskDue, taskSearch = "", "", ""
	taskAI, taskAll, taskDone, taskReopen = false, false, false, false
	dryRun = false
}

func onlyTask(t *testing.T, s store.Store) *models.Task {
	t.Helper()
	tasks, err := s.ListTasks(context.Background(), store.TaskListFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func TestTaskAdd_ExplicitFlags(t *testing.T) {
	s, buf := taskTestEnv(t)

	taskDesc = "quarterly numbers"
	taskPriority = "high"
	taskCategory = "work"
	taskPomodoros = 3
	taskTags = "q3, finance ,"
	taskDue = "2026-11-02"

	require.NoError(t, taskAddRun(context.Background(), "Finish budget"))
	assert.Contains(t, buf.String(), "Created task")

	task := onlyTask(t, s)
	assert.Equal(t, "Finish budget", task.Title)
	assert.Equal(t, "quarterly numbers", task.Description)
	assert.Equal(t, models.TaskPriorityHigh, task.Priority)
	assert.Equal(t, models.TaskCategoryWork, task.Category)
	assert.Equal(t, 3, task.EstimatedPomodoros)
	assert.Equal(t, []string{"q3", "finance"}, task.Tags)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2026-11-02", task.DueDate.Local().Format(models.DateLayout))
}

func TestTaskAdd_Heuristics(t *testing.T) {
	s, _ := taskTestEnv(t)

	require.NoError(t, taskAddRun(context.Background(), "Urgent client report"))

	task := onlyTask(t, s)
	assert.Equal(t, models.TaskCategoryWork, task.Category)
	assert.Equal(t, models.TaskPriorityUrgent, task.Priority)
	assert.Equal(t, 1, task.EstimatedPomodoros)
	assert.Empty(t, task.Tags)
}

func TestTaskAdd_ExplicitBeatsHeuristics(t *testing.T) {
	s, _ := taskTestEnv(t)
	taskCategory = "personal"

	require.NoError(t, taskAddRun(context.Background(), "Go to the gym"))
	assert.Equal(t, models.TaskCategoryPersonal, onlyTask(t, s).Category)
}

func TestTaskAdd_AIWithoutKeyFallsBack(t *testing.T) {
	s, buf := taskTestEnv(t)
	taskAI = true
	t.Setenv("ANTHROPIC_API_KEY", "")
	errOut := &bytes.Buffer{}
	ui.ErrOut = errOut

	require.NoError(t, taskAddRun(context.Background(), "Read chapter 4"))
	assert.Contains(t, errOut.String(), "No Anthropic API key")
	assert.Contains(t, buf.String(), "Created task")
	assert.Equal(t, models.TaskCategoryStudy, onlyTask(t, s).Category)
}

func TestTaskAdd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		setup   func()
		wantErr string
	}{
		{"blank title", "   ", func() {}, "title is required"},
		{"bad priority", "x", func() { taskPriority = "whenever" }, "invalid priority"},
		{"bad category", "x", func() { taskCategory = "hobby" }, "invalid category"},
		{"too many pomodoros", "x", func() { taskPomodoros = 21 }, "between 1 and 20"},
		{"bad due date", "x", func() { taskDue = "next week" }, "invalid due date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := taskTestEnv(t)
			tt.setup()
			err := taskAddRun(context.Background(), tt.title)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			tasks, err := s.ListTasks(context.Background(), store.TaskListFilter{})
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestTaskAdd_DryRun(t *testing.T) {
	s, _ := taskTestEnv(t)
	dryRun = true

	require.NoError(t, taskAddRun(context.Background(), "Plan trip"))

	tasks, err := s.ListTasks(context.Background(), store.TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskList(t *testing.T) {
	s, buf := taskTestEnv(t)
	ctx := context.Background()

	open := &models.Task{Title: "Open task", Category: models.TaskCategoryWork}
	done := &models.Task{Title: "Done task", Category: models.TaskCategoryStudy}
	require.NoError(t, s.CreateTask(ctx, open))
	require.NoError(t, s.CreateTask(ctx, done))
	_, err := s.CompleteTask(ctx, done.ID)
	require.NoError(t, err)

	require.NoError(t, taskListRun())
	assert.Contains(t, buf.String(), "Open task")
	assert.NotContains(t, buf.String(), "Done task")

	buf.Reset()
	taskAll = true
	require.NoError(t, taskListRun())
	assert.Contains(t, buf.String(), "Open task")
	assert.Contains(t, buf.String(), "Done task")

	buf.Reset()
	taskAll = false
	taskDone = true
	require.NoError(t, taskListRun())
	assert.NotContains(t, buf.String(), "Open task")
	assert.Contains(t, buf.String(), "Done task")

	buf.Reset()
	taskDone = false
	taskCategory = "study"
	require.NoError(t, taskListRun())
	assert.Contains(t, buf.String(), "No tasks found")
}

func TestTaskShow(t *testing.T) {
	s, buf := taskTestEnv(t)
	task := &models.Task{Title: "Write docs", Description: "API section", Tags: []string{"docs"}}
	require.NoError(t, s.CreateTask(context.Background(), task))

	require.NoError(t, taskShowRun(strings.ToLower(task.ID[:10])))
	out := buf.String()
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "API section")
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, task.ID)

	err := taskShowRun("NOPE")
	assert.ErrorContains(t, err, "task not found")
}

func TestTaskUpdate(t *testing.T) {
	s, _ := taskTestEnv(t)
	ctx := context.Background()
	due := "2026-12-01"
	task := &models.Task{Title: "Draft"}
	require.NoError(t, s.CreateTask(ctx, task))

	taskPriority = "low"
	taskPomodoros = 4
	taskDue = due
	require.NoError(t, taskUpdateRun(task.ID, "Final draft"))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final draft", got.Title)
	assert.Equal(t, models.TaskPriorityLow, got.Priority)
	assert.Equal(t, 4, got.EstimatedPomodoros)
	require.NotNil(t, got.DueDate)

	resetTaskFlags()
	taskDue = "none"
	require.NoError(t, taskUpdateRun(task.ID, ""))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func TestTaskUpdate_Errors(t *testing.T) {
	s, _ := taskTestEnv(t)
	task := &models.Task{Title: "Draft"}
	require.NoError(t, s.CreateTask(context.Background(), task))

	err := taskUpdateRun(task.ID, "")
	assert.ErrorContains(t, err, "no updates specified")

	taskCategory = "hobby"
	err = taskUpdateRun(task.ID, "")
	assert.ErrorContains(t, err, "invalid category")
}

func TestTaskDoneAndReopen(t *testing.T) {
	s, _ := taskTestEnv(t)
	ctx := context.Background()
	task := &models.Task{Title: "Ship it"}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, taskDoneRun(task.ID))
	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.NotNil(t, got.CompletedAt)

	taskReopen = true
	require.NoError(t, taskUpdateRun(task.ID, ""))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
}

func TestTaskRm(t *testing.T) {
	s, _ := taskTestEnv(t)
	ctx := context.Background()
	task := &models.Task{Title: "Temporary"}
	require.NoError(t, s.CreateTask(ctx, task))

	dryRun = true
	require.NoError(t, taskRmRun(task.ID))
	_, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)

	dryRun = false
	require.NoError(t, taskRmRun(task.ID))
	_, err = s.GetTask(ctx, task.ID)
	assert.Error(t, err)
}

func TestFindTask_Ambiguous(t *testing.T) {
	s, _ := taskTestEnv(t)
	ctx := context.Background()
	a := &models.Task{ID: "01AAAAAAAAAAAAAAAAAAAAAAAA", Title: "a"}
	b := &models.Task{ID: "01AAAAAAAAAAAAAAAAAAAAAAAB", Title: "b"}
	require.NoError(t, s.CreateTask(ctx, a))
	require.NoError(t, s.CreateTask(ctx, b))

	_, err := findTask(ctx, s, "01aaaa")
	assert.ErrorContains(t, err, "ambiguous")

	got, err := findTask(ctx, s, "01AAAAAAAAAAAAAAAAAAAAAAAB")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Title)
}
