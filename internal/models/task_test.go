package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_ApplyDefaults(t *testing.T) {
	task := &Task{Title: "Write report"}
	task.ApplyDefaults()

	assert.Equal(t, TaskPriorityMedium, task.Priority)
	assert.Equal(t, TaskCategoryPersonal, task.Category)
	assert.Equal(t, 1, task.EstimatedPomodoros)
	assert.NotNil(t, task.Tags)
	assert.NoError(t, task.Validate())
}

func TestTask_Validate(t *testing.T) {
	valid := func() *Task {
		task := &Task{Title: "Read chapter 3", Category: TaskCategoryStudy}
		task.ApplyDefaults()
		return task
	}

	tests := []struct {
		name   string
		mutate func(*Task)
		errMsg string
	}{
		{"blank title", func(t *Task) { t.Title = "   " }, "title is required"},
		{"long title", func(t *Task) { t.Title = strings.Repeat("x", 256) }, "title exceeds"},
		{"long description", func(t *Task) { t.Description = strings.Repeat("x", 2001) }, "description exceeds"},
		{"bad priority", func(t *Task) { t.Priority = "someday" }, "invalid priority"},
		{"bad category", func(t *Task) { t.Category = "hobby" }, "invalid category"},
		{"too many pomodoros", func(t *Task) { t.EstimatedPomodoros = 21 }, "estimated pomodoros"},
		{"negative pomodoros", func(t *Task) { t.EstimatedPomodoros = -1 }, "estimated pomodoros"},
		{"too many tags", func(t *Task) { t.Tags = make([]string, 11) }, "at most 10 tags"},
		{"long tag", func(t *Task) { t.Tags = []string{strings.Repeat("t", 51)} }, "exceeds 50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid()
			tt.mutate(task)
			err := task.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestFocusSession_CountsTowardMetrics(t *testing.T) {
	assert.True(t, (&FocusSession{Kind: SessionKindWork, Finished: true}).CountsTowardMetrics())
	assert.False(t, (&FocusSession{Kind: SessionKindWork}).CountsTowardMetrics())
	assert.False(t, (&FocusSession{Kind: SessionKindShortBreak, Finished: true}).CountsTowardMetrics())
}

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		name                            string
		tasks, pomodoros, interruptions int
		want                            int
	}{
		{"empty day", 0, 0, 0, 0},
		{"mixed", 2, 4, 3, 30},
		{"clamped high", 10, 10, 0, 100},
		{"clamped low", 0, 1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductivityScore(tt.tasks, tt.pomodoros, tt.interruptions))
		})
	}
}
