package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// TaskCategory groups tasks by area of life.
type TaskCategory string

const (
	TaskCategoryWork     TaskCategory = "work"
	TaskCategoryPersonal TaskCategory = "personal"
	TaskCategoryStudy    TaskCategory = "study"
	TaskCategoryHealth   TaskCategory = "health"
)

// TaskCategories lists every category in display order.
var TaskCategories = []TaskCategory{TaskCategoryWork, TaskCategoryPersonal, TaskCategoryStudy, TaskCategoryHealth}

// Valid reports whether c is a known category.
func (c TaskCategory) Valid() bool {
	switch c {
	case TaskCategoryWork, TaskCategoryPersonal, TaskCategoryStudy, TaskCategoryHealth:
		return true
	}
	return false
}

// Task field limits.
const (
	MaxTitleLen           = 255
	MaxDescriptionLen     = 2000
	MaxTags               = 10
	MaxTagLen             = 50
	MinEstimatedPomodoros = 1
	MaxEstimatedPomodoros = 20
)

// Task is a unit of work that focus sessions can be attributed to.
type Task struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	DueDate            *time.Time   `json:"due_date"`
	Priority           TaskPriority `json:"priority"`
	Category           TaskCategory `json:"category"`
	EstimatedPomodoros int          `json:"estimated_pomodoros"`
	ActualPomodoros    int          `json:"actual_pomodoros"`
	Completed          bool         `json:"completed"`
	CompletedAt        *time.Time   `json:"completed_at"`
	Tags               []string     `json:"tags"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// ApplyDefaults fills unset fields with the values a new task starts with.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	if t.Category == "" {
		t.Category = TaskCategoryPersonal
	}
	if t.EstimatedPomodoros == 0 {
		t.EstimatedPomodoros = MinEstimatedPomodoros
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
}

// Validate checks the task against the field limits.
func (t *Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	if len(t.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority: %q", t.Priority)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("invalid category: %q", t.Category)
	}
	if t.EstimatedPomodoros < MinEstimatedPomodoros || t.EstimatedPomodoros > MaxEstimatedPomodoros {
		return fmt.Errorf("estimated pomodoros must be between %d and %d", MinEstimatedPomodoros, MaxEstimatedPomodoros)
	}
	if len(t.Tags) > MaxTags {
		return fmt.Errorf("at most %d tags allowed", MaxTags)
	}
	for _, tag := range t.Tags {
		if len(tag) > MaxTagLen {
			return fmt.Errorf("tag %q exceeds %d characters", tag, MaxTagLen)
		}
	}
	return nil
}
