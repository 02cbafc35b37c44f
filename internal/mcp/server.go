package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

// Server wraps the pomo data layer and exposes it as MCP tools.
type Server struct {
	store     store.Store
	dashboard *analytics.Builder
	now       func() time.Time
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store) *Server {
	return &Server{
		store:     s,
		dashboard: analytics.NewBuilder(),
		now:       time.Now,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pomo", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listTasksTool())
	srv.AddTool(s.createTaskTool())
	srv.AddTool(s.completeTaskTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.dashboardTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type taskOut struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Priority           string   `json:"priority"`
	Category           string   `json:"category"`
	EstimatedPomodoros int      `json:"estimated_pomodoros"`
	ActualPomodoros    int      `json:"actual_pomodoros"`
	Completed          bool     `json:"completed"`
	Tags               []string `json:"tags"`
	DueDate            string   `json:"due_date,omitempty"`
	CompletedAt        string   `json:"completed_at,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

func toTaskOut(t *models.Task) taskOut {
	out := taskOut{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Priority:           string(t.Priority),
		Category:           string(t.Category),
		EstimatedPomodoros: t.EstimatedPomodoros,
		ActualPomodoros:    t.ActualPomodoros,
		Completed:          t.Completed,
		Tags:               t.Tags,
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if t.DueDate != nil {
		out.DueDate = t.DueDate.Format(time.RFC3339)
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

// pomo_list_tasks
func (s *Server) listTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_list_tasks",
		mcp.WithDescription("List tasks, optionally filtered by category, priority, completion and a search term. Returns a JSON array of tasks with id, title, priority, category, estimated and actual pomodoros, completed, tags and due date."),
		mcp.WithString("category", mcp.Description("Category filter: work, personal, study, health")),
		mcp.WithString("priority", mcp.Description("Priority filter: low, medium, high, urgent")),
		mcp.WithString("status", mcp.Description("Completion filter: open, completed (default: all)")),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match in title or description")),
	)
	return tool, s.handleListTasks
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.TaskListFilter{
		Category: models.TaskCategory(request.GetString("category", "")),
		Priority: models.TaskPriority(request.GetString("priority", "")),
		Search:   request.GetString("search", ""),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid category: %s", filter.Category)), nil
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid priority: %s", filter.Priority)), nil
	}
	switch status := request.GetString("status", ""); status {
	case "":
	case "open":
		completed := false
		filter.Completed = &completed
	case "completed":
		completed := true
		filter.Completed = &completed
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s (want open or completed)", status)), nil
	}

	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list tasks: %v", err)), nil
	}

	out := make([]taskOut, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskOut(t)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal tasks: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// pomo_create_task
func (s *Server) createTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_create_task",
		mcp.WithDescription("Create a new task. Returns the created task as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority: low, medium, high, urgent (default: medium)")),
		mcp.WithString("category", mcp.Description("Category: work, personal, study, health (default: personal)")),
		mcp.WithNumber("estimated_pomodoros", mcp.Description("Estimated number of pomodoros, 1 to 20 (default: 1)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("due_date", mcp.Description("Due date as YYYY-MM-DD or RFC 3339 timestamp")),
	)
	return tool, s.handleCreateTask
}

func (s *Server) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	task := &models.Task{
		Title:              title,
		Description:        request.GetString("description", ""),
		Priority:           models.TaskPriority(request.GetString("priority", "")),
		Category:           models.TaskCategory(request.GetString("category", "")),
		EstimatedPomodoros: request.GetInt("estimated_pomodoros", 0),
		Tags:               splitTags(request.GetString("tags", "")),
	}
	if due := request.GetString("due_date", ""); due != "" {
		d, err := parseDueDate(due)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		task.DueDate = &d
	}

	task.ApplyDefaults()
	if err := task.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create task: %v", err)), nil
	}

	data, err := json.Marshal(toTaskOut(task))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal task: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// pomo_complete_task
func (s *Server) completeTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_complete_task",
		mcp.WithDescription("Mark a task as completed. Completing an already completed task is a no-op. Returns the task as JSON."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID (full ULID or unique prefix)")),
	)
	return tool, s.handleCompleteTask
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err = s.store.CompleteTask(ctx, task.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to complete task: %v", err)), nil
	}

	data, err := json.Marshal(toTaskOut(task))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal task: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// pomo_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_list_sessions",
		mcp.WithDescription("List recorded focus sessions, newest first. Returns a JSON array with kind, task id, start and end times, planned minutes, interruptions and whether the session ran to completion."),
		mcp.WithString("task_id", mcp.Description("Only sessions for this task (full ULID or unique prefix)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions (default: 10)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.SessionListFilter{Limit: request.GetInt("limit", 10)}
	if filter.Limit <= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %d", filter.Limit)), nil
	}
	if taskID := request.GetString("task_id", ""); taskID != "" {
		task, err := s.findTask(ctx, taskID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.TaskID = task.ID
	}

	sessions, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	type sessionOut struct {
		ID             string `json:"id"`
		TaskID         string `json:"task_id,omitempty"`
		Kind           string `json:"kind"`
		StartedAt      string `json:"started_at"`
		EndedAt        string `json:"ended_at"`
		PlannedMinutes int    `json:"planned_minutes"`
		Interruptions  int    `json:"interruptions"`
		Finished       bool   `json:"finished"`
	}

	out := make([]sessionOut, len(sessions))
	for i, fs := range sessions {
		out[i] = sessionOut{
			ID:             fs.ID,
			TaskID:         fs.TaskID,
			Kind:           string(fs.Kind),
			StartedAt:      fs.StartedAt.Format(time.RFC3339),
			EndedAt:        fs.EndedAt.Format(time.RFC3339),
			PlannedMinutes: fs.PlannedMinutes,
			Interruptions:  fs.Interruptions,
			Finished:       fs.Finished,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// pomo_dashboard
func (s *Server) dashboardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_dashboard",
		mcp.WithDescription("Get the productivity dashboard: today's pomodoros, focus minutes, interruptions and score (0-100), the last 7 days, category completion rates, peak hours and suggestions."),
	)
	return tool, s.handleDashboard
}

func (s *Server) handleDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.dashboard.Load(ctx, s.store, s.now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build dashboard: %v", err)), nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal dashboard: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findTask finds a task by full ID or unique prefix.
func (s *Server) findTask(ctx context.Context, id string) (*models.Task, error) {
	if task, err := s.store.GetTask(ctx, id); err == nil {
		return task, nil
	}

	upper := strings.ToUpper(id)
	tasks, err := s.store.ListTasks(ctx, store.TaskListFilter{})
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

func splitTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due_date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
