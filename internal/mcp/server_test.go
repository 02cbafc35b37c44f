package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s)
	require.NotNil(t, srv)
	return srv, s
}

// failingStore wraps a store and injects errors into list calls.
type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) ListTasks(context.Context, store.TaskListFilter) ([]*models.Task, error) {
	return nil, f.err
}

func (f *failingStore) ListSessions(context.Context, store.SessionListFilter) ([]*models.FocusSession, error) {
	return nil, f.err
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedTask(t *testing.T, s store.Store, title string, category models.TaskCategory) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, Category: category}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

// ---------------------------------------------------------------------------
// Tests: pomo_list_tasks
// ---------------------------------------------------------------------------

func TestHandleListTasks_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListTasks(context.Background(), callToolReq("pomo_list_tasks", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleListTasks_Filters(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	seedTask(t, s, "Quarterly report", models.TaskCategoryWork)
	gym := seedTask(t, s, "Gym", models.TaskCategoryHealth)
	_, err := s.CompleteTask(ctx, gym.ID)
	require.NoError(t, err)

	var tasks []taskOut
	result, err := srv.handleListTasks(ctx, callToolReq("pomo_list_tasks", map[string]any{"category": "work"}))
	require.NoError(t, err)
	resultJSON(t, result, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Quarterly report", tasks[0].Title)
	assert.Equal(t, []string{}, tasks[0].Tags)

	result, err = srv.handleListTasks(ctx, callToolReq("pomo_list_tasks", map[string]any{"status": "completed"}))
	require.NoError(t, err)
	resultJSON(t, result, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Gym", tasks[0].Title)
	assert.NotEmpty(t, tasks[0].CompletedAt)

	result, err = srv.handleListTasks(ctx, callToolReq("pomo_list_tasks", map[string]any{"status": "open", "search": "report"}))
	require.NoError(t, err)
	resultJSON(t, result, &tasks)
	assert.Len(t, tasks, 1)
}

func TestHandleListTasks_InvalidArgs(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, args := range []map[string]any{
		{"category": "hobby"},
		{"priority": "asap"},
		{"status": "someday"},
	} {
		result, err := srv.handleListTasks(context.Background(), callToolReq("pomo_list_tasks", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "%v", args)
	}
}

func TestHandleListTasks_StoreError(t *testing.T) {
	srv, s := newTestServer(t)
	srv.store = &failingStore{Store: s, err: errors.New("database locked")}

	result, err := srv.handleListTasks(context.Background(), callToolReq("pomo_list_tasks", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "database locked")
}

// ---------------------------------------------------------------------------
// Tests: pomo_create_task
// ---------------------------------------------------------------------------

func TestHandleCreateTask(t *testing.T) {
	srv, s := newTestServer(t)

	result, err := srv.handleCreateTask(context.Background(), callToolReq("pomo_create_task", map[string]any{
		"title":               "Study for exam",
		"category":            "study",
		"priority":            "high",
		"estimated_pomodoros": float64(6),
		"tags":                "exam, biology ,",
		"due_date":            "2026-05-01",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out taskOut
	resultJSON(t, result, &out)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "study", out.Category)
	assert.Equal(t, "high", out.Priority)
	assert.Equal(t, 6, out.EstimatedPomodoros)
	assert.Equal(t, []string{"exam", "biology"}, out.Tags)
	assert.NotEmpty(t, out.DueDate)

	stored, err := s.GetTask(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Study for exam", stored.Title)
}

func TestHandleCreateTask_Defaults(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleCreateTask(context.Background(), callToolReq("pomo_create_task", map[string]any{"title": "Water plants"}))
	require.NoError(t, err)

	var out taskOut
	resultJSON(t, result, &out)
	assert.Equal(t, "medium", out.Priority)
	assert.Equal(t, "personal", out.Category)
	assert.Equal(t, 1, out.EstimatedPomodoros)
}

func TestHandleCreateTask_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
		msg  string
	}{
		{"missing title", map[string]any{"category": "work"}, "missing required parameter: title"},
		{"bad priority", map[string]any{"title": "x", "priority": "asap"}, "invalid priority"},
		{"too many pomodoros", map[string]any{"title": "x", "estimated_pomodoros": float64(50)}, "estimated pomodoros"},
		{"bad due date", map[string]any{"title": "x", "due_date": "next week"}, "invalid due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleCreateTask(context.Background(), callToolReq("pomo_create_task", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.msg)
		})
	}
}

// ---------------------------------------------------------------------------
// Tests: pomo_complete_task
// ---------------------------------------------------------------------------

func TestHandleCompleteTask_ByPrefix(t *testing.T) {
	srv, s := newTestServer(t)
	task := seedTask(t, s, "Ship release", models.TaskCategoryWork)

	prefix := strings.ToLower(task.ID[:20])
	result, err := srv.handleCompleteTask(context.Background(), callToolReq("pomo_complete_task", map[string]any{"task_id": prefix}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out taskOut
	resultJSON(t, result, &out)
	assert.Equal(t, task.ID, out.ID)
	assert.True(t, out.Completed)
}

func TestHandleCompleteTask_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleCompleteTask(context.Background(), callToolReq("pomo_complete_task", map[string]any{"task_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "task not found")

	result, err = srv.handleCompleteTask(context.Background(), callToolReq("pomo_complete_task", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// Tests: pomo_list_sessions
// ---------------------------------------------------------------------------

func TestHandleListSessions(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	task := seedTask(t, s, "Essay", models.TaskCategoryStudy)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		fs := &models.FocusSession{
			Kind: models.SessionKindWork, StartedAt: start, EndedAt: start.Add(25 * time.Minute),
			PlannedMinutes: 25, Finished: true,
		}
		if i > 0 {
			fs.TaskID = task.ID
		}
		require.NoError(t, s.RecordSession(ctx, fs))
	}

	type sessionOut struct {
		TaskID    string `json:"task_id"`
		StartedAt string `json:"started_at"`
	}
	var out []sessionOut

	result, err := srv.handleListSessions(ctx, callToolReq("pomo_list_sessions", map[string]any{"limit": float64(2)}))
	require.NoError(t, err)
	resultJSON(t, result, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "2026-03-02T11:00:00Z", out[0].StartedAt, "newest first")

	result, err = srv.handleListSessions(ctx, callToolReq("pomo_list_sessions", map[string]any{"task_id": task.ID}))
	require.NoError(t, err)
	resultJSON(t, result, &out)
	assert.Len(t, out, 2)

	result, err = srv.handleListSessions(ctx, callToolReq("pomo_list_sessions", map[string]any{"limit": float64(-1)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListSessions_StoreError(t *testing.T) {
	srv, s := newTestServer(t)
	srv.store = &failingStore{Store: s, err: errors.New("disk full")}

	result, err := srv.handleListSessions(context.Background(), callToolReq("pomo_list_sessions", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "disk full")
}

// ---------------------------------------------------------------------------
// Tests: pomo_dashboard
// ---------------------------------------------------------------------------

func TestHandleDashboard(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 16, 0, 0, 0, time.Local)
	srv.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		end := now.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, s.RecordSession(ctx, &models.FocusSession{
			Kind: models.SessionKindWork, StartedAt: end.Add(-25 * time.Minute), EndedAt: end,
			PlannedMinutes: 25, Finished: true,
		}))
	}

	result, err := srv.handleDashboard(ctx, callToolReq("pomo_dashboard", nil))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var d analytics.Dashboard
	resultJSON(t, result, &d)
	assert.Equal(t, "2026-03-04", d.Today.Date)
	assert.Equal(t, 2, d.Today.TotalPomodoros)
	assert.Equal(t, 50, d.Today.FocusMinutes)
	assert.Equal(t, 10, d.Today.ProductivityScore)
	assert.Len(t, d.Week.DailyStats, 1)
}

// ---------------------------------------------------------------------------
// Tests: Integration -- verify all tools are registered via HandleMessage
// ---------------------------------------------------------------------------

func TestMCPIntegration_ListTools(t *testing.T) {
	srv, _ := newTestServer(t)

	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv)

	ctx := context.Background()
	reqJSON := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	respMsg := mcpSrv.HandleMessage(ctx, reqJSON)
	require.NotNil(t, respMsg)

	respBytes, err := json.Marshal(respMsg)
	require.NoError(t, err)

	var rpcResp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpcResp))

	toolNames := make(map[string]bool)
	for _, tool := range rpcResp.Result.Tools {
		toolNames[tool.Name] = true
	}

	for _, name := range []string{
		"pomo_list_tasks",
		"pomo_create_task",
		"pomo_complete_task",
		"pomo_list_sessions",
		"pomo_dashboard",
	} {
		assert.True(t, toolNames[name], "expected tool %q to be registered", name)
	}
}
