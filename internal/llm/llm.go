package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/pomo/internal/analytics"
	"github.com/joescharf/pomo/internal/models"
)

// Client wraps the Anthropic API for productivity coaching.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSuggestPrompt constructs the system and user prompts for dashboard suggestions.
func buildSuggestPrompt(d *analytics.Dashboard) (system string, user string, err error) {
	system = `You are a productivity coach for someone using the pomodoro technique. Given their dashboard statistics as JSON, return ONLY a JSON array of 2 to 5 short, specific suggestions (strings).

Rules:
- Base every suggestion on the numbers provided; do not invent data
- Focus time and session lengths are in minutes; peak_hours are local hours (0-23)
- completion_rate values are percentages
- Keep each suggestion to one or two sentences
- Do not repeat the rule-based suggestions already listed under "suggestions"
- Return valid JSON only, no markdown fencing or explanation`

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode dashboard: %w", err)
	}
	user = "Dashboard:\n\n" + string(data)
	return system, user, nil
}

// Suggest asks the model for coaching suggestions based on the dashboard.
func (c *Client) Suggest(ctx context.Context, d *analytics.Dashboard) ([]string, error) {
	systemPrompt, userPrompt, err := buildSuggestPrompt(d)
	if err != nil {
		return nil, err
	}

	text, err := c.complete(ctx, 1024, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(text), &suggestions); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return suggestions, nil
}

// TaskEstimate holds the model's planning guess for a task.
type TaskEstimate struct {
	EstimatedPomodoros int    `json:"estimated_pomodoros"`
	Category           string `json:"category"`
	Priority           string `json:"priority"`
}

// buildEstimatePrompt constructs the system and user prompts for task estimation.
func buildEstimatePrompt(title, description string) (system string, user string) {
	system = fmt.Sprintf(`You help plan work in 25 minute pomodoros. Given a task's title and optional description, return a JSON object with exactly three fields:

- "estimated_pomodoros": integer from %d to %d, how many 25 minute focus sessions the task needs
- "category": one of "work", "personal", "study", "health"
- "priority": one of "low", "medium", "high", "urgent"

Rules:
- Return valid JSON only, no markdown fencing or explanation
- Default priority to "medium" unless the text suggests urgency or a deadline
- If the description is empty, infer as much as possible from the title alone`,
		models.MinEstimatedPomodoros, models.MaxEstimatedPomodoros)

	var sb strings.Builder
	sb.WriteString("Task title: ")
	sb.WriteString(title)
	sb.WriteString("\n")
	if description != "" {
		sb.WriteString("\nDescription: ")
		sb.WriteString(description)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// EstimateTask asks the model for a pomodoro estimate, category and priority.
// Out of range answers are clamped or dropped so the result always validates.
func (c *Client) EstimateTask(ctx context.Context, title, description string) (*TaskEstimate, error) {
	systemPrompt, userPrompt := buildEstimatePrompt(title, description)

	text, err := c.complete(ctx, 512, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var est TaskEstimate
	if err := json.Unmarshal([]byte(text), &est); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	est.normalize()
	return &est, nil
}

func (e *TaskEstimate) normalize() {
	e.EstimatedPomodoros = min(models.MaxEstimatedPomodoros, max(models.MinEstimatedPomodoros, e.EstimatedPomodoros))
	if !models.TaskCategory(e.Category).Valid() {
		e.Category = ""
	}
	if !models.TaskPriority(e.Priority).Valid() {
		e.Priority = ""
	}
}

func (c *Client) complete(ctx context.Context, maxTokens int64, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return stripFence(text), nil
}

// stripFence removes markdown code fencing the model sometimes adds.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
