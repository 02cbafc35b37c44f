package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/pomo/internal/timer"
)

// SessionsPath is the endpoint a pomo server records sessions on.
const SessionsPath = "/api/v1/sessions"

// HTTPRecorder posts finished sessions to a remote pomo server.
type HTTPRecorder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRecorder returns a recorder that posts to baseURL. A nil client
// uses one with a 30 second timeout.
func NewHTTPRecorder(baseURL string, client *http.Client) *HTTPRecorder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRecorder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// RecordSession implements timer.Recorder.
func (r *HTTPRecorder) RecordSession(ctx context.Context, rec timer.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+SessionsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr); err != nil || apiErr.Error == "" {
		return fmt.Errorf("post session: server returned %s", resp.Status)
	}
	return fmt.Errorf("post session: server returned %s: %s", resp.Status, apiErr.Error)
}
