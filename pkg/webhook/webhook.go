// Package webhook posts run summaries to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/config"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Event kinds.
const (
	EventExtract = "extract"
	EventMatch   = "match"
)

// Event is the body posted to a webhook.
type Event struct {
	// Kind is the command that produced the event.
	Kind string `json:"event"`

	RunID     string    `json:"run_id,omitempty"`
	HasIssues bool      `json:"has_issues"`
	SentAt    time.Time `json:"sent_at"`

	// Payload is the command's summary, as written by the json output format.
	Payload any `json:"payload"`
}

// maxResponseBody bounds how much of a response is kept.
const maxResponseBody = 1 << 20

// Client posts events to webhook endpoints.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient returns a client using a dedicated http.Client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  "leavelogalone-webhook",
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL   string
	Token string // sent as a bearer token when set

	// Timeout bounds the whole request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Response is the outcome of one POST.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success reports a 2xx response with no transport error.
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts event to opts.URL. SentAt is filled in when unset. Errors are carried in
// the returned Response.
func (c *Client) Send(ctx context.Context, event Event, opts SendOptions) *Response {
	start := time.Now()
	if event.SentAt.IsZero() {
		event.SentAt = start.UTC()
	}

	resp := c.post(ctx, event, opts)
	resp.Duration = time.Since(start)
	return resp
}

func (c *Client) post(ctx context.Context, event Event, opts SendOptions) *Response {
	body, err := json.Marshal(event)
	if err != nil {
		return &Response{Error: fmt.Errorf("encoding %s event: %w", event.Kind, err)}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return &Response{Error: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{Error: fmt.Errorf("posting to webhook: %w", err)}
	}
	defer httpResp.Body.Close()

	resp := &Response{StatusCode: httpResp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("reading webhook response: %w", err)
		return resp
	}
	resp.Body = string(data)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}

// Notify sends event to every webhook whose trigger fires for it. Failures are
// logged and returned; they never fail the run.
func (c *Client) Notify(ctx context.Context, hooks []config.WebhookConfig, event Event, logger *zap.Logger) []*Response {
	if logger == nil {
		logger = zap.NewNop()
	}

	var responses []*Response
	for i := range hooks {
		hook := &hooks[i]
		if !hook.ShouldFire(event.HasIssues) {
			continue
		}

		resp := c.Send(ctx, event, SendOptions{
			URL:     hook.URL,
			Token:   hook.Token,
			Timeout: hook.Timeout,
		})
		name := hook.Name
		if name == "" {
			name = hook.URL
		}
		if resp.Success() {
			logger.Info("webhook sent",
				zap.String("webhook", name),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", resp.Duration))
		} else {
			logger.Warn("webhook failed", zap.String("webhook", name), zap.Error(resp.Error))
		}
		responses = append(responses, resp)
	}
	return responses
}
