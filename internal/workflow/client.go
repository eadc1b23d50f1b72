package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// RunPath is the workflow-execution endpoint relative to the base URL.
	RunPath = "/v1/workflows/run"

	// ModeBlocking asks the API for a single JSON response.
	ModeBlocking = "blocking"

	// ModeStreaming asks the API for a Server-Sent-Events response.
	ModeStreaming = "streaming"

	// InputKey is the workflow input variable that carries the sentence.
	InputKey = "content"

	// DefaultTimeout bounds a single workflow request.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody limits how much of a non-200 body is kept in StatusError.
	maxErrorBody = 64 * 1024
)

// Config holds the connection parameters of the workflow API.
// BaseURL, APIKey, and User are required.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.dify.ai".
	BaseURL string

	// APIKey is the workflow application's secret key.
	APIKey string

	// User identifies the end user to the API.
	User string

	// Timeout bounds each request. Zero disables the client-side timeout.
	Timeout time.Duration

	// StrictStream makes streaming mode fail on lines it would otherwise skip,
	// and treats a stream without a usable result as malformed.
	StrictStream bool
}

// Inputs are the key/value pairs passed to the workflow.
type Inputs map[string]any

// Recorder receives one observation per workflow call.
// It is implemented by the metrics package.
type Recorder interface {
	ObserveWorkflowCall(mode string, elapsed time.Duration, err error)
}

// Client calls the workflow API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	strict     bool
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
// The Config timeout is not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the recorder that observes every call.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient validates cfg and creates a Client.
// The first empty required field is reported as a *ConfigError.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	required := []struct {
		field string
		value string
	}{
		{"base_url", cfg.BaseURL},
		{"api_key", cfg.APIKey},
		{"user", cfg.User},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &ConfigError{Field: r.field}
		}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		strict:     cfg.StrictStream,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// runRequest is the JSON body of a workflow run.
type runRequest struct {
	Inputs       Inputs `json:"inputs"`
	ResponseMode string `json:"response_mode"`
	User         string `json:"user"`
}

// Run executes the workflow in blocking mode and returns the raw JSON response.
// A body that is not valid JSON yields an error wrapping ErrInvalidJSON that
// includes the parse diagnostic and the response text.
func (c *Client) Run(ctx context.Context, inputs Inputs) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.run(ctx, inputs)
	c.observe(ModeBlocking, start, err)
	return raw, err
}

func (c *Client) run(ctx context.Context, inputs Inputs) (json.RawMessage, error) {
	resp, err := c.post(ctx, inputs, ModeBlocking)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v - Response text: %s", ErrInvalidJSON, err, body)
	}

	return json.RawMessage(body), nil
}

// post sends the run request and returns the response if the status is 200.
// The caller must close the body.
func (c *Client) post(ctx context.Context, inputs Inputs, mode string) (*http.Response, error) {
	if inputs == nil {
		inputs = Inputs{}
	}
	body, err := json.Marshal(runRequest{
		Inputs:       inputs,
		ResponseMode: mode,
		User:         c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RunPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if mode == ModeStreaming {
		req.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("calling workflow",
		"url", req.URL.String(),
		"mode", mode,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var preview bytes.Buffer
		_, _ = io.CopyN(&preview, resp.Body, maxErrorBody)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       preview.String(),
		}
	}

	return resp, nil
}

func (c *Client) observe(mode string, start time.Time, err error) {
	if c.recorder != nil {
		c.recorder.ObserveWorkflowCall(mode, time.Since(start), err)
	}
}
