// Package solver is a client for a CapSolver-compatible challenge solving
// service using its createTask/getTaskResult protocol.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/93bx/vidsrc-stremio-addon/internal/config"
)

// Client submits challenges and polls for their tokens.
type Client struct {
	httpClient *http.Client
	config     config.SolverConfig
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new solver client.
func NewClient(cfg config.SolverConfig, logger zerolog.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		logger:     logger.With().Str("component", "solver").Logger(),
		sleep:      sleepContext,
	}
}

// Name returns the service name.
func (c *Client) Name() string {
	return "capsolver"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Solve submits one task and polls it to completion. Submit is never retried.
func (c *Client) Solve(ctx context.Context, pageURL, siteKey string) (string, error) {
	taskID, err := c.Submit(ctx, pageURL, siteKey)
	if err != nil {
		return "", err
	}
	return c.Poll(ctx, taskID)
}

// Submit creates a solving task and returns its id.
func (c *Client) Submit(ctx context.Context, pageURL, siteKey string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	body := createTaskRequest{
		ClientKey: c.config.APIKey,
		Task: task{
			Type:       c.config.TaskType,
			WebsiteURL: pageURL,
			WebsiteKey: siteKey,
		},
	}

	var resp createTaskResponse
	if err := c.post(ctx, "createTask", body, &resp); err != nil {
		return "", err
	}
	if resp.ErrorID != 0 {
		c.logger.Warn().Int("errorId", resp.ErrorID).Str("errorCode", resp.ErrorCode).Msg("createTask rejected")
		return "", &RequestError{Op: "createTask", ErrorID: resp.ErrorID, Code: resp.ErrorCode, Description: resp.ErrorDescription}
	}
	if resp.TaskID == "" {
		return "", &RequestError{Op: "createTask", Description: "empty taskId"}
	}

	c.logger.Debug().Str("taskId", resp.TaskID).Str("pageUrl", pageURL).Msg("Solver task created")
	return resp.TaskID, nil
}

// Poll waits for a task result. Each attempt is preceded by the poll interval,
// so a task that never becomes ready fails with ErrTimeout after exactly
// MaxAttempts requests. Error codes and transport failures are terminal.
func (c *Client) Poll(ctx context.Context, taskID string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	body := getTaskResultRequest{ClientKey: c.config.APIKey, TaskID: taskID}

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := c.sleep(ctx, c.config.PollInterval); err != nil {
			return "", err
		}

		var resp getTaskResultResponse
		if err := c.post(ctx, "getTaskResult", body, &resp); err != nil {
			return "", err
		}
		if resp.ErrorID != 0 {
			return "", &RequestError{Op: "getTaskResult", ErrorID: resp.ErrorID, Code: resp.ErrorCode, Description: resp.ErrorDescription}
		}

		switch strings.ToLower(resp.Status) {
		case statusReady:
			if resp.Solution.Token == "" {
				return "", &RequestError{Op: "getTaskResult", Description: "ready without token"}
			}
			c.logger.Debug().Str("taskId", taskID).Int("attempt", attempt).Msg("Solver task ready")
			return resp.Solution.Token, nil
		case statusFailed:
			return "", &RequestError{Op: "getTaskResult", Code: resp.ErrorCode, Description: "task failed"}
		}

		c.logger.Trace().Str("taskId", taskID).Int("attempt", attempt).Str("status", resp.Status).Msg("Solver task pending")
	}

	return "", fmt.Errorf("%w: task %s not ready after %d attempts", ErrTimeout, taskID, c.config.MaxAttempts)
}

func (c *Client) post(ctx context.Context, op string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + op
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("op", op).Msg("HTTP request failed")
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &RequestError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	// 4xx responses still carry errorId in the body.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &RequestError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		return &RequestError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
