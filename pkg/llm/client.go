// Package llm provides a client for OpenAI-compatible chat-completion
// endpoints. Concurrency is capped by a weighted semaphore shared across all
// callers, and transient failures retry with exponential backoff.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/constraint-watch/chokepoint/pkg/config"
)

// Client issues chat-completion requests with retry and a concurrency cap.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	defaults   *config.LLMDefaults
	sem        *semaphore.Weighted
	logger     *slog.Logger
}

// NewClient creates a Client from the llm.yml config. concurrency bounds the
// number of in-flight requests across all pipeline stages.
func NewClient(cfg *config.LLMConfig, apiKey string, concurrency int) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Defaults.TimeoutSeconds) * time.Second,
		},
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		apiKey:   apiKey,
		defaults: cfg.Defaults,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		logger:   slog.Default().With("component", "llm"),
	}
}

// Request is a single chat-completion call. Nil Temperature and MaxTokens
// fall back to the configured defaults; JSONMode asks the endpoint to emit a
// single JSON object.
type Request struct {
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   *int
	JSONMode    bool
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// statusError marks an HTTP failure with its status code so the retry loop
// can tell transient server errors from permanent client errors.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm endpoint returned status %d: %s", e.code, e.body)
}

// Complete sends one chat-completion request and returns the response text.
// It holds a semaphore slot for the whole retry sequence so a struggling
// endpoint is never hammered by more than the configured concurrency.
// Server errors and transport failures retry with exponential backoff;
// 4xx responses fail immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire llm slot: %w", err)
	}
	defer c.sem.Release(1)

	temperature := c.defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.defaults.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal llm request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(c.defaults.RetryBackoffSeconds) * time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	retries := c.defaults.Retries
	attempt := 0

	var content string
	operation := func() error {
		attempt++
		text, err := c.once(ctx, payload)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
				c.logger.Error("LLM request rejected", "status", se.code, "attempt", attempt)
				return backoff.Permanent(err)
			}
			c.logger.Warn("LLM request failed",
				"attempt", attempt, "retries", retries, "error", err)
			return err
		}
		content = text
		return nil
	}

	err = backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries-1)), ctx))
	if err != nil {
		return "", fmt.Errorf("llm request failed after %d attempts: %w", attempt, err)
	}
	return content, nil
}

// once performs a single chat-completions round trip.
func (c *Client) once(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request transport error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: truncateBody(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode llm response: %w", err))
	}
	if parsed.Error != nil {
		return "", backoff.Permanent(fmt.Errorf("llm api error: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("llm response contained no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncateBody(raw []byte) string {
	const max = 300
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
