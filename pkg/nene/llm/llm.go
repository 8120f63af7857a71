// Package llm implements the client for the generation and classification
// capabilities. Uses the OpenAI-compatible chat completions format, which
// works with OpenAI, Anthropic proxies, GLM (api.z.ai), and any compatible
// endpoint.
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
	"strings"
	"time"
)

// DefaultTimeout bounds a single API call. Transient failures get exactly one
// retry at this layer, so worst case a call blocks for ~2x this value.
const DefaultTimeout = 45 * time.Second

// Client handles communication with the LLM provider API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Options configures a Client beyond the required credentials.
type Options struct {
	// BaseURL is the API endpoint root (default https://api.openai.com/v1).
	BaseURL string

	// Timeout bounds a single request (default DefaultTimeout).
	Timeout time.Duration
}

// New creates an LLM client for the given model and API key.
func New(apiKey, model string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "llm"),
	}
}

// ---------- Wire Types (OpenAI-compatible) ----------

// chatMessage represents a message in the OpenAI chat format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible chat completions request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse is the OpenAI-compatible chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ---------- Generation ----------

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	// Temperature controls randomness (0 = provider default).
	Temperature float64

	// MaxTokens caps the output length (0 = provider default).
	MaxTokens int
}

// Generate sends a chat completion with the given system instruction and user
// context and returns the text content.
func (c *Client) Generate(ctx context.Context, system, user string, opts GenerateOptions) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	return c.complete(ctx, chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
}

// complete executes the request with one retry on transport or 5xx failure.
func (c *Client) complete(ctx context.Context, reqBody chatRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured. Run 'nene config set-key' or set NENE_API_KEY")
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	content, err := c.doOnce(ctx, bodyBytes)
	if err != nil && retryable(err) && ctx.Err() == nil {
		c.logger.Warn("completion failed, retrying once", "error", err)
		content, err = c.doOnce(ctx, bodyBytes)
	}
	return content, err
}

// transportError marks failures worth a single retry (network errors and
// server-side 5xx). Client-side 4xx and malformed payloads are not retried.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

func (c *Client) doOnce(ctx context.Context, body []byte) (string, error) {
	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &transportError{fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transportError{fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return "", &transportError{fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 500),
		)
		return "", fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	choice := chatResp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)

	c.logger.Debug("chat completion done",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"finish_reason", choice.FinishReason,
	)

	return content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
