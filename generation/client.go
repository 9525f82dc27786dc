package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coursewizard/logger"
	"coursewizard/models"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultBackoff    = 500 * time.Millisecond
	maxErrorBodyBytes = 2048
)

type chatRequest struct {
	Model    string           `json:"model,omitempty"`
	Messages []models.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// HTTPClient talks to a chat-completion style endpoint.
type HTTPClient struct {
	url        string
	apiKey     string
	model      string
	maxRetries int
	backoff    time.Duration
	client     *http.Client
	log        *logger.Logger
}

func NewHTTPClient(cfg Config, log *logger.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPClient{
		url:        strings.TrimSpace(cfg.URL),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Generate posts messages and returns choices[0].message.content.
// 429 and 5xx responses and transport errors are retried with exponential backoff.
func (c *HTTPClient) Generate(ctx context.Context, messages []models.Message) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("generation: encode request: %w", err)
	}

	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		text, err := c.doOnce(ctx, payload)
		if err == nil {
			return text, nil
		}
		if attempt >= c.maxRetries || !isRetryable(ctx, err) {
			return "", err
		}

		c.log.Warn("Generation request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (c *HTTPClient) doOnce(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("generation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}
