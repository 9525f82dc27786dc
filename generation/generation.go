package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coursewizard/logger"
	"coursewizard/models"
)

var (
	ErrEmptyResponse     = errors.New("generation: response has no choices")
	ErrMalformedResponse = errors.New("generation: malformed response")
	ErrSourceDisabled    = errors.New("generation: source not configured")
)

// Generator sends an ordered message list to a model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, messages []models.Message) (string, error)
}

// HTTPError is a non-2xx response from an upstream endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Config selects and configures a Generator.
type Config struct {
	Provider     string // "http" or "gemini"
	URL          string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	GeminiAPIKey string
	GeminiModel  string
}

// NewFromConfig builds the Generator named by cfg.Provider.
func NewFromConfig(ctx context.Context, cfg Config, log *logger.Logger) (Generator, error) {
	switch cfg.Provider {
	case "", "http":
		return NewHTTPClient(cfg, log), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("generation: unknown provider %q", cfg.Provider)
	}
}
