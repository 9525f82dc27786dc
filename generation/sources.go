package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ContextEntry is one question/answer a student gave, as listed by the context source.
type ContextEntry struct {
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	CoursePublicID  string `json:"coursePublicId"`
	StudentPublicID string `json:"studentPublicId"`
}

// Instruction is a per-course prompt instruction, selected by Type.
type Instruction struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

type ContextSource interface {
	FetchContext(ctx context.Context, courseID, studentID string) ([]ContextEntry, error)
}

type InstructionSource interface {
	FetchInstructions(ctx context.Context, courseID string) ([]Instruction, error)
}

// HTTPContextSource lists context entries with a GET. Filtering to the course
// is left to the consumer.
type HTTPContextSource struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPContextSource(rawURL, apiKey string, timeout time.Duration) *HTTPContextSource {
	return &HTTPContextSource{url: strings.TrimSpace(rawURL), apiKey: apiKey, client: newSourceClient(timeout)}
}

func (s *HTTPContextSource) FetchContext(ctx context.Context, courseID, studentID string) ([]ContextEntry, error) {
	var entries []ContextEntry
	err := getJSON(ctx, s.client, s.url, s.apiKey, url.Values{
		"coursePublicId":  {courseID},
		"studentPublicId": {studentID},
	}, &entries)
	if err != nil {
		return nil, fmt.Errorf("fetch context: %w", err)
	}
	return entries, nil
}

// HTTPInstructionSource lists a course's instructions with a GET.
type HTTPInstructionSource struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPInstructionSource(rawURL, apiKey string, timeout time.Duration) *HTTPInstructionSource {
	return &HTTPInstructionSource{url: strings.TrimSpace(rawURL), apiKey: apiKey, client: newSourceClient(timeout)}
}

func (s *HTTPInstructionSource) FetchInstructions(ctx context.Context, courseID string) ([]Instruction, error) {
	var instructions []Instruction
	err := getJSON(ctx, s.client, s.url, s.apiKey, url.Values{"coursePublicId": {courseID}}, &instructions)
	if err != nil {
		return nil, fmt.Errorf("fetch instructions: %w", err)
	}
	return instructions, nil
}

func newSourceClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, rawURL, apiKey string, query url.Values, out any) error {
	if rawURL == "" {
		return ErrSourceDisabled
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
