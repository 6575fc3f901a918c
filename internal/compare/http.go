package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ComparePath is the backend route answering comparison requests.
const ComparePath = "/api/compare"

const maxErrorBody = 64 << 10

// StatusError is returned for non-2xx backend answers.
type StatusError struct {
	StatusCode int
	Status     string
	// Message is the backend's "error" field, if it sent one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("compare: unexpected status %s", e.Status)
}

// HTTPClient talks to the comparison backend.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.client = hc
	return c
}

func (c *HTTPClient) Endpoint() string { return c.baseURL + ComparePath }

func (c *HTTPClient) Compare(ctx context.Context, prompt string) (Result, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &payload) == nil {
			se.Message = payload.Error
		}
		return Result{}, se
	}

	var payload struct {
		Prompt  string `json:"prompt"`
		Verde   *Reply `json:"verde"`
		ChatGPT *Reply `json:"chatgpt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode compare response: %w", err)
	}

	out := Result{Prompt: payload.Prompt}
	if payload.Verde != nil {
		out.Verde = *payload.Verde
	}
	if payload.ChatGPT != nil {
		out.ChatGPT = *payload.ChatGPT
	}
	return out, nil
}
