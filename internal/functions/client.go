package functions

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

const defaultTimeout = 70 * time.Second

// Error is the error payload of a callable function.
type Error struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("functions: %s: %s", e.Status, e.Message)
}

// Client invokes HTTPS callable functions of one Firebase project.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(region, projectID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    fmt.Sprintf("https://%s-%s.cloudfunctions.net", region, projectID),
		httpClient: httpClient,
	}
}

// NewClientWithBaseURL points the client at an emulator or a test server.
func NewClientWithBaseURL(baseURL string, httpClient *http.Client) *Client {
	c := NewClient("", "", httpClient)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) URL(name string) string {
	return c.baseURL + "/" + name
}

// Call posts data to the named callable function on behalf of the user owning
// idToken and decodes the result into out. idToken may be empty.
func (c *Client) Call(ctx context.Context, name, idToken string, data, out any) error {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return fmt.Errorf("functions: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("functions: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("functions: call %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("functions: read response: %w", err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("functions: %s returned status %d: %w", name, resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Status: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("functions: decode result: %w", err)
	}
	return nil
}
