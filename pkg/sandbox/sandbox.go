// Package sandbox runs Python snippets in an isolated remote runtime and
// returns their output together with any chart artifacts the snippet drew.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Chart is a structured chart artifact produced by a sandbox run. PNG holds
// the base64 rendering; it is stripped before charts leave the tool boundary
// since rendering is a UI concern.
type Chart struct {
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	XLabel   string          `json:"x_label,omitempty"`
	YLabel   string          `json:"y_label,omitempty"`
	Elements json.RawMessage `json:"elements,omitempty"`
	PNG      string          `json:"png,omitempty"`
}

// Execution holds the outcome of a single sandbox run.
type Execution struct {
	Result string  `json:"result"`
	Stdout string  `json:"stdout"`
	Charts []Chart `json:"charts,omitempty"`
}

// Runner executes code in an isolated runtime.
type Runner interface {
	Run(ctx context.Context, code string, extraLibraries []string) (*Execution, error)
}

// Client talks to the sandbox provider's HTTP API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

type runRequest struct {
	Code      string   `json:"code"`
	Language  string   `json:"language"`
	Libraries []string `json:"libraries,omitempty"`
}

// Run executes code in the sandbox, pre-installing extraLibraries first.
func (c *Client) Run(ctx context.Context, code string, extraLibraries []string) (*Execution, error) {
	jsonBody, err := json.Marshal(runRequest{Code: code, Language: "python", Libraries: extraLibraries})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/executions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status: %s, body: %s", resp.Status, string(body))
	}

	var exec Execution
	if err := json.Unmarshal(body, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution response: %w", err)
	}
	return &exec, nil
}

// StripImages clears embedded image payloads from chart artifacts. The
// structured chart data survives; only the heavy binary rendering is dropped.
func StripImages(charts []Chart) []Chart {
	stripped := make([]Chart, len(charts))
	for i, ch := range charts {
		ch.PNG = ""
		stripped[i] = ch
	}
	return stripped
}
