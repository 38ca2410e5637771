package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ExaProvider queries the Exa search API. Exa does full-text search with
// live crawling, category filters and a recency floor.
type ExaProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewExaProvider(apiKey string) *ExaProvider {
	return &ExaProvider{
		APIKey:  apiKey,
		BaseURL: "https://api.exa.ai",
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (p *ExaProvider) Name() string { return "exa" }

type exaTextOpts struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

type exaContentsOpts struct {
	Text exaTextOpts `json:"text"`
}

type exaSearchRequest struct {
	Query              string          `json:"query"`
	Type               string          `json:"type"`
	Category           string          `json:"category,omitempty"`
	NumResults         int             `json:"numResults"`
	StartPublishedDate string          `json:"startPublishedDate,omitempty"`
	Contents           exaContentsOpts `json:"contents"`
}

type exaResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"publishedDate"`
	Favicon       string `json:"favicon"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

func (p *ExaProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 8
	}

	reqBody := exaSearchRequest{
		Query:              query,
		Type:               "auto",
		Category:           string(opts.Category),
		NumResults:         opts.MaxResults,
		StartPublishedDate: opts.DateFloor,
		Contents:           exaContentsOpts{Text: exaTextOpts{MaxCharacters: 1000}},
	}

	var resp exaResponse
	if err := p.post(ctx, "/search", reqBody, &resp); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Text,
			PublishedDate: r.PublishedDate,
			Favicon:       r.Favicon,
		})
	}
	return results, nil
}

type exaContentsRequest struct {
	URLs      []string    `json:"urls"`
	Text      exaTextOpts `json:"text"`
	Livecrawl string      `json:"livecrawl,omitempty"`
}

func (p *ExaProvider) GetContents(ctx context.Context, urls []string, maxChars int) ([]ContentResult, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	reqBody := exaContentsRequest{
		URLs:      urls,
		Text:      exaTextOpts{MaxCharacters: maxChars},
		Livecrawl: "preferred",
	}

	var resp exaResponse
	if err := p.post(ctx, "/contents", reqBody, &resp); err != nil {
		return nil, err
	}

	contents := make([]ContentResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		contents = append(contents, ContentResult{URL: r.URL, Text: r.Text})
	}
	return contents, nil
}

func (p *ExaProvider) post(ctx context.Context, path string, reqBody, out any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status: %s, body: %s", resp.Status, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
