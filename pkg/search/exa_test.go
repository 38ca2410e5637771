package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestExa(t *testing.T, handler http.HandlerFunc) (*ExaProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewExaProvider("test-key")
	p.BaseURL = srv.URL
	return p, srv
}

func TestExaSearch(t *testing.T) {
	p, _ := newTestExa(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}

		var req exaSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Type != "auto" {
			t.Errorf("type = %q, want auto", req.Type)
		}
		if req.Query != "golang scheduler" {
			t.Errorf("query = %q", req.Query)
		}
		if req.Category != "research paper" {
			t.Errorf("category = %q", req.Category)
		}
		if req.NumResults != 4 {
			t.Errorf("numResults = %d, want 4", req.NumResults)
		}
		if req.StartPublishedDate != "2026-01-01" {
			t.Errorf("startPublishedDate = %q", req.StartPublishedDate)
		}

		json.NewEncoder(w).Encode(exaResponse{Results: []exaResult{
			{Title: "Paper one", URL: "https://a.com/1", Text: "snippet", PublishedDate: "2026-02-01"},
			{Title: "Missing URL dropped", URL: "", Text: "ignored"},
			{Title: "Paper two", URL: "https://b.com/2"},
		}})
	})

	results, err := p.Search(context.Background(), "golang scheduler", Options{
		Category:   CategoryResearchPaper,
		DateFloor:  "2026-01-01",
		MaxResults: 4,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Paper one" || results[0].Content != "snippet" || results[0].PublishedDate != "2026-02-01" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestExaSearchHTTPError(t *testing.T) {
	p, _ := newTestExa(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := p.Search(context.Background(), "q", Options{}); err == nil {
		t.Fatal("Search() expected error on non-200 status")
	}
}

func TestExaGetContents(t *testing.T) {
	p, _ := newTestExa(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contents" {
			t.Errorf("path = %q, want /contents", r.URL.Path)
		}

		var req exaContentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Livecrawl != "preferred" {
			t.Errorf("livecrawl = %q, want preferred", req.Livecrawl)
		}
		if req.Text.MaxCharacters != 3000 {
			t.Errorf("maxCharacters = %d, want 3000", req.Text.MaxCharacters)
		}
		if len(req.URLs) != 2 {
			t.Errorf("urls = %v", req.URLs)
		}

		json.NewEncoder(w).Encode(exaResponse{Results: []exaResult{
			{URL: "https://a.com/1", Text: "full text"},
		}})
	})

	contents, err := p.GetContents(context.Background(), []string{"https://a.com/1", "https://b.com/2"}, 3000)
	if err != nil {
		t.Fatalf("GetContents() error = %v", err)
	}
	if len(contents) != 1 || contents[0].Text != "full text" {
		t.Errorf("unexpected contents: %+v", contents)
	}
}

func TestExaGetContentsEmptyInput(t *testing.T) {
	p := NewExaProvider("test-key")
	p.BaseURL = "http://invalid.localhost" // must not be reached

	contents, err := p.GetContents(context.Background(), nil, 3000)
	if err != nil {
		t.Fatalf("GetContents() error = %v", err)
	}
	if contents != nil {
		t.Errorf("GetContents() = %v, want nil", contents)
	}
}
