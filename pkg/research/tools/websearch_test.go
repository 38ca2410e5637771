package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

type stubProvider struct {
	results     []search.Result
	contents    []search.ContentResult
	searchErr   error
	contentsErr error

	lastQuery string
	lastOpts  search.Options
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	s.lastQuery = query
	s.lastOpts = opts
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results, nil
}

func (s *stubProvider) GetContents(ctx context.Context, urls []string, maxChars int) ([]search.ContentResult, error) {
	if s.contentsErr != nil {
		return nil, s.contentsErr
	}
	return s.contents, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *eventRecorder) Emit(ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) byType(t progress.EventType) []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newWebSearch(p search.Provider, rec *eventRecorder) *WebSearch {
	return &WebSearch{
		Provider:     p,
		Emitter:      rec,
		Logger:       slog.Default(),
		MaxResults:   8,
		ContentChars: 3000,
		Parallel:     2,
		DateFloor:    "2026-01-01",
	}
}

func TestWebSearchExecute(t *testing.T) {
	// The unenriched result points at a closed local port so its direct
	// fetch fails fast instead of reaching the network.
	provider := &stubProvider{
		results: []search.Result{
			{Title: "First page about the topic", URL: "https://a.com/1", Content: "snippet a"},
			{Title: "Second page on same domain", URL: "https://a.com/2", Content: "snippet a2"},
			{Title: "Different domain coverage", URL: "http://127.0.0.1:1/b", Content: "snippet b"},
		},
		contents: []search.ContentResult{
			{URL: "https://a.com/1", Text: "full text for a"},
		},
	}
	rec := &eventRecorder{}
	ws := newWebSearch(provider, rec)

	outcome, err := ws.Execute(context.Background(), `{"query":"test topic","category":"news"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	out := outcome.WebSearch
	if out == nil {
		t.Fatal("outcome is not a web search output")
	}

	if provider.lastQuery != "test topic" {
		t.Errorf("provider query = %q", provider.lastQuery)
	}
	if provider.lastOpts.Category != search.CategoryNews {
		t.Errorf("provider category = %q", provider.lastOpts.Category)
	}
	if provider.lastOpts.DateFloor != "2026-01-01" {
		t.Errorf("provider date floor = %q", provider.lastOpts.DateFloor)
	}

	// Same-domain sibling collapsed before enrichment
	if len(out.Results) != 2 {
		t.Fatalf("got %d results, want 2 after domain dedup", len(out.Results))
	}
	if out.Results[0].Content != "full text for a" {
		t.Errorf("first result not enriched: %q", out.Results[0].Content)
	}
	// Batch retrieval missed b.com and its direct fetch fails in tests, so
	// the original snippet survives.
	if out.Results[1].Content != "snippet b" {
		t.Errorf("second result lost its snippet: %q", out.Results[1].Content)
	}

	if got := rec.byType(progress.EventSearchQuery); len(got) != 1 || got[0].Query != "test topic" {
		t.Errorf("search_query events = %+v", got)
	}
	if got := rec.byType(progress.EventSource); len(got) != 2 {
		t.Errorf("got %d source events, want 2", len(got))
	}
	if got := rec.byType(progress.EventContent); len(got) != 2 {
		t.Errorf("got %d content events, want 2", len(got))
	}
}

// A failed provider query degrades to an empty result set so the loop can
// move on to the next planned query.
func TestWebSearchProviderFailure(t *testing.T) {
	provider := &stubProvider{searchErr: errors.New("backend down")}
	rec := &eventRecorder{}
	ws := newWebSearch(provider, rec)

	outcome, err := ws.Execute(context.Background(), `{"query":"test topic"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v, want graceful degradation", err)
	}
	if outcome.WebSearch == nil || len(outcome.WebSearch.Results) != 0 {
		t.Errorf("outcome = %+v, want empty web search output", outcome)
	}
}

func TestWebSearchInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"Malformed JSON", `{"query":`},
		{"Empty query", `{"query":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newWebSearch(&stubProvider{}, &eventRecorder{})
			if _, err := ws.Execute(context.Background(), tt.args); err == nil {
				t.Error("Execute() expected error")
			}
		})
	}
}

func TestOutcomeText(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		wants   []string
	}{
		{
			name: "Web search with results",
			outcome: Outcome{WebSearch: &WebSearchOutput{
				Query: "q",
				Results: []search.Result{
					{Title: "A title", URL: "https://a.com", Content: "body"},
				},
			}},
			wants: []string{"Found 1 results", "A title", "https://a.com", "body"},
		},
		{
			name:    "Web search without results",
			outcome: Outcome{WebSearch: &WebSearchOutput{Query: "q"}},
			wants:   []string{"No results found"},
		},
		{
			name:    "Code runner result",
			outcome: Outcome{CodeRunner: &CodeRunnerOutput{Result: "42"}},
			wants:   []string{"42"},
		},
		{
			name:    "Empty union",
			outcome: Outcome{},
			wants:   []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := tt.outcome.Text()
			for _, want := range tt.wants {
				if !strings.Contains(text, want) {
					t.Errorf("Text() = %q, missing %q", text, want)
				}
			}
		})
	}
}
