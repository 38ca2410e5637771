package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// WebSearchName is the tool name the model calls.
const WebSearchName = "web_search"

// WebSearch runs one categorized provider search and enriches the results
// with full page content. A provider failure yields an empty result set, not
// an error: one failed query must never abort the whole plan.
type WebSearch struct {
	Provider     search.Provider
	Emitter      progress.Emitter
	Logger       *slog.Logger
	MaxResults   int
	ContentChars int
	Parallel     int
	DateFloor    string
}

func (t *WebSearch) Name() string { return WebSearchName }

func (t *WebSearch) Description() string {
	return "Search the web for up-to-date information. Use the category to bias results toward news, research papers, companies or financial reports."
}

func (t *WebSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to look up",
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Optional result category bias",
				"enum":        []string{"news", "company", "research paper", "financial report", "github", "pdf"},
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearch) Execute(ctx context.Context, arguments string) (Outcome, error) {
	var args struct {
		Query    string `json:"query"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Outcome{}, fmt.Errorf("invalid input: %w", err)
	}
	if args.Query == "" {
		return Outcome{}, fmt.Errorf("query must not be empty")
	}

	t.Emitter.Emit(progress.SearchQuery(uuid.NewString(), args.Query))

	results, err := t.Provider.Search(ctx, args.Query, search.Options{
		Category:   search.Category(args.Category),
		DateFloor:  t.DateFloor,
		MaxResults: t.MaxResults,
	})
	if err != nil {
		t.Logger.Warn("search provider failed, degrading to empty result set", "query", args.Query, "error", err)
		return Outcome{WebSearch: &WebSearchOutput{Query: args.Query, Category: args.Category}}, nil
	}

	// Same-domain results are redundant breadth at this stage.
	results = search.DedupeByDomain(results)

	for _, r := range results {
		t.Emitter.Emit(progress.Source(uuid.NewString(), r.Title, r.URL))
	}

	results = t.enrich(ctx, args.Query, results)

	return Outcome{WebSearch: &WebSearchOutput{
		Query:    args.Query,
		Category: args.Category,
		Results:  results,
	}}, nil
}

// enrich replaces truncated snippets with full page text. The provider's
// batch content retrieval runs first; any URL it misses gets a direct
// readability fetch. Enrichment failure for one URL keeps that result's
// original snippet and never affects its siblings.
func (t *WebSearch) enrich(ctx context.Context, query string, results []search.Result) []search.Result {
	if len(results) == 0 {
		return results
	}

	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}

	textByURL := make(map[string]string, len(results))
	contents, err := t.Provider.GetContents(ctx, urls, t.ContentChars)
	if err != nil {
		t.Logger.Warn("content retrieval failed, keeping snippets", "query", query, "error", err)
	}
	for _, c := range contents {
		if c.Text != "" {
			textByURL[c.URL] = c.Text
		}
	}

	parallel := t.Parallel
	if parallel <= 0 {
		parallel = 3
	}
	semaphore := make(chan struct{}, parallel)

	var wg sync.WaitGroup
	for i := range results {
		if text, ok := textByURL[results[i].URL]; ok {
			results[i].Content = text
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			text, err := search.FetchReadable(ctx, results[i].URL, t.ContentChars)
			if err != nil {
				t.Logger.Debug("page fetch failed, keeping snippet", "url", results[i].URL, "error", err)
				return
			}
			if text != "" {
				results[i].Content = text
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		t.Emitter.Emit(progress.ContentEvent(uuid.NewString(), r.Title, r.URL, search.Truncate(r.Content, 150)))
	}
	return results
}
