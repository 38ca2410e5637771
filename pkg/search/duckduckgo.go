package search

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// DuckDuckGoProvider is a keyless fallback backend. DuckDuckGo has no
// category filter, no recency floor and no content retrieval; GetContents
// always reports every URL as missing so callers fall back to snippets.
type DuckDuckGoProvider struct {
	tool *duckduckgo.Tool
}

func NewDuckDuckGoProvider(maxResults int) (*DuckDuckGoProvider, error) {
	if maxResults <= 0 {
		maxResults = 8
	}
	ddg, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &DuckDuckGoProvider{tool: ddg}, nil
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	raw, err := p.tool.Call(ctx, query)
	if err != nil {
		return nil, err
	}

	results := parseDuckDuckGoOutput(raw)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}

func (p *DuckDuckGoProvider) GetContents(ctx context.Context, urls []string, maxChars int) ([]ContentResult, error) {
	return nil, nil
}

// parseDuckDuckGoOutput splits the tool's formatted text blob into results.
// Entries are blocks of "Title:", "Description:" and "URL:" lines; blocks
// without a URL are dropped.
func parseDuckDuckGoOutput(raw string) []Result {
	var results []Result

	for _, block := range strings.Split(raw, "\n\n") {
		var r Result
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "Title: "):
				r.Title = strings.TrimSpace(strings.TrimPrefix(line, "Title: "))
			case strings.HasPrefix(line, "Description: "):
				r.Content = strings.TrimSpace(strings.TrimPrefix(line, "Description: "))
			case strings.HasPrefix(line, "URL: "):
				r.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL: "))
			}
		}
		if r.URL != "" {
			results = append(results, r)
		}
	}
	return results
}
