package tools

import (
	"context"
	"fmt"

	"github.com/Dedsec1226/extreme-search/pkg/sandbox"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// Tool is a callable capability offered to the agent loop.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, arguments string) (Outcome, error)
}

// WebSearchOutput holds the results of one web_search invocation.
type WebSearchOutput struct {
	Query    string          `json:"query"`
	Category string          `json:"category,omitempty"`
	Results  []search.Result `json:"results"`
}

// CodeRunnerOutput holds the outcome of one code_runner invocation. Charts
// carry structured data only; image payloads are stripped at the tool
// boundary.
type CodeRunnerOutput struct {
	Title  string          `json:"title"`
	Result string          `json:"result"`
	Charts []sandbox.Chart `json:"charts,omitempty"`
}

// Outcome is a tagged union of tool outputs: exactly one field is set,
// matching the tool that produced it. Consumers dispatch on the set field
// rather than inspecting payload structure.
type Outcome struct {
	WebSearch  *WebSearchOutput  `json:"web_search,omitempty"`
	CodeRunner *CodeRunnerOutput `json:"code_runner,omitempty"`
}

// Text renders the outcome as an observation for the model.
func (o Outcome) Text() string {
	switch {
	case o.WebSearch != nil:
		if len(o.WebSearch.Results) == 0 {
			return fmt.Sprintf("No results found for query %q.", o.WebSearch.Query)
		}
		text := fmt.Sprintf("Found %d results for query %q:\n\n", len(o.WebSearch.Results), o.WebSearch.Query)
		for _, r := range o.WebSearch.Results {
			text += fmt.Sprintf("# Title: %s\n## URL: %s\n## Content: %s\n\n", r.Title, r.URL, r.Content)
		}
		return text
	case o.CodeRunner != nil:
		text := o.CodeRunner.Result
		if len(o.CodeRunner.Charts) > 0 {
			text += fmt.Sprintf("\n\n(%d chart(s) produced)", len(o.CodeRunner.Charts))
		}
		return text
	default:
		return ""
	}
}

// Registry holds the tools available to a run.
type Registry struct {
	Tools []Tool
}

func NewRegistry(tools ...Tool) *Registry {
	return &Registry{Tools: tools}
}

func (r *Registry) Get(name string) Tool {
	for _, t := range r.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
