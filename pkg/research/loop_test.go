package research

import (
	"context"
	"testing"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research/tools"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// stubTool counts executions and returns a fixed outcome.
type stubTool struct {
	name     string
	outcome  tools.Outcome
	err      error
	executed int
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) Execute(ctx context.Context, arguments string) (tools.Outcome, error) {
	s.executed++
	return s.outcome, s.err
}

func testPlan() Plan {
	return Plan{Sections: []PlanSection{
		{Title: "First section about things", Queries: []string{"query one"}},
		{Title: "Second section about stuff", Queries: []string{"query two"}},
	}}
}

func newLoop(model *scriptedModel, registry *tools.Registry) *Loop {
	return &Loop{LLM: model, Registry: registry, Emitter: progress.Nop{}, Logger: testLogger()}
}

func searchOutcome(query string, urls ...string) tools.Outcome {
	out := &tools.WebSearchOutput{Query: query}
	for _, u := range urls {
		out.Results = append(out.Results, search.Result{Title: "Result for " + u, URL: u})
	}
	return tools.Outcome{WebSearch: out}
}

func TestLoopExecutesAndCloses(t *testing.T) {
	tool := &stubTool{name: tools.WebSearchName, outcome: searchOutcome("query one", "https://a.com/1")}
	model := &scriptedModel{responses: []scriptedResponse{
		toolCallResponse("call-1", tools.WebSearchName, `{"query":"query one"}`),
		toolCallResponse("call-2", tools.WebSearchName, `{"query":"query two"}`),
		textResponse("all queries executed"),
	}}
	loop := newLoop(model, tools.NewRegistry(tool))

	text, records, err := loop.Execute(context.Background(), testPlan(), "prompt", 2)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if text != "all queries executed" {
		t.Errorf("closing text = %q", text)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ToolName != tools.WebSearchName || records[0].StepIndex != 0 {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].StepIndex != 1 {
		t.Errorf("record 1 step = %d, want 1", records[1].StepIndex)
	}
	if tool.executed != 2 {
		t.Errorf("tool executed %d times, want 2", tool.executed)
	}
}

// Once the budget is used up further web_search calls are refused without
// executing, and the refusal does not enter the audit trail.
func TestLoopEnforcesSearchBudget(t *testing.T) {
	tool := &stubTool{name: tools.WebSearchName, outcome: searchOutcome("q", "https://a.com/1")}
	model := &scriptedModel{responses: []scriptedResponse{
		toolCallResponse("call-1", tools.WebSearchName, `{"query":"query one"}`),
		toolCallResponse("call-2", tools.WebSearchName, `{"query":"query two"}`),
		textResponse("stopping"),
	}}
	loop := newLoop(model, tools.NewRegistry(tool))

	_, records, err := loop.Execute(context.Background(), testPlan(), "prompt", 1)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if tool.executed != 1 {
		t.Errorf("tool executed %d times, want 1 within budget", tool.executed)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestLoopModelFailure(t *testing.T) {
	model := &scriptedModel{responses: []scriptedResponse{errorResponse("model offline")}}
	loop := newLoop(model, tools.NewRegistry())

	_, records, err := loop.Execute(context.Background(), testPlan(), "prompt", 2)
	if err == nil {
		t.Fatal("Execute() expected error when the model fails")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

// Unknown tools and tool failures become observations; neither aborts the
// loop or lands in the audit trail.
func TestLoopToolFailuresAreObservations(t *testing.T) {
	failing := &stubTool{name: tools.WebSearchName, err: context.DeadlineExceeded}
	model := &scriptedModel{responses: []scriptedResponse{
		toolCallResponse("call-1", "bogus_tool", `{}`),
		toolCallResponse("call-2", tools.WebSearchName, `{"query":"q"}`),
		textResponse("done despite failures"),
	}}
	loop := newLoop(model, tools.NewRegistry(failing))

	text, records, err := loop.Execute(context.Background(), testPlan(), "prompt", 3)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if text != "done despite failures" {
		t.Errorf("closing text = %q", text)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if failing.executed != 1 {
		t.Errorf("failing tool executed %d times, want 1", failing.executed)
	}
}

// Without a closing answer the loop stops at its iteration ceiling and
// returns what it gathered.
func TestLoopIterationCeiling(t *testing.T) {
	tool := &stubTool{name: tools.WebSearchName, outcome: searchOutcome("q", "https://a.com/1")}
	model := &scriptedModel{responses: []scriptedResponse{
		toolCallResponse("call-1", tools.WebSearchName, `{"query":"q"}`),
	}}
	loop := newLoop(model, tools.NewRegistry(tool))

	text, records, err := loop.Execute(context.Background(), testPlan(), "prompt", 1)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	// Budget allowed one execution; the repeated calls were refused.
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want stepBudget+2", model.calls)
	}
}
