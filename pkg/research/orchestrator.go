package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research/tools"
	"github.com/Dedsec1226/extreme-search/pkg/sandbox"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// Engine drives the full pipeline: plan, execute, dedupe, synthesize. It is
// the only component that decides proceed-vs-fallback at a stage boundary,
// and the only writer of the source accumulator and the tool-call log. No
// single upstream failure may abort a run: every stage has a local,
// deterministic recovery and the engine always returns a well-formed report.
type Engine struct {
	Config   Config
	Planner  *Planner
	Loop     *Loop
	Synth    *Synthesizer
	Provider search.Provider
	Emitter  progress.Emitter
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewEngine wires one research run. Engines are cheap; servers build one per
// request so each run gets its own emitter and logger.
func NewEngine(deps Deps, cfg Config, emitter progress.Emitter, logger *slog.Logger) *Engine {
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now

	registry := tools.NewRegistry(
		&tools.WebSearch{
			Provider:     deps.Provider,
			Emitter:      emitter,
			Logger:       logger,
			MaxResults:   cfg.SearchResults,
			ContentChars: cfg.ContentChars,
			Parallel:     cfg.SearchParallel,
			DateFloor:    fmt.Sprintf("%d-01-01", now().Year()),
		},
		&tools.CodeRunner{
			Runner:  deps.Sandbox,
			Emitter: emitter,
			Logger:  logger,
		},
	)

	return &Engine{
		Config:   cfg,
		Planner:  &Planner{LLM: deps.LLM, Emitter: emitter, Logger: logger},
		Loop:     &Loop{LLM: deps.LLM, Registry: registry, Emitter: emitter, Logger: logger},
		Synth:    &Synthesizer{LLM: deps.LLM, Logger: logger},
		Provider: deps.Provider,
		Emitter:  emitter,
		Logger:   logger,
		Now:      now,
	}
}

// Run executes one research request. The only caller-visible error is an
// empty prompt; everything downstream degrades instead of failing.
func (e *Engine) Run(ctx context.Context, prompt string) (*Report, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	e.Emitter.Emit(progress.Status("Starting research"))
	e.Emitter.Emit(progress.Status("Planning research"))

	plan := e.Planner.Plan(ctx, prompt, e.Now())
	e.Emitter.Emit(progress.Thinking("Research plan:\n" + plan.Summary()))

	budget := plan.TotalQueries()
	if budget > e.Config.MaxSteps {
		budget = e.Config.MaxSteps
	}

	text, records, err := e.Loop.Execute(ctx, plan, prompt, budget)
	sources, charts := collect(records)
	if err != nil {
		e.Logger.Warn("agent loop failed, searching plan queries directly", "error", err)
		e.Emitter.Emit(progress.Status("Search degraded, querying sources directly"))
		sources = append(sources, e.directSearch(ctx, plan)...)
		text = fmt.Sprintf("Executed %d planned queries directly after the research agent became unavailable.", plan.TotalQueries())
	}
	if text != "" {
		e.Emitter.Emit(progress.Thinking(text))
	}

	deduped := search.Dedupe(sources)

	e.Emitter.Emit(progress.Status(fmt.Sprintf("Synthesizing report from %d sources", len(deduped))))

	top := deduped
	if len(top) > e.Config.SynthesisTopN {
		top = top[:e.Config.SynthesisTopN]
	}
	reportText := e.Synth.Synthesize(ctx, prompt, top, plan.Summary(), e.Config.DigestTopK)

	for i := range deduped {
		deduped[i].Content = search.Truncate(deduped[i].Content, e.Config.DisplayChars)
	}

	e.Emitter.Emit(progress.Status("Research complete"))

	return &Report{
		Text:        reportText,
		Sources:     deduped,
		ToolResults: records,
		Charts:      charts,
	}, nil
}

// directSearch is the execution fallback: when the model-driven loop is
// unavailable the engine iterates the plan's queries itself, concurrently,
// without model mediation. Individual query failures are isolated and
// dropped, so the fallback returns whatever succeeds.
func (e *Engine) directSearch(ctx context.Context, plan Plan) []search.Result {
	var all []search.Result
	var mu sync.Mutex
	var wg sync.WaitGroup

	dateFloor := fmt.Sprintf("%d-01-01", e.Now().Year())

	for _, section := range plan.Sections {
		for _, q := range section.Queries {
			wg.Add(1)
			go func(query string) {
				defer wg.Done()

				e.Emitter.Emit(progress.SearchQuery(uuid.NewString(), query))
				results, err := e.Provider.Search(ctx, query, search.Options{
					DateFloor:  dateFloor,
					MaxResults: e.Config.SearchResults,
				})
				if err != nil {
					e.Logger.Warn("direct search failed", "query", query, "error", err)
					return
				}

				mu.Lock()
				all = append(all, results...)
				mu.Unlock()
			}(q)
		}
	}
	wg.Wait()

	for _, r := range all {
		e.Emitter.Emit(progress.Source(uuid.NewString(), r.Title, r.URL))
	}
	return all
}

// collect extracts discovered sources and chart artifacts from the tool-call
// audit trail, dispatching on the outcome tag.
func collect(records []ToolCallRecord) ([]search.Result, []sandbox.Chart) {
	var sources []search.Result
	var charts []sandbox.Chart
	for _, rec := range records {
		switch {
		case rec.Result.WebSearch != nil:
			sources = append(sources, rec.Result.WebSearch.Results...)
		case rec.Result.CodeRunner != nil:
			charts = append(charts, rec.Result.CodeRunner.Charts...)
		}
	}
	return sources, charts
}
