package chat

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// ResearchToolset exposes the research pipeline to the chat agent as one
// callable tool among its others.
type ResearchToolset struct {
	deps research.Deps
	cfg  research.Config
}

func NewResearchToolset(deps research.Deps, cfg research.Config) *ResearchToolset {
	return &ResearchToolset{deps: deps, cfg: cfg}
}

func (t *ResearchToolset) Name() string {
	return "research_tools"
}

func (t *ResearchToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	researchTool, err := functiontool.New[ResearchArgs, ResearchResp](
		functiontool.Config{
			Name:        "extreme_search",
			Description: "Run deep multi-step web research on a topic and return a cited markdown report with its sources.",
		},
		t.runResearchTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create research tool: %w", err)
	}

	return []tool.Tool{researchTool}, nil
}

type ResearchArgs struct {
	Prompt string `json:"prompt" description:"The research prompt to investigate"`
}

type ResearchResp struct {
	Report  string          `json:"report"`
	Sources []search.Result `json:"sources"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) runResearchTool(ctx tool.Context, args ResearchArgs) (ResearchResp, error) {
	return t.RunResearch(ctx, args)
}

// RunResearch executes a full research run. The chat transport surfaces only
// the tool call and its result; the pipeline's own progress events are
// discarded here.
func (t *ResearchToolset) RunResearch(ctx context.Context, args ResearchArgs) (ResearchResp, error) {
	slog.Info("Running research tool", "prompt", args.Prompt)

	engine := research.NewEngine(t.deps, t.cfg, progress.Nop{}, slog.Default())
	report, err := engine.Run(ctx, args.Prompt)
	if err != nil {
		return ResearchResp{}, fmt.Errorf("research failed: %w", err)
	}

	return ResearchResp{Report: report.Text, Sources: report.Sources}, nil
}
