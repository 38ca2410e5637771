package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/sandbox"
)

// CodeRunnerName is the tool name the model calls.
const CodeRunnerName = "code_runner"

// CodeRunner executes Python in an isolated sandbox. Non-default imports are
// detected heuristically and installed before execution.
type CodeRunner struct {
	Runner  sandbox.Runner
	Emitter progress.Emitter
	Logger  *slog.Logger
}

func (t *CodeRunner) Name() string { return CodeRunnerName }

func (t *CodeRunner) Description() string {
	return "Run Python code in a sandbox for calculations and data analysis. Print what you want to observe; matplotlib charts are captured."
}

func (t *CodeRunner) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short description of what the code computes",
			},
			"code": map[string]any{
				"type":        "string",
				"description": "The Python code to execute",
			},
		},
		"required": []string{"title", "code"},
	}
}

func (t *CodeRunner) Execute(ctx context.Context, arguments string) (Outcome, error) {
	var args struct {
		Title string `json:"title"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Outcome{}, fmt.Errorf("invalid input: %w", err)
	}

	t.Emitter.Emit(progress.Status(args.Title))

	libraries := sandbox.DetectExtraImports(args.Code)
	if len(libraries) > 0 {
		t.Logger.Info("installing detected libraries", "libraries", libraries)
	}

	exec, err := t.Runner.Run(ctx, args.Code, libraries)
	if err != nil {
		return Outcome{}, fmt.Errorf("sandbox execution failed: %w", err)
	}

	result := exec.Result
	if result == "" {
		result = exec.Stdout
	}

	return Outcome{CodeRunner: &CodeRunnerOutput{
		Title:  args.Title,
		Result: result,
		Charts: sandbox.StripImages(exec.Charts),
	}}, nil
}
