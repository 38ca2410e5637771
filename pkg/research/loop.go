package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/Dedsec1226/extreme-search/pkg/progress"
	"github.com/Dedsec1226/extreme-search/pkg/research/tools"
)

// Loop is the bounded tool-calling agent: the model selects a tool, the loop
// executes it, the model observes the result, until it answers in plain text
// or the budget runs out. Steps are strictly sequential; parallelism lives
// inside individual tool executions.
type Loop struct {
	LLM      llms.Model
	Registry *tools.Registry
	Emitter  progress.Emitter
	Logger   *slog.Logger
}

// Execute drives the agent over the plan. stepBudget caps web_search
// invocations; two extra iterations leave room for a closing text turn.
// Returns the model's closing text and the audit trail of executed tool
// calls. An error means the model itself failed; tool failures are converted
// to observations and never abort the loop.
func (l *Loop) Execute(ctx context.Context, plan Plan, prompt string, stepBudget int) (string, []ToolCallRecord, error) {
	var llmTools []llms.Tool
	for _, t := range l.Registry.Tools {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, l.systemPrompt(plan, stepBudget)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var records []ToolCallRecord
	searchesUsed := 0
	maxIterations := stepBudget + 2

	for iter := 0; iter < maxIterations; iter++ {
		genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
		resp, err := l.LLM.GenerateContent(genCtx, messages, llms.WithTools(llmTools))
		cancel()
		if err != nil {
			return "", records, fmt.Errorf("agent step %d failed: %w", iter, err)
		}
		if len(resp.Choices) == 0 {
			return "", records, fmt.Errorf("agent step %d returned no choices", iter)
		}
		choice := resp.Choices[0]

		if choice.Content != "" {
			l.Emitter.Emit(progress.Thinking(choice.Content))
		}

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		// No tool calls means the agent is done.
		if len(choice.ToolCalls) == 0 {
			return choice.Content, records, nil
		}

		for _, tc := range choice.ToolCalls {
			observation := l.invoke(ctx, tc, iter, stepBudget, &searchesUsed, &records)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    observation,
					},
				},
			})
		}
	}

	l.Logger.Warn("agent reached iteration limit without a closing answer", "iterations", maxIterations)
	return "", records, nil
}

func (l *Loop) invoke(ctx context.Context, tc llms.ToolCall, iter, stepBudget int, searchesUsed *int, records *[]ToolCallRecord) string {
	name := tc.FunctionCall.Name
	tool := l.Registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error: tool %s not found", name)
	}

	if name == tools.WebSearchName && *searchesUsed >= stepBudget {
		return "Search budget exhausted. Answer with the findings collected so far."
	}

	l.Logger.Info("executing tool", "step", iter, "tool", name)
	start := time.Now()

	outcome, err := tool.Execute(ctx, tc.FunctionCall.Arguments)
	if err != nil {
		l.Logger.Warn("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	*records = append(*records, ToolCallRecord{
		ToolName:  name,
		Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		Result:    outcome,
		StepIndex: iter,
	})
	if name == tools.WebSearchName {
		*searchesUsed++
	}

	l.Logger.Info("tool completed", "tool", name, "duration", time.Since(start))
	return outcome.Text()
}

func (l *Loop) systemPrompt(plan Plan, stepBudget int) string {
	var b strings.Builder
	b.WriteString(`You are an autonomous research agent. Execute the research plan below.

Rules:
- Run every planned query exactly once with the web_search tool, then stop searching.
- Pick the category that best matches each query (news, research paper, company, financial report).
- Use code_runner only when a calculation or chart genuinely helps.
- You have a budget of `)
	fmt.Fprintf(&b, "%d searches in total.\n", stepBudget)
	b.WriteString("- When every query has run, reply in plain text with a short summary of what was found. Do not write the final report.\n\nResearch plan:\n")
	b.WriteString(plan.Summary())
	return b.String()
}
