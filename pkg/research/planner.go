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
)

// Planner turns a free-text prompt into a research plan. Plan generation can
// fail; planning cannot: any generation error falls back to a deterministic
// template plan, so callers always receive a valid plan.
type Planner struct {
	LLM     llms.Model
	Emitter progress.Emitter
	Logger  *slog.Logger
}

func planSchema() string {
	return `Return the JSON object directly without any formatting or additional text. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "sections": {
      "type": "array",
      "minItems": 2,
      "maxItems": 3,
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string", "description": "Section title, 10-70 characters"},
          "queries": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 1}
        },
        "required": ["title", "queries"]
      }
    }
  },
  "required": ["sections"]
}`
}

// Plan generates a 2-3 section plan for the prompt. currentDate biases the
// model toward recent material.
func (p *Planner) Plan(ctx context.Context, prompt string, currentDate time.Time) Plan {
	plan, err := p.generate(ctx, prompt, currentDate)
	if err != nil {
		p.Logger.Warn("plan generation failed, using template plan", "error", err)
		p.Emitter.Emit(progress.Status("Planning degraded, using a template research plan"))
		return TemplatePlan(prompt, currentDate)
	}
	return plan
}

func (p *Planner) generate(ctx context.Context, prompt string, currentDate time.Time) (Plan, error) {
	systemPrompt := fmt.Sprintf(`You are a research planner. Today is %s.
Break the research prompt into 2-3 focused sections. Each section gets a title (10-70 characters) and exactly ONE specific search query. Prefer queries that surface material from %d.`,
		currentDate.Format("January 2, 2006"), currentDate.Year())

	var plan Plan
	_, err := p.generateWithRetry(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt+"\n\n# Response Format: \n\n"+planSchema()),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, func(content string) error {
		// Reset for retry
		plan = Plan{}

		if err := json.Unmarshal([]byte(content), &plan); err != nil {
			return fmt.Errorf("json parse error: %w (content: %s)", err, content)
		}
		return plan.Validate()
	})
	if err != nil {
		return Plan{}, err
	}

	p.Logger.Info("generated research plan", "sections", len(plan.Sections))
	return plan, nil
}

// generateWithRetry attempts to generate content and validates it using the
// provided function. It retries up to 3 times if the LLM fails or the
// validator returns an error.
func (p *Planner) generateWithRetry(ctx context.Context, prompts []llms.MessageContent, validator func(string) error) (string, error) {
	maxRetries := 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			p.Logger.Warn("retrying plan generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second * time.Duration(i)):
			}
		}

		genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
		resp, err := p.LLM.GenerateContent(genCtx, prompts, llms.WithJSONMode())
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("llm generation failed: %w", err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("llm returned no choices")
			continue
		}

		content := resp.Choices[0].Content
		if err := validator(content); err != nil {
			lastErr = fmt.Errorf("validation failed: %w", err)
			continue
		}

		return content, nil
	}

	return "", fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
}

// TemplatePlan is the deterministic fallback: three fixed sections covering
// fundamentals, current developments and applications. Pure string assembly,
// cannot fail, and satisfies the plan invariants for any prompt.
func TemplatePlan(prompt string, currentDate time.Time) Plan {
	topic := strings.TrimSpace(prompt)
	year := currentDate.Year()

	return Plan{Sections: []PlanSection{
		{
			Title:   "Fundamentals and background",
			Queries: []string{fmt.Sprintf("%s fundamentals explained", topic)},
		},
		{
			Title:   fmt.Sprintf("Current developments in %d", year),
			Queries: []string{fmt.Sprintf("%s latest developments %d", topic, year)},
		},
		{
			Title:   "Applications and practical impact",
			Queries: []string{fmt.Sprintf("%s real-world applications", topic)},
		},
	}}
}
