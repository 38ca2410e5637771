package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// Synthesizer turns collected sources into a single cited report. Generation
// failure falls back to a templated source digest; Synthesize never errors.
type Synthesizer struct {
	LLM    llms.Model
	Logger *slog.Logger
}

// Synthesize writes a long-form markdown report over the sources. Citations
// are inline [title](url) links placed right after the claim they support;
// the calling instructions forbid any references or bibliography section.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string, sources []search.Result, planSummary string, topK int) string {
	if len(sources) == 0 {
		return fmt.Sprintf("No sources could be collected for %q. Best effort due to connectivity issues; please retry.", prompt)
	}

	genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	resp, err := s.LLM.GenerateContent(genCtx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, synthesisInstructions),
		llms.TextParts(llms.ChatMessageTypeHuman, s.buildInput(prompt, sources, planSummary)),
	})
	if err != nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		s.Logger.Warn("synthesis failed, using templated digest", "error", err)
		return fallbackDigest(prompt, sources, topK)
	}
	return resp.Choices[0].Content
}

const synthesisInstructions = `You are a research writer. Write a comprehensive markdown report answering the research prompt from the provided sources.

Hard formatting rules:
- Cite inline with [title](url) immediately after each claim the source supports.
- NEVER group citations at the end. Do not add a References, Sources, Bibliography or Further Reading section under any heading.
- Only make claims the sources support. Note disagreements between sources.
- Structure with ## headings by theme, not by source.`

func (s *Synthesizer) buildInput(prompt string, sources []search.Result, planSummary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research prompt: %s\n\nResearch plan:\n%s\nSources:\n\n", prompt, planSummary)
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, src.Title, src.URL)
		if src.PublishedDate != "" {
			fmt.Fprintf(&b, "Published: %s\n", src.PublishedDate)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", src.Content)
	}
	return b.String()
}

// fallbackDigest lists the top sources verbatim with a degraded-mode note.
// Pure string assembly, cannot fail.
func fallbackDigest(prompt string, sources []search.Result, topK int) string {
	if topK <= 0 {
		topK = 5
	}
	if len(sources) > topK {
		sources = sources[:topK]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Research findings: %s\n\n", prompt)
	b.WriteString("> Note: report synthesis degraded, best effort due to connectivity issues. The strongest sources found are listed below.\n\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "- [%s](%s)", src.Title, src.URL)
		if excerpt := search.Truncate(src.Content, 200); excerpt != "" {
			fmt.Fprintf(&b, ": %s", excerpt)
		}
		b.WriteString("\n")
	}
	return b.String()
}
