package research

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Dedsec1226/extreme-search/pkg/research/tools"
	"github.com/Dedsec1226/extreme-search/pkg/sandbox"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// GenerateTimeout bounds one model generation call. A stalled model turns
// into a stage error that the caller's fallback absorbs, never a hung run.
var GenerateTimeout = 2 * time.Minute

// Plan shape invariants. A plan has 2-3 sections, each with exactly one
// focused query and a title between 10 and 70 characters.
const (
	minSections    = 2
	maxSections    = 3
	minTitleChars  = 10
	maxTitleChars  = 70
	queriesPerSect = 1
)

// PlanSection is one research sub-topic with exactly one associated query.
type PlanSection struct {
	Title   string   `json:"title"`
	Queries []string `json:"queries"`
}

// Plan is an ordered sequence of sections, created once by the planner and
// read-only thereafter.
type Plan struct {
	Sections []PlanSection `json:"sections"`
}

// Validate checks the section and query count invariants.
func (p Plan) Validate() error {
	if len(p.Sections) < minSections || len(p.Sections) > maxSections {
		return fmt.Errorf("plan must have %d-%d sections, got %d", minSections, maxSections, len(p.Sections))
	}
	for i, s := range p.Sections {
		if n := len([]rune(s.Title)); n < minTitleChars || n > maxTitleChars {
			return fmt.Errorf("section %d title must be %d-%d characters, got %d", i, minTitleChars, maxTitleChars, n)
		}
		if len(s.Queries) != queriesPerSect {
			return fmt.Errorf("section %d must have exactly %d query, got %d", i, queriesPerSect, len(s.Queries))
		}
		if strings.TrimSpace(s.Queries[0]) == "" {
			return fmt.Errorf("section %d query must not be empty", i)
		}
	}
	return nil
}

// TotalQueries returns the number of queries across all sections.
func (p Plan) TotalQueries() int {
	total := 0
	for _, s := range p.Sections {
		total += len(s.Queries)
	}
	return total
}

// Summary renders the plan as a bulleted outline.
func (p Plan) Summary() string {
	var b strings.Builder
	for _, s := range p.Sections {
		fmt.Fprintf(&b, "- %s (query: %s)\n", s.Title, s.Queries[0])
	}
	return b.String()
}

// ToolCallRecord is the append-only audit trail entry for one executed tool
// invocation.
type ToolCallRecord struct {
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    tools.Outcome   `json:"result"`
	StepIndex int             `json:"step_index"`
}

// Report is the final pipeline output. Always structurally valid, even when
// every upstream stage degraded.
type Report struct {
	Text        string           `json:"text"`
	Sources     []search.Result  `json:"sources"`
	ToolResults []ToolCallRecord `json:"tool_results"`
	Charts      []sandbox.Chart  `json:"charts,omitempty"`
}

// Config holds per-run limits. All fields have working defaults.
type Config struct {
	MaxSteps       int
	SearchResults  int
	SearchParallel int
	ContentChars   int
	DisplayChars   int
	SynthesisTopN  int
	DigestTopK     int
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:       5,
		SearchResults:  8,
		SearchParallel: 3,
		ContentChars:   3000,
		DisplayChars:   2000,
		SynthesisTopN:  10,
		DigestTopK:     5,
	}
}
