package research

import (
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"

	"github.com/Dedsec1226/extreme-search/pkg/clients"
	"github.com/Dedsec1226/extreme-search/pkg/config"
	"github.com/Dedsec1226/extreme-search/pkg/sandbox"
	"github.com/Dedsec1226/extreme-search/pkg/search"
)

// Deps are the external collaborators shared by every run: the generative
// model, the search provider and the sandbox runtime. Built once at startup.
type Deps struct {
	LLM      llms.Model
	Provider search.Provider
	Sandbox  sandbox.Runner
}

// LoadDeps builds production dependencies from configuration. Exa is the
// primary search backend; without an Exa key it falls back to the keyless
// DuckDuckGo backend.
func LoadDeps(cfg *config.Config) (Deps, error) {
	llm, err := clients.GoogleAi(clients.ModelType(cfg.ReasoningModel))
	if err != nil {
		return Deps{}, fmt.Errorf("failed to init LLM: %w", err)
	}

	var provider search.Provider
	if cfg.ExaApiKey != "" {
		provider = search.NewExaProvider(cfg.ExaApiKey)
	} else {
		slog.Warn("EXA_API_KEY not set, using DuckDuckGo backend without content retrieval")
		provider, err = search.NewDuckDuckGoProvider(cfg.SearchResults)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to init search backend: %w", err)
		}
	}

	return Deps{
		LLM:      llm,
		Provider: provider,
		Sandbox:  sandbox.NewClient(cfg.SandboxURL, cfg.SandboxApiKey),
	}, nil
}

// ConfigFromEnv maps the process configuration onto per-run limits.
func ConfigFromEnv(cfg *config.Config) Config {
	return Config{
		MaxSteps:       cfg.MaxSteps,
		SearchResults:  cfg.SearchResults,
		SearchParallel: cfg.SearchParallel,
		ContentChars:   cfg.ContentChars,
		DisplayChars:   cfg.DisplayChars,
		SynthesisTopN:  cfg.SynthesisTopN,
		DigestTopK:     cfg.DigestTopK,
	}
}
