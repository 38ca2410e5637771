package sandbox

import (
	"regexp"
	"sort"
	"strings"
)

// preinstalled lists modules available in the sandbox image without an
// install step, covering the Python standard library modules snippets
// actually reach for plus the scientific stack baked into the image.
var preinstalled = map[string]bool{
	"collections": true,
	"csv":         true,
	"datetime":    true,
	"io":          true,
	"itertools":   true,
	"json":        true,
	"math":        true,
	"matplotlib":  true,
	"numpy":       true,
	"os":          true,
	"pandas":      true,
	"random":      true,
	"re":          true,
	"statistics":  true,
	"string":      true,
	"sys":         true,
	"time":        true,
	"urllib":      true,
}

var importRe = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_.]*)`)

// DetectExtraImports scans code for imported modules that are not
// preinstalled, so they can be installed before execution.
//
// This is a best-effort static heuristic, not authoritative: it can
// over-match (imports inside strings or dead branches) and under-match
// (dynamic __import__, importlib). A failed install surfaces as a normal
// execution error, so a wrong guess degrades rather than breaks the run.
func DetectExtraImports(code string) []string {
	seen := make(map[string]bool)
	var extra []string

	for _, m := range importRe.FindAllStringSubmatch(code, -1) {
		module := m[1]
		if i := strings.Index(module, "."); i >= 0 {
			module = module[:i]
		}
		if module == "" || preinstalled[module] || seen[module] {
			continue
		}
		seen[module] = true
		extra = append(extra, module)
	}

	sort.Strings(extra)
	return extra
}
