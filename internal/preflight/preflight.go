package preflight

import (
	"context"

	"tuneport/internal/config"
	"tuneport/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCatalog(ctx, cfg),
	}

	if !cfg.Download.Enabled {
		return results
	}
	if cfg.Extractor.URL != "" {
		results = append(results, CheckExtractor(ctx, "Extractor", cfg.Extractor.URL, cfg.Extractor.Token))
	}
	if cfg.Lossless.Enabled {
		results = append(results, CheckLossless(cfg.Lossless))
	}
	if cfg.Download.LocalYtDlpEnabled {
		results = append(results, CheckDirectoryAccess("Download directory", cfg.Download.Dir))
		for _, status := range deps.CheckBinaries(deps.LocalRequirements(cfg.Download.LocalYtDlpBinary)) {
			results = append(results, FromDependency(status))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// FromDependency converts a binary lookup into a Result. Optional binaries
// pass even when absent.
func FromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional}
	switch {
	case status.Available:
		result.Detail = status.Path
	case status.Optional:
		result.Detail = status.Detail + " (optional)"
	default:
		result.Detail = status.Detail
	}
	return result
}
