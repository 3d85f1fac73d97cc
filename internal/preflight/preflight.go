package preflight

import (
	"playsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckTool("Retrieval tool", cfg.Tools.YtdlpPath))

	// The encoding tool is needed for extraction and optional transcoding.
	results = append(results, CheckTool("Encoding tool", cfg.Tools.FFmpegPath))

	results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))

	if cfg.Sync.MinFreeMB > 0 {
		results = append(results, CheckDiskSpace("Library free space", cfg.Paths.LibraryDir, cfg.Sync.MinFreeMB))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
