// Package output renders run reports.
package output

import (
	"time"

	"github.com/ccollicutt/synclog/pkg/config"
	"github.com/ccollicutt/synclog/pkg/distributor"
)

// Report is the complete output of a parse run.
type Report struct {
	Summary  *distributor.Summary `json:"summary"`
	Metadata Metadata             `json:"metadata"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file"`

	// Roots lists the directories that were enumerated.
	Roots []string `json:"roots"`

	// StoreDriver names the persistence gateway.
	StoreDriver string `json:"store_driver"`

	// DryRun is set when records went to an in-memory store.
	DryRun bool `json:"dry_run"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`
}

// NewReport creates a Report from a run summary.
func NewReport(summary *distributor.Summary, configFile string, cfg *config.Config, dryRun bool) *Report {
	report := &Report{
		Summary: summary,
		Metadata: Metadata{
			ConfigFile: configFile,
			DryRun:     dryRun,
			FinishedAt: summary.Started.Add(summary.Elapsed),
		},
	}

	if cfg != nil {
		report.Metadata.Roots = cfg.Roots
		report.Metadata.StoreDriver = cfg.Store.Driver
	}

	return report
}

// HasFailures returns true if any file failed.
func (r *Report) HasFailures() bool {
	return r.Summary != nil && r.Summary.HasFailures()
}
