// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Report is the on-disk YAML record of one batch run: the aggregate
// counters, the full url→filename mapping in input order, and the
// sorted unresolved set.
type Report struct {
	Summary    ReportSummary `yaml:"summary"`
	Mapping    []ReportEntry `yaml:"mapping"`
	Unresolved []string      `yaml:"unresolved,omitempty"`
}

// ReportSummary stores run statistics and a timestamp.
type ReportSummary struct {
	Total     int       `yaml:"total"`
	Succeeded int       `yaml:"succeeded"`
	Failed    int       `yaml:"failed"`
	StartedAt time.Time `yaml:"started_at"`
}

// ReportEntry is one mapping row.
type ReportEntry struct {
	URL      string `yaml:"url"`
	Filename string `yaml:"filename"`
	Status   string `yaml:"status"`
}

// WriteReport saves a batch result to a YAML file.
func WriteReport(path string, startedAt time.Time, result BatchResult) error {
	report := Report{
		Summary: ReportSummary{
			Total:     result.State.Total,
			Succeeded: result.State.Succeeded,
			Failed:    result.State.Failed,
			StartedAt: startedAt,
		},
		Unresolved: result.Unresolved(),
	}
	for _, e := range result.Entries {
		report.Mapping = append(report.Mapping, ReportEntry{
			URL:      e.URL,
			Filename: e.Filename,
			Status:   e.Status.String(),
		})
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
