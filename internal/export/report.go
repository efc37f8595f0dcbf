package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nypl/scsbxml/internal/metrics"
)

// RunConfig describes the inputs of a conversion run.
type RunConfig struct {
	Input                string `yaml:"input"`
	Output               string `yaml:"output"`
	Barcodes             string `yaml:"barcodes,omitempty"`
	FallbackCustomerCode string `yaml:"fallback_customer_code,omitempty"`
	PolicyVersion        string `yaml:"policy_version"`
	Timestamp            string `yaml:"timestamp"`
}

// RecordFailure is a record that could not be converted.
type RecordFailure struct {
	Index int    `yaml:"index"`
	BibID string `yaml:"bib_id,omitempty"`
	Error string `yaml:"error"`
}

// Report is the YAML run report written next to an export.
type Report struct {
	Config   RunConfig        `yaml:"config"`
	Summary  metrics.Snapshot `yaml:"summary"`
	Failures []RecordFailure  `yaml:"failures,omitempty"`
}

// NewReport builds a report stamped with the current time.
func NewReport(cfg RunConfig, summary metrics.Snapshot, failures []RecordFailure) Report {
	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	return Report{Config: cfg, Summary: summary, Failures: failures}
}

// WriteReport saves the report as YAML.
func WriteReport(path string, report Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
