// This file adds a lightweight linter for Config values. It performs static
// checks and returns a list of issues (errors and warnings) that callers can
// surface in the CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path names the offending flag or roles key (e.g. "input_csv",
// "roles.injuries"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate cfg.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.InputCSV) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input_csv",
			Message:  "the -input_csv flag is required",
		})
	}
	if strings.TrimSpace(cfg.OutDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "outdir",
			Message:  "outdir must not be empty",
		})
	}
	if cfg.SampleRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sample-rows",
			Message:  fmt.Sprintf("must be >= 0, got %d", cfg.SampleRows),
		})
	}
	if cfg.TopN <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "top-n",
			Message:  fmt.Sprintf("must be > 0, got %d", cfg.TopN),
		})
	}

	issues = append(issues, validateMetrics(cfg)...)
	issues = append(issues, validateSink(cfg)...)
	issues = append(issues, validateRoles(cfg.Roles)...)
	return issues
}

func validateMetrics(cfg Config) []Issue {
	switch cfg.MetricsBackend {
	case "", "none", "pushgateway", "datadog":
		return nil
	}
	// Unknown backends fall back to no metrics at runtime.
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "metrics-backend",
		Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", cfg.MetricsBackend),
	}}
}

func validateSink(cfg Config) []Issue {
	if cfg.DBKind == "" {
		return nil
	}
	var issues []Issue
	switch cfg.DBKind {
	case "sqlite", "postgres", "mysql", "mssql":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db-kind",
			Message:  fmt.Sprintf("unsupported database sink %q (want sqlite, postgres, mysql, or mssql)", cfg.DBKind),
		})
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db-dsn",
			Message:  "a database sink requires -db-dsn",
		})
	}
	if strings.TrimSpace(cfg.DBTable) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db-table",
			Message:  "a database sink requires -db-table",
		})
	}
	if cfg.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "batch-size",
			Message:  fmt.Sprintf("must be > 0, got %d", cfg.BatchSize),
		})
	}
	return issues
}

// validateRoles flags role sets that would make stages meaningless. Absent
// roles are legal (stages skip them); duplicated names are not.
func validateRoles(r Roles) []Issue {
	var issues []Issue

	dupes := func(path string, names []string) {
		seen := map[string]struct{}{}
		for _, n := range names {
			if strings.TrimSpace(n) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  "column names must not be empty",
				})
				continue
			}
			if _, ok := seen[n]; ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  fmt.Sprintf("column %q listed twice", n),
				})
			}
			seen[n] = struct{}{}
		}
	}
	dupes("roles.geolocation", r.Geolocation)
	dupes("roles.injuries", r.Injuries)
	dupes("roles.text", r.Text)
	dupes("roles.factors", r.Factors)

	if strings.TrimSpace(r.Year) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "roles.year",
			Message:  "the derived year column needs a name",
		})
	}
	if r.Sentinel == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "roles.sentinel",
			Message:  "empty sentinel; contributing factors will not be scrubbed",
		})
	}
	if len(r.Injuries) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "roles.injuries",
			Message:  "no injury columns; describe and correlation reports will be skipped",
		})
	}
	return issues
}
