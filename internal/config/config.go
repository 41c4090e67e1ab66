// Package config centralizes crashwrangle configuration. All tunables are
// sourced from command-line flags with environment-variable fallbacks
// (12-factor friendly); flags are defined first so that -help shows every
// knob and its default.
//
// Typical usage:
//
//	cfg, err := config.Load() // reads os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-input_csv=x.csv"})
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable read by LoadFromArgs.
const EnvPrefix = "CRASHWRANGLE_"

// ErrUsage marks invalid command lines: unknown flags, missing required
// flags, or error-severity validation issues. The CLI maps it to exit code 2.
var ErrUsage = errors.New("usage error")

// Config holds all process configuration derived from flags and environment
// variables. It is a plain value and is not mutated after LoadFromArgs.
type Config struct {
	// IO
	InputCSV   string // source file (required)
	OutDir     string // artifact directory
	RolesFile  string // optional JSON/YAML column-role override
	SampleRows int    // rows written to sample_head.csv
	TopN       int    // rows kept in the contributing-factor ranking

	// Optional outputs
	Workbook bool // also write summary.xlsx

	// ParallelReports runs aggregation and statistics concurrently.
	ParallelReports bool

	// Metrics
	Job            string // metrics job label
	MetricsBackend string // "none", "pushgateway", "datadog"
	PushgatewayURL string
	DogStatsDAddr  string

	// DB sink (optional; disabled when DBKind is empty)
	DBKind    string // "sqlite", "postgres", "mysql", "mssql"
	DBDSN     string
	DBTable   string
	BatchSize int

	Verbose bool

	// Roles is the immutable column-role configuration passed to each stage.
	Roles Roles
}

// LoadFromArgs builds a Config by defining flags on fs, seeding each flag's
// default from getenv, and parsing args.
//
// Precedence:
//  1. Environment values (CRASHWRANGLE_*) seed each flag's default.
//  2. Explicit CLI flags override the seeded defaults.
//
// Errors wrap ErrUsage when the command line itself is invalid.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	env := func(k, d string) string {
		if v := getenv(EnvPrefix + k); v != "" {
			return v
		}
		return d
	}
	intEnv := func(k string, d int) int {
		if v := getenv(EnvPrefix + k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnv := func(k string, d bool) bool {
		switch strings.ToLower(getenv(EnvPrefix + k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&cfg.InputCSV, "input_csv", env("INPUT_CSV", ""), "Path to the crash-record CSV (required)")
	fs.StringVar(&cfg.OutDir, "outdir", env("OUTDIR", "outputs"), "Directory to write outputs (tables + exports)")
	fs.StringVar(&cfg.RolesFile, "roles", env("ROLES", ""), "Optional JSON or YAML file overriding column roles")
	fs.IntVar(&cfg.SampleRows, "sample-rows", intEnv("SAMPLE_ROWS", 50), "Rows written to sample_head.csv")
	fs.IntVar(&cfg.TopN, "top-n", intEnv("TOP_N", 20), "Rows kept in the contributing-factor ranking")
	fs.BoolVar(&cfg.Workbook, "xlsx", boolEnv("XLSX", false), "Also write summary.xlsx (best-effort)")
	fs.BoolVar(&cfg.ParallelReports, "parallel-reports", boolEnv("PARALLEL_REPORTS", false), "Run aggregation and statistics concurrently")

	fs.StringVar(&cfg.Job, "job", env("JOB", "crashwrangle"), "Job name used for metrics labeling")
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", env("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway, datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", env("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway base URL")
	fs.StringVar(&cfg.DogStatsDAddr, "dogstatsd-addr", env("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")

	fs.StringVar(&cfg.DBKind, "db-kind", env("DB_KIND", ""), "Optional database sink: sqlite, postgres, mysql, mssql")
	fs.StringVar(&cfg.DBDSN, "db-dsn", env("DB_DSN", ""), "Database DSN for the sink")
	fs.StringVar(&cfg.DBTable, "db-table", env("DB_TABLE", "collisions_clean"), "Destination table for the sink")
	fs.IntVar(&cfg.BatchSize, "batch-size", intEnv("BATCH_SIZE", 5000), "Rows per sink batch")

	fs.BoolVar(&cfg.Verbose, "v", boolEnv("VERBOSE", false), "Enable verbose logs")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %q", ErrUsage, fs.Args())
	}

	cfg.Roles = DefaultRoles()
	if cfg.RolesFile != "" {
		r, err := LoadRoles(cfg.RolesFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		cfg.Roles = r
	}

	var errs []string
	for _, iss := range Validate(*cfg) {
		if iss.Severity == SeverityError {
			errs = append(errs, iss.Error())
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUsage, strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Load is the production entry point. It parses os.Args[1:] on a fresh
// FlagSet named after the binary and reads the process environment. Usage
// output goes to stderr.
func Load() (*Config, error) {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return LoadFromArgs(fs, os.Getenv, os.Args[1:])
}

// Quiet returns a FlagSet that swallows usage output, handy in tests.
func Quiet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
