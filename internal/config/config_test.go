package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// -----------------------------------------------------------------------------
// Flag and environment loading
// -----------------------------------------------------------------------------
//
// Each test builds its own FlagSet and getenv so nothing leaks between tests
// or from the process environment.

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromArgs(Quiet("t"), envOf(nil), []string{"-input_csv=crashes.csv"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.InputCSV != "crashes.csv" || cfg.OutDir != "outputs" {
		t.Fatalf("got input=%q outdir=%q; want crashes.csv, outputs", cfg.InputCSV, cfg.OutDir)
	}
	if cfg.SampleRows != 50 || cfg.TopN != 20 {
		t.Fatalf("got sample=%d top=%d; want 50, 20", cfg.SampleRows, cfg.TopN)
	}
	if cfg.MetricsBackend != "none" || cfg.DBKind != "" || cfg.Workbook {
		t.Fatalf("optional features should default off: %#v", cfg)
	}
	if !reflect.DeepEqual(cfg.Roles, DefaultRoles()) {
		t.Fatalf("roles = %#v; want defaults", cfg.Roles)
	}
}

/*
TestLoadFromArgs_EnvSeedsFlagsWin verifies the precedence rule: environment
values become flag defaults, explicit flags override them.
*/
func TestLoadFromArgs_EnvSeedsFlagsWin(t *testing.T) {
	t.Parallel()

	env := envOf(map[string]string{
		"CRASHWRANGLE_INPUT_CSV": "from-env.csv",
		"CRASHWRANGLE_OUTDIR":    "env-out",
		"CRASHWRANGLE_TOP_N":     "5",
		"CRASHWRANGLE_XLSX":      "true",
	})
	cfg, err := LoadFromArgs(Quiet("t"), env, []string{"-outdir=flag-out"})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.InputCSV != "from-env.csv" {
		t.Fatalf("InputCSV = %q; want from-env.csv", cfg.InputCSV)
	}
	if cfg.OutDir != "flag-out" {
		t.Fatalf("OutDir = %q; want flag-out", cfg.OutDir)
	}
	if cfg.TopN != 5 || !cfg.Workbook {
		t.Fatalf("TopN=%d Workbook=%v; want 5, true", cfg.TopN, cfg.Workbook)
	}
}

func TestLoadFromArgs_UsageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
	}{
		{"missing input", nil},
		{"unknown flag", []string{"-input_csv=x.csv", "-nope"}},
		{"positional", []string{"-input_csv=x.csv", "extra"}},
		{"bad sink", []string{"-input_csv=x.csv", "-db-kind=oracle", "-db-dsn=x"}},
		{"zero top", []string{"-input_csv=x.csv", "-top-n=0"}},
	}
	for _, c := range cases {
		_, err := LoadFromArgs(Quiet("t"), envOf(nil), c.args)
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("%s: err = %v; want ErrUsage", c.name, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Roles files
// -----------------------------------------------------------------------------

func TestLoadRoles_YAMLOverridesKeepDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	yml := "borough: AREA\ngeolocation: [LAT, LON]\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := LoadRoles(path)
	if err != nil {
		t.Fatalf("LoadRoles: %v", err)
	}
	if r.Borough != "AREA" || !reflect.DeepEqual(r.Geolocation, []string{"LAT", "LON"}) {
		t.Fatalf("overrides not applied: %#v", r)
	}
	if r.Identifier != "UNIQUE KEY" || r.Sentinel != "Unspecified" {
		t.Fatalf("unset keys lost their defaults: %#v", r)
	}
}

func TestLoadRoles_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.json")
	if err := os.WriteFile(path, []byte(`{"date":"CRASH_DATE","time":"CRASH_TIME"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFromArgs(Quiet("t"), envOf(nil), []string{"-input_csv=x.csv", "-roles=" + path})
	if err != nil {
		t.Fatalf("LoadFromArgs: %v", err)
	}
	if cfg.Roles.Date != "CRASH_DATE" || cfg.Roles.Time != "CRASH_TIME" {
		t.Fatalf("roles = %#v; want CRASH_DATE/CRASH_TIME", cfg.Roles)
	}
}

func TestLoadRoles_MissingFileIsUsageError(t *testing.T) {
	t.Parallel()

	_, err := LoadFromArgs(Quiet("t"), envOf(nil), []string{"-input_csv=x.csv", "-roles=/does/not/exist.json"})
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("err = %v; want ErrUsage", err)
	}
}

func TestRoles_Primary(t *testing.T) {
	r := DefaultRoles()
	if r.PrimaryInjury() != "NUMBER OF PERSONS INJURED" {
		t.Fatalf("PrimaryInjury = %q", r.PrimaryInjury())
	}
	if r.PrimaryFactor() != "CONTRIBUTING FACTOR VEHICLE 1" {
		t.Fatalf("PrimaryFactor = %q", r.PrimaryFactor())
	}
	if (Roles{}).PrimaryInjury() != "" || (Roles{}).PrimaryFactor() != "" {
		t.Fatalf("empty roles should have no primary columns")
	}
}
