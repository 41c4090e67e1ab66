// Command crashwrangle cleans a crash-record CSV, writes summary reports and
// exports the raw and cleaned tables.
//
// Exit codes: 0 on completion (best-effort artifacts may be skipped), 1 on a
// fatal error (unreadable or unparseable input, unwritable output), 2 on a
// usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"crashwrangle/internal/config"
	"crashwrangle/internal/metrics"
	"crashwrangle/internal/metrics/datadog"
	"crashwrangle/internal/metrics/prompush"
	"crashwrangle/internal/pipeline"

	// register all sink backends with the storage factory.
	_ "crashwrangle/internal/storage/all"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("crashwrangle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := config.LoadFromArgs(fs, getenv, args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "crashwrangle: %v\n", err)
		return exitUsage
	}
	// Errors were already rejected by LoadFromArgs.
	for _, iss := range config.Validate(*cfg) {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}

	flush := installMetrics(cfg)
	defer flush()

	start := time.Now()
	sum, err := pipeline.Run(ctx, cfg, stdout)
	if err != nil {
		log.Printf("fatal: %v", err)
		return exitFatal
	}
	if cfg.Verbose {
		log.Printf("completed in %s: %d artifacts, %d skipped", time.Since(start).Truncate(time.Millisecond), len(sum.Artifacts), len(sum.Skipped))
	}
	return exitOK
}

// installMetrics sets the global metrics backend named by cfg and returns
// the function that flushes it at exit. Backend failures fall back to the
// no-op backend.
func installMetrics(cfg *config.Config) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogStatsDAddr,
			Namespace:  "crashwrangle.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	case "", "none":
		if cfg.Verbose {
			log.Printf("metrics: disabled")
		}
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", cfg.MetricsBackend, err)
		return func() {}
	}

	log.Printf("metrics: backend=%s job=%s", cfg.MetricsBackend, cfg.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
		metrics.Reset()
	}
}
