// Command harvest2toggl converts Harvest timesheet exports into Toggl's CSV
// import format.
//
// It reads the inputs named on the command line (standard input when there
// are none, or for "-") and writes the converted CSV to standard output:
//
//	harvest2toggl harvest_time_report.csv > toggl.csv
//	harvest2toggl --config team.json january.csv february.xlsx > toggl.csv
//
// Diagnostics go to standard error; any failure exits with status 1.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/alcm-b/toggl-import/internal/config"
	"github.com/alcm-b/toggl-import/internal/datasource/file"
	"github.com/alcm-b/toggl-import/internal/metrics"
	"github.com/alcm-b/toggl-import/internal/metrics/datadog"
	"github.com/alcm-b/toggl-import/internal/metrics/prompush"

	// register all archive backends with the storage factory.
	_ "github.com/alcm-b/toggl-import/internal/storage/all"
)

const (
	defaultPushgatewayURL = "http://localhost:9091"
	defaultStatsdAddr     = "127.0.0.1:8125"
)

type options struct {
	configPath     string
	validate       bool
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
	verbose        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		fatalf("harvest2toggl: %v", err)
	}
}

// newRootCmd builds the command with its streams injected so tests can run
// it in-process.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "harvest2toggl [file ...]",
		Short: "Convert Harvest time exports to Toggl CSV import format",
		Long: `harvest2toggl reads Harvest "Detailed time report" exports (CSV, or .xlsx
workbooks) and writes the equivalent Toggl CSV import on standard output.
With no file arguments, or for the argument "-", it reads standard input.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config JSON path (defaults apply when empty)")
	f.BoolVar(&opts.validate, "validate", false, "validate the configuration and exit")
	f.StringVar(&opts.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	f.StringVar(&opts.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	f.StringVar(&opts.statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logs")

	return cmd
}

func run(ctx context.Context, opts options, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	issues := config.ValidateConfig(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", describeConfig(opts.configPath))
	}
	if opts.validate {
		log.Printf("Configuration is valid: %s", describeConfig(opts.configPath))
		return nil
	}

	if configureMetrics(opts, cfg) {
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
		}()
	}

	start := time.Now()
	if opts.verbose {
		log.Printf("run: inputs=%d rounding=%s archive=%q", max(len(args), 1), cfg.MinuteRounding, cfg.Archive.Kind)
	}

	sum, err := runConvert(ctx, cfg, file.FromArgs(args, stdin), stdout)
	if opts.verbose {
		log.Printf("converted %d rows from %d inputs", sum.converted, sum.sources)
		if sum.runID != "" {
			log.Printf("archived %d rows (run %s)", sum.archived, sum.runID)
		}
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return err
}

// configureMetrics installs the metrics backend chosen by flag → env →
// config → default and reports whether one was installed.
func configureMetrics(opts options, cfg config.Config) bool {
	backendName := firstNonEmpty(opts.metricsBackend, os.Getenv("METRICS_BACKEND"), cfg.Metrics.Backend, "none")

	switch backendName {
	case "pushgateway":
		gwURL := firstNonEmpty(opts.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), cfg.Metrics.PushgatewayURL, defaultPushgatewayURL)
		b, err := prompush.NewBackend(cfg.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return false
		}
		if opts.verbose {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, cfg.Job)
		}
		metrics.SetBackend(b)
		return true

	case "datadog":
		addr := firstNonEmpty(opts.statsdAddr, os.Getenv("DD_AGENT_ADDR"), cfg.Metrics.StatsdAddr, defaultStatsdAddr)
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return false
		}
		if opts.verbose {
			log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		}
		metrics.SetBackend(b)
		return true

	case "none":
		if opts.verbose {
			log.Printf("metrics: disabled")
		}
		return false

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func describeConfig(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
