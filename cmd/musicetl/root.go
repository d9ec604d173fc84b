package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"musicetl/internal/config"
	"musicetl/internal/load"
	"musicetl/internal/metrics"
	"musicetl/internal/metrics/datadog"
	"musicetl/internal/metrics/prompush"
	"musicetl/internal/pipeline"
)

// cli carries state shared by every subcommand.
type cli struct {
	cfgPath string
	verbose bool
	app     config.App
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "musicetl",
		Short: "Normalize, clean and merge music catalog exports",
		Long: `musicetl turns heterogeneous music catalog exports (CSV, Excel, JSON)
into one canonical, deduplicated and artist-enriched tracks table.

Configuration comes from an optional file (--config), a .env file and
MUSICETL_* environment variables.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (JSON or YAML)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose logs")

	root.AddCommand(
		newIngestCommand(c),
		newMergeCommand(c),
		newBulkCommand(c),
		newLocalCommand(c),
		newServeCommand(c),
		newConfigCommand(c),
	)
	return root
}

// setup loads and validates the configuration. Errors abort; warnings are
// printed.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	app, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	c.app = app
	issues := config.Validate(app)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) && cmd.Name() != "validate" {
		return fmt.Errorf("configuration is invalid")
	}
	if c.verbose {
		log.Printf("config: data_dir=%s jobs=%s warehouse=%s metrics=%s", app.DataDir, app.Jobs.Kind, app.Warehouse.Kind, app.Metrics.Backend)
	}
	return nil
}

// runner builds a pipeline runner without job tracking.
func (c *cli) runner() *pipeline.Runner {
	return &pipeline.Runner{
		Warehouse: load.Warehouse{
			Kind:      c.app.Warehouse.Kind,
			DSN:       c.app.Warehouse.DSN,
			Table:     c.app.Warehouse.Table,
			BatchSize: c.app.Warehouse.BatchSize,
		},
		Workers: c.app.Runtime.Workers,
		Job:     c.app.Metrics.Job,
	}
}

// startMetrics installs the configured backend and returns a function that
// flushes it.
func (c *cli) startMetrics() func() {
	m := c.app.Metrics
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", m.PushgatewayURL, m.Backend, m.Job)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: "musicetl."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v", m.DatadogAddr, m.Backend)
		metrics.SetBackend(b)
		return func() {
			flush()
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}

	case "", "none":
		if c.verbose {
			log.Printf("metrics: disabled (backend=%q)", m.Backend)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return func() {}
	}
	return flush
}

func flush() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
